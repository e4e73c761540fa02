package discovery

import (
	"context"
	"fmt"
	"log"
	"time"

	"bittrickle/internal/wire"

	"github.com/grandcat/zeroconf"
)

// PublishTracker announces the tracker's UDP port on the local network.
func PublishTracker(port int) (*zeroconf.Server, error) {
	server, err := zeroconf.Register("BitTrickle-Tracker", wire.ServiceName, wire.ServiceDomain, port, []string{"txtv=0"}, nil)
	if err != nil {
		return nil, fmt.Errorf("could not register service: %w", err)
	}
	return server, nil
}

// DiscoverTracker finds a tracker on the LAN using mDNS and returns its
// host:port.
func DiscoverTracker(timeout time.Duration) (string, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", fmt.Errorf("failed to initialize resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	go func(results <-chan *zeroconf.ServiceEntry) {
		for entry := range results {
			log.Printf("Discovered tracker: %s at %s:%d", entry.Instance, entry.AddrIPv4[0], entry.Port)
			entries <- entry
		}
	}(entries)

	if err := resolver.Browse(ctx, wire.ServiceName, wire.ServiceDomain, entries); err != nil {
		return "", fmt.Errorf("failed to browse: %w", err)
	}

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("tracker discovery timed out")
	case entry := <-entries:
		if len(entry.AddrIPv4) == 0 {
			return "", fmt.Errorf("discovered tracker but no IPv4 address found")
		}
		return fmt.Sprintf("%s:%d", entry.AddrIPv4[0].String(), entry.Port), nil
	}
}
