package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"bittrickle/internal/discovery"
	"bittrickle/internal/tracker"
	"bittrickle/internal/wire"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "bittrickle-tracker",
		Usage: "directory server for the bittrickle file-sharing overlay",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "UDP port to listen on",
				Value: 8080,
			},
			&cli.StringFlag{
				Name:  "credentials",
				Usage: "path to the username/password file",
				Value: "credentials.txt",
			},
			&cli.DurationFlag{
				Name:  "session-timeout",
				Usage: "evict peers unseen for longer than this",
				Value: wire.DefaultSessionTimeout,
			},
			&cli.BoolFlag{
				Name:  "mdns",
				Usage: "announce the tracker on the local network",
				Value: true,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	creds, err := tracker.LoadCredentials(c.String("credentials"))
	if err != nil {
		return err
	}
	log.Printf("Loaded %d credential entries from %s", len(creds), c.String("credentials"))

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: c.Int("port")})
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", c.Int("port"), err)
	}

	if c.Bool("mdns") {
		server, err := discovery.PublishTracker(conn.LocalAddr().(*net.UDPAddr).Port)
		if err != nil {
			return fmt.Errorf("publish mDNS service: %w", err)
		}
		defer server.Shutdown()
		log.Printf("Published mDNS service %q", wire.ServiceName)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := tracker.NewServer(creds, c.Duration("session-timeout"))
	log.Printf("Tracker listening on %s", conn.LocalAddr())
	if err := srv.Serve(ctx, conn); err != nil {
		return err
	}
	log.Println("Tracker stopped")
	return nil
}
