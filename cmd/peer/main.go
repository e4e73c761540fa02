package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"bittrickle/internal/discovery"
	"bittrickle/internal/peer"
	"bittrickle/internal/wire"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

func main() {
	app := &cli.App{
		Name:  "bittrickle-peer",
		Usage: "peer for the bittrickle file-sharing overlay",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "tracker",
				Usage: "tracker host:port (discovered over mDNS when empty)",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "directory shared with other peers",
				Value: ".",
			},
			&cli.DurationFlag{
				Name:  "heartbeat",
				Usage: "liveness reporting interval",
				Value: wire.DefaultHeartbeatInterval,
			},
			&cli.DurationFlag{
				Name:  "reply-timeout",
				Usage: "how long to wait for a single tracker reply",
				Value: 3 * time.Second,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	trackerAddr := c.String("tracker")
	if trackerAddr == "" {
		log.Println("Discovering tracker on the network...")
		addr, err := discovery.DiscoverTracker(5 * time.Second)
		if err != nil {
			return fmt.Errorf("could not find tracker: %w", err)
		}
		trackerAddr = addr
	}
	log.Printf("Using tracker at %s", trackerAddr)

	client := peer.NewTrackerClient(trackerAddr, c.Duration("reply-timeout"))

	// The transfer endpoint opens before authentication so the login
	// request can advertise a port that is already being served.
	session, err := peer.NewSession(client, c.String("dir"), c.Duration("heartbeat"))
	if err != nil {
		return err
	}

	if err := promptLogin(session); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	session.Start(ctx)

	shutdown := func() {
		cancel()
		session.Close()
	}
	peer.NewCommandLoop(session, shutdown).Run()
	return nil
}

// promptLogin asks for credentials until the tracker accepts them.
func promptLogin(session *peer.Session) error {
	stdin := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Enter your username: ")
		username, err := stdin.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read username: %w", err)
		}
		fmt.Print("Enter your password: ")
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		message, err := session.Login(strings.TrimSpace(username), string(password))
		if err == nil {
			color.Green(message)
			return nil
		}
		if message != "" {
			color.Red(message)
		} else {
			color.Red("Error: %v", err)
		}
	}
}
