package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	natspkg "github.com/brojonat/walletlink/service/nats"
)

// subscribeCommand streams report events for one wallet or all wallets.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Subscribe to report events",
		ArgsUsage: "[wallet_address]",
		Description: `Stream analysis report events published to NATS JetStream.

Events are published to the subject: links.{wallet_address}
Omit the address to receive events for every wallet.

Example:
  walletlink nats subscribe 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin --json`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output events as JSON lines",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 1 {
				return fmt.Errorf("at most one wallet address may be given")
			}
			address := c.Args().First()

			logger := newLogger(c.String("log-level"))
			sub, err := natspkg.NewSubscriber(c.String("nats-url"), logger)
			if err != nil {
				return err
			}
			defer sub.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			events, err := sub.Subscribe(ctx, address)
			if err != nil {
				return err
			}

			target := address
			if target == "" {
				target = "all wallets"
			}
			fmt.Fprintf(os.Stderr, "Listening for reports on %s (Ctrl+C to stop)\n", target)

			for {
				select {
				case <-ctx.Done():
					return nil
				case event := <-events:
					if err := printEvent(c.App.Writer, event, c.Bool("json")); err != nil {
						return err
					}
				}
			}
		},
	}
}

func printEvent(w io.Writer, event *natspkg.ReportEvent, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, event)
	}

	color.New(color.Bold).Fprintf(w, "[%s] %s\n", event.CompletedAt.Format(time.RFC3339), event.Target)
	if event.FundingWallet != "" {
		fmt.Fprintf(w, "  funding wallet: %s\n", event.FundingWallet)
	}
	fmt.Fprintf(w, "  %d linked wallets, %d at or above %d\n", event.LinkCount, len(event.Links), event.EdgeThreshold)
	for _, link := range event.Links {
		marker := ""
		if link.FundedBySameSource {
			marker = " (same funder)"
		}
		fmt.Fprintf(w, "    %3d  %s%s\n", link.Score, link.Address, marker)
	}
	return nil
}
