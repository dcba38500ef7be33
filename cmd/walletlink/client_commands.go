package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/walletlink/client"
)

func clientCommands() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "HTTP client commands for interacting with a walletlink server",
		Subcommands: []*cli.Command{
			clientAnalyzeCommand(),
			clientReportsCommand(),
		},
	}
}

func newAPIClient(c *cli.Context, timeout time.Duration) *client.Client {
	var httpClient *http.Client
	if timeout > 0 {
		httpClient = &http.Client{Timeout: timeout}
	}
	return client.NewClient(c.String("server-url"), httpClient, newLogger(c.String("log-level")))
}

func clientAnalyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Ask the server to analyze a wallet",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: append([]cli.Flag{
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Value:   10 * time.Minute,
				Usage:   "How long to wait for the report",
			},
		}, outputFlags()...),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("wallet address is required")
			}
			address := c.Args().First()

			format, err := formatFromFlags(c.Bool("json"), c.String("jq"), c.Bool("dot"))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			cl := newAPIClient(c, c.Duration("timeout"))
			analysis, err := cl.Analyze(ctx, address)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if format.JSON && format.JQ == "" {
				return writeJSON(c.App.Writer, analysis)
			}
			if err := writeReport(c.App.Writer, analysis.Report, format); err != nil {
				return err
			}
			if !format.JSON && !format.DOT && analysis.ReportID != nil {
				fmt.Fprintf(c.App.Writer, "Archived as report %d\n", *analysis.ReportID)
			}
			return nil
		},
	}
}

func clientReportsCommand() *cli.Command {
	return &cli.Command{
		Name:      "reports",
		Usage:     "List archived reports for a wallet",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   20,
				Usage:   "Maximum number of reports",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("wallet address is required")
			}

			cl := newAPIClient(c, 30*time.Second)
			reports, err := cl.ListReports(context.Background(), c.Args().First(), c.Int("limit"))
			if err != nil {
				return fmt.Errorf("failed to list reports: %w", err)
			}

			if c.Bool("json") {
				return writeJSON(c.App.Writer, reports)
			}

			table := tablewriter.NewWriter(c.App.Writer)
			table.SetHeader([]string{"ID", "Created", "Funding wallet", "Links", "Edges"})
			for _, r := range reports {
				table.Append([]string{
					strconv.FormatInt(r.ID, 10),
					r.CreatedAt.Format(time.RFC3339),
					formatOptionalAddress(r.FundingWallet),
					strconv.Itoa(r.LinkCount),
					strconv.Itoa(r.EdgeCount),
				})
			}
			table.Render()
			fmt.Fprintf(os.Stderr, "\nTotal: %d reports\n", len(reports))
			return nil
		},
	}
}

// formatOptionalAddress renders a nullable address.
func formatOptionalAddress(addr *string) string {
	if addr != nil && *addr != "" {
		return *addr
	}
	return "(none)"
}
