package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/walletlink/service/db"
)

func listReportsCommand() *cli.Command {
	return &cli.Command{
		Name:      "list-reports",
		Usage:     "List archived reports for a wallet",
		Aliases:   []string{"ls"},
		ArgsUsage: "<address>",
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
				return fmt.Errorf("requires exactly one argument: wallet address")
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			reports, err := store.ListReports(context.Background(), c.Args().First(), int32(c.Int("limit")))
			if err != nil {
				return fmt.Errorf("failed to list reports: %w", err)
			}

			if c.Bool("json") {
				return writeJSON(c.App.Writer, reports)
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tFUNDING WALLET\tLINKS\tEDGES")
			for _, r := range reports {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n",
					r.ID,
					r.CreatedAt.Format(time.RFC3339),
					formatOptionalAddress(r.FundingWallet),
					r.LinkCount,
					r.EdgeCount,
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d reports\n", len(reports))
			return nil
		},
	}
}

func getReportCommand() *cli.Command {
	return &cli.Command{
		Name:      "get-report",
		Usage:     "Show an archived report",
		Aliases:   []string{"get"},
		ArgsUsage: "<id>",
		Flags:     outputFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: report id")
			}
			id, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid report id %q", c.Args().First())
			}

			format, err := formatFromFlags(c.Bool("json"), c.String("jq"), c.Bool("dot"))
			if err != nil {
				return err
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			stored, err := store.GetReport(context.Background(), id)
			if err != nil {
				return fmt.Errorf("failed to get report: %w", err)
			}

			if !format.JSON && !format.DOT {
				fmt.Fprintf(c.App.Writer, "Report %d (archived %s)\n", stored.ID, stored.CreatedAt.Format(time.RFC3339))
			}
			return writeReport(c.App.Writer, stored.Report, format)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the report archive schema",
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			if err := store.Migrate(context.Background()); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "✓ schema up to date")
			return nil
		},
	}
}

// getStore creates a database store from the global --database-url flag.
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := db.Connect(context.Background(), dbURL)
	if err != nil {
		return nil, nil, err
	}

	store := db.NewStore(pool, nil)
	closer := func() { pool.Close() }

	return store, closer, nil
}
