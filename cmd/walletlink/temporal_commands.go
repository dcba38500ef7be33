package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/walletlink/service/temporal"
)

func startAnalysisCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Start AnalyzeWalletWorkflow for a wallet",
		ArgsUsage: "WALLET_ADDRESS",
		Description: `Starts an analysis on the Temporal task queue served by walletlink workers.

Without --wait the workflow and run ids are printed and the command exits.`,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:    "wait",
				Aliases: []string{"w"},
				Usage:   "Wait for the workflow and print its report",
			},
		}, outputFlags()...),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}
			address := c.Args().First()
			if _, err := solanago.PublicKeyFromBase58(address); err != nil {
				return fmt.Errorf("invalid wallet address %q: %w", address, err)
			}

			format, err := formatFromFlags(c.Bool("json"), c.String("jq"), c.Bool("dot"))
			if err != nil {
				return err
			}

			tc, err := temporal.NewClient(
				c.String("temporal-host"),
				c.String("temporal-namespace"),
				c.String("temporal-task-queue"),
				newLogger(c.String("log-level")),
			)
			if err != nil {
				return err
			}
			defer tc.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !c.Bool("wait") {
				workflowID, runID, err := tc.StartAnalysis(ctx, address)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "Started workflow\n")
				fmt.Fprintf(c.App.Writer, "  Workflow ID: %s\n", workflowID)
				fmt.Fprintf(c.App.Writer, "  Run ID:      %s\n", runID)
				return nil
			}

			result, err := tc.AnalyzeSync(ctx, address)
			if err != nil {
				return err
			}
			if format.JSON && format.JQ == "" {
				return writeJSON(c.App.Writer, result)
			}
			if err := writeReport(c.App.Writer, result.Report, format); err != nil {
				return err
			}
			if result.PublishError != nil {
				fmt.Fprintf(os.Stderr, "warning: report not published: %s\n", *result.PublishError)
			}
			return nil
		},
	}
}
