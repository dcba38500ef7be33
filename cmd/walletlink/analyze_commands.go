package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/walletlink/service/config"
	"github.com/brojonat/walletlink/service/linker"
	"github.com/brojonat/walletlink/service/metrics"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output the report as JSON",
		},
		&cli.StringFlag{
			Name:  "jq",
			Usage: "Apply a jq filter to the JSON report (implies --json)",
		},
		&cli.BoolFlag{
			Name:  "dot",
			Usage: "Output the link graph in Graphviz DOT format",
		},
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze a wallet directly against a Solana JSON-RPC endpoint",
		ArgsUsage: "WALLET_ADDRESS",
		Description: `Lists the wallet's recent signatures, resolves each transaction, and scores
every counterparty by shared transfers, token mints, programs and funding source.

Settings come from the environment (see .env) and can be overridden per run.

Examples:
  walletlink analyze 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
  walletlink analyze --history-limit 100 --jq '.links | keys' ADDRESS
  walletlink analyze --dot ADDRESS | dot -Tpng > links.png`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "Solana JSON-RPC endpoint",
				EnvVars: []string{"SOLANA_RPC_URL"},
			},
			&cli.IntFlag{
				Name:  "history-limit",
				Usage: "Signatures to fetch per wallet",
			},
			&cli.IntFlag{
				Name:  "edge-threshold",
				Usage: "Minimum score for a graph edge",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Maximum in-flight RPC requests",
			},
			&cli.IntFlag{
				Name:  "max-correlated",
				Usage: "Maximum counterparties checked for a shared funder (0 = no cap)",
			},
			&cli.DurationFlag{
				Name:  "rpc-timeout",
				Usage: "Per-call RPC timeout",
			},
			&cli.IntFlag{
				Name:  "rpc-retries",
				Usage: "Retries for transport errors",
			},
			&cli.DurationFlag{
				Name:  "rpc-backoff",
				Usage: "Initial retry backoff",
			},
			&cli.StringFlag{
				Name:  "system-program",
				Usage: "System program id",
			},
			&cli.StringFlag{
				Name:  "token-program",
				Usage: "Token program id",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Abort the analysis after this long (0 = no limit)",
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

			cfg, err := analyzeConfig(c)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			if d := c.Duration("timeout"); d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			logger := newLogger(c.String("log-level"))
			// Private registry: a one-shot run has nobody scraping it.
			m := metrics.NewMetrics(prometheus.NewRegistry())
			analyzer := linker.NewFromConfig(cfg, m, logger)

			report, err := analyzer.Analyze(ctx, address)
			if err != nil {
				return fmt.Errorf("analysis aborted: %w", err)
			}

			return writeReport(c.App.Writer, report, format)
		},
	}
}

// analyzeConfig loads the environment config and applies flag overrides.
func analyzeConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if c.IsSet("rpc-url") {
		cfg.RPCURL = c.String("rpc-url")
	}
	if c.IsSet("history-limit") {
		cfg.HistoryLimit = c.Int("history-limit")
	}
	if c.IsSet("edge-threshold") {
		cfg.EdgeThreshold = c.Int("edge-threshold")
	}
	if c.IsSet("concurrency") {
		cfg.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("max-correlated") {
		cfg.MaxCorrelatedWallets = c.Int("max-correlated")
	}
	if c.IsSet("rpc-timeout") {
		cfg.RPCTimeout = c.Duration("rpc-timeout")
	}
	if c.IsSet("rpc-retries") {
		cfg.RPCMaxRetries = c.Int("rpc-retries")
	}
	if c.IsSet("rpc-backoff") {
		cfg.RPCRetryBackoff = c.Duration("rpc-backoff")
	}
	if c.IsSet("system-program") {
		cfg.SystemProgramID = c.String("system-program")
	}
	if c.IsSet("token-program") {
		cfg.TokenProgramID = c.String("token-program")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
