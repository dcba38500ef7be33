package linker

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brojonat/walletlink/service/config"
	"github.com/brojonat/walletlink/service/metrics"
	"github.com/brojonat/walletlink/service/solana"
)

// HistoryFetcher is the subset of solana.Client the analyzer needs.
// Both methods swallow failures: an empty list or false means "no data".
type HistoryFetcher interface {
	ListSignatures(ctx context.Context, wallet string, limit int) []string
	FetchTransaction(ctx context.Context, signature string) (*solana.ParsedTransaction, bool)
}

// Options are the tunables of one analysis. Build them once and share them.
type Options struct {
	HistoryLimit         int
	SystemProgramID      string
	TokenProgramID       string
	EdgeThreshold        int
	Concurrency          int
	MaxCorrelatedWallets int // 0 means no cap
}

// OptionsFromConfig extracts analysis options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		HistoryLimit:         cfg.HistoryLimit,
		SystemProgramID:      cfg.SystemProgramID,
		TokenProgramID:       cfg.TokenProgramID,
		EdgeThreshold:        cfg.EdgeThreshold,
		Concurrency:          cfg.Concurrency,
		MaxCorrelatedWallets: cfg.MaxCorrelatedWallets,
	}
}

// DefaultOptions returns the options for the built-in configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// Analyzer runs the linking pipeline: list the target's signatures, resolve
// them concurrently, aggregate in signature order, correlate funding, score.
type Analyzer struct {
	fetcher HistoryFetcher
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewAnalyzer creates an analyzer. If metrics is nil, no metrics will be recorded.
func NewAnalyzer(fetcher HistoryFetcher, opts Options, m *metrics.Metrics, logger *slog.Logger) *Analyzer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		fetcher: fetcher,
		opts:    opts,
		metrics: m,
		logger:  logger,
	}
}

// NewFromConfig wires an analyzer to a JSON-RPC endpoint using cfg's
// transport and analysis settings.
func NewFromConfig(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *Analyzer {
	rpc := solana.NewClient(
		solana.NewRPCCaller(cfg.RPCURL),
		m,
		logger,
		solana.WithTimeout(cfg.RPCTimeout),
		solana.WithRetry(cfg.RPCMaxRetries, cfg.RPCRetryBackoff),
	)
	return NewAnalyzer(rpc, OptionsFromConfig(cfg), m, logger)
}

// Options returns the analyzer's options.
func (a *Analyzer) Options() Options {
	return a.opts
}

// Analyze builds the link report for target. Data-source failures only
// shrink the report; the returned error is non-nil only when ctx is done.
func (a *Analyzer) Analyze(ctx context.Context, target string) (*Report, error) {
	start := time.Now()
	report, err := a.analyze(ctx, target, start)

	status := "success"
	links := 0
	if err != nil {
		status = "cancelled"
	} else {
		links = len(report.Links)
	}
	a.metrics.RecordAnalysis(status, time.Since(start).Seconds(), links)

	return report, err
}

func (a *Analyzer) analyze(ctx context.Context, target string, start time.Time) (*Report, error) {
	a.logger.InfoContext(ctx, "analyzing wallet",
		"wallet", target,
		"history_limit", a.opts.HistoryLimit,
	)

	sigs := a.fetcher.ListSignatures(ctx, target, a.opts.HistoryLimit)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	agg := NewAggregator(target, a.opts)
	resolved, err := a.resolve(ctx, sigs, agg)
	if err != nil {
		return nil, err
	}

	links := agg.Links()
	funder := agg.FundingWallet()
	correlated := 0
	if funder != "" && len(links) > 0 {
		a.logger.InfoContext(ctx, "correlating funding source",
			"wallet", target,
			"funding_wallet", funder,
			"counterparties", len(links),
		)
		if correlated, err = a.correlate(ctx, funder, links); err != nil {
			return nil, err
		}
	}

	report := &Report{
		Target:               target,
		FundingWallet:        funder,
		Links:                links,
		EdgeThreshold:        a.opts.EdgeThreshold,
		SignaturesListed:     len(sigs),
		TransactionsResolved: resolved,
		WalletsCorrelated:    correlated,
		Empty:                len(links) == 0,
		StartedAt:            start.UTC(),
		CompletedAt:          time.Now().UTC(),
	}
	report.Graph = BuildGraph(target, links, a.opts.EdgeThreshold)

	a.logger.InfoContext(ctx, "wallet analysis complete",
		"wallet", target,
		"signatures", len(sigs),
		"resolved", resolved,
		"links", len(links),
		"edges", len(report.Graph.Edges),
		"funding_wallet", funder,
		"duration", time.Since(start),
	)
	return report, nil
}

type fetchResult struct {
	index int
	txn   *solana.ParsedTransaction
	ok    bool
}

// resolve fetches every signature on the worker pool and feeds the results
// to agg in signature order. Only this goroutine touches agg. Returns the
// number of transactions aggregated.
func (a *Analyzer) resolve(ctx context.Context, sigs []string, agg *Aggregator) (int, error) {
	if len(sigs) == 0 {
		return 0, nil
	}

	results := make(chan fetchResult, len(sigs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)

	go func() {
		for i, sig := range sigs {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				txn, ok := a.fetcher.FetchTransaction(gctx, sig)
				results <- fetchResult{index: i, txn: txn, ok: ok}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	pending := make(map[int]fetchResult)
	next, resolved := 0, 0
	for r := range results {
		if ctx.Err() != nil {
			// drain so the producer can finish; nothing more is aggregated
			continue
		}
		pending[r.index] = r
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if p.ok {
				agg.Add(p.txn)
				resolved++
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return resolved, nil
}
