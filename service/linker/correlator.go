package linker

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/brojonat/walletlink/service/solana"
)

// correlate marks every counterparty whose own history shows a native
// transfer from funder. Counterparties are checked in address order and at
// most opts.MaxCorrelatedWallets of them are checked; each check runs on the
// worker pool and the flags are applied here, after all checks finish.
// Returns the number of wallets checked.
func (a *Analyzer) correlate(ctx context.Context, funder string, links map[string]*LinkStats) (int, error) {
	candidates := make([]string, 0, len(links))
	for addr := range links {
		candidates = append(candidates, addr)
	}
	sort.Strings(candidates)

	if limit := a.opts.MaxCorrelatedWallets; limit > 0 && len(candidates) > limit {
		a.logger.WarnContext(ctx, "too many counterparties, correlating a subset",
			"discovered", len(candidates),
			"limit", limit,
		)
		candidates = candidates[:limit]
	}

	matches := make(chan string, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)

	for _, wallet := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			matched := a.fundedBy(gctx, wallet, funder)
			a.metrics.RecordCorrelationCheck(matched)
			if matched {
				matches <- wallet
			}
			return nil
		})
	}
	_ = g.Wait()
	close(matches)

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	for wallet := range matches {
		links[wallet].FundedBySameSource = true
	}
	return len(candidates), nil
}

// fundedBy scans wallet's own history, most recent first, and stops at the
// first native transfer from funder into wallet.
func (a *Analyzer) fundedBy(ctx context.Context, wallet, funder string) bool {
	for _, sig := range a.fetcher.ListSignatures(ctx, wallet, a.opts.HistoryLimit) {
		if ctx.Err() != nil {
			return false
		}
		txn, ok := a.fetcher.FetchTransaction(ctx, sig)
		if !ok {
			continue
		}
		if receivedFrom(txn, wallet, funder, a.opts.SystemProgramID) {
			return true
		}
	}
	return false
}

// receivedFrom reports whether txn contains a native transfer from source
// into dest.
func receivedFrom(txn *solana.ParsedTransaction, dest, source, systemProgram string) bool {
	for _, ix := range txn.Instructions {
		if ix.ProgramID != systemProgram || ix.Parsed == nil {
			continue
		}
		if ix.Parsed.Destination == dest && ix.Parsed.Source == source {
			return true
		}
	}
	return false
}
