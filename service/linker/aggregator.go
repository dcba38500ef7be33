package linker

import (
	"github.com/brojonat/walletlink/service/solana"
)

// Aggregator accumulates LinkStats for one target wallet from its
// transactions. It is owned by a single goroutine; feed it transactions in
// traversal order so the first-seen funding wallet is deterministic.
type Aggregator struct {
	target        string
	systemProgram string
	tokenProgram  string

	links   map[string]*LinkStats
	funding string
}

// NewAggregator creates an aggregator for target.
func NewAggregator(target string, opts Options) *Aggregator {
	return &Aggregator{
		target:        target,
		systemProgram: opts.SystemProgramID,
		tokenProgram:  opts.TokenProgramID,
		links:         make(map[string]*LinkStats),
	}
}

// Add folds one transaction into the link map.
func (a *Aggregator) Add(txn *solana.ParsedTransaction) {
	for _, ix := range txn.Instructions {
		if ix.ProgramID != "" {
			// co-occurrence: every other account in the transaction shares this program
			for _, acct := range txn.AccountKeys {
				if acct != a.target {
					a.stats(acct).SharedPrograms.Add(ix.ProgramID)
				}
			}
		}

		if ix.Parsed == nil {
			continue
		}
		src, dst := ix.Parsed.Source, ix.Parsed.Destination

		switch ix.ProgramID {
		case a.systemProgram:
			if src == a.target && dst != a.target {
				a.stats(dst).SOLTransferCount++
			}
			if dst == a.target && src != a.target {
				a.stats(src).SOLTransferCount++
				if a.funding == "" {
					a.funding = src
				}
			}

		case a.tokenProgram:
			if src == a.target && dst != a.target {
				a.addToken(dst, ix.Parsed.Mint)
			}
			if dst == a.target && src != a.target {
				a.addToken(src, ix.Parsed.Mint)
			}
		}
	}
}

func (a *Aggregator) addToken(counterparty, mint string) {
	s := a.stats(counterparty)
	s.TokenTransferCount++
	if mint != "" {
		s.SharedTokenMints.Add(mint)
	}
}

func (a *Aggregator) stats(addr string) *LinkStats {
	s, ok := a.links[addr]
	if !ok {
		s = NewLinkStats()
		a.links[addr] = s
	}
	return s
}

// Links returns the accumulated link map. The map is shared, not copied.
func (a *Aggregator) Links() map[string]*LinkStats {
	return a.links
}

// FundingWallet returns the first wallet seen sending native currency to the
// target, or "" if none was seen.
func (a *Aggregator) FundingWallet() string {
	return a.funding
}
