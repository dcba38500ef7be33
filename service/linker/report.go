package linker

import (
	"sort"
	"time"
)

// Report is the result of one analysis.
type Report struct {
	Target               string                `json:"target"`
	FundingWallet        string                `json:"funding_wallet,omitempty"`
	Links                map[string]*LinkStats `json:"links"`
	Graph                *Graph                `json:"graph"`
	EdgeThreshold        int                   `json:"edge_threshold"`
	SignaturesListed     int                   `json:"signatures_listed"`
	TransactionsResolved int                   `json:"transactions_resolved"`
	WalletsCorrelated    int                   `json:"wallets_correlated"`
	Empty                bool                  `json:"empty"`
	StartedAt            time.Time             `json:"started_at"`
	CompletedAt          time.Time             `json:"completed_at"`
}

// RankedLink is one row of a report ordered by score.
type RankedLink struct {
	Address string
	Score   int
	Stats   *LinkStats
}

// Ranked returns the links by descending score, ties broken by address.
func (r *Report) Ranked() []RankedLink {
	out := make([]RankedLink, 0, len(r.Links))
	for addr, s := range r.Links {
		out = append(out, RankedLink{Address: addr, Score: s.Score(), Stats: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Address < out[j].Address
	})
	return out
}
