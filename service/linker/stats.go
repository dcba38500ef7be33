package linker

import (
	"encoding/json"
	"sort"
)

// Score weights. A link's score is the weighted sum of its signals, capped
// at MaxScore.
const (
	weightSOLTransfer   = 10
	weightTokenTransfer = 12
	weightSharedMint    = 8
	weightSharedProgram = 5
	weightSameFunder    = 35

	MaxScore = 100
)

// StringSet is a set of addresses. It marshals as a sorted JSON array.
type StringSet map[string]struct{}

// Add inserts v.
func (s StringSet) Add(v string) {
	s[v] = struct{}{}
}

// Has reports whether v is in the set.
func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in lexical order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *StringSet) UnmarshalJSON(b []byte) error {
	var vals []string
	if err := json.Unmarshal(b, &vals); err != nil {
		return err
	}
	*s = make(StringSet, len(vals))
	for _, v := range vals {
		s.Add(v)
	}
	return nil
}

// LinkStats accumulates the evidence linking the target to one counterparty.
type LinkStats struct {
	SOLTransferCount   int       `json:"sol_transfer_count"`
	TokenTransferCount int       `json:"token_transfer_count"`
	SharedPrograms     StringSet `json:"shared_programs"`
	SharedTokenMints   StringSet `json:"shared_token_mints"`
	FundedBySameSource bool      `json:"funded_by_same_source"`
}

// NewLinkStats returns an empty accumulator.
func NewLinkStats() *LinkStats {
	return &LinkStats{
		SharedPrograms:   StringSet{},
		SharedTokenMints: StringSet{},
	}
}

// Score derives the confidence score in [0, MaxScore]. It is monotonic
// non-decreasing in every field.
func (s *LinkStats) Score() int {
	score := s.SOLTransferCount*weightSOLTransfer +
		s.TokenTransferCount*weightTokenTransfer +
		len(s.SharedTokenMints)*weightSharedMint +
		len(s.SharedPrograms)*weightSharedProgram
	if s.FundedBySameSource {
		score += weightSameFunder
	}
	if score > MaxScore {
		return MaxScore
	}
	if score < 0 {
		return 0
	}
	return score
}

// MarshalJSON includes the derived score. UnmarshalJSON ignores it, so a
// stored score is never trusted over the counts it came from.
func (s *LinkStats) MarshalJSON() ([]byte, error) {
	type plain LinkStats
	return json.Marshal(struct {
		*plain
		Score int `json:"score"`
	}{(*plain)(s), s.Score()})
}

func (s *LinkStats) UnmarshalJSON(b []byte) error {
	type plain LinkStats
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = LinkStats(p)
	if s.SharedPrograms == nil {
		s.SharedPrograms = StringSet{}
	}
	if s.SharedTokenMints == nil {
		s.SharedTokenMints = StringSet{}
	}
	return nil
}
