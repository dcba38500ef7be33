package nats

import (
	"time"

	"github.com/brojonat/walletlink/service/linker"
)

// ReportEvent summarizes one analysis for subscribers.
// Only the links that clear the edge threshold are included.
type ReportEvent struct {
	ReportID      *int64        `json:"report_id,omitempty"` // set when the report was archived
	Target        string        `json:"target"`
	FundingWallet string        `json:"funding_wallet,omitempty"`
	LinkCount     int           `json:"link_count"`
	EdgeThreshold int           `json:"edge_threshold"`
	Links         []LinkSummary `json:"links"`
	CompletedAt   time.Time     `json:"completed_at"`
	PublishedAt   time.Time     `json:"published_at"`
}

// LinkSummary is one above-threshold counterparty.
type LinkSummary struct {
	Address            string `json:"address"`
	Score              int    `json:"score"`
	FundedBySameSource bool   `json:"funded_by_same_source"`
}

// FromReport converts a report into an event. reportID may be nil.
func FromReport(report *linker.Report, reportID *int64) *ReportEvent {
	event := &ReportEvent{
		ReportID:      reportID,
		Target:        report.Target,
		FundingWallet: report.FundingWallet,
		LinkCount:     len(report.Links),
		EdgeThreshold: report.EdgeThreshold,
		Links:         []LinkSummary{},
		CompletedAt:   report.CompletedAt,
		PublishedAt:   time.Now().UTC(),
	}

	for _, link := range report.Ranked() {
		if link.Score < report.EdgeThreshold {
			break
		}
		event.Links = append(event.Links, LinkSummary{
			Address:            link.Address,
			Score:              link.Score,
			FundedBySameSource: link.Stats.FundedBySameSource,
		})
	}

	return event
}
