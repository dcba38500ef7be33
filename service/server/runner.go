package server

import (
	"context"
	"log/slog"

	"github.com/brojonat/walletlink/service/linker"
	natspkg "github.com/brojonat/walletlink/service/nats"
	"github.com/brojonat/walletlink/service/temporal"
)

// AnalysisResult is the body returned by POST /api/v1/analyses.
type AnalysisResult struct {
	Report    *linker.Report `json:"report"`
	ReportID  *int64         `json:"report_id,omitempty"`
	Published bool           `json:"published"`
}

// AnalysisRunner runs one analysis end to end.
type AnalysisRunner interface {
	Run(ctx context.Context, address string) (*AnalysisResult, error)
}

// Analyzer builds link reports.
type Analyzer interface {
	Analyze(ctx context.Context, target string) (*linker.Report, error)
}

// InlineRunner analyzes in the request goroutine, then archives and
// publishes when those are configured. Archive and publish failures are
// logged and do not fail the request.
type InlineRunner struct {
	analyzer  Analyzer
	store     ReportStore
	publisher natspkg.Publisher
	logger    *slog.Logger
}

// NewInlineRunner creates a runner. store and publisher may be nil.
func NewInlineRunner(analyzer Analyzer, store ReportStore, publisher natspkg.Publisher, logger *slog.Logger) *InlineRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &InlineRunner{
		analyzer:  analyzer,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Run implements AnalysisRunner.
func (r *InlineRunner) Run(ctx context.Context, address string) (*AnalysisResult, error) {
	report, err := r.analyzer.Analyze(ctx, address)
	if err != nil {
		return nil, err
	}

	result := &AnalysisResult{Report: report}

	if r.store != nil {
		stored, err := r.store.SaveReport(ctx, report)
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to archive report", "address", address, "error", err)
		} else {
			result.ReportID = &stored.ID
		}
	}

	if r.publisher != nil {
		if err := r.publisher.PublishReport(ctx, natspkg.FromReport(report, result.ReportID)); err != nil {
			r.logger.WarnContext(ctx, "failed to publish report", "address", address, "error", err)
		} else {
			result.Published = true
		}
	}

	return result, nil
}

// WorkflowStarter runs AnalyzeWalletWorkflow and waits for its result.
type WorkflowStarter interface {
	AnalyzeSync(ctx context.Context, address string) (*temporal.AnalyzeWalletWorkflowResult, error)
}

// TemporalRunner delegates analyses to Temporal workers.
type TemporalRunner struct {
	client WorkflowStarter
}

// NewTemporalRunner creates a runner backed by c.
func NewTemporalRunner(c WorkflowStarter) *TemporalRunner {
	return &TemporalRunner{client: c}
}

// Run implements AnalysisRunner.
func (r *TemporalRunner) Run(ctx context.Context, address string) (*AnalysisResult, error) {
	res, err := r.client.AnalyzeSync(ctx, address)
	if err != nil {
		return nil, err
	}
	return &AnalysisResult{
		Report:    res.Report,
		ReportID:  res.ReportID,
		Published: res.Published,
	}, nil
}
