package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	temporalsdk "go.temporal.io/sdk/temporal"

	"github.com/brojonat/walletlink/service/db"
	"github.com/brojonat/walletlink/service/linker"
	"github.com/brojonat/walletlink/service/metrics"
	natspkg "github.com/brojonat/walletlink/service/nats"
)

// AnalyzeWalletInput contains parameters for the AnalyzeWallet activity.
type AnalyzeWalletInput struct {
	Address string `json:"address"`
}

// AnalyzeWalletResult contains the result of the AnalyzeWallet activity.
type AnalyzeWalletResult struct {
	Report *linker.Report `json:"report"`
}

// SaveReportInput contains parameters for the SaveReport activity.
type SaveReportInput struct {
	Report *linker.Report `json:"report"`
}

// SaveReportResult contains the result of archiving a report.
// ReportID is nil when no store is configured.
type SaveReportResult struct {
	ReportID *int64 `json:"report_id,omitempty"`
}

// PublishReportInput contains parameters for the PublishReport activity.
type PublishReportInput struct {
	Report   *linker.Report `json:"report"`
	ReportID *int64         `json:"report_id,omitempty"`
}

// PublishReportResult contains the result of publishing a report.
type PublishReportResult struct {
	Published bool   `json:"published"`
	Subject   string `json:"subject,omitempty"`
}

// AnalyzerInterface is the link analysis needed by activities.
type AnalyzerInterface interface {
	Analyze(ctx context.Context, target string) (*linker.Report, error)
}

// StoreInterface defines the database operations needed by activities.
// This allows for easy mocking in tests.
type StoreInterface interface {
	SaveReport(ctx context.Context, report *linker.Report) (*db.StoredReport, error)
}

// PublisherInterface defines the NATS publishing operations needed by activities.
type PublisherInterface interface {
	PublishReport(ctx context.Context, event *natspkg.ReportEvent) error
}

// Activities holds the dependencies needed by Temporal activities.
// store and publisher may be nil; the matching activities then do nothing.
type Activities struct {
	analyzer  AnalyzerInterface
	store     StoreInterface
	publisher PublisherInterface
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// If metrics is nil, no metrics will be recorded.
func NewActivities(
	analyzer AnalyzerInterface,
	store StoreInterface,
	publisher PublisherInterface,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		analyzer:  analyzer,
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// AnalyzeWallet runs the link analysis for one wallet.
func (a *Activities) AnalyzeWallet(ctx context.Context, input AnalyzeWalletInput) (result *AnalyzeWalletResult, err error) {
	start := time.Now()
	defer func() {
		a.metrics.RecordActivityDuration("AnalyzeWallet", time.Since(start).Seconds(), err)
	}()

	if _, perr := solanago.PublicKeyFromBase58(input.Address); perr != nil {
		a.logger.ErrorContext(ctx, "invalid wallet address",
			"address", input.Address,
			"error", perr,
		)
		return nil, temporalsdk.NewNonRetryableApplicationError(
			fmt.Sprintf("invalid wallet address %q", input.Address),
			"InvalidAddress",
			perr,
		)
	}

	report, err := a.analyzer.Analyze(ctx, input.Address)
	if err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	a.logger.InfoContext(ctx, "analysis activity complete",
		"address", input.Address,
		"links", len(report.Links),
		"funding_wallet", report.FundingWallet,
	)
	return &AnalyzeWalletResult{Report: report}, nil
}

// SaveReport archives a report in the database.
func (a *Activities) SaveReport(ctx context.Context, input SaveReportInput) (result *SaveReportResult, err error) {
	start := time.Now()
	defer func() {
		a.metrics.RecordActivityDuration("SaveReport", time.Since(start).Seconds(), err)
	}()

	if a.store == nil {
		a.logger.DebugContext(ctx, "no store configured, skipping archive")
		return &SaveReportResult{}, nil
	}
	if input.Report == nil {
		return nil, temporalsdk.NewNonRetryableApplicationError("report is required", "MissingReport", nil)
	}

	stored, err := a.store.SaveReport(ctx, input.Report)
	if err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	a.logger.InfoContext(ctx, "archived report",
		"address", input.Report.Target,
		"report_id", stored.ID,
	)
	return &SaveReportResult{ReportID: &stored.ID}, nil
}

// PublishReport publishes a report summary to NATS.
func (a *Activities) PublishReport(ctx context.Context, input PublishReportInput) (result *PublishReportResult, err error) {
	start := time.Now()
	defer func() {
		a.metrics.RecordActivityDuration("PublishReport", time.Since(start).Seconds(), err)
	}()

	if a.publisher == nil {
		a.logger.DebugContext(ctx, "no publisher configured, skipping publish")
		return &PublishReportResult{}, nil
	}
	if input.Report == nil {
		return nil, temporalsdk.NewNonRetryableApplicationError("report is required", "MissingReport", nil)
	}

	event := natspkg.FromReport(input.Report, input.ReportID)
	if err := a.publisher.PublishReport(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to publish report: %w", err)
	}

	return &PublishReportResult{
		Published: true,
		Subject:   natspkg.Subject(input.Report.Target),
	}, nil
}
