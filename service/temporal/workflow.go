package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/brojonat/walletlink/service/linker"
)

var a *Activities // for type-safe activity invocation

// AnalyzeWalletWorkflowInput contains the input for AnalyzeWalletWorkflow.
type AnalyzeWalletWorkflowInput struct {
	Address string `json:"address"`
}

// AnalyzeWalletWorkflowResult contains the result of AnalyzeWalletWorkflow.
type AnalyzeWalletWorkflowResult struct {
	Report       *linker.Report `json:"report"`
	ReportID     *int64         `json:"report_id,omitempty"`
	Published    bool           `json:"published"`
	PublishError *string        `json:"publish_error,omitempty"`
}

// AnalyzeWalletWorkflow analyzes a wallet and hands the report on.
//
// The workflow performs these steps:
// 1. Build the link report (AnalyzeWallet activity)
// 2. Archive it (SaveReport activity)
// 3. Publish a summary to NATS (PublishReport activity)
//
// A publish failure is recorded on the result but does not fail the workflow.
func AnalyzeWalletWorkflow(ctx workflow.Context, input AnalyzeWalletWorkflowInput) (*AnalyzeWalletWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("AnalyzeWalletWorkflow started", "address", input.Address)

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 300 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var analyzed *AnalyzeWalletResult
	err := workflow.ExecuteActivity(ctx, a.AnalyzeWallet, AnalyzeWalletInput{Address: input.Address}).Get(ctx, &analyzed)
	if err != nil {
		logger.Error("analysis failed", "address", input.Address, "error", err)
		return nil, fmt.Errorf("failed to analyze wallet: %w", err)
	}

	result := &AnalyzeWalletWorkflowResult{Report: analyzed.Report}

	var saved *SaveReportResult
	err = workflow.ExecuteActivity(ctx, a.SaveReport, SaveReportInput{Report: analyzed.Report}).Get(ctx, &saved)
	if err != nil {
		logger.Error("failed to archive report", "address", input.Address, "error", err)
		return result, fmt.Errorf("failed to save report: %w", err)
	}
	result.ReportID = saved.ReportID

	var published *PublishReportResult
	err = workflow.ExecuteActivity(ctx, a.PublishReport, PublishReportInput{
		Report:   analyzed.Report,
		ReportID: saved.ReportID,
	}).Get(ctx, &published)
	if err != nil {
		logger.Warn("failed to publish report", "address", input.Address, "error", err)
		errMsg := err.Error()
		result.PublishError = &errMsg
	} else {
		result.Published = published.Published
	}

	logger.Info("AnalyzeWalletWorkflow completed",
		"address", input.Address,
		"links", len(analyzed.Report.Links),
		"published", result.Published,
	)
	return result, nil
}
