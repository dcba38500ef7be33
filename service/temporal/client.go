package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
)

// Client starts wallet analyses on Temporal.
type Client struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

// NewClient creates a new Temporal client.
func NewClient(host, namespace, taskQueue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return &Client{
		client:    c,
		taskQueue: taskQueue,
		logger:    logger,
	}, nil
}

// StartAnalysis starts AnalyzeWalletWorkflow without waiting for it.
func (c *Client) StartAnalysis(ctx context.Context, address string) (workflowID, runID string, err error) {
	run, err := c.start(ctx, address)
	if err != nil {
		return "", "", err
	}
	return run.GetID(), run.GetRunID(), nil
}

// AnalyzeSync starts AnalyzeWalletWorkflow and blocks until it completes.
func (c *Client) AnalyzeSync(ctx context.Context, address string) (*AnalyzeWalletWorkflowResult, error) {
	run, err := c.start(ctx, address)
	if err != nil {
		return nil, err
	}

	var result AnalyzeWalletWorkflowResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("analysis workflow %s failed: %w", run.GetID(), err)
	}
	return &result, nil
}

func (c *Client) start(ctx context.Context, address string) (client.WorkflowRun, error) {
	opts := client.StartWorkflowOptions{
		ID:                       workflowID(address, time.Now()),
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: 30 * time.Minute,
	}

	run, err := c.client.ExecuteWorkflow(ctx, opts, AnalyzeWalletWorkflow, AnalyzeWalletWorkflowInput{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to start analysis workflow: %w", err)
	}

	c.logger.InfoContext(ctx, "started analysis workflow",
		"address", address,
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
	)
	return run, nil
}

// SDKClient returns the underlying Temporal SDK client.
func (c *Client) SDKClient() client.Client {
	return c.client
}

// TaskQueue returns the task queue analyses are started on.
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

// workflowID generates a workflow ID for one analysis of address.
func workflowID(address string, at time.Time) string {
	return "analyze-wallet-" + address + "-" + at.UTC().Format("20060102T150405.000")
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
