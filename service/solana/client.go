package solana

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/brojonat/walletlink/service/metrics"
)

const (
	methodGetSignatures  = "getSignaturesForAddress"
	methodGetTransaction = "getTransaction"
)

// Client fetches wallet history from a Solana JSON-RPC endpoint.
// It never returns an error to callers: missing or broken data becomes an
// empty result so a single bad wallet or signature cannot abort an analysis.
type Client struct {
	rpc        Caller
	logger     *slog.Logger
	metrics    *metrics.Metrics
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-attempt deadline for a single RPC call.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithRetry sets how many times a transport failure is retried and the base
// backoff, which doubles on each attempt.
func WithRetry(maxRetries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

// NewClient creates a new history client.
// If metrics is nil, no metrics will be recorded.
func NewClient(rpc Caller, m *metrics.Metrics, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		rpc:        rpc,
		logger:     logger,
		metrics:    m,
		timeout:    20 * time.Second,
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListSignatures returns up to limit signatures for wallet, most recent first.
// Any failure is logged and yields an empty list.
func (c *Client) ListSignatures(ctx context.Context, wallet string, limit int) []string {
	var entries []SignatureInfo
	params := []interface{}{wallet, map[string]interface{}{"limit": limit}}

	if err := c.call(ctx, methodGetSignatures, params, &entries); err != nil {
		c.logger.WarnContext(ctx, "failed to list signatures, treating as empty history",
			"wallet", wallet,
			"error", err,
		)
		return nil
	}
	c.metrics.RecordSignaturesPerCall(len(entries))

	if len(entries) > limit {
		entries = entries[:limit]
	}

	sigs := make([]string, 0, len(entries))
	for _, e := range entries {
		// failed transactions stay in; they are still part of the wallet's history
		if e.Signature != "" {
			sigs = append(sigs, e.Signature)
		}
	}

	c.logger.DebugContext(ctx, "listed signatures",
		"wallet", wallet,
		"count", len(sigs),
	)
	return sigs
}

// FetchTransaction resolves a signature to a parsed transaction.
// The boolean is false when the transaction is not found, unparsable, or
// could not be fetched after retries; callers skip it.
func (c *Client) FetchTransaction(ctx context.Context, signature string) (*ParsedTransaction, bool) {
	var raw *rawTransaction
	params := []interface{}{signature, map[string]interface{}{
		"encoding":                       "jsonParsed",
		"maxSupportedTransactionVersion": 0,
	}}

	if err := c.call(ctx, methodGetTransaction, params, &raw); err != nil {
		c.logger.WarnContext(ctx, "failed to fetch transaction, skipping",
			"signature", signature,
			"error", err,
		)
		c.metrics.RecordTransactionResolved("error")
		return nil, false
	}

	if raw == nil {
		c.logger.DebugContext(ctx, "transaction not found", "signature", signature)
		c.metrics.RecordTransactionResolved("missing")
		return nil, false
	}

	txn, err := parseTransaction(signature, raw)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to parse transaction, skipping",
			"signature", signature,
			"error", err,
		)
		c.metrics.RecordTransactionResolved("malformed")
		return nil, false
	}

	c.metrics.RecordTransactionResolved("ok")
	return txn, true
}

// call performs one RPC method with a per-attempt timeout, retrying only
// transport failures with exponential backoff. Backoff sleeps end early when
// ctx is done.
func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		start := time.Now()
		err = c.rpc.Call(callCtx, method, params, out)
		cancel()

		status := "success"
		if err != nil {
			status = "error"
		}
		c.metrics.RecordRPCCall(method, status, time.Since(start).Seconds())

		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt == c.maxRetries {
			break
		}

		wait := c.backoff << uint(attempt)
		reason := "transport"
		var te *TransportError
		if errors.As(err, &te) && te.RateLimited() {
			// rate limited endpoints need a longer pause than a dropped connection
			wait *= 2
			reason = "rate_limit"
			c.metrics.RecordRateLimitHit()
		}
		c.metrics.RecordRPCRetry(method, reason)

		c.logger.WarnContext(ctx, "rpc call failed, retrying",
			"method", method,
			"attempt", attempt+1,
			"backoff", wait,
			"error", err,
		)

		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
