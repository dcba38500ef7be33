package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/brojonat/walletlink/service/linker"
)

// Analysis is the result of one analysis run by the server.
type Analysis struct {
	Report    *linker.Report `json:"report"`
	ReportID  *int64         `json:"report_id,omitempty"` // set when the server archives reports
	Published bool           `json:"published"`
}

// ReportSummary describes one archived report without its body.
type ReportSummary struct {
	ID            int64     `json:"id"`
	Target        string    `json:"target"`
	FundingWallet *string   `json:"funding_wallet,omitempty"`
	LinkCount     int       `json:"link_count"`
	EdgeCount     int       `json:"edge_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// StoredReport is an archived report with its body.
type StoredReport struct {
	ReportSummary
	Report *linker.Report `json:"report"`
}

// Client is the HTTP client for the walletlink analysis service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new analysis service client.
// Analyses can take minutes, so the default HTTP timeout is generous.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Analyze asks the server to analyze a wallet and waits for the report.
func (c *Client) Analyze(ctx context.Context, address string) (*Analysis, error) {
	body, err := json.Marshal(map[string]string{"address": address})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/analyses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var analysis Analysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if analysis.Report == nil {
		return nil, fmt.Errorf("response did not include a report")
	}

	c.logger.Debug("wallet analyzed", "address", address, "links", len(analysis.Report.Links))
	return &analysis, nil
}

// ListReports retrieves the newest archived reports for a wallet.
// A limit of 0 uses the server default.
func (c *Client) ListReports(ctx context.Context, address string, limit int) ([]*ReportSummary, error) {
	u := fmt.Sprintf("%s/api/v1/analyses/%s", c.baseURL, url.PathEscape(address))
	if limit > 0 {
		u += fmt.Sprintf("?limit=%d", limit)
	}

	var out struct {
		Reports []*ReportSummary `json:"reports"`
	}
	if err := c.get(ctx, u, &out); err != nil {
		return nil, err
	}
	return out.Reports, nil
}

// GetReport retrieves one archived report by id.
func (c *Client) GetReport(ctx context.Context, id int64) (*StoredReport, error) {
	var out StoredReport
	if err := c.get(ctx, fmt.Sprintf("%s/api/v1/reports/%d", c.baseURL, id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}
