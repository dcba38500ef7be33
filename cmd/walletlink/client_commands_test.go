package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalysisServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/analyses":
			var req struct {
				Address string `json:"address"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			report := sampleReport()
			report.Target = req.Address
			id := int64(7)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"report":    report,
				"report_id": id,
				"published": true,
			})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/analyses/"+testTarget:
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			funder := testFunder
			json.NewEncoder(w).Encode(map[string]interface{}{
				"reports": []map[string]interface{}{
					{"id": 7, "target": testTarget, "funding_wallet": funder, "link_count": 2, "edge_count": 1, "created_at": time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
					{"id": 3, "target": testTarget, "link_count": 0, "edge_count": 0, "created_at": time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
				},
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid wallet address"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientAnalyzeCommand_Text(t *testing.T) {
	srv := newAnalysisServer(t)

	out, err := runCLI(t, "--server-url", srv.URL, "client", "analyze", testTarget)
	require.NoError(t, err)
	assert.Contains(t, out, "Wallet: "+testTarget)
	assert.Contains(t, out, "Archived as report 7")
}

func TestClientAnalyzeCommand_JSON(t *testing.T) {
	srv := newAnalysisServer(t)

	out, err := runCLI(t, "--server-url", srv.URL, "client", "analyze", "--json", testTarget)
	require.NoError(t, err)

	var got struct {
		ReportID  *int64 `json:"report_id"`
		Published bool   `json:"published"`
		Report    struct {
			Target string `json:"target"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotNil(t, got.ReportID)
	assert.Equal(t, int64(7), *got.ReportID)
	assert.True(t, got.Published)
	assert.Equal(t, testTarget, got.Report.Target)
}

func TestClientReportsCommand_ServerError(t *testing.T) {
	srv := newAnalysisServer(t)

	_, err := runCLI(t, "--server-url", srv.URL, "client", "reports", "unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid wallet address")
}

func TestClientReportsCommand(t *testing.T) {
	srv := newAnalysisServer(t)

	out, err := runCLI(t, "--server-url", srv.URL, "client", "reports", "-n", "5", testTarget)
	require.NoError(t, err)
	assert.Contains(t, out, testFunder)
	assert.Contains(t, out, "(none)")
	assert.Contains(t, out, "2026-01-02T03:04:05Z")
}

func TestFormatOptionalAddress(t *testing.T) {
	addr := testFunder
	empty := ""
	assert.Equal(t, testFunder, formatOptionalAddress(&addr))
	assert.Equal(t, "(none)", formatOptionalAddress(&empty))
	assert.Equal(t, "(none)", formatOptionalAddress(nil))
}
