package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallet = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

func TestAnalyze_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/analyses", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, wallet, body["address"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"report": {
				"target": "` + wallet + `",
				"funding_wallet": "F",
				"links": {
					"B": {"sol_transfer_count": 1, "token_transfer_count": 0,
					      "shared_programs": ["P"], "shared_token_mints": [],
					      "funded_by_same_source": true, "score": 1}
				},
				"edge_threshold": 25,
				"empty": false
			},
			"report_id": 12,
			"published": true
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	analysis, err := client.Analyze(context.Background(), wallet)
	require.NoError(t, err)

	assert.Equal(t, wallet, analysis.Report.Target)
	assert.Equal(t, "F", analysis.Report.FundingWallet)
	require.Contains(t, analysis.Report.Links, "B")
	// score on the wire is ignored and recomputed
	assert.Equal(t, 10+5+35, analysis.Report.Links["B"].Score())
	require.NotNil(t, analysis.ReportID)
	assert.Equal(t, int64(12), *analysis.ReportID)
	assert.True(t, analysis.Published)
}

func TestAnalyze_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "invalid address format: must be a base58 public key",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.Analyze(context.Background(), "invalid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base58 public key")
}

func TestAnalyze_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.Analyze(context.Background(), wallet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "upstream down")
}

func TestAnalyze_MissingReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"published": false}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.Analyze(context.Background(), wallet)
	assert.ErrorContains(t, err, "did not include a report")
}

func TestAnalyze_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient(server.URL, nil, nil)
	_, err := client.Analyze(ctx, wallet)
	assert.Error(t, err)
}

func TestListReports(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/analyses/"+wallet, r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"address": wallet,
			"count":   2,
			"reports": []map[string]interface{}{
				{"id": 2, "target": wallet, "link_count": 3, "edge_count": 1, "created_at": created},
				{"id": 1, "target": wallet, "funding_wallet": "F", "link_count": 0, "edge_count": 0, "created_at": created},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	reports, err := client.ListReports(context.Background(), wallet, 5)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, int64(2), reports[0].ID)
	assert.Equal(t, 3, reports[0].LinkCount)
	assert.Nil(t, reports[0].FundingWallet)
	require.NotNil(t, reports[1].FundingWallet)
	assert.Equal(t, "F", *reports[1].FundingWallet)
	assert.True(t, created.Equal(reports[1].CreatedAt))
}

func TestListReports_DefaultLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		w.Write([]byte(`{"reports": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	reports, err := client.ListReports(context.Background(), wallet, 0)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestGetReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/reports/7", r.URL.Path)
		w.Write([]byte(`{"id": 7, "target": "T", "link_count": 0, "edge_count": 0,
			"report": {"target": "T", "links": {}, "edge_threshold": 25, "empty": true}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	report, err := client.GetReport(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), report.ID)
	require.NotNil(t, report.Report)
	assert.True(t, report.Report.Empty)
}

func TestGetReport_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "report not found"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.GetReport(context.Background(), 99)
	assert.ErrorContains(t, err, "report not found")
}
