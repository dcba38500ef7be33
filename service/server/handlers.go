package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/brojonat/walletlink/service/db"
)

const (
	maxRequestBodySize = 1 << 10 // an address fits many times over
	maxAddressLength   = 100     // Solana addresses are 32-44 chars, give buffer
	defaultListLimit   = 20
	maxListLimit       = 200
)

// handleAnalyze returns a handler that analyzes a wallet.
// POST /api/v1/analyses {"address": "..."}
func handleAnalyze(runner AnalysisRunner, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Address string `json:"address"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("failed to decode analyze request", "error", err)
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, "request body too large", http.StatusBadRequest)
				return
			}
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		if err := validateAddress(req.Address); err != nil {
			logger.Debug("invalid address", "address", req.Address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		start := time.Now()
		result, err := runner.Run(r.Context(), req.Address)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.WarnContext(r.Context(), "analysis cancelled", "address", req.Address, "error", err)
				writeError(w, "analysis cancelled", http.StatusServiceUnavailable)
				return
			}
			logger.ErrorContext(r.Context(), "analysis failed", "address", req.Address, "error", err)
			writeError(w, "analysis failed", http.StatusInternalServerError)
			return
		}

		logger.InfoContext(r.Context(), "analysis served",
			"address", req.Address,
			"links", len(result.Report.Links),
			"report_id", result.ReportID,
			"duration", time.Since(start),
		)
		writeJSON(w, result, http.StatusOK)
	})
}

// handleListReports returns a handler that lists archived reports for a wallet.
// GET /api/v1/analyses/{address}?limit=N
func handleListReports(store ReportStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		if err := validateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		limit := int32(defaultListLimit)
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			var parsedLimit int
			if _, err := fmt.Sscanf(limitStr, "%d", &parsedLimit); err != nil {
				writeError(w, "invalid limit parameter: must be an integer", http.StatusBadRequest)
				return
			}
			if parsedLimit < 1 {
				writeError(w, "limit must be at least 1", http.StatusBadRequest)
				return
			}
			if parsedLimit > maxListLimit {
				writeError(w, fmt.Sprintf("limit cannot exceed %d", maxListLimit), http.StatusBadRequest)
				return
			}
			limit = int32(parsedLimit)
		}

		reports, err := store.ListReports(r.Context(), address, limit)
		if err != nil {
			logger.Error("failed to list reports", "address", address, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		logger.Debug("reports listed", "address", address, "count", len(reports))

		resp := make([]reportSummary, len(reports))
		for i, rep := range reports {
			resp[i] = toReportSummary(rep)
		}

		writeJSON(w, map[string]interface{}{
			"address": address,
			"reports": resp,
			"count":   len(resp),
		}, http.StatusOK)
	})
}

// handleGetReport returns a handler that retrieves one archived report.
// GET /api/v1/reports/{id}
func handleGetReport(store ReportStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id int64
		if _, err := fmt.Sscanf(r.PathValue("id"), "%d", &id); err != nil || id < 1 {
			writeError(w, "invalid report id", http.StatusBadRequest)
			return
		}

		stored, err := store.GetReport(r.Context(), id)
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, "report not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("failed to get report", "id", id, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, stored, http.StatusOK)
	})
}

// reportSummary is the list form of an archived report.
type reportSummary struct {
	ID            int64     `json:"id"`
	Target        string    `json:"target"`
	FundingWallet *string   `json:"funding_wallet,omitempty"`
	LinkCount     int       `json:"link_count"`
	EdgeCount     int       `json:"edge_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func toReportSummary(r *db.StoredReport) reportSummary {
	return reportSummary{
		ID:            r.ID,
		Target:        r.Target,
		FundingWallet: r.FundingWallet,
		LinkCount:     r.LinkCount,
		EdgeCount:     r.EdgeCount,
		CreatedAt:     r.CreatedAt,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// validateAddress validates a wallet address for security and format.
func validateAddress(address string) error {
	if address == "" {
		return errorf("address is required")
	}

	if len(address) > maxAddressLength {
		return errorf("address too long: maximum length is %d characters", maxAddressLength)
	}

	for _, r := range address {
		if r == 0 || unicode.IsControl(r) {
			return errorf("invalid characters in address: control characters not allowed")
		}
	}

	if _, err := solanago.PublicKeyFromBase58(address); err != nil {
		return errorf("invalid address format: must be a base58 public key")
	}

	return nil
}

// errorf is a helper to format error strings.
func errorf(format string, args ...interface{}) error {
	return &validationError{msg: strings.TrimSpace(fmt.Sprintf(format, args...))}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}
