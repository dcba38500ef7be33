package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brojonat/walletlink/service/linker"
	"github.com/brojonat/walletlink/service/metrics"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a report does not exist.
var ErrNotFound = errors.New("report not found")

// Store archives analysis reports. The archive is append-only and read
// only for display; nothing read from it is fed back into an analysis.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
// If metrics is nil, no metrics will be recorded.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{
		pool:    pool,
		metrics: m,
	}
}

// Connect opens a pool for databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the archive table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// StoredReport is an archived analysis with its row metadata.
type StoredReport struct {
	ID            int64          `json:"id"`
	Target        string         `json:"target"`
	FundingWallet *string        `json:"funding_wallet,omitempty"`
	LinkCount     int            `json:"link_count"`
	EdgeCount     int            `json:"edge_count"`
	CreatedAt     time.Time      `json:"created_at"`
	Report        *linker.Report `json:"report"`
}

// SaveReport archives a report.
func (s *Store) SaveReport(ctx context.Context, report *linker.Report) (*StoredReport, error) {
	start := time.Now()
	stored, err := s.saveReport(ctx, report)
	s.metrics.RecordDBQuery("insert_report", time.Since(start).Seconds(), err)
	return stored, err
}

func (s *Store) saveReport(ctx context.Context, report *linker.Report) (*StoredReport, error) {
	body, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}

	stored := &StoredReport{
		Target:        report.Target,
		FundingWallet: nullableString(report.FundingWallet),
		LinkCount:     len(report.Links),
		Report:        report,
	}
	if report.Graph != nil {
		stored.EdgeCount = len(report.Graph.Edges)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO analysis_reports (target_address, funding_wallet, link_count, edge_count, report)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		stored.Target, stored.FundingWallet, stored.LinkCount, stored.EdgeCount, body,
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}
	return stored, nil
}

// GetReport retrieves one archived report by id.
func (s *Store) GetReport(ctx context.Context, id int64) (*StoredReport, error) {
	start := time.Now()
	row := s.pool.QueryRow(ctx, `
		SELECT id, target_address, funding_wallet, link_count, edge_count, created_at, report
		FROM analysis_reports
		WHERE id = $1`, id)
	stored, err := scanReport(row)
	s.metrics.RecordDBQuery("get_report", time.Since(start).Seconds(), err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %d: %w", id, err)
	}
	return stored, nil
}

// ListReports returns the most recent archived reports for target, newest first.
func (s *Store) ListReports(ctx context.Context, target string, limit int32) ([]*StoredReport, error) {
	start := time.Now()
	reports, err := s.listReports(ctx, target, limit)
	s.metrics.RecordDBQuery("list_reports", time.Since(start).Seconds(), err)
	return reports, err
}

func (s *Store) listReports(ctx context.Context, target string, limit int32) ([]*StoredReport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, target_address, funding_wallet, link_count, edge_count, created_at, report
		FROM analysis_reports
		WHERE target_address = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, target, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []*StoredReport{}
	for rows.Next() {
		stored, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return reports, nil
}

func scanReport(row pgx.Row) (*StoredReport, error) {
	var (
		stored StoredReport
		body   []byte
	)
	if err := row.Scan(
		&stored.ID,
		&stored.Target,
		&stored.FundingWallet,
		&stored.LinkCount,
		&stored.EdgeCount,
		&stored.CreatedAt,
		&body,
	); err != nil {
		return nil, err
	}

	stored.Report = &linker.Report{}
	if err := json.Unmarshal(body, stored.Report); err != nil {
		return nil, fmt.Errorf("failed to decode report %d: %w", stored.ID, err)
	}
	return &stored, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
