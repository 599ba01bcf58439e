package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"FinTrend/internal/domain/models"
	domrepo "FinTrend/internal/domain/repository"
)

// CHResultStore writes batch runs and their per-series results to ClickHouse.
type CHResultStore struct {
	db       *sql.DB
	database string
}

func NewCHResultStore(db *sql.DB, database string) *CHResultStore {
	return &CHResultStore{db: db, database: database}
}

func (s *CHResultStore) runsTable() string    { return s.database + ".decomposition_runs" }
func (s *CHResultStore) resultsTable() string { return s.database + ".decompositions" }

// Schema returns the DDL the store needs.
func (s *CHResultStore) Schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            run_id      UUID,
            started_at  DateTime64(3),
            finished_at DateTime64(3),
            columns     UInt32,
            succeeded   UInt32,
            failed      UInt32,
            omitted     UInt32
        ) ENGINE = MergeTree ORDER BY (started_at, run_id)`, s.runsTable()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            run_id      UUID,
            series      String,
            position    UInt32,
            started_at  DateTime64(3),
            success     UInt8,
            message     String,
            trend       Array(Float64),
            components  String,
            extra       String
        ) ENGINE = MergeTree ORDER BY (series, started_at)`, s.resultsTable()),
	}
}

func (s *CHResultStore) Init(ctx context.Context) error {
	for _, stmt := range s.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init result schema: %w", err)
		}
	}
	return nil
}

func (s *CHResultStore) SaveRun(ctx context.Context, run *models.BatchRun) error {
	if run == nil {
		return fmt.Errorf("run is nil")
	}
	q := fmt.Sprintf("INSERT INTO %s (run_id, started_at, finished_at, columns, succeeded, failed, omitted) VALUES (?, ?, ?, ?, ?, ?, ?)", s.runsTable())
	if _, err := s.db.ExecContext(ctx, q,
		run.ID, run.StartedAt, run.FinishedAt,
		uint32(run.Columns), uint32(run.Succeeded), uint32(run.Failed), uint32(run.Omitted),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	rows, err := resultRows(run)
	if err != nil {
		return err
	}
	// Chunked multi-row VALUES to bound statement size.
	const chunkSize = 500
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, r := range rows[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, r...)
		}
		q := fmt.Sprintf("INSERT INTO %s (run_id, series, position, started_at, success, message, trend, components, extra) VALUES %s",
			s.resultsTable(), strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert results: %w", err)
		}
	}
	return nil
}

// resultRows flattens a run into insert arguments, one slice per series.
func resultRows(run *models.BatchRun) ([][]interface{}, error) {
	if run.Results == nil {
		return nil, nil
	}
	out := make([][]interface{}, 0, run.Results.Len())
	var err error
	pos := 0
	run.Results.Each(func(name string, r models.EstimationResult) bool {
		var comps, extra []byte
		if comps, err = marshalOrEmpty(r.Components); err != nil {
			return false
		}
		if extra, err = marshalOrEmpty(r.Extra); err != nil {
			return false
		}
		success := uint8(0)
		if r.Success {
			success = 1
		}
		trend := r.Trend
		if trend == nil {
			trend = []float64{}
		}
		out = append(out, []interface{}{
			run.ID, name, uint32(pos), run.StartedAt, success, r.Message, trend, string(comps), string(extra),
		})
		pos++
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	return out, nil
}

func marshalOrEmpty(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return []byte("{}"), nil
	}
	return b, nil
}

func (s *CHResultStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHResultStore) Close() error {
	return nil // Managed by pkg
}

var _ domrepo.ResultStore = (*CHResultStore)(nil)
