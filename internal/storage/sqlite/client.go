package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/logsight/backend/internal/storage/models"
	"github.com/logsight/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err = db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		start_time INTEGER NOT NULL,
		end_time INTEGER NOT NULL,
		version_tag TEXT,
		subject_count INTEGER,
		outcome TEXT NOT NULL,
		record_count INTEGER,
		event_count INTEGER,
		error_count INTEGER,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON analysis_runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_store ON analysis_runs(store_id);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("Database schema initialized")
	return nil
}

func (c *Client) InsertAnalysisRun(run *models.AnalysisRun) error {
	_, err := c.db.Exec(`
		INSERT INTO analysis_runs
		(id, store_id, start_time, end_time, version_tag, subject_count,
		 outcome, record_count, event_count, error_count, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StoreID, run.StartTime, run.EndTime, run.VersionTag,
		run.SubjectCount, run.Outcome, run.RecordCount, run.EventCount,
		run.ErrorCount, run.LatencyMS, run.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis run: %w", err)
	}
	return nil
}

func (c *Client) ListAnalysisRuns(limit int) ([]models.AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := c.db.Query(`
		SELECT id, store_id, start_time, end_time, version_tag, subject_count,
		       outcome, record_count, event_count, error_count, latency_ms, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}
	defer rows.Close()

	var runs []models.AnalysisRun
	for rows.Next() {
		var run models.AnalysisRun
		var created int64
		err := rows.Scan(&run.ID, &run.StoreID, &run.StartTime, &run.EndTime,
			&run.VersionTag, &run.SubjectCount, &run.Outcome, &run.RecordCount,
			&run.EventCount, &run.ErrorCount, &run.LatencyMS, &created)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		run.CreatedAt = time.Unix(created, 0).UTC()
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis runs: %w", err)
	}

	return runs, nil
}
