package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vincentbai/rrweb-viewer/internal/stats"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

// ErrNotFound is returned by GetAnalysis for an unknown id.
var ErrNotFound = errors.New("analysis not found")

// Analysis is one row of the upload history. Only the summary is kept,
// never the events themselves.
type Analysis struct {
	ID          string               `json:"id"`
	FileName    string               `json:"fileName"`
	FileSize    int64                `json:"fileSize"`
	TotalEvents int                  `json:"totalEvents"`
	URL         *string              `json:"url"`
	DurationMS  int64                `json:"duration"`
	CreatedAt   time.Time            `json:"createdAt"`
	Stats       stats.RecordingStats `json:"stats"`
}

type Database struct {
	db *sql.DB
}

func NewDatabase(databasePath string) (*Database, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", databasePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS analyses(
	  id            TEXT    PRIMARY KEY,
	  file_name     TEXT    NOT NULL,
	  file_size     INTEGER NOT NULL CHECK (file_size >= 0),
	  total_events  INTEGER NOT NULL,
	  url           TEXT,
	  duration_ms   INTEGER NOT NULL,
	  started_at_ms INTEGER,
	  ended_at_ms   INTEGER,
	  stats_json    TEXT    NOT NULL CHECK (json_valid(stats_json)),
	  created_at    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at);
	CREATE INDEX IF NOT EXISTS idx_analyses_url     ON analyses(url);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) ValidateAnalysis(fileName string, s stats.RecordingStats) error {
	if fileName == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if s.FileSize < 0 {
		return fmt.Errorf("file size must not be negative")
	}
	if s.Duration < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	return nil
}

// InsertAnalysis records the stats computed for an upload and returns the row.
func (d *Database) InsertAnalysis(fileName string, s stats.RecordingStats) (*Analysis, error) {
	if err := d.ValidateAnalysis(fileName, s); err != nil {
		return nil, fmt.Errorf("invalid analysis: %w", err)
	}

	statsJSON, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats: %w", err)
	}

	var startedAt, endedAt sql.NullInt64
	if s.StartTime != nil {
		startedAt = sql.NullInt64{Int64: s.StartTime.UnixMilli(), Valid: true}
	}
	if s.EndTime != nil {
		endedAt = sql.NullInt64{Int64: s.EndTime.UnixMilli(), Valid: true}
	}

	analysis := &Analysis{
		ID:          uuid.NewString(),
		FileName:    fileName,
		FileSize:    s.FileSize,
		TotalEvents: s.TotalEvents,
		URL:         s.URL,
		DurationMS:  s.Duration,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		Stats:       s,
	}

	_, err = d.db.Exec(`INSERT INTO analyses(id, file_name, file_size, total_events, url, duration_ms, started_at_ms, ended_at_ms, stats_json, created_at) VALUES(?,?,?,?,?,?,?,?,json(?),?)`,
		analysis.ID, analysis.FileName, analysis.FileSize, analysis.TotalEvents, analysis.URL,
		analysis.DurationMS, startedAt, endedAt, string(statsJSON), analysis.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to insert analysis: %w", err)
	}
	return analysis, nil
}

// ListAnalyses returns the most recent analyses first. limit <= 0 means all.
func (d *Database) ListAnalyses(limit int) ([]Analysis, error) {
	query := `SELECT id, file_name, file_size, total_events, url, duration_ms, stats_json, created_at FROM analyses ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	analyses := []Analysis{}
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *analysis)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analyses: %w", err)
	}
	return analyses, nil
}

func (d *Database) GetAnalysis(id string) (*Analysis, error) {
	row := d.db.QueryRow(`SELECT id, file_name, file_size, total_events, url, duration_ms, stats_json, created_at FROM analyses WHERE id = ?`, id)
	analysis, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return analysis, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scanner) (*Analysis, error) {
	var (
		analysis  Analysis
		url       sql.NullString
		statsJSON string
		createdAt int64
	)
	if err := row.Scan(&analysis.ID, &analysis.FileName, &analysis.FileSize, &analysis.TotalEvents,
		&url, &analysis.DurationMS, &statsJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}
	if url.Valid {
		analysis.URL = &url.String
	}
	analysis.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := json.Unmarshal([]byte(statsJSON), &analysis.Stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	return &analysis, nil
}
