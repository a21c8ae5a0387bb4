// Package store persists finished trajectories and their reflections to a
// local SQLite database, and serves keyword recall over saved results.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"orbit/internal/agent"
	"orbit/internal/logging"
	"orbit/internal/memory"
)

// TraceStore is backed by SQLite and safe for concurrent use.
type TraceStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// TrajectoryRecord is the stored shape of one finished run.
type TrajectoryRecord struct {
	RequestID    string    `json:"request_id"`
	Goal         string    `json:"goal"`
	Status       string    `json:"status"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Efficiency   float64   `json:"efficiency"`
	Response     string    `json:"response"`
	CreatedAt    time.Time `json:"created_at"`
}

// Open creates the database file, its parent directory, and the schema.
func Open(path string) (*TraceStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening trace database: %w", err)
	}
	// modernc's driver misbehaves with concurrent writers on one file.
	db.SetMaxOpenConns(1)

	s := &TraceStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("trace store ready at %s", path)
	return s, nil
}

func (s *TraceStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trajectories (
		request_id TEXT PRIMARY KEY,
		goal TEXT NOT NULL,
		status TEXT NOT NULL,
		steps TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		efficiency REAL NOT NULL,
		response TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trajectories_created ON trajectories(created_at);

	CREATE TABLE IF NOT EXISTS reflections (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		error_type TEXT NOT NULL,
		tool_name TEXT NOT NULL,
		analysis TEXT NOT NULL,
		suggested_fix TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_reflections_request ON reflections(request_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating trace schema: %w", err)
	}
	return nil
}

// SaveTrajectory writes one finished trajectory with its final response.
func (s *TraceStore) SaveTrajectory(ctx context.Context, tr agent.Trajectory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps, err := json.Marshal(tr.Steps)
	if err != nil {
		return fmt.Errorf("encoding steps: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trajectories
		(request_id, goal, status, steps, input_tokens, output_tokens, efficiency, response)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.RequestID, tr.Goal, string(tr.Status), string(steps),
		tr.TotalTokens.Input, tr.TotalTokens.Output, tr.Efficiency, agent.FinalResponse(tr))
	if err != nil {
		return fmt.Errorf("saving trajectory %s: %w", tr.RequestID, err)
	}
	logging.StoreDebug("saved trajectory %s (%s)", tr.RequestID, tr.Status)
	return nil
}

// SaveReflections writes the reflections accumulated during a run.
func (s *TraceStore) SaveReflections(ctx context.Context, requestID string, reflections []memory.Reflection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range reflections {
		_, err := s.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO reflections
			(id, request_id, error_type, tool_name, analysis, suggested_fix)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, requestID, r.ErrorType, r.FailedAction.Name, r.Analysis, r.SuggestedFix)
		if err != nil {
			return fmt.Errorf("saving reflection %s: %w", r.ID, err)
		}
	}
	return nil
}

// RecentTrajectories lists the latest runs, newest first.
func (s *TraceStore) RecentTrajectories(ctx context.Context, limit int) ([]TrajectoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, goal, status, input_tokens, output_tokens, efficiency, response, created_at
		FROM trajectories ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing trajectories: %w", err)
	}
	defer rows.Close()

	var out []TrajectoryRecord
	for rows.Next() {
		var rec TrajectoryRecord
		if err := rows.Scan(&rec.RequestID, &rec.Goal, &rec.Status,
			&rec.InputTokens, &rec.OutputTokens, &rec.Efficiency, &rec.Response, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning trajectory row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SearchNotes matches saved responses and goals by keyword. Implements the
// recall interface consumed by the recall_notes tool.
func (s *TraceStore) SearchNotes(ctx context.Context, query string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT goal, response FROM trajectories
		WHERE (goal LIKE ? OR response LIKE ?) AND status = 'completed'
		ORDER BY created_at DESC LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching notes: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var goal, response string
		if err := rows.Scan(&goal, &response); err != nil {
			return nil, fmt.Errorf("scanning note row: %w", err)
		}
		out = append(out, fmt.Sprintf("Goal: %s\n%s", goal, response))
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *TraceStore) Close() error {
	return s.db.Close()
}
