package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	// Database drivers, registered via blank import per database/sql convention.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS workflow_snapshots (
    id VARCHAR(255) PRIMARY KEY,
    team_name VARCHAR(255) NOT NULL,
    workflow_status VARCHAR(50) NOT NULL,
    snapshot_json TEXT NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_team_name ON workflow_snapshots(team_name);
CREATE INDEX IF NOT EXISTS idx_snapshots_recorded_at ON workflow_snapshots(recorded_at);
`

// SnapshotStore persists cleaned workflow state snapshots to a SQL backend.
// It never schedules or mutates a team store — it only observes, via
// Store.Subscribe, and records what it's told.
type SnapshotStore struct {
	db      *sql.DB
	dialect string
}

// Open connects to the database described by cfg, pings it, and ensures the
// snapshot table exists.
func Open(cfg Config) (*SnapshotStore, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	driverName := cfg.Driver
	if driverName == "sqlite" {
		driverName = "sqlite3"
	}

	db, err := sql.Open(driverName, cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("persistence: open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: ping database: %w", err)
	}

	s := &SnapshotStore{db: db, dialect: cfg.Driver}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SnapshotStore) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("persistence: create schema: %w", err)
	}
	return nil
}

// Record serializes a cleaned state snapshot and inserts it, tagged with
// the team name and the status it was taken at. cleaned is expected to be
// the result of Store.GetCleanedState, but any JSON-serializable value is
// accepted and stored as its JSON encoding.
func (s *SnapshotStore) Record(ctx context.Context, teamName, workflowStatus string, cleaned any) error {
	payload, err := json.Marshal(cleaned)
	if err != nil {
		return fmt.Errorf("persistence: marshal snapshot: %w", err)
	}

	query := `
INSERT INTO workflow_snapshots (id, team_name, workflow_status, snapshot_json, recorded_at)
VALUES (?, ?, ?, ?, ?)
`
	if s.dialect == "postgres" {
		query = `
INSERT INTO workflow_snapshots (id, team_name, workflow_status, snapshot_json, recorded_at)
VALUES ($1, $2, $3, $4, $5)
`
	}

	_, err = s.db.ExecContext(ctx, query, "snapshot-"+uuid.New().String(), teamName, workflowStatus, string(payload), time.Now())
	if err != nil {
		return fmt.Errorf("persistence: insert snapshot: %w", err)
	}
	return nil
}

// Snapshot is one stored row, decoded back for inspection or replay.
type Snapshot struct {
	ID             string
	TeamName       string
	WorkflowStatus string
	RecordedAt     time.Time
	Raw            json.RawMessage
}

// ListByTeam returns every snapshot recorded for a team, most recent first.
func (s *SnapshotStore) ListByTeam(ctx context.Context, teamName string) ([]Snapshot, error) {
	query := `
SELECT id, team_name, workflow_status, snapshot_json, recorded_at
FROM workflow_snapshots
WHERE team_name = ?
ORDER BY recorded_at DESC
`
	if s.dialect == "postgres" {
		query = `
SELECT id, team_name, workflow_status, snapshot_json, recorded_at
FROM workflow_snapshots
WHERE team_name = $1
ORDER BY recorded_at DESC
`
	}

	rows, err := s.db.QueryContext(ctx, query, teamName)
	if err != nil {
		return nil, fmt.Errorf("persistence: query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			snap    Snapshot
			rawJSON string
		)
		if err := rows.Scan(&snap.ID, &snap.TeamName, &snap.WorkflowStatus, &rawJSON, &snap.RecordedAt); err != nil {
			return nil, fmt.Errorf("persistence: scan snapshot: %w", err)
		}
		snap.Raw = json.RawMessage(rawJSON)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Close releases the underlying database connection.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
