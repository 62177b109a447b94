// Package store provides persistent snapshots of resolved table data.
//
// The cache layer optionally saves every successful refresh here so table
// contents survive restarts for audit and history queries. The snapshot
// store is read on demand, never on the query path.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/geekxflood/common/config"
	"github.com/geekxflood/common/logging"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/geekxflood/proteus/internal/resolver"
)

// ErrNoSnapshot is returned when no snapshot exists for the requested key.
var ErrNoSnapshot = errors.New("no snapshot found")

// StoreConfig holds configuration for the snapshot store.
type StoreConfig struct {
	ConnectionString string `json:"connection_string"`
	RetentionDays    int    `json:"retention_days"`
}

// DefaultStoreConfig returns a default snapshot store configuration.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		ConnectionString: "./proteus_snapshots.db",
		RetentionDays:    30,
	}
}

// Snapshot is one persisted table refresh.
type Snapshot struct {
	ID        int64          `json:"id"`
	Device    string         `json:"device"`
	MIB       string         `json:"mib"`
	Table     string         `json:"table"`
	QueryTime time.Time      `json:"query_time"`
	RowCount  int            `json:"row_count"`
	Rows      []resolver.Row `json:"rows"`
	CreatedAt time.Time      `json:"created_at"`
}

// StoreStats tracks snapshot store statistics.
type StoreStats struct {
	SnapshotsSaved  int64 `json:"snapshots_saved"`
	SnapshotsPruned int64 `json:"snapshots_pruned"`
	SaveErrors      int64 `json:"save_errors"`
}

// SnapshotStore persists resolved table snapshots in SQLite.
type SnapshotStore struct {
	config *StoreConfig
	db     *sql.DB
	logger logging.Logger
	stats  StoreStats
	mu     sync.Mutex
}

// NewSnapshotStore opens (and if needed initializes) the snapshot database.
func NewSnapshotStore(cfg config.Provider, logger logging.Logger) (*SnapshotStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration provider cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	storeConfig := DefaultStoreConfig()

	if conn, err := cfg.GetString("store.connection_string", storeConfig.ConnectionString); err == nil {
		storeConfig.ConnectionString = conn
	}
	if days, err := cfg.GetInt("store.retention_days", storeConfig.RetentionDays); err == nil {
		storeConfig.RetentionDays = days
	}

	db, err := sql.Open("sqlite3", storeConfig.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}

	s := &SnapshotStore{
		config: storeConfig,
		db:     db,
		logger: logger.With("component", "store"),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize snapshot schema: %w", err)
	}

	return s, nil
}

func (s *SnapshotStore) initSchema() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device TEXT NOT NULL,
		mib TEXT NOT NULL,
		table_name TEXT NOT NULL,
		query_time TIMESTAMP NOT NULL,
		row_count INTEGER NOT NULL,
		rows TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_key
		ON snapshots (device, mib, table_name, query_time);
	`

	_, err := s.db.Exec(ddl)
	return err
}

// Save persists one snapshot. Rows are stored JSON-encoded.
func (s *SnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	rows, err := json.Marshal(snap.Rows)
	if err != nil {
		s.recordSaveError()
		return fmt.Errorf("failed to encode snapshot rows: %w", err)
	}

	const insert = `
	INSERT INTO snapshots (device, mib, table_name, query_time, row_count, rows, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, insert,
		snap.Device, snap.MIB, snap.Table, snap.QueryTime, len(snap.Rows), string(rows), time.Now())
	if err != nil {
		s.recordSaveError()
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	snap.ID, _ = result.LastInsertId()
	snap.RowCount = len(snap.Rows)

	s.mu.Lock()
	s.stats.SnapshotsSaved++
	s.mu.Unlock()

	s.logger.Debug("snapshot saved",
		"device", snap.Device,
		"mib", snap.MIB,
		"table", snap.Table,
		"rows", snap.RowCount)

	return nil
}

// Latest returns the most recent snapshot for (device, mib, table), or
// ErrNoSnapshot if none exists.
func (s *SnapshotStore) Latest(ctx context.Context, device, mib, table string) (*Snapshot, error) {
	const query = `
	SELECT id, device, mib, table_name, query_time, row_count, rows, created_at
	FROM snapshots
	WHERE device = ? AND mib = ? AND table_name = ?
	ORDER BY query_time DESC
	LIMIT 1
	`

	snap := &Snapshot{}
	var rows string

	err := s.db.QueryRowContext(ctx, query, device, mib, table).Scan(
		&snap.ID, &snap.Device, &snap.MIB, &snap.Table,
		&snap.QueryTime, &snap.RowCount, &rows, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s::%s", ErrNoSnapshot, device, mib, table)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(rows), &snap.Rows); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot rows: %w", err)
	}

	return snap, nil
}

// Prune deletes snapshots older than the configured retention and returns
// the number removed.
func (s *SnapshotStore) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)

	result, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	pruned, _ := result.RowsAffected()

	s.mu.Lock()
	s.stats.SnapshotsPruned += pruned
	s.mu.Unlock()

	if pruned > 0 {
		s.logger.Info("pruned snapshots", "count", pruned, "cutoff", cutoff)
	}
	return pruned, nil
}

// GetStats returns a copy of the store statistics.
func (s *SnapshotStore) GetStats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close closes the underlying database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

func (s *SnapshotStore) recordSaveError() {
	s.mu.Lock()
	s.stats.SaveErrors++
	s.mu.Unlock()
}
