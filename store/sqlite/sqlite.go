// Package sqlite records the per-group packet counters of the pfq
// daemon in SQLite.
//
// Every daemon start registers a run, identified by a random UUID, and
// each sample is tagged with the run that took it. Counters restart from
// zero when a group is reconstructed or the daemon restarts; the run id
// lets readers tell the series apart.
//
// All queries use prepared statements compiled when the store is
// opened. Save writes a batch in one transaction using transaction-bound
// handles of the same statements.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/group"
)

// msec formats a duration as milliseconds with 3 decimal places.
func msec(d time.Duration) string {
	return fmt.Sprintf("%.3f", float64(d.Microseconds())/1000)
}

//go:embed schema.sql
var schemaSQL string

// Sample is one recording of a group's counters.
type Sample struct {
	RunID   uuid.UUID      `json:"run_id"`
	GID     pfq.GroupID    `json:"gid"`
	At      time.Time      `json:"at"`
	Stats   group.Stats    `json:"stats"`
	Sockets pfq.SocketMask `json:"sockets"`
}

// Store is the statistics history.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu  sync.Mutex
	run string // current run, never pruned

	stmtInsertRun    *sql.Stmt
	stmtInsertSample *sql.Stmt
	stmtHistory      *sql.Stmt
	stmtPrune        *sql.Stmt
	stmtPruneRuns    *sql.Stmt
}

// New opens or creates the database at dbPath.
func New(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store", "db", dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open(driverName, dsn(dbPath, [][2]string{{"journal_mode", "WAL"}, {"foreign_keys", "1"}, {"busy_timeout", "5000"}}))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s, err := open(ctx, db, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("opened database", "path", dbPath)
	return s, nil
}

// NewInMemory creates an in-memory store for testing.
func NewInMemory(ctx context.Context, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store", "db", ":memory:")

	db, err := sql.Open(driverName, dsn(":memory:", [][2]string{{"foreign_keys", "1"}}))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// Each connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)

	s, err := open(ctx, db, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("opened in-memory database")
	return s, nil
}

func open(ctx context.Context, db *sql.DB, logger *slog.Logger) (*Store, error) {
	s := &Store{db: db, logger: logger}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := s.prepareStatements(ctx); err != nil {
		s.closeStatements()
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return s, nil
}

func (s *Store) prepareStatements(ctx context.Context) error {
	var err error

	const sqlInsertRun = "INSERT INTO runs (run_id, started_at) VALUES (?, ?)"
	if s.stmtInsertRun, err = s.db.PrepareContext(ctx, sqlInsertRun); err != nil {
		return fmt.Errorf("prepare InsertRun: %w", err)
	}

	const sqlInsertSample = `
		INSERT INTO group_stats (run_id, gid, recorded_at, recv, lost, dropped, sockets)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if s.stmtInsertSample, err = s.db.PrepareContext(ctx, sqlInsertSample); err != nil {
		return fmt.Errorf("prepare InsertSample: %w", err)
	}

	const sqlHistory = `
		SELECT run_id, gid, recorded_at, recv, lost, dropped, sockets
		FROM group_stats
		WHERE gid = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`
	if s.stmtHistory, err = s.db.PrepareContext(ctx, sqlHistory); err != nil {
		return fmt.Errorf("prepare History: %w", err)
	}

	const sqlPrune = "DELETE FROM group_stats WHERE recorded_at < ?"
	if s.stmtPrune, err = s.db.PrepareContext(ctx, sqlPrune); err != nil {
		return fmt.Errorf("prepare Prune: %w", err)
	}

	const sqlPruneRuns = `
		DELETE FROM runs
		WHERE started_at < ?
		  AND run_id != ?
		  AND NOT EXISTS (SELECT 1 FROM group_stats g WHERE g.run_id = runs.run_id)`
	if s.stmtPruneRuns, err = s.db.PrepareContext(ctx, sqlPruneRuns); err != nil {
		return fmt.Errorf("prepare PruneRuns: %w", err)
	}
	return nil
}

// Close closes all prepared statements and the database connection.
func (s *Store) Close() error {
	s.closeStatements()
	return s.db.Close()
}

// closeStatements ignores close errors because the database is about
// to be closed.
func (s *Store) closeStatements() {
	for _, stmt := range []*sql.Stmt{
		s.stmtInsertRun,
		s.stmtInsertSample,
		s.stmtHistory,
		s.stmtPrune,
		s.stmtPruneRuns,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

// BeginRun registers a daemon run. Samples must reference a registered run.
func (s *Store) BeginRun(ctx context.Context, id uuid.UUID, at time.Time) error {
	start := time.Now()
	_, err := s.stmtInsertRun.ExecContext(ctx, id.String(), at.UnixNano())
	if err != nil {
		s.logger.Debug("sql", "stmt", "InsertRun", "args", []any{id}, "duration_ms", msec(time.Since(start)), "error", err)
		return fmt.Errorf("insert run %s: %w", id, err)
	}
	s.logger.Debug("sql", "stmt", "InsertRun", "args", []any{id}, "duration_ms", msec(time.Since(start)))

	s.mu.Lock()
	s.run = id.String()
	s.mu.Unlock()
	return nil
}

// Save records samples in one transaction. Either all are stored or none.
func (s *Store) Save(ctx context.Context, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := tx.StmtContext(ctx, s.stmtInsertSample)
	for _, smp := range samples {
		if !smp.GID.Valid() {
			return pfq.ErrInvalidGroup{GID: smp.GID}
		}
		if _, err := insert.ExecContext(ctx,
			smp.RunID.String(), int(smp.GID), smp.At.UnixNano(),
			int64(smp.Stats.Recv), int64(smp.Stats.Lost), int64(smp.Stats.Drop),
			int64(smp.Sockets),
		); err != nil {
			s.logger.Debug("sql", "stmt", "InsertSample", "args", []any{smp.RunID, smp.GID}, "duration_ms", msec(time.Since(start)), "error", err)
			return fmt.Errorf("insert sample for group %d: %w", smp.GID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.Debug("sql", "stmt", "InsertSample", "rows", len(samples), "duration_ms", msec(time.Since(start)))
	return nil
}

// History returns up to limit samples of gid, newest first.
func (s *Store) History(ctx context.Context, gid pfq.GroupID, limit int) ([]Sample, error) {
	if !gid.Valid() {
		return nil, pfq.ErrInvalidGroup{GID: gid}
	}
	if limit <= 0 {
		limit = -1
	}
	start := time.Now()

	rows, err := s.stmtHistory.QueryContext(ctx, int(gid), limit)
	if err != nil {
		s.logger.Debug("sql", "stmt", "History", "args", []any{gid, limit}, "duration_ms", msec(time.Since(start)), "error", err)
		return nil, fmt.Errorf("query history of group %d: %w", gid, err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var (
			runID                     string
			g                         int
			at                        int64
			recv, lost, drop, sockets int64
		)
		if err := rows.Scan(&runID, &g, &at, &recv, &lost, &drop, &sockets); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		id, err := uuid.Parse(runID)
		if err != nil {
			return nil, fmt.Errorf("history row has invalid run id %q: %w", runID, err)
		}
		out = append(out, Sample{
			RunID:   id,
			GID:     pfq.GroupID(g),
			At:      time.Unix(0, at),
			Stats:   group.Stats{Recv: uint64(recv), Lost: uint64(lost), Drop: uint64(drop)},
			Sockets: pfq.SocketMask(uint64(sockets)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	s.logger.Debug("sql", "stmt", "History", "args", []any{gid, limit}, "duration_ms", msec(time.Since(start)), "rows", len(out))
	return out, nil
}

// Prune deletes samples recorded before the cutoff, then runs other
// than the current one that started before it and no longer have
// samples. It returns the number of samples deleted.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	start := time.Now()
	res, err := s.stmtPrune.ExecContext(ctx, before.UnixNano())
	if err != nil {
		s.logger.Debug("sql", "stmt", "Prune", "duration_ms", msec(time.Since(start)), "error", err)
		return 0, fmt.Errorf("prune samples: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune samples: %w", err)
	}
	s.mu.Lock()
	current := s.run
	s.mu.Unlock()
	if _, err := s.stmtPruneRuns.ExecContext(ctx, before.UnixNano(), current); err != nil {
		return n, fmt.Errorf("prune runs: %w", err)
	}
	s.logger.Debug("sql", "stmt", "Prune", "duration_ms", msec(time.Since(start)), "rows", n)
	return n, nil
}
