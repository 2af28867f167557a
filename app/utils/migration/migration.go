// Package migration applies the control-plane migration stream to the shared
// public schema. Tenant schemas are never touched here; those carry their own
// history and are provisioned per-tenant inside the service.
package migration

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// step is one versioned pair of the control-plane stream. Every up file must
// have a matching down file; the stream refuses to load otherwise.
type step struct {
	version int
	name    string
	upSQL   string
	downSQL string
}

// historyRow is one applied entry of the public schema_migrations table.
type historyRow struct {
	version   int
	name      string
	appliedAt time.Time
	checksum  string
}

// Migrator drives the control-plane stream over a plain database/sql
// connection. This is the only writer of public.schema_migrations.
type Migrator struct {
	db     *sql.DB
	logger *slog.Logger
	files  fs.FS
}

// NewMigrator creates a control-plane migrator over the embedded stream.
func NewMigrator(db *sql.DB, logger *slog.Logger, files fs.FS) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger.With("component", "control_plane_migrator"),
		files:  files,
	}
}

// Up applies every pending step in version order. Steps already applied are
// verified against their recorded checksum: a file edited after it ran in
// production is an error, not a silent divergence.
func (m *Migrator) Up() error {
	if err := m.ensureHistory(); err != nil {
		return err
	}

	steps, err := m.loadSteps()
	if err != nil {
		return err
	}

	history, err := m.history()
	if err != nil {
		return err
	}

	applied := make(map[int]historyRow, len(history))
	for _, row := range history {
		applied[row.version] = row
	}

	pending := 0
	for _, s := range steps {
		if row, ok := applied[s.version]; ok {
			if row.checksum != checksum(s.upSQL) {
				return fmt.Errorf("migration %03d (%s) drifted from its applied checksum", s.version, s.name)
			}
			continue
		}

		if err := m.apply(s); err != nil {
			return fmt.Errorf("failed to apply migration %03d: %w", s.version, err)
		}
		m.logger.Info("control-plane migration applied", "version", s.version, "name", s.name)
		pending++
	}

	if pending == 0 {
		m.logger.Info("control-plane schema up to date", "applied", len(history))
	}
	return nil
}

// Down rolls back the most recently applied step.
func (m *Migrator) Down() error {
	history, err := m.history()
	if err != nil {
		return err
	}
	if len(history) == 0 {
		m.logger.Info("no control-plane migrations to roll back")
		return nil
	}
	last := history[len(history)-1]

	steps, err := m.loadSteps()
	if err != nil {
		return err
	}

	for _, s := range steps {
		if s.version != last.version {
			continue
		}
		if err := m.rollback(s); err != nil {
			return fmt.Errorf("failed to roll back migration %03d: %w", s.version, err)
		}
		m.logger.Info("control-plane migration rolled back", "version", s.version, "name", s.name)
		return nil
	}

	return fmt.Errorf("applied migration %03d (%s) has no file in the stream", last.version, last.name)
}

// Status logs applied and pending steps of the control-plane stream.
func (m *Migrator) Status() error {
	steps, err := m.loadSteps()
	if err != nil {
		return err
	}

	history, err := m.history()
	if err != nil {
		return err
	}

	appliedAt := make(map[int]time.Time, len(history))
	for _, row := range history {
		appliedAt[row.version] = row.appliedAt
	}

	for _, s := range steps {
		if at, ok := appliedAt[s.version]; ok {
			m.logger.Info("applied", "version", s.version, "name", s.name,
				"applied_at", at.Format(time.RFC3339))
		} else {
			m.logger.Info("pending", "version", s.version, "name", s.name)
		}
	}
	return nil
}

func (m *Migrator) ensureHistory() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			checksum VARCHAR(64) NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create control-plane history table: %w", err)
	}
	return nil
}

// apply runs one step and its history insert in a single transaction.
func (m *Migrator) apply(s step) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.upSQL); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (version, name, checksum) VALUES ($1, $2, $3)`,
		s.version, s.name, checksum(s.upSQL)); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}

func (m *Migrator) rollback(s step) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.downSQL); err != nil {
		return fmt.Errorf("failed to execute rollback: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM schema_migrations WHERE version = $1`, s.version); err != nil {
		return fmt.Errorf("failed to remove migration record: %w", err)
	}
	return tx.Commit()
}

func (m *Migrator) history() ([]historyRow, error) {
	rows, err := m.db.Query(
		`SELECT version, name, applied_at, checksum FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration history: %w", err)
	}
	defer rows.Close()

	var history []historyRow
	for rows.Next() {
		var row historyRow
		if err := rows.Scan(&row.version, &row.name, &row.appliedAt, &row.checksum); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		history = append(history, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}
	return history, nil
}

// loadSteps reads every NNN_name.up.sql/.down.sql pair, sorted by version.
// Unlike the tenant stream, a malformed filename here is a hard error: the
// control-plane stream is short and fully owned by this repository.
func (m *Migrator) loadSteps() ([]step, error) {
	steps := make([]step, 0)

	err := fs.WalkDir(m.files, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".up.sql") {
			return nil
		}

		version, name, err := parseStepName(filepath.Base(path))
		if err != nil {
			return err
		}

		upSQL, err := fs.ReadFile(m.files, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		downPath := strings.TrimSuffix(path, ".up.sql") + ".down.sql"
		downSQL, err := fs.ReadFile(m.files, downPath)
		if err != nil {
			return fmt.Errorf("migration %03d (%s) has no down file: %w", version, name, err)
		}

		steps = append(steps, step{
			version: version,
			name:    name,
			upSQL:   string(upSQL),
			downSQL: string(downSQL),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load control-plane migrations: %w", err)
	}

	sort.Slice(steps, func(i, j int) bool {
		return steps[i].version < steps[j].version
	})
	return steps, nil
}

// parseStepName splits "NNN_some_name.up.sql" into version and name.
func parseStepName(filename string) (int, string, error) {
	base := strings.TrimSuffix(filename, ".up.sql")
	prefix, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return 0, "", fmt.Errorf("malformed migration filename %q", filename)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, "", fmt.Errorf("malformed migration version in %q: %w", filename, err)
	}
	return version, name, nil
}

// checksum fingerprints migration content for drift detection.
func checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", sum[:8])
}
