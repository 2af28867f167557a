package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"tenant-service/app/domain"
)

//go:embed migrations/tenant
var tenantMigrationsFS embed.FS

// tenantMigration is one versioned step of the tenant migration set.
type tenantMigration struct {
	Version int
	Name    string
	UpSQL   string
}

// Provisioner creates tenant schemas and applies the tenant migration set to
// them. History is tracked in a schema_migrations table inside each tenant
// schema, never in the shared control-plane history.
type Provisioner struct {
	db           TxBeginner
	logger       *slog.Logger
	migrationsFS fs.FS
}

// NewProvisioner creates a provisioner using the embedded tenant migration set.
func NewProvisioner(db TxBeginner, logger *slog.Logger) *Provisioner {
	sub, err := fs.Sub(tenantMigrationsFS, "migrations/tenant")
	if err != nil {
		// The embed directive guarantees the directory exists.
		panic(fmt.Sprintf("tenant migrations missing from binary: %v", err))
	}
	return NewProvisionerWithFS(db, logger, sub)
}

// NewProvisionerWithFS creates a provisioner over an explicit migration set.
func NewProvisionerWithFS(db TxBeginner, logger *slog.Logger, migrationsFS fs.FS) *Provisioner {
	return &Provisioner{
		db:           db,
		logger:       logger.With("component", "tenant_provisioner"),
		migrationsFS: migrationsFS,
	}
}

// ProvisionAndMigrate creates the schema if absent and applies all pending
// tenant migrations, as one atomic unit. Idempotent: a fully migrated schema
// is a no-op. Concurrent calls for the same schema serialize on an advisory
// lock keyed by schema name; different schemas do not contend.
func (p *Provisioner) ProvisionAndMigrate(ctx context.Context, schemaName string) error {
	identity, err := domain.NewTenantIdentity(schemaName)
	if err != nil {
		return err
	}
	if identity.IsControlPlane() {
		return fmt.Errorf("%w: tenant schema name required", domain.ErrInvalidSchemaName)
	}
	schema := identity.SchemaName()

	migrations, err := p.loadMigrations()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMigrationFailed, err)
	}

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", domain.ErrMigrationFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Transaction-scoped advisory lock: released automatically on commit or
	// rollback, so a crashed provisioning run never wedges the schema.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", schema); err != nil {
		return fmt.Errorf("%w: failed to take advisory lock for %s: %v", domain.ErrMigrationFailed, schema, err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %q", schema)); err != nil {
		return fmt.Errorf("%w: failed to create schema %s: %v", domain.ErrMigrationFailed, schema, err)
	}

	// SET LOCAL scopes the search_path to this transaction, so every
	// unqualified statement in the migration set lands in the tenant schema.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL search_path TO %q", schema)); err != nil {
		return fmt.Errorf("%w: failed to scope search_path to %s: %v", domain.ErrMigrationFailed, schema, err)
	}

	if _, err := tx.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("%w: failed to create history table in %s: %v", domain.ErrMigrationFailed, schema, err)
	}

	applied, err := p.appliedVersions(ctx, tx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMigrationFailed, err)
	}

	pending := 0
	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}

		if _, err := tx.Exec(ctx, migration.UpSQL); err != nil {
			return fmt.Errorf("%w: migration %d (%s) failed for %s: %v",
				domain.ErrMigrationFailed, migration.Version, migration.Name, schema, err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
			migration.Version, migration.Name); err != nil {
			return fmt.Errorf("%w: failed to record migration %d for %s: %v",
				domain.ErrMigrationFailed, migration.Version, schema, err)
		}
		pending++
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit provisioning of %s: %v", domain.ErrMigrationFailed, schema, err)
	}

	if pending == 0 {
		p.logger.Info("tenant schema already migrated", "schema", schema)
	} else {
		p.logger.Info("tenant schema provisioned", "schema", schema, "migrations_applied", pending)
	}
	return nil
}

// appliedVersions reads the tenant-local migration history.
func (p *Provisioner) appliedVersions(ctx context.Context, tx pgx.Tx) (map[int]bool, error) {
	rows, err := tx.Query(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration history: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration history: %w", err)
	}
	return applied, nil
}

// loadMigrations loads the versioned tenant migration files, sorted ascending.
func (p *Provisioner) loadMigrations() ([]tenantMigration, error) {
	migrations := make([]tenantMigration, 0)

	err := fs.WalkDir(p.migrationsFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".up.sql") {
			return nil
		}

		filename := filepath.Base(path)
		parts := strings.Split(filename, "_")
		if len(parts) < 2 {
			p.logger.Warn("invalid migration filename format", "filename", filename)
			return nil
		}

		version, err := strconv.Atoi(parts[0])
		if err != nil {
			p.logger.Warn("invalid migration version", "filename", filename, "error", err)
			return nil
		}

		content, err := fs.ReadFile(p.migrationsFS, path)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", path, err)
		}

		migrations = append(migrations, tenantMigration{
			Version: version,
			Name:    strings.TrimSuffix(strings.Join(parts[1:], "_"), ".up.sql"),
			UpSQL:   string(content),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant migrations: %w", err)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
