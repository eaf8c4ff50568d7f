package database

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

// MigrationsFS holds the SQL migration files. The migrations package sets
// it from an embed.FS in its init:
//
//	func init() {
//	    database.MigrationsFS = migrationsFS
//	    database.MigrationsDir = "."
//	}
var MigrationsFS fs.FS

// MigrationsDir is the directory inside MigrationsFS that holds the files.
var MigrationsDir = "migrations"

// Migration is a single versioned schema step.
//
// Steps come from two places: SQL files in MigrationsFS, and Go steps passed
// to Migrate for changes that need to inspect existing data (column presence
// checks, conditional seeding). Both kinds share one version sequence.
type Migration struct {
	// Version orders the step. Format: YYYYMMDD_HHMMSS (e.g., 20260301_090000)
	Version string
	Name    string

	UpSQL   string
	DownSQL string

	// UpFunc runs after UpSQL inside the same transaction.
	UpFunc func(ctx context.Context, tx *sql.Tx) error
}

// MigrationRecord is a row of schema_migrations.
type MigrationRecord struct {
	Version   string
	AppliedAt time.Time
}

// Migrate applies every pending step, oldest first, each in its own
// transaction. A failing step is rolled back and stops the run; the steps
// before it stay applied, so the next run resumes at the failed one.
func (db *DB) Migrate(ctx context.Context, steps ...Migration) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	_, pending, err := db.GetMigrationStatus(ctx, steps...)
	if err != nil {
		return err
	}
	for _, m := range pending {
		if err := db.inTx(ctx, m.up); err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// MigrateDown reverts the most recently applied step. Go steps without
// DownSQL cannot be reverted.
func (db *DB) MigrateDown(ctx context.Context, steps ...Migration) error {
	applied, all, err := db.status(ctx, steps)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return nil
	}

	latest := applied[len(applied)-1].Version
	i := slices.IndexFunc(all, func(m Migration) bool { return m.Version == latest })
	if i < 0 {
		return fmt.Errorf("migration %s not found", latest)
	}
	m := all[i]
	if m.DownSQL == "" {
		return fmt.Errorf("migration %s has no down SQL", latest)
	}

	if err := db.inTx(ctx, m.down); err != nil {
		return fmt.Errorf("reverting migration %s (%s): %w", m.Version, m.Name, err)
	}
	return nil
}

// GetMigrationStatus returns the applied records and the steps still
// pending, both in version order.
func (db *DB) GetMigrationStatus(ctx context.Context, steps ...Migration) (applied []MigrationRecord, pending []Migration, err error) {
	applied, all, err := db.status(ctx, steps)
	if err != nil {
		return nil, nil, err
	}

	done := make(map[string]bool, len(applied))
	for _, r := range applied {
		done[r.Version] = true
	}
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return applied, pending, nil
}

func (db *DB) status(ctx context.Context, steps []Migration) ([]MigrationRecord, []Migration, error) {
	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("getting applied migrations: %w", err)
	}
	all, err := collectMigrations(steps)
	if err != nil {
		return nil, nil, fmt.Errorf("loading migrations: %w", err)
	}
	return applied, all, nil
}

// appliedMigrations reads schema_migrations. A database that has never
// been migrated has no such table and no records.
func (db *DB) appliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	var exists bool
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) > 0 FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'",
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking migrations table: %w", err)
	}
	if !exists {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var (
			r  MigrationRecord
			at string
		)
		if err := rows.Scan(&r.Version, &at); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		r.AppliedAt, _ = time.Parse(time.RFC3339, at) //nolint:errcheck // written by up()
		records = append(records, r)
	}
	return records, rows.Err()
}

// inTx runs fn in a transaction and commits when it succeeds.
func (db *DB) inTx(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (m Migration) up(ctx context.Context, tx *sql.Tx) error {
	if strings.TrimSpace(m.UpSQL) != "" {
		if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
			return fmt.Errorf("executing SQL: %w", err)
		}
	}
	if m.UpFunc != nil {
		if err := m.UpFunc(ctx, tx); err != nil {
			return err
		}
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.Version, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return nil
}

func (m Migration) down(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
		return fmt.Errorf("executing down SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", m.Version); err != nil {
		return fmt.Errorf("removing migration record: %w", err)
	}
	return nil
}

// collectMigrations merges the SQL files with the Go steps, sorted by
// version. Versions must be unique.
func collectMigrations(steps []Migration) ([]Migration, error) {
	all, err := loadSQLMigrations()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(all)+len(steps))
	for _, m := range all {
		seen[m.Version] = true
	}
	for _, s := range steps {
		switch {
		case s.Version == "":
			return nil, fmt.Errorf("migration %q has no version", s.Name)
		case s.UpFunc == nil && strings.TrimSpace(s.UpSQL) == "":
			return nil, fmt.Errorf("migration %s has nothing to apply", s.Version)
		case seen[s.Version]:
			return nil, fmt.Errorf("duplicate migration version %s", s.Version)
		}
		seen[s.Version] = true
		all = append(all, s)
	}

	slices.SortFunc(all, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return all, nil
}

// loadSQLMigrations pairs the .up.sql and .down.sql files in MigrationsDir.
// A down file without an up file is ignored.
func loadSQLMigrations() ([]Migration, error) {
	if MigrationsFS == nil {
		return nil, nil
	}
	entries, err := fs.ReadDir(MigrationsFS, MigrationsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", MigrationsDir, err)
	}

	byVersion := make(map[string]*Migration)
	var order []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		f, ok := parseMigrationFile(e.Name())
		if !ok {
			continue
		}
		body, err := fs.ReadFile(MigrationsFS, path.Join(MigrationsDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}

		m, ok := byVersion[f.version]
		if !ok {
			m = &Migration{Version: f.version}
			byVersion[f.version] = m
			order = append(order, f.version)
		}
		if f.up {
			m.Name = f.name
			m.UpSQL = string(body)
		} else {
			m.DownSQL = string(body)
		}
	}

	var out []Migration
	for _, v := range order {
		if m := byVersion[v]; m.UpSQL != "" {
			out = append(out, *m)
		}
	}
	return out, nil
}

// migrationFile is the parsed form of YYYYMMDD_HHMMSS_name.{up,down}.sql.
type migrationFile struct {
	version string
	name    string
	up      bool
}

func parseMigrationFile(filename string) (migrationFile, bool) {
	base, ok := strings.CutSuffix(filename, ".sql")
	if !ok {
		return migrationFile{}, false
	}

	var f migrationFile
	if b, ok := strings.CutSuffix(base, ".up"); ok {
		base, f.up = b, true
	} else if b, ok := strings.CutSuffix(base, ".down"); ok {
		base = b
	} else {
		return migrationFile{}, false
	}

	date, rest, ok := strings.Cut(base, "_")
	if !ok {
		return migrationFile{}, false
	}
	clock, name, _ := strings.Cut(rest, "_")
	f.version = date + "_" + clock
	f.name = cmp.Or(name, base)
	return f, true
}
