package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// RunMigrations executes the SQL migration files for the active dialect.
// Files live in <migrationsPath>/<dialect subdir>/*.sql and run in name order.
func (db *DB) RunMigrations(ctx context.Context, migrationsPath string) ([]string, error) {
	if _, err := db.DB.ExecContext(ctx, db.Dialect.CreateMigrationsTableQuery()); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(migrationsPath, db.Dialect.MigrationsSubdir(), "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)

	var applied []string
	for _, file := range files {
		filename := filepath.Base(file)

		hasRun, err := db.hasMigrationRun(ctx, filename)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration status: %w", err)
		}
		if hasRun {
			continue
		}

		content, err := os.ReadFile(file)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		// Every driver accepts a multi-statement Exec when no args are bound
		if _, err := db.DB.ExecContext(ctx, string(content)); err != nil {
			return applied, fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		if _, err := db.ExecContext(ctx, "INSERT INTO migrations (filename) VALUES (?)", filename); err != nil {
			return applied, fmt.Errorf("failed to record migration %s: %w", filename, err)
		}

		applied = append(applied, filename)
	}

	return applied, nil
}

// hasMigrationRun checks if a migration has already been executed
func (db *DB) hasMigrationRun(ctx context.Context, filename string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE filename = ?", filename).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
