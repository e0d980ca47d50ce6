// Package migration applies the gorm schema and the ordered SQL files under migrations/.
package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/database"
	"github.com/sirupsen/logrus"
)

type Runner struct {
	dbManager *database.Manager
	logger    *logrus.Logger
}

func NewRunner(dbManager *database.Manager, logger *logrus.Logger) *Runner {
	return &Runner{
		dbManager: dbManager,
		logger:    logger,
	}
}

// RunMigrations runs gorm auto-migration first, then every .sql file in migrationsPath in name order.
// The SQL files must be idempotent.
func (r *Runner) RunMigrations(migrationsPath string) error {
	r.logger.Info("Starting database migrations...")

	if err := r.dbManager.Migrate(); err != nil {
		return fmt.Errorf("GORM auto-migration failed: %w", err)
	}

	files, err := sqlFiles(migrationsPath)
	if err != nil {
		return fmt.Errorf("SQL migrations failed: %w", err)
	}

	for _, file := range files {
		if err := r.runSQLFile(filepath.Join(migrationsPath, file)); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", file, err)
		}
		r.logger.WithField("file", file).Info("Migration executed successfully")
	}

	r.logger.WithField("sql_files", len(files)).Info("Database migrations completed successfully")
	return nil
}

func sqlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// runSQLFile executes one statement at a time. Prepared statements
// reject multi-command strings, so a whole file can never go in one Exec.
func (r *Runner) runSQLFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	for i, stmt := range splitSQLStatements(string(content)) {
		r.logger.WithFields(logrus.Fields{
			"file":      filepath.Base(path),
			"statement": i + 1,
		}).Debug("Executing SQL statement")

		if err := r.dbManager.DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to execute statement %d in %s: %w", i+1, filepath.Base(path), err)
		}
	}
	return nil
}

// splitSQLStatements drops comment lines and splits on semicolons.
// Statements with semicolons inside string literals or function bodies are not supported.
func splitSQLStatements(sql string) []string {
	var lines []string
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			lines = append(lines, line)
		}
	}

	var statements []string
	for _, stmt := range strings.Split(strings.Join(lines, " "), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
