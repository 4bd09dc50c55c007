// Package sqlstore persists operator-supplied training examples in SQLite so
// retrained vocabulary survives a restart. Fitted models are never stored;
// they are rebuilt from the seed corpus plus these examples.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boddenberg/finml/internal/domain"
	"github.com/boddenberg/finml/internal/port"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store implements port.CorpusStore on a SQLite database file.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ port.CorpusStore = (*Store)(nil)

// Open opens (creating if needed) the database at dbPath and migrates it.
func Open(dbPath string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("corpus store ready", zap.String("path", dbPath))
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// AppendExamples inserts examples atomically, in order.
func (s *Store) AppendExamples(ctx context.Context, examples []domain.TrainingExample) error {
	if len(examples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO training_examples (description, category) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ex := range examples {
		if _, err := stmt.ExecContext(ctx, ex.Text, string(ex.Category)); err != nil {
			return fmt.Errorf("insert example: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("training examples persisted", zap.Int("count", len(examples)))
	return nil
}

// ListExamples returns every stored example in insertion order.
// Rows whose category is no longer known are skipped with a warning.
func (s *Store) ListExamples(ctx context.Context) ([]domain.TrainingExample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT description, category FROM training_examples ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query examples: %w", err)
	}
	defer rows.Close()

	var examples []domain.TrainingExample
	for rows.Next() {
		var text, raw string
		if err := rows.Scan(&text, &raw); err != nil {
			return nil, fmt.Errorf("scan example: %w", err)
		}
		category, err := domain.ParseCategory(raw)
		if err != nil {
			s.logger.Warn("skipping stored example with unknown category", zap.String("category", raw))
			continue
		}
		examples = append(examples, domain.TrainingExample{Text: text, Category: category})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate examples: %w", err)
	}
	return examples, nil
}

// Count returns the number of stored examples.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM training_examples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count examples: %w", err)
	}
	return n, nil
}

