package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/postbot/core/logger"
)

// PostgresStore keeps the document as one row of the documents table.
// The body column is json rather than jsonb so key order survives a round trip.
type PostgresStore struct {
	db   *sqlx.DB
	name string
}

// NewPostgresStore returns a store for the named document.
func NewPostgresStore(db *sqlx.DB, name string) *PostgresStore {
	return &PostgresStore{db: db, name: name}
}

type documentRow struct {
	Name      string    `db:"name"`
	Body      []byte    `db:"body"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Load reads the row. A missing row or an unparsable body yields the default document.
func (s *PostgresStore) Load(ctx context.Context) (*Document, error) {
	var row documentRow
	err := s.db.GetContext(ctx, &row,
		`SELECT name, body, updated_at FROM documents WHERE name = $1`, s.name)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Debug(ctx, "store", "load.missing", slog.String("document", s.name))
		return DefaultDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load document %q: %w", s.name, err)
	}
	doc, err := Decode(row.Body)
	if err != nil {
		logger.Warn(ctx, "store", "load.corrupt",
			slog.String("document", s.name),
			slog.String("err", err.Error()),
		)
		return DefaultDocument(), nil
	}
	return doc, nil
}

// Save upserts the whole document.
func (s *PostgresStore) Save(ctx context.Context, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	start := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (name, body, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		s.name, string(data))
	if err != nil {
		return fmt.Errorf("save document %q: %w", s.name, err)
	}
	logger.Debug(ctx, "store", "save",
		slog.String("document", s.name),
		slog.Int("bytes", len(data)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
