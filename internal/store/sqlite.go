package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/catalog-cli/internal/model"
	"github.com/sells-group/catalog-cli/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS products (
	id         TEXT PRIMARY KEY,
	vertical   TEXT NOT NULL DEFAULT '',
	doc        TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_products_vertical ON products(vertical);
CREATE INDEX IF NOT EXISTS idx_products_updated_at ON products(updated_at);

CREATE TABLE IF NOT EXISTS dead_letters (
	id         TEXT PRIMARY KEY,
	products   TEXT NOT NULL,
	error      TEXT NOT NULL,
	error_type TEXT NOT NULL DEFAULT 'transient',
	worker     TEXT NOT NULL DEFAULT '',
	failed_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_dead_letters_failed_at ON dead_letters(failed_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Index(ctx context.Context, products []*model.Product) error {
	if len(products) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, p := range products {
		doc, err := json.Marshal(p)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal product %s", p.ID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO products (id, vertical, doc, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET vertical = ?, doc = ?, updated_at = ?`,
			p.ID, p.Vertical, string(doc), now, p.Vertical, string(doc), now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert product %s", p.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*model.Product, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM products WHERE id = ?`,
		id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get product %s", id)
	}

	var p model.Product
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal product %s", id)
	}
	return &p, nil
}

func (s *SQLiteStore) ByVertical(ctx context.Context, verticalID string) ([]*model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM products WHERE vertical = ? ORDER BY id`,
		verticalID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list vertical %s", verticalID)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan product")
		}
		var p model.Product
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal product")
		}
		products = append(products, &p)
	}
	return products, eris.Wrapf(rows.Err(), "sqlite: list vertical %s iterate", verticalID)
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count products")
}

func (s *SQLiteStore) CountVertical(ctx context.Context, verticalID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE vertical = ?`,
		verticalID,
	).Scan(&count)
	return count, eris.Wrapf(err, "sqlite: count vertical %s", verticalID)
}

func (s *SQLiteStore) SaveDeadLetter(ctx context.Context, entry *resilience.DeadLetter) error {
	productsJSON, err := json.Marshal(entry.Products)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal dead letter batch")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dead_letters (id, products, error, error_type, worker, failed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   products = excluded.products, error = excluded.error,
		   error_type = excluded.error_type, worker = excluded.worker,
		   failed_at = excluded.failed_at`,
		entry.ID, string(productsJSON), entry.Error, entry.ErrorType, entry.Worker, entry.FailedAt,
	)
	return eris.Wrap(err, "sqlite: save dead letter")
}

func (s *SQLiteStore) DeadLetterDepth(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letters`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: dead letter depth")
}
