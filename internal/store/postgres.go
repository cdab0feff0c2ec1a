package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-cli/internal/db"
	"github.com/sells-group/catalog-cli/internal/model"
	"github.com/sells-group/catalog-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"get_product":    `SELECT doc FROM products WHERE id = $1`,
	"count_products": `SELECT COUNT(*) FROM products`,
	"count_vertical": `SELECT COUNT(*) FROM products WHERE vertical = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests to inject mocks.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS products (
	id         TEXT PRIMARY KEY,
	vertical   TEXT NOT NULL DEFAULT '',
	doc        JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_products_vertical ON products(vertical);
CREATE INDEX IF NOT EXISTS idx_products_updated_at ON products(updated_at);

CREATE TABLE IF NOT EXISTS dead_letters (
	id         TEXT PRIMARY KEY,
	products   JSONB NOT NULL,
	error      TEXT NOT NULL,
	error_type TEXT NOT NULL DEFAULT 'transient',
	worker     TEXT NOT NULL DEFAULT '',
	failed_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_dead_letters_failed_at ON dead_letters(failed_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Index(ctx context.Context, products []*model.Product) error {
	if len(products) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(products))
	for _, p := range products {
		doc, err := json.Marshal(p)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal product %s", p.ID)
		}
		rows = append(rows, []any{p.ID, p.Vertical, doc, now})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "products",
		Columns:      []string{"id", "vertical", "doc", "updated_at"},
		ConflictKeys: []string{"id"},
	}, rows)
	return eris.Wrap(err, "postgres: index products")
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*model.Product, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM products WHERE id = $1`,
		id,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get product %s", id)
	}

	var p model.Product
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal product %s", id)
	}
	return &p, nil
}

func (s *PostgresStore) ByVertical(ctx context.Context, verticalID string) ([]*model.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM products WHERE vertical = $1 ORDER BY id`,
		verticalID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list vertical %s", verticalID)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan product")
		}
		var p model.Product
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal product")
		}
		products = append(products, &p)
	}
	return products, eris.Wrapf(rows.Err(), "postgres: list vertical %s iterate", verticalID)
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count products")
}

func (s *PostgresStore) CountVertical(ctx context.Context, verticalID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE vertical = $1`,
		verticalID,
	).Scan(&count)
	return count, eris.Wrapf(err, "postgres: count vertical %s", verticalID)
}

func (s *PostgresStore) SaveDeadLetter(ctx context.Context, entry *resilience.DeadLetter) error {
	productsJSON, err := json.Marshal(entry.Products)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal dead letter batch")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO dead_letters (id, products, error, error_type, worker, failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   products = $2, error = $3, error_type = $4, worker = $5, failed_at = $6`,
		entry.ID, productsJSON, entry.Error, entry.ErrorType, entry.Worker, entry.FailedAt,
	)
	return eris.Wrap(err, "postgres: save dead letter")
}

func (s *PostgresStore) DeadLetterDepth(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM dead_letters`).Scan(&count)
	return count, eris.Wrap(err, "postgres: dead letter depth")
}
