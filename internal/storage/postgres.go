package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IshaanNene/carharvest/internal/config"
	"github.com/IshaanNene/carharvest/internal/types"
)

// PostgresStore keeps one jsonb document per listing, keyed by url.
type PostgresStore struct {
	pool    *pgxpool.Pool
	table   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewPostgresStore opens a pool and creates the listing table if needed.
// The table is named after the collection.
func NewPostgresStore(ctx context.Context, cfg *config.StorageConfig, collection string, logger *slog.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Op: "parse dsn", Err: err}
	}
	poolCfg.MaxConns = 2

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Op: "connect", Err: err}
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, &types.StorageError{Backend: "postgres", Op: "ping", Err: err}
	}

	s := &PostgresStore{
		pool:    pool,
		table:   pgx.Identifier{collection}.Sanitize(),
		timeout: cfg.Timeout,
		logger:  logger.With("component", "postgres_store", "table", collection),
	}

	_, err = pool.Exec(connectCtx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		url        text PRIMARY KEY,
		doc        jsonb NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now()
	)`)
	if err != nil {
		pool.Close()
		return nil, &types.StorageError{Backend: "postgres", Op: "create table", Err: err}
	}

	return s, nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) FindOne(ctx context.Context, url string) (*types.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM `+s.table+` WHERE url = $1`, url).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Op: "find", Err: err}
	}
	return decodeJSONDocument(raw)
}

func (s *PostgresStore) Upsert(ctx context.Context, listing *types.Listing) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc, err := json.Marshal(listing.Document())
	if err != nil {
		return &types.StorageError{Backend: "postgres", Op: "encode", Err: err}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+s.table+` (url, doc) VALUES ($1, $2::jsonb)
		ON CONFLICT (url) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		listing.URL, string(doc),
	)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Op: "upsert", Err: err}
	}
	s.logger.Debug("listing upserted", "url", listing.URL)
	return nil
}

func (s *PostgresStore) All(ctx context.Context) ([]*types.Listing, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc FROM `+s.table+` ORDER BY url`)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Op: "find all", Err: err}
	}
	defer rows.Close()

	var listings []*types.Listing
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, &types.StorageError{Backend: "postgres", Op: "scan", Err: err}
		}
		listing, err := decodeJSONDocument(raw)
		if err != nil {
			s.logger.Warn("skipping unreadable document", "error", err)
			continue
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StorageError{Backend: "postgres", Op: "rows", Err: err}
	}
	return listings, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// decodeJSONDocument keeps integers exact by decoding numbers as json.Number.
func decodeJSONDocument(raw []byte) (*types.Listing, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return types.ListingFromDocument(doc)
}
