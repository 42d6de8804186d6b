// Package postgres provides a State Store backed by PostgreSQL through bun.
//
// Each top-level state key is one row keyed by (session_id, key) with a jsonb value,
// so a turn upserts only the rows it touched.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type sessionKey struct {
	bun.BaseModel `bun:"table:parley_session_keys"`

	SessionID string    `bun:"session_id,pk"`
	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,type:jsonb,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Store implements ports.StateStore on PostgreSQL.
type Store struct {
	db *bun.DB
}

// New opens a connection pool for dsn.
func New(dsn string) *Store {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return NewFromDB(bun.NewDB(sqldb, pgdialect.New()))
}

// NewFromDB wraps an existing bun database.
func NewFromDB(db *bun.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*sessionKey)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create session table: %w", err)
	}
	return nil
}

// Get loads every row of the session.
func (s *Store) Get(ctx context.Context, sessionID string) (*domain.Document, error) {
	var rows []sessionKey
	err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	data := make(map[string]any, len(rows))
	for _, row := range rows {
		var v any
		if err := json.Unmarshal([]byte(row.Value), &v); err != nil {
			return nil, fmt.Errorf("failed to decode key %s: %w", row.Key, err)
		}
		data[row.Key] = v
	}
	return domain.NewDocument(data), nil
}

// Put upserts the listed keys and deletes listed keys absent from doc in one transaction.
func (s *Store) Put(ctx context.Context, sessionID string, doc *domain.Document, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	snap := doc.Snapshot()
	now := time.Now().UTC()

	var upserts []sessionKey
	var deletes []string
	for _, k := range keys {
		v, ok := snap[k]
		if !ok {
			deletes = append(deletes, k)
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode key %s: %w", k, err)
		}
		upserts = append(upserts, sessionKey{SessionID: sessionID, Key: k, Value: string(encoded), UpdatedAt: now})
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(upserts) > 0 {
			_, err := tx.NewInsert().
				Model(&upserts).
				On("CONFLICT (session_id, key) DO UPDATE").
				Set("value = EXCLUDED.value").
				Set("updated_at = EXCLUDED.updated_at").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to upsert session keys: %w", err)
			}
		}
		if len(deletes) > 0 {
			_, err := tx.NewDelete().
				Model((*sessionKey)(nil)).
				Where("session_id = ?", sessionID).
				Where("key IN (?)", bun.In(deletes)).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to delete session keys: %w", err)
			}
		}
		return nil
	})
}

// Delete removes every row of the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.NewDelete().
		Model((*sessionKey)(nil)).
		Where("session_id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns the distinct session ids in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.NewSelect().
		Model((*sessionKey)(nil)).
		ColumnExpr("DISTINCT session_id").
		Order("session_id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
