package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Beto0829/Barber-ticket/internal/docstore"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store keeps each document as a JSONB row. Updates lock the row and apply
// transforms in Go so ArrayUnion, ArrayRemove and Increment behave exactly
// like the other backends.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Snapshot, error) {
	var raw []byte
	row := s.pool.QueryRow(ctx, `
		SELECT data FROM documents WHERE collection = $1 AND id = $2
	`, collection, id)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return docstore.Snapshot{}, nil
		}
		return docstore.Snapshot{}, err
	}
	data, err := decodeData(raw)
	if err != nil {
		return docstore.Snapshot{}, err
	}
	return docstore.Snapshot{Exists: true, Data: data}, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	if data == nil {
		data = map[string]interface{}{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = now()
	`, collection, id, raw)
	return err
}

func (s *Store) Update(ctx context.Context, collection, id string, updates []docstore.Update) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var raw []byte
	row := tx.QueryRow(ctx, `
		SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE
	`, collection, id)
	if err = row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = docstore.ErrNotFound
		}
		return err
	}

	data, err := decodeData(raw)
	if err != nil {
		return err
	}
	if err = docstore.Apply(data, updates); err != nil {
		return err
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `
		UPDATE documents SET data = $3, updated_at = now()
		WHERE collection = $1 AND id = $2
	`, collection, id, encoded); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func decodeData(raw []byte) (map[string]interface{}, error) {
	data := map[string]interface{}{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
