// Package memory is an in-process docstore used by tests and single-node
// development runs.
package memory

import (
	"context"
	"sync"

	"github.com/Beto0829/Barber-ticket/internal/docstore"
)

type Store struct {
	mu   sync.Mutex
	docs map[string]map[string]interface{}
}

func NewStore() *Store {
	return &Store{docs: make(map[string]map[string]interface{})}
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.docs[key(collection, id)]
	if !ok {
		return docstore.Snapshot{}, nil
	}
	copied, err := copyDoc(data)
	if err != nil {
		return docstore.Snapshot{}, err
	}
	return docstore.Snapshot{Exists: true, Data: copied}, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	copied, err := copyDoc(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key(collection, id)] = copied
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, updates []docstore.Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.docs[key(collection, id)]
	if !ok {
		return docstore.ErrNotFound
	}
	working, err := copyDoc(data)
	if err != nil {
		return err
	}
	if err := docstore.Apply(working, updates); err != nil {
		return err
	}
	s.docs[key(collection, id)] = working
	return nil
}

func key(collection, id string) string {
	return collection + "/" + id
}

func copyDoc(data map[string]interface{}) (map[string]interface{}, error) {
	if data == nil {
		return map[string]interface{}{}, nil
	}
	normalized, err := docstore.Normalize(data)
	if err != nil {
		return nil, err
	}
	out, _ := normalized.(map[string]interface{})
	if out == nil {
		out = map[string]interface{}{}
	}
	return out, nil
}
