// Package docstoretest wraps a docstore with call counting and fault
// injection for workflow tests.
package docstoretest

import (
	"context"
	"sync"

	"github.com/Beto0829/Barber-ticket/internal/docstore"
	"github.com/Beto0829/Barber-ticket/internal/docstore/memory"
)

type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpUpdate Op = "update"
)

type Call struct {
	Op         Op
	Collection string
	ID         string
}

// Store delegates to an in-memory store. FailFn, when set, is consulted
// before every call and a non-nil result is returned instead of running it.
type Store struct {
	Inner  docstore.Store
	FailFn func(call Call) error

	mu    sync.Mutex
	calls []Call
}

func New() *Store {
	return &Store{Inner: memory.NewStore()}
}

func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Writes counts Set and Update calls.
func (s *Store) Writes() int {
	count := 0
	for _, call := range s.Calls() {
		if call.Op != OpGet {
			count++
		}
	}
	return count
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Snapshot, error) {
	if err := s.record(Call{Op: OpGet, Collection: collection, ID: id}); err != nil {
		return docstore.Snapshot{}, err
	}
	return s.Inner.Get(ctx, collection, id)
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	if err := s.record(Call{Op: OpSet, Collection: collection, ID: id}); err != nil {
		return err
	}
	return s.Inner.Set(ctx, collection, id, data)
}

func (s *Store) Update(ctx context.Context, collection, id string, updates []docstore.Update) error {
	if err := s.record(Call{Op: OpUpdate, Collection: collection, ID: id}); err != nil {
		return err
	}
	return s.Inner.Update(ctx, collection, id, updates)
}

func (s *Store) record(call Call) error {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	fail := s.FailFn
	s.mu.Unlock()
	if fail != nil {
		return fail(call)
	}
	return nil
}
