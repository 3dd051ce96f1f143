// Package docstore defines the document store contract the queue, ledgers and
// completion workflow are written against. Documents are schemaless maps
// addressed by (collection, id). Updates target dotted field paths and
// support server-side array and counter transforms.
package docstore

import "context"

type Snapshot struct {
	Exists bool
	Data   map[string]interface{}
}

// Update sets the field at Path (dot separated) to Value. Value may be a
// plain value or one of ArrayUnion, ArrayRemove, Increment.
type Update struct {
	Path  string
	Value interface{}
}

// ArrayUnion appends each element not already present in the array field.
type ArrayUnion []interface{}

// ArrayRemove removes every element equal to one of the given values.
type ArrayRemove []interface{}

// Increment adds By to a numeric field. A missing field starts at zero.
type Increment struct {
	By float64
}

type Store interface {
	// Get never fails on absence; it reports Exists=false instead.
	Get(ctx context.Context, collection, id string) (Snapshot, error)
	// Set creates or fully overwrites a document.
	Set(ctx context.Context, collection, id string, data map[string]interface{}) error
	// Update merges the given fields into an existing document and returns
	// ErrNotFound when the document does not exist.
	Update(ctx context.Context, collection, id string, updates []Update) error
}
