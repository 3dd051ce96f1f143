// Package firestore backs the docstore contract with Google Cloud Firestore.
// Array and counter transforms map onto Firestore's native field transforms,
// so they run server-side without a read.
package firestore

import (
	"context"
	"errors"
	"strings"

	"github.com/Beto0829/Barber-ticket/internal/docstore"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Store struct {
	client *firestore.Client
}

func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("firestore project id is required")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Snapshot, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return docstore.Snapshot{}, nil
		}
		return docstore.Snapshot{}, err
	}
	if !snap.Exists() {
		return docstore.Snapshot{}, nil
	}
	return docstore.Snapshot{Exists: true, Data: snap.Data()}, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	_, err := s.client.Collection(collection).Doc(id).Set(ctx, data)
	return err
}

func (s *Store) Update(ctx context.Context, collection, id string, updates []docstore.Update) error {
	converted, err := toFirestoreUpdates(updates)
	if err != nil {
		return err
	}
	_, err = s.client.Collection(collection).Doc(id).Update(ctx, converted)
	if status.Code(err) == codes.NotFound {
		return docstore.ErrNotFound
	}
	return err
}

// Date keys such as 2026-10-19 are not valid simple field names, so paths
// are passed as FieldPath segments instead of dotted strings.
func toFirestoreUpdates(updates []docstore.Update) ([]firestore.Update, error) {
	out := make([]firestore.Update, 0, len(updates))
	for _, update := range updates {
		parts := strings.Split(update.Path, ".")
		for _, part := range parts {
			if part == "" {
				return nil, docstore.ErrInvalidPath
			}
		}
		out = append(out, firestore.Update{
			FieldPath: firestore.FieldPath(parts),
			Value:     toFirestoreValue(update.Value),
		})
	}
	return out, nil
}

func toFirestoreValue(value interface{}) interface{} {
	switch v := value.(type) {
	case docstore.ArrayUnion:
		return firestore.ArrayUnion([]interface{}(v)...)
	case docstore.ArrayRemove:
		return firestore.ArrayRemove([]interface{}(v)...)
	case docstore.Increment:
		return firestore.Increment(v.By)
	default:
		return value
	}
}
