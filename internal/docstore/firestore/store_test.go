package firestore

import (
	"context"
	"os"
	"testing"

	"github.com/Beto0829/Barber-ticket/internal/docstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToFirestoreUpdatesSplitsPath(t *testing.T) {
	updates, err := toFirestoreUpdates([]docstore.Update{
		{Path: "2026-10-19.totalCustomersServed", Value: docstore.Increment{By: 1}},
		{Path: "tickets", Value: "plain"},
	})
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, []string{"2026-10-19", "totalCustomersServed"}, []string(updates[0].FieldPath))
	assert.Equal(t, "plain", updates[1].Value)
}

func TestToFirestoreUpdatesRejectsEmptySegment(t *testing.T) {
	_, err := toFirestoreUpdates([]docstore.Update{{Path: "a.", Value: 1}})
	require.ErrorIs(t, err, docstore.ErrInvalidPath)
}

func TestEmulatorRoundTrip(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST is required for emulator tests")
	}
	ctx := context.Background()
	st, err := NewStore(ctx, "barberq-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	collection := "test_" + uuid.NewString()
	snap, err := st.Get(ctx, collection, "tickets")
	require.NoError(t, err)
	assert.False(t, snap.Exists)

	err = st.Update(ctx, collection, "tickets", []docstore.Update{{Path: "tickets", Value: docstore.ArrayUnion{"x"}}})
	require.ErrorIs(t, err, docstore.ErrNotFound)

	require.NoError(t, st.Set(ctx, collection, "tickets", map[string]interface{}{"tickets": []interface{}{"a"}}))
	require.NoError(t, st.Update(ctx, collection, "tickets", []docstore.Update{
		{Path: "tickets", Value: docstore.ArrayUnion{"b"}},
		{Path: "served", Value: docstore.Increment{By: 2}},
	}))
	snap, err = st.Get(ctx, collection, "tickets")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b"}, snap.Data["tickets"])
}
