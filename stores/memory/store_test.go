package memory

import (
	"context"
	"encoding/json"
	"testing"

	"adruby-studio/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCreative(t *testing.T, userID string) *core.Creative {
	t.Helper()
	size := 72.0
	doc := &core.Document{
		Name: "Autumn Drop",
		Layers: []core.Layer{
			{ID: "bg", Kind: core.LayerImage, Role: core.RoleBackground, Source: "bg.png"},
			{ID: "h", Kind: core.LayerText, Name: "Headline", Text: "New colors", FontSize: &size, Z: 20},
		},
	}
	snapshot, err := json.Marshal(doc)
	require.NoError(t, err)
	return &core.Creative{
		UserID:       userID,
		Name:         doc.Name,
		Headline:     "New colors",
		CallToAction: "Mehr erfahren",
		Thumbnail:    "bg.png",
		Snapshot:     snapshot,
	}
}

func TestSaveCreative(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	t.Run("assigns a ulid on first save", func(t *testing.T) {
		id, err := store.SaveCreative(ctx, newCreative(t, "u1"))
		require.NoError(t, err)
		assert.Len(t, id, 26)
	})

	t.Run("keeps the id on update and preserves created time", func(t *testing.T) {
		creative := newCreative(t, "u1")
		id, err := store.SaveCreative(ctx, creative)
		require.NoError(t, err)

		first, err := store.Get(ctx, "u1", id)
		require.NoError(t, err)

		creative.Name = "Renamed"
		id2, err := store.SaveCreative(ctx, creative)
		require.NoError(t, err)
		assert.Equal(t, id, id2)

		updated, err := store.Get(ctx, "u1", id)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, first.CreatedAt, updated.CreatedAt)
	})

	t.Run("rejects a missing user id", func(t *testing.T) {
		creative := newCreative(t, "")
		_, err := store.SaveCreative(ctx, creative)
		assert.Error(t, err)
	})
}

func TestLoadSnapshot(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	id, err := store.SaveCreative(ctx, newCreative(t, "u1"))
	require.NoError(t, err)

	t.Run("round-trips the document", func(t *testing.T) {
		doc, err := store.LoadSnapshot(ctx, "u1", id)
		require.NoError(t, err)
		assert.Equal(t, "Autumn Drop", doc.Name)
		require.Len(t, doc.Layers, 2)
		assert.Equal(t, core.LayerImage, doc.Layers[0].Kind)
		assert.Equal(t, "New colors", doc.Layers[1].Text)
		require.NotNil(t, doc.Layers[1].FontSize)
		assert.Equal(t, 72.0, *doc.Layers[1].FontSize)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := store.LoadSnapshot(ctx, "u1", "nope")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("other users cannot load it", func(t *testing.T) {
		_, err := store.LoadSnapshot(ctx, "u2", id)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestList(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	t.Run("empty for an unknown user", func(t *testing.T) {
		creatives, err := store.List(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, creatives)
	})

	t.Run("returns card fields without the snapshot", func(t *testing.T) {
		_, err := store.SaveCreative(ctx, newCreative(t, "u1"))
		require.NoError(t, err)
		_, err = store.SaveCreative(ctx, newCreative(t, "u1"))
		require.NoError(t, err)

		creatives, err := store.List(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, creatives, 2)
		for _, c := range creatives {
			assert.Equal(t, "New colors", c.Headline)
			assert.Nil(t, c.Snapshot)
		}
	})

	t.Run("scoped per user", func(t *testing.T) {
		creatives, err := store.List(ctx, "u2")
		require.NoError(t, err)
		assert.Empty(t, creatives)
	})
}

func TestDelete(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	id, err := store.SaveCreative(ctx, newCreative(t, "u1"))
	require.NoError(t, err)

	t.Run("removes the creative", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "u1", id))
		_, err := store.Get(ctx, "u1", id)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		assert.ErrorIs(t, store.Delete(ctx, "u1", id), core.ErrNotFound)
	})
}
