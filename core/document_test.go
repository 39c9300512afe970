package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument(t *testing.T) {
	doc := NewDocument()
	require.NotNil(t, doc)
	assert.Empty(t, doc.ID)
	assert.NotNil(t, doc.Layers)
	assert.Len(t, doc.Layers, 0)
}

func TestValidate(t *testing.T) {
	t.Run("blank document is valid", func(t *testing.T) {
		assert.NoError(t, NewDocument().Validate())
	})

	t.Run("unique layer ids are valid", func(t *testing.T) {
		doc := &Document{Layers: []Layer{
			{ID: "a", Kind: LayerText},
			{ID: "b", Kind: LayerImage},
		}}
		assert.NoError(t, doc.Validate())
	})

	t.Run("duplicate layer ids are rejected", func(t *testing.T) {
		doc := &Document{Layers: []Layer{
			{ID: "a", Kind: LayerText},
			{ID: "a", Kind: LayerImage},
		}}
		err := doc.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"a"`)
	})
}

func TestNormalize(t *testing.T) {
	t.Run("clears negative font sizes", func(t *testing.T) {
		bad := -12.0
		good := 24.0
		doc := &Document{Layers: []Layer{
			{ID: "a", Kind: LayerText, FontSize: &bad},
			{ID: "b", Kind: LayerText, FontSize: &good},
		}}

		doc.Normalize()

		assert.Nil(t, doc.Layers[0].FontSize)
		require.NotNil(t, doc.Layers[1].FontSize)
		assert.Equal(t, 24.0, *doc.Layers[1].FontSize)
	})

	t.Run("orders layers by z", func(t *testing.T) {
		doc := &Document{Layers: []Layer{
			{ID: "top", Z: 30},
			{ID: "bottom", Z: 0},
			{ID: "middle", Z: 10},
		}}

		doc.Normalize()

		assert.Equal(t, []string{"bottom", "middle", "top"},
			[]string{doc.Layers[0].ID, doc.Layers[1].ID, doc.Layers[2].ID})
	})

	t.Run("insertion order breaks z ties", func(t *testing.T) {
		doc := &Document{Layers: []Layer{
			{ID: "first", Z: 5},
			{ID: "second", Z: 5},
			{ID: "third", Z: 5},
		}}

		doc.Normalize()

		assert.Equal(t, []string{"first", "second", "third"},
			[]string{doc.Layers[0].ID, doc.Layers[1].ID, doc.Layers[2].ID})
	})
}
