package core

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a creative or its snapshot
// does not exist for the requesting user.
var ErrNotFound = errors.New("creative not found")

type (
	// AdCopy is the structured payload derived from a Document: the
	// fields a library card and the search index need. All fields are
	// always populated, falling back to fixed defaults.
	AdCopy struct {
		Headline     string `json:"headline"`
		Description  string `json:"description"`
		CallToAction string `json:"callToAction"`
		Thumbnail    string `json:"thumbnail,omitempty"`
	}

	// Creative is a persisted library record: the extracted ad copy, the
	// raw document snapshot it was derived from, and document metadata.
	Creative struct {
		ID           string          `json:"id"`
		UserID       string          `json:"-"` // Not exposed in JSON responses, used internally.
		Name         string          `json:"name"`
		Headline     string          `json:"headline"`
		Description  string          `json:"description"`
		CallToAction string          `json:"callToAction"`
		Thumbnail    string          `json:"thumbnail,omitempty"`
		Mood         string          `json:"mood,omitempty"`
		BlueprintID  string          `json:"blueprintId,omitempty"`
		Score        *float64        `json:"score,omitempty"`
		Snapshot     json.RawMessage `json:"snapshot,omitempty"` // The full document, not included in list views.
		CreatedAt    time.Time       `json:"createdAt"`
		UpdatedAt    time.Time       `json:"updatedAt"`
	}

	// CreativeStore defines the persistence layer for the creative
	// library. All operations are scoped to a specific user.
	CreativeStore interface {
		// LoadSnapshot decodes the stored document snapshot of a creative.
		// Returns ErrNotFound when no such creative exists.
		LoadSnapshot(ctx context.Context, userID, id string) (*Document, error)

		// SaveCreative stores a creative and returns its id, assigning a
		// new one when the creative has none. Repeated saves of an id-less
		// creative create distinct records.
		SaveCreative(ctx context.Context, creative *Creative) (string, error)

		// List returns metadata for all creatives owned by a user. The
		// returned records do not carry the Snapshot field.
		List(ctx context.Context, userID string) ([]*Creative, error)

		// Get returns a single creative including its snapshot.
		Get(ctx context.Context, userID, id string) (*Creative, error)

		// Delete removes a creative, ensuring it belongs to the user.
		Delete(ctx context.Context, userID, id string) error
	}
)
