package core

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// LayerKind discriminates the layer variants. Extraction and rendering
// switch over this closed set; unknown kinds are carried but never matched.
type LayerKind string

const (
	LayerText  LayerKind = "text"
	LayerImage LayerKind = "image"
	LayerCTA   LayerKind = "cta"
)

// ImageRole hints at what an image layer depicts.
type ImageRole string

const (
	RoleProduct    ImageRole = "product"
	RoleBackground ImageRole = "background"
)

type (
	// Layer is one visual element of a Document. Kind selects the
	// variant; attributes outside the variant stay at their zero value.
	Layer struct {
		ID   string    `json:"id"`
		Kind LayerKind `json:"kind"`
		Name string    `json:"name"`
		Z    int       `json:"z"`

		// Text and cta variants.
		Text string `json:"text,omitempty"`

		// Text variant. Nil means unknown, which is not the same as zero.
		FontSize *float64 `json:"fontSize,omitempty"`

		// Image variant.
		Source string    `json:"source,omitempty"`
		Role   ImageRole `json:"role,omitempty"`
	}

	// Document is the in-session, editable representation of a creative:
	// an ordered sequence of layers plus document-level metadata. A
	// document with zero layers is a valid blank canvas.
	Document struct {
		ID          string   `json:"id,omitempty"` // assigned by the store on first save
		Name        string   `json:"name"`
		Mood        string   `json:"mood,omitempty"`
		BlueprintID string   `json:"blueprintId,omitempty"`
		Score       *float64 `json:"score,omitempty"`
		Layers      []Layer  `json:"layers"`
	}
)

// NewDocument returns the blank canvas a fresh session starts with.
func NewDocument() *Document {
	return &Document{Layers: []Layer{}}
}

// Validate checks the layer invariants: every layer id must be unique
// within the document. A snapshot failing validation is unusable as a
// whole and should be replaced, not repaired.
func (d *Document) Validate() error {
	seen := make(map[string]struct{}, len(d.Layers))
	for _, l := range d.Layers {
		if _, dup := seen[l.ID]; dup {
			return fmt.Errorf("duplicate layer id %q", l.ID)
		}
		seen[l.ID] = struct{}{}
	}
	return nil
}

// Normalize repairs the soft invariants in place: negative font sizes
// are cleared back to unknown, and layers are ordered by Z with
// insertion order breaking ties. Insertion order is the default z-order
// when no explicit Z values are set.
func (d *Document) Normalize() {
	for i := range d.Layers {
		l := &d.Layers[i]
		if l.FontSize != nil && *l.FontSize < 0 {
			logrus.WithFields(logrus.Fields{
				"layer_id":  l.ID,
				"font_size": *l.FontSize,
			}).Warn("Negative font size cleared to unknown")
			l.FontSize = nil
		}
	}
	sort.SliceStable(d.Layers, func(i, j int) bool {
		return d.Layers[i].Z < d.Layers[j].Z
	})
}
