package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"adruby-studio/core"
	"adruby-studio/extract"

	"github.com/sirupsen/logrus"
)

// State names one phase of a studio session's lifecycle:
// booting -> {wizard, editor} -> saving -> closed.
type State string

const (
	StateBooting State = "booting"
	StateWizard  State = "wizard"
	StateEditor  State = "editor"
	StateSaving  State = "saving"
	StateClosed  State = "closed"
)

var (
	// ErrSaveInFlight is returned when a save arrives while a prior save
	// for the same session has not completed. The second save must not
	// reach the store; one click must not yield two library entries.
	ErrSaveInFlight = errors.New("save already in flight")

	// ErrSessionClosed is returned for any event arriving after close.
	ErrSessionClosed = errors.New("session closed")

	// ErrNotEditing is returned for events that are only legal in the
	// editor state.
	ErrNotEditing = errors.New("session is not in the editor state")
)

type (
	// StartParams are the explicit session-start inputs. The document id
	// always comes from the caller; the controller never reads ambient
	// state. AI assistance is opt-in via Wizard.
	StartParams struct {
		UserID     string
		DocumentID string
		Wizard     bool
	}

	// LoadRequest identifies one outstanding snapshot load. The
	// generation ties the response back to the session state that issued
	// the request, so a late response for a closed or re-booted session
	// is provably discarded.
	LoadRequest struct {
		DocumentID string
		generation uint64
	}

	// Controller drives one editing session from boot to close. It owns
	// the session's in-memory document exclusively and reacts to
	// discrete events delivered from a single goroutine; it does no
	// locking of its own.
	Controller struct {
		store      core.CreativeStore
		params     StartParams
		state      State
		doc        *core.Document
		generation uint64
		log        *logrus.Entry
	}
)

// New creates a controller in the booting state. Call Boot to resolve
// the initial document.
func New(store core.CreativeStore, params StartParams) *Controller {
	return &Controller{
		store:  store,
		params: params,
		state:  StateBooting,
		log: logrus.WithFields(logrus.Fields{
			"user_id":     params.UserID,
			"document_id": params.DocumentID,
		}),
	}
}

// Boot decides the initial state. Without a document id the session
// moves straight to the wizard or editor with a blank document and Boot
// returns nil. With one, the session stays booting and the returned
// request must be resolved through Load or FinishLoad.
func (c *Controller) Boot() *LoadRequest {
	if c.state != StateBooting {
		return nil
	}
	if c.params.DocumentID == "" {
		c.doc = core.NewDocument()
		if c.params.Wizard {
			c.state = StateWizard
		} else {
			c.state = StateEditor
		}
		c.log.WithField("state", c.state).Debug("Session booted with blank document")
		return nil
	}
	c.generation++
	return &LoadRequest{DocumentID: c.params.DocumentID, generation: c.generation}
}

// Load resolves a boot request against the store and applies the
// response. It is a convenience over FinishLoad for callers that run
// the exchange inline.
func (c *Controller) Load(ctx context.Context, req *LoadRequest) {
	if req == nil {
		return
	}
	doc, err := c.store.LoadSnapshot(ctx, c.params.UserID, req.DocumentID)
	c.FinishLoad(req, doc, err)
}

// FinishLoad applies a load response. A response for a closed session
// or an outdated generation is dropped. Failures, missing snapshots and
// malformed documents all degrade to a blank document in the editor
// state: load problems are logged, never surfaced as blocking errors.
func (c *Controller) FinishLoad(req *LoadRequest, doc *core.Document, err error) {
	if req == nil || c.state == StateClosed || req.generation != c.generation {
		c.log.Debug("Discarding stale load response")
		return
	}
	if c.state != StateBooting {
		return
	}

	switch {
	case err != nil:
		if errors.Is(err, core.ErrNotFound) {
			c.log.Info("Document snapshot not found, starting blank")
		} else {
			c.log.WithError(err).Warn("Failed to load document snapshot, starting blank")
		}
		doc = core.NewDocument()
	case doc == nil:
		c.log.Warn("Load returned no document, starting blank")
		doc = core.NewDocument()
	default:
		if verr := doc.Validate(); verr != nil {
			c.log.WithError(verr).Warn("Malformed document snapshot, starting blank")
			doc = core.NewDocument()
		} else {
			doc.Normalize()
		}
	}

	c.doc = doc
	c.state = StateEditor
}

// CompleteWizard hands the wizard's produced document to the editor.
// Legal exactly once, from the wizard state.
func (c *Controller) CompleteWizard(doc *core.Document) error {
	switch c.state {
	case StateClosed:
		return ErrSessionClosed
	case StateWizard:
	default:
		return fmt.Errorf("wizard completion in state %q", c.state)
	}
	if doc == nil {
		doc = core.NewDocument()
	} else if err := doc.Validate(); err != nil {
		c.log.WithError(err).Warn("Wizard produced a malformed document, starting blank")
		doc = core.NewDocument()
	} else {
		doc.Normalize()
	}
	c.doc = doc
	c.state = StateEditor
	return nil
}

// Save derives the ad copy from the current document, assembles the
// persistence payload and writes it through the store. A non-nil doc
// carries the editing surface's latest state and replaces the session
// document before saving; it must satisfy the layer invariants.
//
// Success closes the session and returns the creative id. Failure
// returns the session to the editor state with the document untouched,
// so the save can be retried without losing edits.
func (c *Controller) Save(ctx context.Context, doc *core.Document) (string, error) {
	switch c.state {
	case StateSaving:
		return "", ErrSaveInFlight
	case StateClosed:
		return "", ErrSessionClosed
	case StateEditor:
	default:
		return "", ErrNotEditing
	}

	if doc != nil {
		if err := doc.Validate(); err != nil {
			return "", fmt.Errorf("document rejected: %w", err)
		}
		doc.Normalize()
		c.doc = doc
	}
	c.state = StateSaving

	fields := extract.AdCopy(c.doc)
	snapshot, err := json.Marshal(c.doc)
	if err != nil {
		c.state = StateEditor
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	creative := &core.Creative{
		ID:           c.doc.ID,
		UserID:       c.params.UserID,
		Name:         c.doc.Name,
		Headline:     fields.Headline,
		Description:  fields.Description,
		CallToAction: fields.CallToAction,
		Thumbnail:    fields.Thumbnail,
		Mood:         c.doc.Mood,
		BlueprintID:  c.doc.BlueprintID,
		Score:        c.doc.Score,
		Snapshot:     snapshot,
	}

	id, err := c.store.SaveCreative(ctx, creative)
	if err != nil {
		c.state = StateEditor
		c.log.WithError(err).Error("Failed to save creative")
		return "", err
	}

	c.doc.ID = id
	c.state = StateClosed
	c.log.WithField("creative_id", id).Info("Creative saved, session closed")
	return id, nil
}

// Close discards the in-memory document. Safe to call in any state; all
// later events are rejected and any outstanding load response is dropped.
func (c *Controller) Close() {
	if c.state == StateClosed {
		return
	}
	c.doc = nil
	c.state = StateClosed
	c.log.Debug("Session closed without saving")
}

// State returns the session's current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Document returns the session's current document, nil once closed.
func (c *Controller) Document() *core.Document {
	return c.doc
}
