package studio

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"adruby-studio/core"
	"adruby-studio/handlers/auth"
	"adruby-studio/middleware"
	"adruby-studio/session"
	"adruby-studio/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type (
	// liveSession pairs a controller with the lock that serializes its
	// events. The controller itself is single-threaded by contract; the
	// lock is what makes HTTP delivery look single-threaded to it.
	liveSession struct {
		mu     sync.Mutex
		userID string
		ctl    *session.Controller
	}

	// Manager tracks live studio sessions by id.
	Manager struct {
		mu       sync.Mutex
		sessions map[string]*liveSession
	}

	openRequest struct {
		DocumentID string `json:"documentId"`
		Wizard     bool   `json:"wizard"`
	}

	documentRequest struct {
		Document *core.Document `json:"document"`
	}

	sessionResponse struct {
		SessionID string         `json:"sessionId"`
		State     session.State  `json:"state"`
		Document  *core.Document `json:"document,omitempty"`
	}
)

// NewManager creates an empty session registry.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*liveSession)}
}

func (m *Manager) get(id string) *liveSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

func (m *Manager) put(id string, s *liveSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = s
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func claimsFrom(w http.ResponseWriter, r *http.Request) (*auth.AppClaims, bool) {
	claims, ok := r.Context().Value(middleware.ClaimsContextKey).(*auth.AppClaims)
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "User claims not found"})
		return nil, false
	}
	return claims, true
}

// lookup resolves a session id for the requesting user.
func (m *Manager) lookup(w http.ResponseWriter, r *http.Request, userID string) (*liveSession, string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Session id is required"})
		return nil, "", false
	}
	live := m.get(id)
	if live == nil || live.userID != userID {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "Session not found"})
		return nil, "", false
	}
	return live, id, true
}

// HandleOpen boots a new studio session. With a documentId the snapshot
// load runs inline; a load problem still opens the session, just on a
// blank canvas.
func HandleOpen(m *Manager, store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}

		var req openRequest
		if r.Body != nil {
			// An empty body opens a blank editor session.
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		ctl := session.New(store, session.StartParams{
			UserID:     claims.Subject,
			DocumentID: req.DocumentID,
			Wizard:     req.Wizard,
		})
		ctl.Load(r.Context(), ctl.Boot())

		id := ulid.Make().String()
		m.put(id, &liveSession{userID: claims.Subject, ctl: ctl})

		logrus.WithFields(logrus.Fields{
			"userID":     claims.Subject,
			"sessionID":  id,
			"documentID": req.DocumentID,
			"state":      ctl.State(),
		}).Info("Studio session opened")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, sessionResponse{SessionID: id, State: ctl.State(), Document: ctl.Document()})
	}
}

// HandleWizardComplete carries the wizard's document into the editor.
func HandleWizardComplete(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}
		live, id, ok := m.lookup(w, r, claims.Subject)
		if !ok {
			return
		}

		var req documentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid JSON in request body"})
			return
		}

		live.mu.Lock()
		defer live.mu.Unlock()

		if err := live.ctl.CompleteWizard(req.Document); err != nil {
			status := http.StatusConflict
			if errors.Is(err, session.ErrSessionClosed) {
				status = http.StatusGone
			}
			render.Status(r, status)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}

		render.JSON(w, r, sessionResponse{SessionID: id, State: live.ctl.State(), Document: live.ctl.Document()})
	}
}

// HandleSave persists the session's creative. A save arriving while a
// prior one holds the session lock is turned away instead of queued, so
// one click can never yield two library entries.
func HandleSave(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}
		live, id, ok := m.lookup(w, r, claims.Subject)
		if !ok {
			return
		}

		var req documentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid JSON in request body"})
			return
		}

		if !live.mu.TryLock() {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, map[string]string{"error": session.ErrSaveInFlight.Error()})
			return
		}
		defer live.mu.Unlock()

		creativeID, err := live.ctl.Save(r.Context(), req.Document)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":     err,
				"userID":    claims.Subject,
				"sessionID": id,
			}).Error("Failed to save creative")

			status := http.StatusBadGateway
			switch {
			case errors.Is(err, session.ErrSaveInFlight):
				status = http.StatusConflict
			case errors.Is(err, session.ErrSessionClosed), errors.Is(err, session.ErrNotEditing):
				status = http.StatusGone
			}
			// The session stays editable; the client may retry.
			render.Status(r, status)
			render.JSON(w, r, map[string]string{"error": "Failed to save creative", "detail": err.Error()})
			return
		}

		m.remove(id)
		render.JSON(w, r, map[string]string{"creativeId": creativeID})
	}
}

// HandleClose discards a session without saving.
func HandleClose(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}
		live, id, ok := m.lookup(w, r, claims.Subject)
		if !ok {
			return
		}

		live.mu.Lock()
		live.ctl.Close()
		live.mu.Unlock()
		m.remove(id)

		logrus.WithFields(logrus.Fields{"userID": claims.Subject, "sessionID": id}).
			Info("Studio session closed")
		render.Status(r, http.StatusOK)
		render.JSON(w, r, map[string]string{"status": "closed"})
	}
}
