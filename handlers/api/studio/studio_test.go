package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"adruby-studio/handlers/auth"
	"adruby-studio/middleware"
	"adruby-studio/stores"
	"adruby-studio/stores/memory"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// asUser injects parsed claims the way the JWT middleware would.
func asUser(subject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := &auth.AppClaims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
				Login:            subject,
			}
			ctx := context.WithValue(r.Context(), middleware.ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(m *Manager, store stores.Store, subject string) http.Handler {
	r := chi.NewRouter()
	r.Use(asUser(subject))
	r.Post("/sessions", HandleOpen(m, store))
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Post("/wizard-complete", HandleWizardComplete(m))
		r.Post("/save", HandleSave(m))
		r.Delete("/", HandleClose(m))
	})
	return r
}

func newMemory() stores.Store {
	return memory.NewStore()
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionResponse {
	t.Helper()
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func saveBody() map[string]any {
	return map[string]any{
		"document": map[string]any{
			"name": "Summer Sale",
			"layers": []map[string]any{
				{"id": "h", "kind": "text", "name": "Headline", "text": "Half price", "fontSize": 64, "z": 20},
				{"id": "c", "kind": "cta", "name": "CTA Button", "text": "Shop now", "z": 30},
			},
		},
	}
}

func TestHandleOpen(t *testing.T) {
	t.Run("blank session opens the editor", func(t *testing.T) {
		h := newTestRouter(NewManager(), newMemory(), "u1")
		rec := postJSON(t, h, "/sessions", map[string]any{})

		require.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeSession(t, rec)
		assert.NotEmpty(t, resp.SessionID)
		assert.Equal(t, "editor", string(resp.State))
		require.NotNil(t, resp.Document)
		assert.Len(t, resp.Document.Layers, 0)
	})

	t.Run("wizard flag opens the wizard", func(t *testing.T) {
		h := newTestRouter(NewManager(), newMemory(), "u1")
		rec := postJSON(t, h, "/sessions", map[string]any{"wizard": true})

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "wizard", string(decodeSession(t, rec).State))
	})

	t.Run("unknown document id still opens on a blank canvas", func(t *testing.T) {
		h := newTestRouter(NewManager(), newMemory(), "u1")
		rec := postJSON(t, h, "/sessions", map[string]any{"documentId": "missing"})

		require.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeSession(t, rec)
		assert.Equal(t, "editor", string(resp.State))
		assert.Len(t, resp.Document.Layers, 0)
	})
}

func TestHandleWizardComplete(t *testing.T) {
	m := NewManager()
	h := newTestRouter(m, newMemory(), "u1")

	rec := postJSON(t, h, "/sessions", map[string]any{"wizard": true})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeSession(t, rec).SessionID

	rec = postJSON(t, h, "/sessions/"+id+"/wizard-complete", saveBody())
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSession(t, rec)
	assert.Equal(t, "editor", string(resp.State))
	assert.Equal(t, "Summer Sale", resp.Document.Name)

	// A second completion is out of order.
	rec = postJSON(t, h, "/sessions/"+id+"/wizard-complete", saveBody())
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleSave(t *testing.T) {
	t.Run("persists and tears down the session", func(t *testing.T) {
		m := NewManager()
		store := newMemory()
		h := newTestRouter(m, store, "u1")

		rec := postJSON(t, h, "/sessions", map[string]any{})
		id := decodeSession(t, rec).SessionID

		rec = postJSON(t, h, "/sessions/"+id+"/save", saveBody())
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		creativeID := resp["creativeId"]
		require.NotEmpty(t, creativeID)

		saved, err := store.Get(context.Background(), "u1", creativeID)
		require.NoError(t, err)
		assert.Equal(t, "Half price", saved.Headline)
		assert.Equal(t, "Shop now", saved.CallToAction)

		// The session is gone after a successful save.
		rec = postJSON(t, h, "/sessions/"+id+"/save", saveBody())
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejected while the session is in the wizard", func(t *testing.T) {
		m := NewManager()
		h := newTestRouter(m, newMemory(), "u1")

		rec := postJSON(t, h, "/sessions", map[string]any{"wizard": true})
		id := decodeSession(t, rec).SessionID

		rec = postJSON(t, h, "/sessions/"+id+"/save", saveBody())
		assert.Equal(t, http.StatusGone, rec.Code)
	})

	t.Run("unknown session", func(t *testing.T) {
		h := newTestRouter(NewManager(), newMemory(), "u1")
		rec := postJSON(t, h, "/sessions/does-not-exist/save", saveBody())
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleClose(t *testing.T) {
	m := NewManager()
	h := newTestRouter(m, newMemory(), "u1")

	rec := postJSON(t, h, "/sessions", map[string]any{})
	id := decodeSession(t, rec).SessionID

	req := httptest.NewRequest(http.MethodDelete, "/sessions/"+id+"/", nil)
	del := httptest.NewRecorder()
	h.ServeHTTP(del, req)
	require.Equal(t, http.StatusOK, del.Code)

	// All later events are rejected.
	rec = postJSON(t, h, "/sessions/"+id+"/save", saveBody())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionIsolation(t *testing.T) {
	m := NewManager()
	store := newMemory()

	owner := newTestRouter(m, store, "u1")
	other := newTestRouter(m, store, "u2")

	rec := postJSON(t, owner, "/sessions", map[string]any{})
	id := decodeSession(t, rec).SessionID

	// Another user cannot touch the session.
	rec = postJSON(t, other, "/sessions/"+id+"/save", saveBody())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = postJSON(t, owner, "/sessions/"+id+"/save", saveBody())
	assert.Equal(t, http.StatusOK, rec.Code)
}
