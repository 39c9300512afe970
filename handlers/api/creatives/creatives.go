package creatives

import (
	"errors"
	"net/http"

	"adruby-studio/core"
	"adruby-studio/handlers/auth"
	"adruby-studio/middleware"
	"adruby-studio/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

func claimsFrom(w http.ResponseWriter, r *http.Request) (*auth.AppClaims, bool) {
	claims, ok := r.Context().Value(middleware.ClaimsContextKey).(*auth.AppClaims)
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "User claims not found"})
		return nil, false
	}
	return claims, true
}

// HandleList returns the user's creative library, card fields only.
func HandleList(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}

		creatives, err := store.List(r.Context(), claims.Subject)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": claims.Subject,
			}).Error("Failed to list creatives")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to list creatives"})
			return
		}

		if creatives == nil {
			creatives = []*core.Creative{}
		}
		render.JSON(w, r, creatives)
	}
}

// HandleGet returns a single creative including its snapshot.
func HandleGet(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}

		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Creative id is required"})
			return
		}

		creative, err := store.Get(r.Context(), claims.Subject, id)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": claims.Subject,
				"id":     id,
			}).Warn("Failed to get creative")
			status := http.StatusInternalServerError
			if errors.Is(err, core.ErrNotFound) {
				status = http.StatusNotFound
			}
			render.Status(r, status)
			render.JSON(w, r, map[string]string{"error": "Creative not found"})
			return
		}

		render.JSON(w, r, creative)
	}
}

// HandleGetSnapshot returns just the stored document of a creative, the
// form the editor reopens.
func HandleGetSnapshot(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}

		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Creative id is required"})
			return
		}

		doc, err := store.LoadSnapshot(r.Context(), claims.Subject, id)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": claims.Subject,
				"id":     id,
			}).Warn("Failed to load snapshot")
			status := http.StatusInternalServerError
			if errors.Is(err, core.ErrNotFound) {
				status = http.StatusNotFound
			}
			render.Status(r, status)
			render.JSON(w, r, map[string]string{"error": "Snapshot not found"})
			return
		}

		render.JSON(w, r, doc)
	}
}

// HandleDelete removes a creative from the user's library.
func HandleDelete(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}

		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Creative id is required"})
			return
		}

		if err := store.Delete(r.Context(), claims.Subject, id); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": claims.Subject,
				"id":     id,
			}).Error("Failed to delete creative")
			status := http.StatusInternalServerError
			if errors.Is(err, core.ErrNotFound) {
				status = http.StatusNotFound
			}
			render.Status(r, status)
			render.JSON(w, r, map[string]string{"error": "Failed to delete creative"})
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, map[string]string{"status": "deleted"})
	}
}
