package main

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
	"gitea.kood.tech/petrkubec/linkvibez/internal/store"
)

type viewerKey struct{}

// viewerFromContext returns the profile loaded by requireProfile.
func viewerFromContext(ctx context.Context) (model.Profile, bool) {
	p, ok := ctx.Value(viewerKey{}).(model.Profile)
	return p, ok
}

// requireProfile rejects users who have not finished onboarding and puts
// their profile into the request context.
func (a *app) requireProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		me, _ := userIDFromContext(r.Context())
		p, err := a.profiles.Get(r.Context(), me)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusForbidden, "incomplete_profile")
			return
		}
		if err != nil {
			a.log.Error("load viewer profile", zap.Int("user_id", me), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), viewerKey{}, p)))
	})
}

// GET /me
func meHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, _ := userIDFromContext(r.Context())

		_, err := a.profiles.Get(r.Context(), me)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			a.log.Error("load profile", zap.Int("user_id", me), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":        me,
			"onboarded": err == nil,
			"vibes":     model.Vibes,
		})
	}
}

// GET /me/profile
func myProfileHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, _ := userIDFromContext(r.Context())
		writeProfile(a, w, r, me)
	}
}

// GET /profiles/{id}
func profileHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_user_id")
			return
		}
		writeProfile(a, w, r, id)
	}
}

func writeProfile(a *app, w http.ResponseWriter, r *http.Request, id int) {
	p, err := a.profiles.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "profile_not_found")
		return
	}
	if err != nil {
		a.log.Error("load profile", zap.Int("user_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// POST|PUT /me/profile
// Completes onboarding or updates the profile. Missing bio and photo fall back
// to the onboarding defaults.
func saveProfileHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, _ := userIDFromContext(r.Context())

		var form model.Onboarding
		if err := decodeJSON(w, r, &form); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}

		p, err := form.ToProfile(me, a.now())
		switch {
		case errors.Is(err, model.ErrMissingName):
			writeError(w, http.StatusBadRequest, "missing_full_name")
			return
		case errors.Is(err, model.ErrInvalidBirthYear):
			writeError(w, http.StatusBadRequest, "invalid_dob_year")
			return
		case err != nil:
			writeError(w, http.StatusBadRequest, "invalid_profile")
			return
		}

		saved, err := a.profiles.Upsert(r.Context(), p)
		if err != nil {
			a.log.Error("save profile", zap.Int("user_id", me), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		// The running deck session holds the old viewer profile.
		a.decks.End(me)
		writeJSON(w, http.StatusOK, saved)
	}
}
