package main

import (
	"errors"
	"fmt"
	"net/http"

	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
	"gitea.kood.tech/petrkubec/linkvibez/internal/swipe"
)

type releaseRequest struct {
	DX *float64 `json:"dx"`
}

type matchExitResponse struct {
	Deck     swipe.View     `json:"deck"`
	ChatWith *model.Profile `json:"chat_with,omitempty"`
	ChatPath string         `json:"chat_path,omitempty"`
}

// POST /deck
// Loads a fresh deck and replaces any running session.
func startDeckHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, _ := viewerFromContext(r.Context())
		s := a.decks.Start(r.Context(), viewer)
		writeJSON(w, http.StatusCreated, s.View())
	}
}

// GET /deck
// Returns the running session, starting one if there is none.
func currentDeckHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, _ := viewerFromContext(r.Context())
		s, err := a.decks.Get(viewer.ID)
		if errors.Is(err, swipe.ErrNoSession) {
			s = a.decks.Start(r.Context(), viewer)
		}
		writeJSON(w, http.StatusOK, s.View())
	}
}

// POST /deck/release  {"dx": 140}
func releaseHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, _ := viewerFromContext(r.Context())

		var req releaseRequest
		if err := decodeJSON(w, r, &req); err != nil || req.DX == nil {
			writeError(w, http.StatusBadRequest, "invalid_release")
			return
		}
		s, ok := sessionOrError(a, w, viewer.ID)
		if !ok {
			return
		}
		view, err := s.Release(r.Context(), *req.DX)
		if err != nil {
			writeSwipeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// POST /deck/match/message
func matchMessageHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, _ := viewerFromContext(r.Context())
		s, ok := sessionOrError(a, w, viewer.ID)
		if !ok {
			return
		}
		matched, view, err := s.Message()
		if err != nil {
			writeSwipeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, matchExitResponse{
			Deck:     view,
			ChatWith: &matched,
			ChatPath: fmt.Sprintf("/chats/%d/messages", matched.ID),
		})
	}
}

// POST /deck/match/continue
func matchContinueHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, _ := viewerFromContext(r.Context())
		s, ok := sessionOrError(a, w, viewer.ID)
		if !ok {
			return
		}
		view, err := s.ContinueSwiping()
		if err != nil {
			writeSwipeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, matchExitResponse{Deck: view})
	}
}

func sessionOrError(a *app, w http.ResponseWriter, viewerID int) (*swipe.Session, bool) {
	s, err := a.decks.Get(viewerID)
	if err != nil {
		writeSwipeError(w, err)
		return nil, false
	}
	return s, true
}

func writeSwipeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, swipe.ErrNoSession), errors.Is(err, swipe.ErrClosed):
		writeError(w, http.StatusNotFound, "no_deck_session")
	case errors.Is(err, swipe.ErrNoMatch):
		writeError(w, http.StatusConflict, "no_match_shown")
	default:
		writeError(w, http.StatusInternalServerError, "deck_error")
	}
}
