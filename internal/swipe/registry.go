package swipe

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"gitea.kood.tech/petrkubec/linkvibez/internal/metrics"
	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
)

// Registry keeps at most one live session per viewer.
type Registry struct {
	profiles  ProfileLister
	likes     LikeRecorder
	annotator *Annotator
	log       *zap.Logger
	metrics   *metrics.Metrics

	mu       sync.Mutex
	sessions map[int]*Session
}

func NewRegistry(profiles ProfileLister, likes LikeRecorder, annotator *Annotator, log *zap.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		profiles:  profiles,
		likes:     likes,
		annotator: annotator,
		log:       log.Named("swipe"),
		metrics:   m,
		sessions:  make(map[int]*Session),
	}
}

// Start loads a fresh deck for viewer and replaces any previous session.
func (r *Registry) Start(ctx context.Context, viewer model.Profile) *Session {
	deck, err := loadDeck(ctx, r.profiles, viewer.ID)
	switch {
	case err != nil:
		r.metrics.DeckLoaded("error")
		r.log.Warn("deck load failed, serving empty deck", zap.Int("viewer_id", viewer.ID), zap.Error(err))
		deck = Deck{}
	case deck.Len() == 0:
		r.metrics.DeckLoaded("empty")
	default:
		r.metrics.DeckLoaded("ok")
	}

	s := NewSession(viewer, deck, r.likes, r.annotator, r.log, r.metrics)

	r.mu.Lock()
	prev := r.sessions[viewer.ID]
	r.sessions[viewer.ID] = s
	r.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return s
}

// Get returns the viewer's live session.
func (r *Registry) Get(viewerID int) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[viewerID]
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// End closes and forgets the viewer's session.
func (r *Registry) End(viewerID int) {
	r.mu.Lock()
	s := r.sessions[viewerID]
	delete(r.sessions, viewerID)
	r.mu.Unlock()

	if s != nil {
		s.Close()
	}
}

// Close ends every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[int]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
