package swipe

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitea.kood.tech/petrkubec/linkvibez/internal/metrics"
	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
)

// ExhaustedNotice is the terminal deck message.
const ExhaustedNotice = "No more vibes nearby. Check back soon!"

const likeWriteTimeout = 5 * time.Second

var (
	ErrNoSession = errors.New("swipe: no active session")
	ErrNoMatch   = errors.New("swipe: no match overlay shown")
	ErrClosed    = errors.New("swipe: session closed")
)

// LikeRecorder persists swipe decisions.
type LikeRecorder interface {
	Record(ctx context.Context, userID, targetID int, isLike bool) error
}

// View is a snapshot of a session for rendering.
type View struct {
	SessionID  string         `json:"session_id"`
	State      string         `json:"state"`
	Cursor     int            `json:"cursor"`
	DeckSize   int            `json:"deck_size"`
	Profile    *model.Profile `json:"profile,omitempty"`
	DistanceKm *float64       `json:"distance_km,omitempty"`
	Annotation *Annotation    `json:"annotation,omitempty"`
	Notice     string         `json:"notice,omitempty"`
}

// Session is one viewer's pass through a deck. Methods are safe for
// concurrent use; every transition happens under the session lock.
type Session struct {
	id        string
	viewer    model.Profile
	deck      Deck
	likes     LikeRecorder
	annotator *Annotator
	log       *zap.Logger
	metrics   *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	machine    *Machine
	annotation Annotation
	closed     bool
}

// NewSession starts browsing deck and kicks off the first vibe check.
func NewSession(viewer model.Profile, deck Deck, likes LikeRecorder, annotator *Annotator, log *zap.Logger, m *metrics.Metrics) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	s := &Session{
		id:        id,
		viewer:    viewer,
		deck:      deck,
		likes:     likes,
		annotator: annotator,
		log:       log.With(zap.String("session_id", id), zap.Int("viewer_id", viewer.ID)),
		metrics:   m,
		ctx:       ctx,
		cancel:    cancel,
		machine:   NewMachine(deck.Len()),
	}
	s.mu.Lock()
	s.annotateLocked()
	s.mu.Unlock()
	return s
}

func (s *Session) ID() string { return s.id }

// annotateLocked marks the card at the cursor as thinking and requests its
// vibe check in the background.
func (s *Session) annotateLocked() {
	cursor := s.machine.Cursor()
	profile, ok := s.deck.At(cursor)
	if !ok || s.closed {
		s.annotation = Annotation{Cursor: -1}
		return
	}
	s.annotation = thinking(cursor)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(s.annotator.Annotate(s.ctx, cursor, profile))
	}()
}

// deliver installs an annotation unless the cursor has moved past the card
// it was requested for.
func (s *Session) deliver(ann Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if ann.Cursor != s.machine.Cursor() {
		s.metrics.StaleAnnotation()
		s.log.Debug("discarding stale annotation", zap.Int("for_cursor", ann.Cursor), zap.Int("cursor", s.machine.Cursor()))
		return
	}
	s.annotation = ann
}

// Release handles a drag release with horizontal displacement dx.
func (s *Session) Release(ctx context.Context, dx float64) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return View{}, ErrClosed
	}
	decision := Classify(dx)
	if s.machine.State() != Browsing || decision == NoDecision {
		return s.viewLocked(), nil
	}

	cursor := s.machine.Cursor()
	target, _ := s.deck.At(cursor)
	s.recordLocked(ctx, target.ID, decision == Like)

	score := s.annotation.ChemistryScore()
	if s.annotation.Cursor != cursor {
		score.Valid = false
	}
	s.machine.Release(dx, score)
	s.metrics.Swipe(decision.String())

	if s.machine.State() == MatchShown {
		s.metrics.MatchShown()
		s.log.Info("match shown", zap.Int("profile_id", target.ID), zap.Int("score", score.Value))
	}
	if s.machine.Cursor() != cursor {
		s.annotateLocked()
	}
	return s.viewLocked(), nil
}

// recordLocked writes the like or pass. Failures are logged and ignored.
func (s *Session) recordLocked(ctx context.Context, targetID int, isLike bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), likeWriteTimeout)
	defer cancel()

	if err := s.likes.Record(ctx, s.viewer.ID, targetID, isLike); err != nil {
		s.metrics.LikeWriteFailed()
		s.log.Warn("like write failed", zap.Int("target_id", targetID), zap.Bool("is_like", isLike), zap.Error(err))
	}
}

// Message leaves the match overlay towards the chat and returns the matched profile.
func (s *Session) Message() (model.Profile, View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.Profile{}, View{}, ErrClosed
	}
	matched, _ := s.deck.At(s.machine.Cursor())
	if !s.dismissLocked() {
		return model.Profile{}, s.viewLocked(), ErrNoMatch
	}
	return matched, s.viewLocked(), nil
}

// ContinueSwiping leaves the match overlay and shows the next card.
func (s *Session) ContinueSwiping() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return View{}, ErrClosed
	}
	if !s.dismissLocked() {
		return s.viewLocked(), ErrNoMatch
	}
	return s.viewLocked(), nil
}

func (s *Session) dismissLocked() bool {
	if !s.machine.Dismiss() {
		return false
	}
	s.annotateLocked()
	return true
}

// Visible reports whether the match overlay is showing.
func (s *Session) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State() == MatchShown
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		SessionID: s.id,
		State:     s.machine.State().String(),
		Cursor:    s.machine.Cursor(),
		DeckSize:  s.deck.Len(),
	}
	p, ok := s.deck.At(v.Cursor)
	if !ok {
		v.Notice = ExhaustedNotice
		return v
	}
	v.Profile = &p
	if d, ok := DistanceKm(s.viewer, p); ok {
		v.DistanceKm = &d
	}
	ann := s.annotation
	v.Annotation = &ann
	return v
}

// Close stops the session and waits for in-flight vibe checks to return.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
}
