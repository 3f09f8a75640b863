package swipe

import (
	"context"

	"go.uber.org/zap"

	"gitea.kood.tech/petrkubec/linkvibez/internal/metrics"
	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
	"gitea.kood.tech/petrkubec/linkvibez/internal/wingman"
)

type Status string

const (
	StatusThinking    Status = "thinking"
	StatusReady       Status = "ready"
	StatusUnavailable Status = "unavailable"
)

// Annotation is the vibe check for the card at Cursor.
type Annotation struct {
	Cursor int    `json:"-"`
	Status Status `json:"status"`
	Text   string `json:"text"`
	Score  *int   `json:"score,omitempty"`
}

func thinking(cursor int) Annotation {
	return Annotation{Cursor: cursor, Status: StatusThinking, Text: wingman.ThinkingText}
}

// ChemistryScore returns the score, valid only for a ready annotation that carried one.
func (a Annotation) ChemistryScore() wingman.Score {
	if a.Status != StatusReady || a.Score == nil {
		return wingman.Score{}
	}
	return wingman.Score{Value: *a.Score, Valid: true}
}

// Annotator runs vibe checks.
type Annotator struct {
	gen       wingman.Generator
	scoreMode string
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func NewAnnotator(gen wingman.Generator, scoreMode string, log *zap.Logger, m *metrics.Metrics) *Annotator {
	return &Annotator{gen: gen, scoreMode: scoreMode, log: log.Named("annotator"), metrics: m}
}

// Annotate performs one vibe check for the profile at cursor. Failures
// produce an unavailable annotation; there is no retry.
func (a *Annotator) Annotate(ctx context.Context, cursor int, p model.Profile) Annotation {
	text, err := wingman.VibeCheck(ctx, a.gen, p.Bio)
	if err != nil {
		a.log.Warn("vibe check failed", zap.Int("profile_id", p.ID), zap.Error(err))
		a.metrics.VibeRequest(string(StatusUnavailable))
		return Annotation{Cursor: cursor, Status: StatusUnavailable, Text: wingman.UnavailableText}
	}

	ann := Annotation{Cursor: cursor, Status: StatusReady, Text: text}
	if s := wingman.ExtractScore(text, a.scoreMode); s.Valid {
		v := s.Value
		ann.Score = &v
	}
	a.metrics.VibeRequest(string(StatusReady))
	return ann
}
