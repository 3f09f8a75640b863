package main

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"gitea.kood.tech/petrkubec/linkvibez/internal/chatfeed"
	"gitea.kood.tech/petrkubec/linkvibez/internal/config"
	"gitea.kood.tech/petrkubec/linkvibez/internal/metrics"
	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
	"gitea.kood.tech/petrkubec/linkvibez/internal/swipe"
	"gitea.kood.tech/petrkubec/linkvibez/internal/wingman"
)

type userStore interface {
	Create(ctx context.Context, email, passwordHash string) (int, error)
	Credentials(ctx context.Context, email string) (int, string, error)
}

type profileStore interface {
	ListExcept(ctx context.Context, viewerID int) ([]model.Profile, error)
	Get(ctx context.Context, id int) (model.Profile, error)
	GetMany(ctx context.Context, ids []int) (map[int]model.Profile, error)
	Upsert(ctx context.Context, p model.Profile) (model.Profile, error)
	SetImage(ctx context.Context, id int, url string) error
}

type likeStore interface {
	Record(ctx context.Context, userID, targetID int, isLike bool) error
	Matches(ctx context.Context, userID int) ([]int, error)
	LikedBy(ctx context.Context, targetID int, candidates []int) (map[int]bool, error)
}

type photoStore interface {
	Upload(ctx context.Context, filename string, body io.Reader, size int64, contentType string) (string, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// app carries the dependencies shared by every handler.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	tokens  *tokenIssuer

	users    userStore
	profiles profileStore
	likes    likeStore
	messages chatfeed.MessageStore
	photos   photoStore
	db       pinger

	feedSource chatfeed.Source
	wingman    wingman.Generator
	decks      *swipe.Registry
	hub        *Hub

	now func() time.Time
}

// feedDeps bundles what a chat feed needs.
func (a *app) feedDeps() chatfeed.Deps {
	return chatfeed.Deps{
		Messages: a.messages,
		Source:   a.feedSource,
		Wingman:  a.wingman,
		Log:      a.log.Named("chat"),
		Metrics:  a.metrics,
	}
}
