package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gitea.kood.tech/petrkubec/linkvibez/internal/config"
	"gitea.kood.tech/petrkubec/linkvibez/internal/media"
	"gitea.kood.tech/petrkubec/linkvibez/internal/metrics"
	"gitea.kood.tech/petrkubec/linkvibez/internal/realtime"
	"gitea.kood.tech/petrkubec/linkvibez/internal/relay"
	"gitea.kood.tech/petrkubec/linkvibez/internal/store"
	"gitea.kood.tech/petrkubec/linkvibez/internal/swipe"
	"gitea.kood.tech/petrkubec/linkvibez/internal/wingman"
)

const shutdownGrace = 10 * time.Second

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.Postgres.DSN, log)
	if err != nil {
		return nil, fmt.Errorf("cannot reach the database: %w", err)
	}
	if err := st.Migrate(ctx, cfg.Postgres.NotifyChannel); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func migrate(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	log.Info("schema is up to date")
	return st.Close()
}

// newWingman returns the Gemini client, or a generator that always fails when
// no key is configured so vibe checks and tone reads degrade to their fallbacks.
func newWingman(ctx context.Context, cfg *config.Config, log *zap.Logger) wingman.Generator {
	gen, err := wingman.NewGeminiClient(ctx, cfg.GeminiAPIKey(), cfg.Wingman.Model, cfg.Wingman.Timeout)
	if err != nil {
		log.Warn("wingman disabled", zap.Error(err))
		return wingman.Unavailable
	}
	log.Info("wingman enabled", zap.String("model", gen.Model()))
	return gen
}

func newPhotoStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (*media.Storage, error) {
	client, err := media.NewClient(media.ClientConfig{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	base := cfg.S3.PublicBaseURL
	if base == "" {
		base = media.PublicBaseURL(cfg.S3.Endpoint, cfg.S3.UseSSL)
	}
	photos := media.NewStorage(client, media.Options{
		Bucket:        cfg.S3.Bucket,
		PublicBaseURL: base,
		MaxBytes:      cfg.S3.MaxUploadBytes,
	})
	// Uploads retry the bucket check, so a storage outage at boot is not fatal
	if err := photos.EnsureBucket(ctx); err != nil {
		log.Warn("photo bucket not ready", zap.String("bucket", cfg.S3.Bucket), zap.Error(err))
	}
	return photos, nil
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	photos, err := newPhotoStorage(ctx, cfg, log)
	if err != nil {
		return err
	}

	m := metrics.New()
	broker := realtime.NewBroker()
	defer broker.Close()

	gen := newWingman(ctx, cfg, log)
	annotator := swipe.NewAnnotator(gen, cfg.Wingman.ScoreMode, log, m)
	decks := swipe.NewRegistry(st.Profiles, st.Likes, annotator, log, m)
	defer decks.Close()

	a := &app{
		cfg:        cfg,
		log:        log,
		metrics:    m,
		tokens:     newTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		users:      st.Users,
		profiles:   st.Profiles,
		likes:      st.Likes,
		messages:   st.Messages,
		photos:     photos,
		db:         st,
		feedSource: broker,
		wingman:    gen,
		decks:      decks,
		hub:        newHub(),
		now:        time.Now,
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      a.routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	listener := store.NewListener(cfg.Postgres.DSN, cfg.Postgres.NotifyChannel, broker, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listener.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting LinkVibez backend", zap.String("addr", cfg.HTTP.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		a.hub.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func serveRelay(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rl := relay.New(relay.Options{
		UpstreamBaseURL: cfg.Relay.UpstreamBaseURL,
		Model:           cfg.GeminiModel,
		Timeout:         cfg.Relay.Timeout,
		APIKey:          cfg.GeminiAPIKey,
	}, log)

	srv := &http.Server{
		Addr:              cfg.Relay.Addr,
		Handler:           rl.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting relay", zap.String("addr", cfg.Relay.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
