// Command db-seeder fills a LinkVibez database with demo users, profiles,
// likes and conversations.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"gitea.kood.tech/petrkubec/linkvibez/internal/config"
	"gitea.kood.tech/petrkubec/linkvibez/internal/logger"
	"gitea.kood.tech/petrkubec/linkvibez/internal/store"
)

type options struct {
	DSN         string
	Count       int
	Seed        int64
	Truncate    bool
	LikeRate    float64 // proportion of other users each user swipes on
	LikeBias    float64 // chance a swipe is a like rather than a pass
	MessageRate float64 // proportion of mutual likes that get a conversation
	Password    string  // same password for everyone (easy login)
}

func (o options) validate() error {
	if o.Count < 2 {
		return fmt.Errorf("--count must be at least 2")
	}
	for name, v := range map[string]float64{"like-rate": o.LikeRate, "like-bias": o.LikeBias, "message-rate": o.MessageRate} {
		if v < 0 || v > 1 {
			return fmt.Errorf("--%s must be in range 0..1", name)
		}
	}
	if o.Password == "" {
		return fmt.Errorf("--password must not be empty")
	}
	return nil
}

func main() {
	if err := newSeedCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newSeedCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:          "db-seeder",
		Short:        "Seed the LinkVibez database with demo data",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validate(); err != nil {
				return err
			}
			if o.DSN == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				o.DSN = cfg.Postgres.DSN
			}
			log := logger.NewDevelopment()
			defer func() { _ = log.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			return run(ctx, o, log)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.DSN, "dsn", os.Getenv("DATABASE_URL"), "Postgres DSN [env: DATABASE_URL, default: service config]")
	f.IntVar(&o.Count, "count", 300, "Number of users to create")
	f.Int64Var(&o.Seed, "seed", 42, "RNG seed (deterministic)")
	f.BoolVar(&o.Truncate, "truncate", false, "TRUNCATE target tables before running")
	f.Float64Var(&o.LikeRate, "like-rate", 0.15, "Proportion of other users each user swipes on (0..1)")
	f.Float64Var(&o.LikeBias, "like-bias", 0.6, "Chance that a swipe is a like (0..1)")
	f.Float64Var(&o.MessageRate, "message-rate", 0.5, "Proportion of mutual likes with a conversation (0..1)")
	f.StringVar(&o.Password, "password", "test1234", "Password assigned to all users")
	return cmd
}

func run(ctx context.Context, o options, log *zap.Logger) error {
	st, err := store.Open(ctx, o.DSN, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx, config.Default().Postgres.NotifyChannel); err != nil {
		return err
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(o.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("bcrypt: %w", err)
	}

	r := rand.New(rand.NewSource(o.Seed))
	plan := buildPlan(r, o)

	s := &seeder{db: st.DB(), log: log}
	if err := s.apply(ctx, plan, string(pwHash), o.Truncate); err != nil {
		return err
	}
	log.Info("seed complete",
		zap.Int("users", len(plan.users)),
		zap.Int("likes", len(plan.likes)),
		zap.Int("messages", len(plan.messages)))
	return nil
}
