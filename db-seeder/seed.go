package main

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
)

type seedUser struct {
	email   string
	profile model.Profile
}

// seedLike and seedMessage refer to users by their index in plan.users.
type seedLike struct {
	from, to int
	isLike   bool
	at       time.Time
}

type seedMessage struct {
	from, to int
	content  string
	at       time.Time
}

// plan is everything a run writes, generated up front so a seed is reproducible.
type plan struct {
	users    []seedUser
	likes    []seedLike
	messages []seedMessage
}

var cities = []struct {
	name     string
	lat, lon float64
}{
	{"Brisbane, QLD", -27.4698, 153.0251},
	{"Gold Coast, QLD", -28.0167, 153.4000},
	{"Sunshine Coast, QLD", -26.6500, 153.0667},
	{"Ipswich, QLD", -27.6161, 152.7609},
	{"Toowoomba, QLD", -27.5598, 151.9507},
}

var (
	firstNames = []string{"Alex", "Sam", "Mia", "Jordan", "Noah", "Olivia", "Leo", "Harper", "Sara", "Luca", "Ivy", "Kai", "Zoe", "Riley", "Sofia"}
	lastNames  = []string{"Nguyen", "Smith", "Williams", "Brown", "Wilson", "Taylor", "Martin", "Anderson", "Thompson", "Walker"}
	bios       = []string{
		"Sunrise swims, late night synthwave.",
		"Weekend hiker and weekday coder.",
		"Will trade tacos for good playlists.",
		"Into film cameras and ramen spots.",
		"Dog person looking for a co-pilot for road trips.",
		"Amateur baker, professional taste tester.",
	}
	openers = []string{
		"Hey! Your bio made me laugh.",
		"Okay, best taco spot in town. Go.",
		"What are you listening to this week?",
		"Beach or mountains this weekend?",
	}
	replies = []string{
		"Haha thanks! Yours too.",
		"Bold question. I'll need a coffee first.",
		"Mostly old soul records, you?",
		"Mountains, always.",
	}
)

func buildPlan(r *rand.Rand, o options) plan {
	var p plan
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	emails := make(map[string]struct{}, o.Count)
	for i := 0; i < o.Count; i++ {
		var u seedUser
		// First two users are fixed test accounts
		if i < 2 {
			u.email = fmt.Sprintf("user%d@test.local", i+1)
			u.profile = model.Profile{
				FullName:  fmt.Sprintf("Test User %d", i+1),
				Age:       27 + i,
				Location:  model.GPSLocation,
				Latitude:  ptr(cities[0].lat),
				Longitude: ptr(cities[0].lon + float64(i)*0.01),
				Bio:       "Testing the vibes, one swipe at a time.",
				ImageURL:  model.DefaultImageURL,
			}
		} else {
			c := cities[r.Intn(len(cities))]
			first, last := firstNames[r.Intn(len(firstNames))], lastNames[r.Intn(len(lastNames))]
			u.email = uniqueEmail(r, emails, first, last)
			u.profile = model.Profile{
				FullName: first + " " + last,
				Age:      19 + r.Intn(25),
				Location: c.name,
				Bio:      bios[r.Intn(len(bios))],
				ImageURL: model.DefaultImageURL,
			}
			if r.Float64() < 0.8 {
				u.profile.Latitude = ptr(c.lat + (r.Float64()-0.5)*0.2)
				u.profile.Longitude = ptr(c.lon + (r.Float64()-0.5)*0.2)
			}
		}
		p.users = append(p.users, u)
	}

	liked := make(map[[2]int]bool)
	tick := 0
	for from := range p.users {
		for to := range p.users {
			if from == to || r.Float64() >= o.LikeRate {
				continue
			}
			tick++
			isLike := r.Float64() < o.LikeBias
			p.likes = append(p.likes, seedLike{from: from, to: to, isLike: isLike, at: base.Add(time.Duration(tick) * time.Minute)})
			if isLike {
				liked[[2]int{from, to}] = true
			}
		}
	}
	// The test accounts always like each other
	for _, pair := range [][2]int{{0, 1}, {1, 0}} {
		if !liked[pair] {
			tick++
			p.likes = append(p.likes, seedLike{from: pair[0], to: pair[1], isLike: true, at: base.Add(time.Duration(tick) * time.Minute)})
			liked[pair] = true
		}
	}

	for a := range p.users {
		for b := a + 1; b < len(p.users); b++ {
			if !liked[[2]int{a, b}] || !liked[[2]int{b, a}] {
				continue
			}
			if !(a == 0 && b == 1) && r.Float64() >= o.MessageRate {
				continue
			}
			tick++
			at := base.Add(time.Duration(tick) * time.Hour)
			n := r.Intn(len(openers))
			p.messages = append(p.messages,
				seedMessage{from: a, to: b, content: openers[n], at: at},
				seedMessage{from: b, to: a, content: replies[n], at: at.Add(3 * time.Minute)},
			)
		}
	}
	return p
}

func uniqueEmail(r *rand.Rand, used map[string]struct{}, first, last string) string {
	for {
		domain := []string{"example.com", "mail.test", "dev.local"}[r.Intn(3)]
		email := fmt.Sprintf("%s.%s+%d@%s", strings.ToLower(first), strings.ToLower(last), r.Intn(1000000), domain)
		if _, ok := used[email]; !ok {
			used[email] = struct{}{}
			return email
		}
	}
}

func ptr(f float64) *float64 { return &f }

type seeder struct {
	db  *sql.DB
	log *zap.Logger
}

// apply writes the plan in one transaction so a constraint failure leaves nothing behind.
func (s *seeder) apply(ctx context.Context, p plan, pwHash string, truncate bool) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rec := recover(); rec != nil {
			_ = tx.Rollback()
			panic(rec)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if truncate {
		if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE messages, likes, profiles, users RESTART IDENTITY CASCADE`); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
		s.log.Info("truncated users, profiles, likes, messages")
	}

	ids, err := insertUsers(ctx, tx, p.users, pwHash)
	if err != nil {
		return fmt.Errorf("insert users: %w", err)
	}
	if err := insertProfiles(ctx, tx, p.users, ids); err != nil {
		return fmt.Errorf("insert profiles: %w", err)
	}
	if err := insertLikes(ctx, tx, p.likes, ids); err != nil {
		return fmt.Errorf("insert likes: %w", err)
	}
	if err := insertMessages(ctx, tx, p.messages, ids); err != nil {
		return fmt.Errorf("insert messages: %w", err)
	}
	return tx.Commit()
}

func insertUsers(ctx context.Context, tx *sql.Tx, users []seedUser, pwHash string) ([]int, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
		RETURNING id`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make([]int, len(users))
	for i, u := range users {
		if err := stmt.QueryRowContext(ctx, u.email, pwHash).Scan(&ids[i]); err != nil {
			return nil, fmt.Errorf("insert user %d (%s): %w", i, u.email, err)
		}
	}
	return ids, nil
}

func insertProfiles(ctx context.Context, tx *sql.Tx, users []seedUser, ids []int) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO profiles (id, full_name, age, location, latitude, longitude, bio, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			age = EXCLUDED.age,
			location = EXCLUDED.location,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			bio = EXCLUDED.bio,
			image_url = EXCLUDED.image_url`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, u := range users {
		pr := u.profile
		if _, err := stmt.ExecContext(ctx, ids[i], pr.FullName, pr.Age, pr.Location, pr.Latitude, pr.Longitude, pr.Bio, pr.ImageURL); err != nil {
			return fmt.Errorf("insert profile for user %d: %w", ids[i], err)
		}
	}
	return nil
}

func insertLikes(ctx context.Context, tx *sql.Tx, likes []seedLike, ids []int) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO likes (user_id, target_id, is_like, created_at)
		VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range likes {
		if _, err := stmt.ExecContext(ctx, ids[l.from], ids[l.to], l.isLike, l.at); err != nil {
			return err
		}
	}
	return nil
}

func insertMessages(ctx context.Context, tx *sql.Tx, messages []seedMessage, ids []int) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (sender_id, receiver_id, content, created_at)
		VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range messages {
		if _, err := stmt.ExecContext(ctx, ids[m.from], ids[m.to], m.content, m.at); err != nil {
			return err
		}
	}
	return nil
}
