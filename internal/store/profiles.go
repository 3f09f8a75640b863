package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
)

const profileColumns = "id, full_name, age, location, latitude, longitude, bio, image_url, created_at"

type ProfileStore struct {
	db *sql.DB
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (model.Profile, error) {
	var (
		p        model.Profile
		lat, lon sql.NullFloat64
	)
	if err := row.Scan(&p.ID, &p.FullName, &p.Age, &p.Location, &lat, &lon, &p.Bio, &p.ImageURL, &p.CreatedAt); err != nil {
		return model.Profile{}, err
	}
	if lat.Valid && lon.Valid {
		p.Latitude, p.Longitude = &lat.Float64, &lon.Float64
	}
	return p, nil
}

// ListExcept returns every profile other than the viewer's, ordered by id.
func (s *ProfileStore) ListExcept(ctx context.Context, viewerID int) ([]model.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id <> $1 ORDER BY id", viewerID)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []model.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *ProfileStore) Get(ctx context.Context, id int) (model.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("get profile %d: %w", id, err)
	}
	return p, nil
}

// GetMany looks up a batch of profiles. Missing ids are absent from the map.
func (s *ProfileStore) GetMany(ctx context.Context, ids []int) (map[int]model.Profile, error) {
	out := make(map[int]model.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id = ANY($1)", pq.Array(int64s(ids)))
	if err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// Upsert writes the owner's profile and returns it as stored.
func (s *ProfileStore) Upsert(ctx context.Context, p model.Profile) (model.Profile, error) {
	var stored model.Profile
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO profiles (id, full_name, age, location, latitude, longitude, bio, image_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				full_name = EXCLUDED.full_name,
				age       = EXCLUDED.age,
				location  = EXCLUDED.location,
				latitude  = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude,
				bio       = EXCLUDED.bio,
				image_url = EXCLUDED.image_url
			RETURNING `+profileColumns,
			p.ID, p.FullName, p.Age, p.Location, p.Latitude, p.Longitude, p.Bio, p.ImageURL,
		)
		var err error
		stored, err = scanProfile(row)
		return err
	})
	if err != nil {
		return model.Profile{}, fmt.Errorf("upsert profile %d: %w", p.ID, err)
	}
	return stored, nil
}

// SetImage replaces only the image url of an existing profile.
func (s *ProfileStore) SetImage(ctx context.Context, id int, url string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE profiles SET image_url = $2 WHERE id = $1", id, url)
	if err != nil {
		return fmt.Errorf("set image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
