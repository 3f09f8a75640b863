package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

type LikeStore struct {
	db *sql.DB
}

// Record stores one swipe decision. Repeated decisions are kept as history.
func (s *LikeStore) Record(ctx context.Context, userID, targetID int, isLike bool) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO likes (user_id, target_id, is_like) VALUES ($1, $2, $3)",
		userID, targetID, isLike)
	if err != nil {
		return fmt.Errorf("record like: %w", err)
	}
	return nil
}

// Matches returns the ids the user liked, most recent first.
func (s *LikeStore) Matches(ctx context.Context, userID int) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT target_id
		FROM likes
		WHERE user_id = $1 AND is_like
		GROUP BY target_id
		ORDER BY MAX(created_at) DESC, target_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LikedBy reports which of the candidates liked targetID.
func (s *LikeStore) LikedBy(ctx context.Context, targetID int, candidates []int) (map[int]bool, error) {
	out := make(map[int]bool, len(candidates))
	if len(candidates) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT user_id
		FROM likes
		WHERE target_id = $1 AND is_like AND user_id = ANY($2)`,
		targetID, pq.Array(int64s(candidates)))
	if err != nil {
		return nil, fmt.Errorf("reciprocal likes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
