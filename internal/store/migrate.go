package store

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL with the notification channel filled in.
func Schema(channel string) string {
	return strings.ReplaceAll(schemaSQL, "{{channel}}", pq.QuoteLiteral(channel))
}

// Migrate creates the tables and the insert trigger that feeds the change
// channel. It is safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context, channel string) error {
	if _, err := s.db.ExecContext(ctx, Schema(channel)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
