package store

import (
	"context"
	"database/sql"
	"fmt"

	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
)

type MessageStore struct {
	db *sql.DB
}

// Insert persists a message. The insert trigger announces it on the change channel.
func (s *MessageStore) Insert(ctx context.Context, senderID, receiverID int, content string) (model.Message, error) {
	msg := model.Message{SenderID: senderID, ReceiverID: receiverID, Content: content}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (sender_id, receiver_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		senderID, receiverID, content,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return model.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// Conversation returns the messages exchanged between a and b, oldest first.
func (s *MessageStore) Conversation(ctx context.Context, a, b int) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, content, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC`, a, b)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
