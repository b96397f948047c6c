package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ArchiveStore persists transcripts to PostgreSQL for long-term history; the
// Redis transcript expires after a day. A nil store is a no-op, used when no
// database is configured.
type ArchiveStore struct {
	db *sql.DB
}

// NewArchiveStore creates an archive store. Returns nil for a nil handle.
func NewArchiveStore(db *sql.DB) *ArchiveStore {
	if db == nil {
		return nil
	}
	return &ArchiveStore{db: db}
}

// ArchivedMessage is one long-term history row.
type ArchivedMessage struct {
	ID             uuid.UUID
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// RecordMessage upserts the conversation row and appends the message.
func (s *ArchiveStore) RecordMessage(ctx context.Context, conversationID, channel, role, content string) error {
	if s == nil || s.db == nil {
		return nil
	}

	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("chat: begin archive tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (conversation_id, channel, message_count, started_at, last_message_at)
		VALUES ($1, $2, 1, $3, $3)
		ON CONFLICT (conversation_id) DO UPDATE
		SET message_count = conversations.message_count + 1,
		    last_message_at = EXCLUDED.last_message_at`,
		conversationID, channel, now)
	if err != nil {
		return fmt.Errorf("chat: upsert conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversation_messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), conversationID, role, content, now)
	if err != nil {
		return fmt.Errorf("chat: insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("chat: commit archive tx: %w", err)
	}
	return nil
}

// History returns up to limit archived messages, oldest first.
func (s *ArchiveStore) History(ctx context.Context, conversationID string, limit int) ([]ArchivedMessage, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2`,
		conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("chat: query history: %w", err)
	}
	defer rows.Close()

	var out []ArchivedMessage
	for rows.Next() {
		var m ArchivedMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("chat: scan history row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat: iterate history: %w", err)
	}
	return out, nil
}
