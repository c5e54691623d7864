package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stridehq/stride/internal/gateway/domain"
)

type conversationsRepo struct {
	db *sql.DB
}

// Messages are cached as a JSON blob per connection. The gateway always
// replaces the whole list, so per-message rows would buy nothing.
func (r *conversationsRepo) UpsertConversation(ctx context.Context, conv domain.Conversation) error {
	messages, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO conversations (connection_id, messages, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (connection_id) DO UPDATE SET
			messages = excluded.messages,
			updated_at = excluded.updated_at
	`, conv.ConnectionID, string(messages), conv.UpdatedAt.UTC())
	return err
}

func (r *conversationsRepo) GetConversation(ctx context.Context, connectionID string) (domain.Conversation, error) {
	var (
		conv     domain.Conversation
		messages string
	)

	row := r.db.QueryRowContext(ctx, `
		SELECT connection_id, messages, updated_at
		FROM conversations
		WHERE connection_id = ?
	`, connectionID)

	if err := row.Scan(&conv.ConnectionID, &messages, &conv.UpdatedAt); err != nil {
		return domain.Conversation{}, mapNotFound(err)
	}

	if err := json.Unmarshal([]byte(messages), &conv.Messages); err != nil {
		return domain.Conversation{}, fmt.Errorf("failed to decode messages: %w", err)
	}

	return conv, nil
}

func (r *conversationsRepo) DeleteIdleConversations(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM conversations WHERE updated_at < ?
	`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
