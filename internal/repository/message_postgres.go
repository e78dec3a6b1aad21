package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/protolab/prototype-backend/internal/entity"
)

var _ MessageRepository = &MessagePostgres{}

// MessagePostgres implements MessageRepository using PostgreSQL.
type MessagePostgres struct {
	db *pgxpool.Pool
}

func NewMessagePostgres(db *pgxpool.Pool) *MessagePostgres {
	return &MessagePostgres{db: db}
}

const messageColumns = `id, session_id, role, content, is_code, attachments, created_at`

func scanMessage(row pgx.Row) (*entity.Message, error) {
	var m entity.Message
	err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.IsCode, &m.Attachments, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	return &m, nil
}

func (r *MessagePostgres) CreateMessage(ctx context.Context, msg entity.Message) (*entity.Message, error) {
	// UUIDv7 IDs keep transcript order stable even within one timestamp.
	if msg.ID == "" {
		msg.ID = uuid.Must(uuid.NewV7()).String()
	}
	if msg.Attachments == nil {
		msg.Attachments = []string{}
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO messages (id, session_id, role, content, is_code, attachments)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+messageColumns,
		msg.ID, msg.SessionID, string(msg.Role), msg.Content, msg.IsCode, msg.Attachments,
	)

	created, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return created, nil
}

func (r *MessagePostgres) ListMessagesBySession(ctx context.Context, sessionID string, limit, offset int) ([]*entity.Message, int, error) {
	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE session_id = $1`, sessionID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`,
		sessionID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// ListRecentMessages returns the last limit user/assistant messages in
// conversation order (oldest first). Internal notes are excluded: they are
// transcript-only and never part of the model prompt.
func (r *MessagePostgres) ListRecentMessages(ctx context.Context, sessionID string, limit int) ([]*entity.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+`
			FROM messages
			WHERE session_id = $1 AND role IN ($2, $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4
		) recent
		ORDER BY created_at, id`,
		sessionID, string(entity.RoleUser), string(entity.RoleAssistant), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]*entity.Message, error) {
	var messages []*entity.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
