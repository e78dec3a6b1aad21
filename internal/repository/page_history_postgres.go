package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/protolab/prototype-backend/internal/entity"
)

var _ PageHistoryRepository = &PageHistoryPostgres{}

// PageHistoryPostgres implements PageHistoryRepository using PostgreSQL.
// Rows are append-only; there are no update or delete operations.
type PageHistoryPostgres struct {
	db *pgxpool.Pool
}

func NewPageHistoryPostgres(db *pgxpool.Pool) *PageHistoryPostgres {
	return &PageHistoryPostgres{db: db}
}

func (r *PageHistoryPostgres) CreatePageHistory(ctx context.Context, h entity.PageHistory) (*entity.PageHistory, error) {
	if h.ID == "" {
		h.ID = uuid.Must(uuid.NewV7()).String()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO page_history (id, page_id, content, version, change_note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, page_id, content, version, change_note, created_at`,
		h.ID, h.PageID, h.Content, h.Version, h.ChangeNote,
	)

	var created entity.PageHistory
	if err := row.Scan(&created.ID, &created.PageID, &created.Content, &created.Version, &created.ChangeNote, &created.CreatedAt); err != nil {
		return nil, fmt.Errorf("create page history: %w", err)
	}
	return &created, nil
}

func (r *PageHistoryPostgres) ListHistoryByPage(ctx context.Context, pageID string) ([]*entity.PageHistory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, page_id, content, version, change_note, created_at
		FROM page_history
		WHERE page_id = $1
		ORDER BY version DESC`,
		pageID,
	)
	if err != nil {
		return nil, fmt.Errorf("list page history: %w", err)
	}
	defer rows.Close()

	var history []*entity.PageHistory
	for rows.Next() {
		var h entity.PageHistory
		if err := rows.Scan(&h.ID, &h.PageID, &h.Content, &h.Version, &h.ChangeNote, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan page history: %w", err)
		}
		history = append(history, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page history: %w", err)
	}
	return history, nil
}
