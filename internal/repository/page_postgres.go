package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/protolab/prototype-backend/internal/entity"
)

var _ PageRepository = &PagePostgres{}

// PagePostgres implements PageRepository using PostgreSQL.
type PagePostgres struct {
	db *pgxpool.Pool
}

func NewPagePostgres(db *pgxpool.Pool) *PagePostgres {
	return &PagePostgres{db: db}
}

const pageColumns = `id, session_id, name, path, description, content, partial_content, status, version, sort_order, created_at, updated_at`

func scanPage(row pgx.Row) (*entity.Page, error) {
	var p entity.Page
	err := row.Scan(
		&p.ID, &p.SessionID, &p.Name, &p.Path, &p.Description,
		&p.Content, &p.PartialContent, &p.Status, &p.Version, &p.SortOrder,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrPageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan page: %w", err)
	}
	return &p, nil
}

func (r *PagePostgres) CreatePage(ctx context.Context, page entity.Page) (*entity.Page, error) {
	if page.ID == "" {
		page.ID = uuid.Must(uuid.NewV7()).String()
	}
	if page.Version == 0 {
		page.Version = 1
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO pages (id, session_id, name, path, description, content, status, version, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+pageColumns,
		page.ID, page.SessionID, page.Name, page.Path, page.Description,
		page.Content, string(page.Status), page.Version, page.SortOrder,
	)

	created, err := scanPage(row)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return created, nil
}

func (r *PagePostgres) GetPageByID(ctx context.Context, id string) (*entity.Page, error) {
	row := r.db.QueryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = $1`, id)
	return scanPage(row)
}

func (r *PagePostgres) GetPageByPath(ctx context.Context, sessionID, path string) (*entity.Page, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE session_id = $1 AND path = $2`,
		sessionID, path,
	)
	return scanPage(row)
}

func (r *PagePostgres) GetPageByName(ctx context.Context, sessionID, name string) (*entity.Page, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE session_id = $1 AND name = $2 ORDER BY sort_order LIMIT 1`,
		sessionID, name,
	)
	return scanPage(row)
}

func (r *PagePostgres) ListPagesBySession(ctx context.Context, sessionID string) ([]*entity.Page, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE session_id = $1 ORDER BY sort_order, created_at`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []*entity.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return pages, nil
}

func (r *PagePostgres) UpdatePageContent(ctx context.Context, id, content string, version int, status entity.PageStatus) (*entity.Page, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE pages
		SET content = $2, version = $3, status = $4, partial_content = NULL, updated_at = now()
		WHERE id = $1
		RETURNING `+pageColumns,
		id, content, version, string(status),
	)
	return scanPage(row)
}

func (r *PagePostgres) UpdatePageStatus(ctx context.Context, id string, status entity.PageStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE pages SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update page status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrPageNotFound
	}
	return nil
}

func (r *PagePostgres) UpdatePagePartialContent(ctx context.Context, id, partial string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE pages SET partial_content = $2, updated_at = now() WHERE id = $1`,
		id, partial,
	)
	if err != nil {
		return fmt.Errorf("update page partial content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrPageNotFound
	}
	return nil
}
