package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/protolab/prototype-backend/internal/entity"
)

var _ ResourceRepository = &ResourcePostgres{}

// ResourcePostgres implements ResourceRepository using PostgreSQL.
type ResourcePostgres struct {
	db *pgxpool.Pool
}

func NewResourcePostgres(db *pgxpool.Pool) *ResourcePostgres {
	return &ResourcePostgres{db: db}
}

func (r *ResourcePostgres) CreateResource(ctx context.Context, res entity.Resource) (*entity.Resource, error) {
	if res.ID == "" {
		res.ID = uuid.Must(uuid.NewV7()).String()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO resources (id, session_id, object_key, url, content_type, size)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, session_id, object_key, url, content_type, size, created_at`,
		res.ID, res.SessionID, res.ObjectKey, res.URL, res.ContentType, res.Size,
	)

	var created entity.Resource
	if err := row.Scan(&created.ID, &created.SessionID, &created.ObjectKey, &created.URL, &created.ContentType, &created.Size, &created.CreatedAt); err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}
	return &created, nil
}

func (r *ResourcePostgres) ListResourcesBySession(ctx context.Context, sessionID string) ([]*entity.Resource, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, object_key, url, content_type, size, created_at
		FROM resources
		WHERE session_id = $1
		ORDER BY created_at`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var resources []*entity.Resource
	for rows.Next() {
		var res entity.Resource
		if err := rows.Scan(&res.ID, &res.SessionID, &res.ObjectKey, &res.URL, &res.ContentType, &res.Size, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		resources = append(resources, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources: %w", err)
	}
	return resources, nil
}
