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

var _ SessionRepository = &SessionPostgres{}

// SessionPostgres implements SessionRepository using PostgreSQL.
type SessionPostgres struct {
	db *pgxpool.Pool
}

func NewSessionPostgres(db *pgxpool.Pool) *SessionPostgres {
	return &SessionPostgres{db: db}
}

const sessionColumns = `id, owner_id, name, description, stage, requirements, page_structure, generating, created_at, updated_at`

func scanSession(row pgx.Row) (*entity.Session, error) {
	var s entity.Session
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.Name, &s.Description, &s.Stage,
		&s.Requirements, &s.PageStructure, &s.Generating,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}

func (r *SessionPostgres) CreateSession(ctx context.Context, session entity.Session) (*entity.Session, error) {
	if session.ID == "" {
		session.ID = uuid.Must(uuid.NewV7()).String()
	}
	if _, err := uuid.Parse(session.ID); err != nil {
		return nil, fmt.Errorf("invalid session ID: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO sessions (id, owner_id, name, description, stage)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+sessionColumns,
		session.ID, session.OwnerID, session.Name, session.Description, string(session.Stage),
	)

	created, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return created, nil
}

func (r *SessionPostgres) GetSessionByID(ctx context.Context, id string) (*entity.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid session ID: %w", err)
	}

	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (r *SessionPostgres) ListSessionsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Session, int, error) {
	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM sessions WHERE owner_id = $1`, ownerID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*entity.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, total, nil
}

func (r *SessionPostgres) UpdateSessionInfo(ctx context.Context, id string, name, description *string) (*entity.Session, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE sessions
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+sessionColumns,
		id, name, description,
	)
	return scanSession(row)
}

func (r *SessionPostgres) UpdateSessionStage(ctx context.Context, id string, stage entity.Stage) (*entity.Session, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE sessions SET stage = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+sessionColumns,
		id, string(stage),
	)
	return scanSession(row)
}

func (r *SessionPostgres) UpdateSessionRequirements(ctx context.Context, id, requirements string) (*entity.Session, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE sessions SET requirements = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+sessionColumns,
		id, requirements,
	)
	return scanSession(row)
}

func (r *SessionPostgres) UpdateSessionPageStructure(ctx context.Context, id, structure string) (*entity.Session, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE sessions SET page_structure = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+sessionColumns,
		id, structure,
	)
	return scanSession(row)
}

func (r *SessionPostgres) SetSessionGenerating(ctx context.Context, id string, generating bool) (*entity.Session, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE sessions SET generating = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+sessionColumns,
		id, generating,
	)
	return scanSession(row)
}

func (r *SessionPostgres) DeleteSession(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrSessionNotFound
	}
	return nil
}
