// Package repository provides PostgreSQL persistence for sessions, messages,
// pages, page history and resources.
package repository

import (
	"context"

	"github.com/protolab/prototype-backend/internal/entity"
)

// SessionRepository defines the interface for session persistence.
type SessionRepository interface {
	CreateSession(ctx context.Context, session entity.Session) (*entity.Session, error)
	GetSessionByID(ctx context.Context, id string) (*entity.Session, error)
	ListSessionsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Session, int, error)
	UpdateSessionInfo(ctx context.Context, id string, name, description *string) (*entity.Session, error)
	UpdateSessionStage(ctx context.Context, id string, stage entity.Stage) (*entity.Session, error)
	UpdateSessionRequirements(ctx context.Context, id, requirements string) (*entity.Session, error)
	UpdateSessionPageStructure(ctx context.Context, id, structure string) (*entity.Session, error)
	SetSessionGenerating(ctx context.Context, id string, generating bool) (*entity.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// MessageRepository defines the interface for transcript persistence.
// Messages are append-only; both listing methods return messages in
// conversation order (oldest first). ListRecentMessages returns only the
// last limit user/assistant messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg entity.Message) (*entity.Message, error)
	ListMessagesBySession(ctx context.Context, sessionID string, limit, offset int) ([]*entity.Message, int, error)
	ListRecentMessages(ctx context.Context, sessionID string, limit int) ([]*entity.Message, error)
}

// PageRepository defines the interface for generated page persistence.
type PageRepository interface {
	CreatePage(ctx context.Context, page entity.Page) (*entity.Page, error)
	GetPageByID(ctx context.Context, id string) (*entity.Page, error)
	GetPageByPath(ctx context.Context, sessionID, path string) (*entity.Page, error)
	GetPageByName(ctx context.Context, sessionID, name string) (*entity.Page, error)
	ListPagesBySession(ctx context.Context, sessionID string) ([]*entity.Page, error)
	UpdatePageContent(ctx context.Context, id, content string, version int, status entity.PageStatus) (*entity.Page, error)
	UpdatePageStatus(ctx context.Context, id string, status entity.PageStatus) error
	UpdatePagePartialContent(ctx context.Context, id, partial string) error
}

// PageHistoryRepository archives prior page versions. Append-only.
type PageHistoryRepository interface {
	CreatePageHistory(ctx context.Context, h entity.PageHistory) (*entity.PageHistory, error)
	ListHistoryByPage(ctx context.Context, pageID string) ([]*entity.PageHistory, error)
}

// ResourceRepository tracks uploaded image resources.
type ResourceRepository interface {
	CreateResource(ctx context.Context, r entity.Resource) (*entity.Resource, error)
	ListResourcesBySession(ctx context.Context, sessionID string) ([]*entity.Resource, error)
}
