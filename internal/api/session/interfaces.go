package session

import (
	"context"
	"mime/multipart"

	"github.com/protolab/prototype-backend/internal/entity"
)

type SessionUsecase interface {
	CreateSession(ctx context.Context, ownerID string, req *entity.CreateSessionRequest) (*entity.SessionDTO, error)
	GetSession(ctx context.Context, ownerID, id string) (*entity.SessionDTO, error)
	ListSessions(ctx context.Context, ownerID string, limit, offset int) (*entity.SessionListResponse, error)
	UpdateSession(ctx context.Context, ownerID, id string, req *entity.UpdateSessionRequest) (*entity.SessionDTO, error)
	DeleteSession(ctx context.Context, ownerID, id string) error
	ListMessages(ctx context.Context, ownerID, sessionID string, limit, offset int) (*entity.MessageListResponse, error)
	ListPages(ctx context.Context, ownerID, sessionID string) ([]entity.PageDTO, error)
	GetPage(ctx context.Context, ownerID, sessionID, pageID string) (*entity.Page, error)
	GetPageHistory(ctx context.Context, ownerID, sessionID, pageID string) ([]*entity.PageHistory, error)
	UploadResource(ctx context.Context, ownerID, sessionID string, fh *multipart.FileHeader) (*entity.UploadResourceResponse, error)
	ExportRequirements(ctx context.Context, ownerID, sessionID string, format entity.ResultFormat) ([]byte, string, string, error)
}

type ChatUsecase interface {
	HandleTurn(ctx context.Context, ownerID, sessionID string, req *entity.ChatRequest) (*entity.ChatResponse, error)
	HandleTurnStream(ctx context.Context, ownerID, sessionID string, req *entity.ChatRequest, onChunk func(chunk string)) (*entity.ChatResponse, error)
}
