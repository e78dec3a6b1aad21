// Package session implements session lifecycle management, resource uploads
// and requirement export.
package session

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/protolab/prototype-backend/internal/entity"
	"github.com/protolab/prototype-backend/internal/pkg/formatter"
	"github.com/protolab/prototype-backend/internal/pkg/validator"
	"github.com/protolab/prototype-backend/internal/repository"
)

type SessionUsecase struct {
	sessionRepo  repository.SessionRepository
	messageRepo  repository.MessageRepository
	pageRepo     repository.PageRepository
	historyRepo  repository.PageHistoryRepository
	resourceRepo repository.ResourceRepository
	objectStore  ObjectStore
	validator    *validator.Validator
	formatters   *formatter.Factory
	logger       *zap.Logger
}

func NewUsecase(
	sessionRepo repository.SessionRepository,
	messageRepo repository.MessageRepository,
	pageRepo repository.PageRepository,
	historyRepo repository.PageHistoryRepository,
	resourceRepo repository.ResourceRepository,
	objectStore ObjectStore,
	validator *validator.Validator,
	logger *zap.Logger,
) *SessionUsecase {
	return &SessionUsecase{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		pageRepo:     pageRepo,
		historyRepo:  historyRepo,
		resourceRepo: resourceRepo,
		objectStore:  objectStore,
		validator:    validator,
		formatters:   formatter.NewFactory(),
		logger:       logger,
	}
}

// CreateSession starts a new prototype conversation in the COLLECTING stage.
func (uc *SessionUsecase) CreateSession(ctx context.Context, ownerID string, req *entity.CreateSessionRequest) (*entity.SessionDTO, error) {
	if err := uc.validator.ValidateCreateSession(req); err != nil {
		return nil, err
	}

	session, err := uc.sessionRepo.CreateSession(ctx, entity.Session{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Stage:       entity.StageCollecting,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	ctxzap.Info(ctx, "session created",
		zap.String("session_id", session.ID),
		zap.String("owner_id", ownerID),
	)

	return sessionToDTO(session), nil
}

// getOwnedSession loads a session and verifies it belongs to the caller.
// A foreign session ID is indistinguishable from an unknown one.
func (uc *SessionUsecase) getOwnedSession(ctx context.Context, ownerID, id string) (*entity.Session, error) {
	session, err := uc.sessionRepo.GetSessionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.OwnerID != ownerID {
		return nil, entity.ErrSessionNotFound
	}
	return session, nil
}

func (uc *SessionUsecase) GetSession(ctx context.Context, ownerID, id string) (*entity.SessionDTO, error) {
	session, err := uc.getOwnedSession(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	return sessionToDTO(session), nil
}

func (uc *SessionUsecase) ListSessions(ctx context.Context, ownerID string, limit, offset int) (*entity.SessionListResponse, error) {
	sessions, total, err := uc.sessionRepo.ListSessionsByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	dtos := make([]entity.SessionDTO, 0, len(sessions))
	for _, s := range sessions {
		dtos = append(dtos, *sessionToDTO(s))
	}

	return &entity.SessionListResponse{
		Sessions: dtos,
		Total:    total,
		HasMore:  offset+len(sessions) < total,
	}, nil
}

func (uc *SessionUsecase) UpdateSession(ctx context.Context, ownerID, id string, req *entity.UpdateSessionRequest) (*entity.SessionDTO, error) {
	if req.Name != nil && *req.Name == "" {
		return nil, fmt.Errorf("%w: name", entity.ErrInvalidParameter)
	}

	if _, err := uc.getOwnedSession(ctx, ownerID, id); err != nil {
		return nil, err
	}

	session, err := uc.sessionRepo.UpdateSessionInfo(ctx, id, req.Name, req.Description)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	return sessionToDTO(session), nil
}

func (uc *SessionUsecase) DeleteSession(ctx context.Context, ownerID, id string) error {
	if _, err := uc.getOwnedSession(ctx, ownerID, id); err != nil {
		return err
	}

	if err := uc.sessionRepo.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	ctxzap.Info(ctx, "session deleted", zap.String("session_id", id))

	return nil
}

// ListMessages returns a page of the session transcript, oldest first.
func (uc *SessionUsecase) ListMessages(ctx context.Context, ownerID, sessionID string, limit, offset int) (*entity.MessageListResponse, error) {
	if _, err := uc.getOwnedSession(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}

	messages, total, err := uc.messageRepo.ListMessagesBySession(ctx, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]entity.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, *m)
	}

	return &entity.MessageListResponse{
		Messages: out,
		Total:    total,
		HasMore:  offset+len(messages) < total,
	}, nil
}

// ListPages returns the session's pages in declaration order, without their
// content.
func (uc *SessionUsecase) ListPages(ctx context.Context, ownerID, sessionID string) ([]entity.PageDTO, error) {
	if _, err := uc.getOwnedSession(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}

	pages, err := uc.pageRepo.ListPagesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	dtos := make([]entity.PageDTO, 0, len(pages))
	for _, p := range pages {
		dtos = append(dtos, *pageToDTO(p))
	}

	return dtos, nil
}

// GetPage returns one page with its full content.
func (uc *SessionUsecase) GetPage(ctx context.Context, ownerID, sessionID, pageID string) (*entity.Page, error) {
	if _, err := uc.getOwnedSession(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}

	page, err := uc.pageRepo.GetPageByID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}

	if page.SessionID != sessionID {
		return nil, entity.ErrPageNotFound
	}

	return page, nil
}

// GetPageHistory returns the archived versions of a page, oldest first.
func (uc *SessionUsecase) GetPageHistory(ctx context.Context, ownerID, sessionID, pageID string) ([]*entity.PageHistory, error) {
	if _, err := uc.GetPage(ctx, ownerID, sessionID, pageID); err != nil {
		return nil, err
	}

	history, err := uc.historyRepo.ListHistoryByPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list page history: %w", err)
	}

	return history, nil
}

// UploadResource validates the image, stores it in the object store and
// records it against the session. The returned URL is what chat turns
// reference as an attachment.
func (uc *SessionUsecase) UploadResource(ctx context.Context, ownerID, sessionID string, fh *multipart.FileHeader) (*entity.UploadResourceResponse, error) {
	if _, err := uc.getOwnedSession(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}

	if err := uc.validator.ValidateUpload([]*multipart.FileHeader{fh}); err != nil {
		return nil, err
	}

	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read uploaded file: %w", err)
	}

	filename := validator.SanitizeFilename(fh.Filename)
	contentType := fh.Header.Get("Content-Type")

	url, err := uc.objectStore.UploadObject(ctx, filename, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("store resource: %w", err)
	}

	resource, err := uc.resourceRepo.CreateResource(ctx, entity.Resource{
		SessionID:   sessionID,
		ObjectKey:   filename,
		URL:         url,
		ContentType: contentType,
		Size:        fh.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("record resource: %w", err)
	}

	ctxzap.Info(ctx, "resource uploaded",
		zap.String("session_id", sessionID),
		zap.String("resource_id", resource.ID),
		zap.Int64("size", resource.Size),
	)

	return &entity.UploadResourceResponse{
		ID:          resource.ID,
		URL:         resource.URL,
		ContentType: resource.ContentType,
		Size:        resource.Size,
	}, nil
}

// ExportRequirements renders the session's confirmed requirement analysis in
// the requested format.
func (uc *SessionUsecase) ExportRequirements(ctx context.Context, ownerID, sessionID string, format entity.ResultFormat) ([]byte, string, string, error) {
	if err := format.Validate(); err != nil {
		return nil, "", "", fmt.Errorf("%w: %v", entity.ErrInvalidParameter, err)
	}

	session, err := uc.getOwnedSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, "", "", err
	}

	if session.Requirements == nil || *session.Requirements == "" {
		return nil, "", "", fmt.Errorf("%w: session has no confirmed requirements yet", entity.ErrInvalidSessionStage)
	}

	f, err := uc.formatters.Create(format)
	if err != nil {
		return nil, "", "", fmt.Errorf("create formatter: %w", err)
	}

	data, err := f.Format(session.Name, *session.Requirements)
	if err != nil {
		return nil, "", "", fmt.Errorf("format requirements: %w", err)
	}

	filename := validator.SanitizeFilename(session.Name) + f.FileExtension()

	ctxzap.Info(ctx, "requirements exported",
		zap.String("session_id", sessionID),
		zap.String("format", string(format)),
		zap.Int("size", len(data)),
	)

	return data, filename, f.ContentType(), nil
}
