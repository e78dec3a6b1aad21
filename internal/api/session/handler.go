package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/protolab/prototype-backend/internal/config"
	"github.com/protolab/prototype-backend/internal/entity"
	"github.com/protolab/prototype-backend/internal/pkg/logger"
	"github.com/protolab/prototype-backend/internal/pkg/validator"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	// ownerHeader identifies the tenant. Authentication happens upstream at
	// the gateway; the backend trusts this header.
	ownerHeader = "X-Owner-ID"
)

type Handler struct {
	sessions  SessionUsecase
	chat      ChatUsecase
	validator *validator.Validator
	uploadCfg config.ResourceUploadConfig
}

func NewHandler(
	sessions SessionUsecase,
	chat ChatUsecase,
	validator *validator.Validator,
	uploadCfg config.ResourceUploadConfig,
) *Handler {
	return &Handler{
		sessions:  sessions,
		chat:      chat,
		validator: validator,
		uploadCfg: uploadCfg,
	}
}

// CreateSession handles POST /sessions - Start a new prototype conversation
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateSession")

	var req entity.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	session, err := h.sessions.CreateSession(ctx, ownerID(r), &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "session created", zap.String("session_id", session.ID))

	h.respondJSON(w, http.StatusCreated, session)
}

// ListSessions handles GET /sessions - List the owner's sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListSessions")

	limit, offset := listParams(r)

	list, err := h.sessions.ListSessions(ctx, ownerID(r), limit, offset)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, list)
}

// GetSession handles GET /sessions/{id} - Get session state
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx := h.sessionCtx(r, "GetSession")

	session, err := h.sessions.GetSession(ctx, ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, session)
}

// UpdateSession handles PATCH /sessions/{id} - Rename or re-describe a session
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	ctx := h.sessionCtx(r, "UpdateSession")

	var req entity.UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	session, err := h.sessions.UpdateSession(ctx, ownerID(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, session)
}

// DeleteSession handles DELETE /sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := h.sessionCtx(r, "DeleteSession")

	if err := h.sessions.DeleteSession(ctx, ownerID(r), chi.URLParam(r, "id")); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Chat handles POST /sessions/{id}/chat - One conversation turn
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := h.sessionCtx(r, "Chat")

	var req entity.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.validator.ValidateChat(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "validation failed", err)
		return
	}

	resp, err := h.chat.HandleTurn(ctx, ownerID(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "chat turn handled", zap.String("stage", string(resp.Stage)))

	h.respondJSON(w, http.StatusOK, resp)
}

// ChatStream handles POST /sessions/{id}/chat/stream - One conversation turn
// with the first reply streamed as server-sent events. Chunk events carry the
// raw text delta; the final event carries the full turn result.
func (h *Handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	ctx := h.sessionCtx(r, "ChatStream")

	var req entity.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.validator.ValidateChat(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "validation failed", err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(ctx, w, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	resp, err := h.chat.HandleTurnStream(ctx, ownerID(r), chi.URLParam(r, "id"), &req, func(chunk string) {
		writeSSE(w, "chunk", map[string]string{"delta": chunk})
		flusher.Flush()
	})
	if err != nil {
		// Headers are already sent; the error travels as an event.
		ctxzap.Error(ctx, "streaming chat turn failed", zap.Error(err))
		writeSSE(w, "error", entity.ErrorResponse{
			Error:   "chat turn failed",
			Message: err.Error(),
		})
		flusher.Flush()
		return
	}

	writeSSE(w, "done", resp)
	flusher.Flush()
}

// ListMessages handles GET /sessions/{id}/messages - Transcript page
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := h.sessionCtx(r, "ListMessages")

	limit, offset := listParams(r)

	list, err := h.sessions.ListMessages(ctx, ownerID(r), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, list)
}

// ListPages handles GET /sessions/{id}/pages - Page listing without content
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	ctx := h.sessionCtx(r, "ListPages")

	pages, err := h.sessions.ListPages(ctx, ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

// GetPage handles GET /sessions/{id}/pages/{page_id} - Full page content
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	ctx := h.sessionCtx(r, "GetPage")

	page, err := h.sessions.GetPage(ctx, ownerID(r), chi.URLParam(r, "id"), chi.URLParam(r, "page_id"))
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, page)
}

// GetPageHistory handles GET /sessions/{id}/pages/{page_id}/history
func (h *Handler) GetPageHistory(w http.ResponseWriter, r *http.Request) {
	ctx := h.sessionCtx(r, "GetPageHistory")

	history, err := h.sessions.GetPageHistory(ctx, ownerID(r), chi.URLParam(r, "id"), chi.URLParam(r, "page_id"))
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"history": historyToDTOs(history)})
}

// UploadResource handles POST /sessions/{id}/resources - Image upload
func (h *Handler) UploadResource(w http.ResponseWriter, r *http.Request) {
	ctx := h.sessionCtx(r, "UploadResource")

	if err := r.ParseMultipartForm(h.uploadCfg.MaxUploadSize); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid multipart form", err)
		return
	}

	file, fh, err := r.FormFile("file")
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "missing file field", err)
		return
	}
	file.Close()

	resp, err := h.sessions.UploadResource(ctx, ownerID(r), chi.URLParam(r, "id"), fh)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, resp)
}

// ExportRequirements handles GET /sessions/{id}/export?format=md|pdf|docx
func (h *Handler) ExportRequirements(w http.ResponseWriter, r *http.Request) {
	ctx := h.sessionCtx(r, "ExportRequirements")

	format := entity.ResultFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = entity.FormatMarkdown
	}

	data, filename, contentType, err := h.sessions.ExportRequirements(ctx, ownerID(r), chi.URLParam(r, "id"), format)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Helper methods

func (h *Handler) sessionCtx(r *http.Request, action string) context.Context {
	return logger.AddFields(r.Context(),
		zap.String("session_id", chi.URLParam(r, "id")),
		zap.String("action", action),
	)
}

func ownerID(r *http.Request) string {
	if owner := r.Header.Get(ownerHeader); owner != "" {
		return owner
	}
	return "default"
}

func listParams(r *http.Request) (limit, offset int) {
	limit = defaultListLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, maxListLimit)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

func writeSSE(w http.ResponseWriter, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	ctxzap.Error(ctx, message, zap.Error(err))
	h.respondJSON(w, status, entity.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, entity.ErrSessionNotFound) || errors.Is(err, entity.ErrPageNotFound) {
		h.respondError(ctx, w, http.StatusNotFound, "resource not found", err)
	} else if errors.Is(err, entity.ErrInvalidParameter) || errors.Is(err, entity.ErrMissingField) {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid parameter", err)
	} else if errors.Is(err, entity.ErrInvalidResource) || errors.Is(err, entity.ErrResourceTooLarge) {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid file", err)
	} else if errors.Is(err, entity.ErrGenerationInProgress) || errors.Is(err, entity.ErrInvalidSessionStage) {
		h.respondError(ctx, w, http.StatusConflict, "invalid session state", err)
	} else {
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
