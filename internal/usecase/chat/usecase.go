// Package chat implements the stage-driven conversation pipeline: prompt
// assembly, marker extraction, stage transitions and the background page
// generation sequence.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/protolab/prototype-backend/internal/entity"
	"github.com/protolab/prototype-backend/internal/marker"
	"github.com/protolab/prototype-backend/internal/prompt"
	"github.com/protolab/prototype-backend/internal/repository"
)

// maxAutoAdvance caps the trampoline that replaces recursive auto-advance.
// The prompts are designed to chain at most twice per user turn
// (COLLECTING→ANALYZING→DESIGNING); the cap only guards against a model
// declaring transitions in a loop.
const maxAutoAdvance = 4

// Usecase implements the conversation turn pipeline.
type Usecase struct {
	sessionRepo repository.SessionRepository
	messageRepo repository.MessageRepository
	pageRepo    repository.PageRepository
	historyRepo repository.PageHistoryRepository
	builder     *prompt.Builder
	provider    ChatCompletionProvider
	notifier    Notifier
	jobs        *jobTracker
	logger      *zap.Logger
}

// NewUsecase creates a new chat use case.
func NewUsecase(
	sessionRepo repository.SessionRepository,
	messageRepo repository.MessageRepository,
	pageRepo repository.PageRepository,
	historyRepo repository.PageHistoryRepository,
	builder *prompt.Builder,
	provider ChatCompletionProvider,
	notifier Notifier,
	logger *zap.Logger,
) *Usecase {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Usecase{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		pageRepo:    pageRepo,
		historyRepo: historyRepo,
		builder:     builder,
		provider:    provider,
		notifier:    notifier,
		jobs:        newJobTracker(),
		logger:      logger,
	}
}

// HandleTurn processes one user turn and any auto-advance turns it triggers.
func (uc *Usecase) HandleTurn(ctx context.Context, ownerID, sessionID string, req *entity.ChatRequest) (*entity.ChatResponse, error) {
	return uc.handleTurn(ctx, ownerID, sessionID, req, nil)
}

// HandleTurnStream behaves like HandleTurn but streams the first reply's
// chunks through onChunk. Auto-advance turns complete synchronously.
func (uc *Usecase) HandleTurnStream(ctx context.Context, ownerID, sessionID string, req *entity.ChatRequest, onChunk func(chunk string)) (*entity.ChatResponse, error) {
	return uc.handleTurn(ctx, ownerID, sessionID, req, onChunk)
}

func (uc *Usecase) handleTurn(ctx context.Context, ownerID, sessionID string, req *entity.ChatRequest, onChunk func(chunk string)) (*entity.ChatResponse, error) {
	session, err := uc.sessionRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	// A foreign session ID is indistinguishable from an unknown one.
	if session.OwnerID != ownerID {
		return nil, entity.ErrSessionNotFound
	}

	if session.Generating {
		return nil, entity.ErrGenerationInProgress
	}

	input := prompt.TurnInput{
		Content:     req.Content,
		Attachments: req.Attachments,
	}

	// Explicit trampoline instead of recursive self-invocation: every
	// declared transition that needs another model turn yields a synthetic
	// continue input for the next iteration.
	var lastReply string
	for i := 0; i < maxAutoAdvance; i++ {
		chunks := onChunk
		if i > 0 {
			chunks = nil
		}

		reply, action, err := uc.runTurn(ctx, session, input, chunks)
		if err != nil {
			return nil, err
		}
		lastReply = reply

		if action.kind != actionContinue {
			break
		}
		if i == maxAutoAdvance-1 {
			ctxzap.Warn(ctx, "auto-advance cap reached",
				zap.String("session_id", session.ID),
				zap.Int("cap", maxAutoAdvance),
			)
			break
		}

		input = action.input
		session, err = uc.sessionRepo.GetSessionByID(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("reload session: %w", err)
		}
	}

	session, err = uc.sessionRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reload session: %w", err)
	}

	return &entity.ChatResponse{
		SessionID: session.ID,
		Stage:     session.Stage,
		Reply:     lastReply,
	}, nil
}

// runTurn executes one turn of the pipeline: context build, model call,
// marker extraction, transition application.
func (uc *Usecase) runTurn(ctx context.Context, session *entity.Session, in prompt.TurnInput, onChunk func(chunk string)) (string, nextAction, error) {
	messages, err := uc.builder.Build(ctx, session, in)
	if err != nil {
		return "", done(), fmt.Errorf("build conversation context: %w", err)
	}

	var reply string
	if onChunk != nil {
		reply, err = uc.provider.StreamComplete(ctx, messages, onChunk)
	} else {
		reply, err = uc.provider.Complete(ctx, messages)
	}
	if err != nil {
		// Includes cancellation mid-stream: no partial assistant message is
		// ever persisted.
		return "", done(), fmt.Errorf("chat completion: %w", err)
	}

	visible := marker.StripTags(reply)
	if _, err := uc.messageRepo.CreateMessage(ctx, entity.Message{
		SessionID: session.ID,
		Role:      entity.RoleAssistant,
		Content:   visible,
		IsCode:    strings.Contains(reply, "```"),
	}); err != nil {
		return "", done(), fmt.Errorf("persist assistant message: %w", err)
	}

	mk := marker.ExtractStage(reply)
	ctxzap.Debug(ctx, "stage marker extracted",
		zap.String("session_id", session.ID),
		zap.String("current_stage", string(mk.CurrentStage)),
		zap.String("next_stage", string(mk.NextStage)),
	)

	action, err := uc.applyMarker(ctx, session, mk, reply)
	if err != nil {
		return "", done(), err
	}

	return visible, action, nil
}

// addNote appends an internal note to the transcript. Notes are best-effort:
// a failed note is logged, never fatal to the turn.
func (uc *Usecase) addNote(ctx context.Context, sessionID, text string) {
	if _, err := uc.messageRepo.CreateMessage(ctx, entity.Message{
		SessionID: sessionID,
		Role:      entity.RoleInternal,
		Content:   text,
	}); err != nil {
		ctxzap.Error(ctx, "failed to persist internal note",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}
