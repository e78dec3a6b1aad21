package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/protolab/prototype-backend/internal/entity"
	"github.com/protolab/prototype-backend/internal/marker"
	"github.com/protolab/prototype-backend/internal/prompt"
)

// jobTracker owns the handles of running generation tasks, so that a launch
// is observable (tests and shutdown can wait on it) instead of a
// fire-and-forget goroutine.
type jobTracker struct {
	mu   sync.Mutex
	jobs map[string]chan struct{}
}

func newJobTracker() *jobTracker {
	return &jobTracker{jobs: make(map[string]chan struct{})}
}

func (t *jobTracker) begin(sessionID string) (chan struct{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, running := t.jobs[sessionID]; running {
		return nil, false
	}
	ch := make(chan struct{})
	t.jobs[sessionID] = ch
	return ch, true
}

func (t *jobTracker) end(sessionID string, ch chan struct{}) {
	t.mu.Lock()
	delete(t.jobs, sessionID)
	t.mu.Unlock()
	close(ch)
}

// wait blocks until the session's running job (if any) finishes.
func (t *jobTracker) wait(sessionID string) {
	t.mu.Lock()
	ch, running := t.jobs[sessionID]
	t.mu.Unlock()
	if running {
		<-ch
	}
}

// waitAll blocks until every running job has finished.
func (t *jobTracker) waitAll() {
	for {
		t.mu.Lock()
		var ch chan struct{}
		for _, c := range t.jobs {
			ch = c
			break
		}
		t.mu.Unlock()
		if ch == nil {
			return
		}
		<-ch
	}
}

// WaitGeneration blocks until the session's background generation task (if
// any) has finished.
func (uc *Usecase) WaitGeneration(sessionID string) {
	uc.jobs.wait(sessionID)
}

// WaitAllGenerations blocks until every running generation task has finished.
// Graceful shutdown drains through this so in-flight pages are not cut off
// mid-sequence.
func (uc *Usecase) WaitAllGenerations() {
	uc.jobs.waitAll()
}

// launchGeneration acquires the session's generation lock and starts the
// page-by-page sequence as a tracked background task. The lock is released
// on every exit path of that task.
func (uc *Usecase) launchGeneration(ctx context.Context, session *entity.Session, specs []entity.PageSpec) error {
	ch, ok := uc.jobs.begin(session.ID)
	if !ok {
		return entity.ErrGenerationInProgress
	}

	// Lock before spawning: a turn arriving between launch and the first
	// step of the task must already see the session as busy.
	if _, err := uc.sessionRepo.SetSessionGenerating(ctx, session.ID, true); err != nil {
		uc.jobs.end(session.ID, ch)
		return fmt.Errorf("acquire generation lock: %w", err)
	}

	// The task outlives the request: detach from the request context but
	// keep its logger.
	bgCtx := ctxzap.ToContext(context.Background(),
		ctxzap.Extract(ctx).With(
			zap.String("session_id", session.ID),
			zap.String("action", "generation"),
		),
	)

	go func() {
		defer uc.jobs.end(session.ID, ch)
		defer func() {
			if _, err := uc.sessionRepo.SetSessionGenerating(bgCtx, session.ID, false); err != nil {
				ctxzap.Error(bgCtx, "failed to release generation lock", zap.Error(err))
			}
		}()

		if err := uc.runGeneration(bgCtx, session.ID, specs); err != nil {
			ctxzap.Error(bgCtx, "generation sequence failed", zap.Error(err))
			uc.addNote(bgCtx, session.ID, fmt.Sprintf("Page generation failed: %v", err))

			failed, gerr := uc.sessionRepo.GetSessionByID(bgCtx, session.ID)
			if gerr == nil {
				uc.notifier.GenerationFinished(bgCtx, failed, len(specs), err)
			}
			return
		}

		completed, err := uc.sessionRepo.UpdateSessionStage(bgCtx, session.ID, entity.StageCompleted)
		if err != nil {
			ctxzap.Error(bgCtx, "failed to mark session completed", zap.Error(err))
			return
		}

		uc.addNote(bgCtx, session.ID, fmt.Sprintf("All %d pages generated.", len(specs)))
		uc.notifier.GenerationFinished(bgCtx, completed, len(specs), nil)
	}()

	return nil
}

// runGeneration generates the declared pages strictly in order. Page N may
// use page N-1's accepted content as a style reference, so the sequence is
// sequential on purpose.
func (uc *Usecase) runGeneration(ctx context.Context, sessionID string, specs []entity.PageSpec) error {
	var styleRef string

	for i, spec := range specs {
		page, err := uc.pageRepo.GetPageByPath(ctx, sessionID, spec.Path)
		if err != nil {
			return fmt.Errorf("look up page %q: %w", spec.Path, err)
		}

		if err := uc.pageRepo.UpdatePageStatus(ctx, page.ID, entity.PageStatusGenerating); err != nil {
			return fmt.Errorf("mark page %q generating: %w", spec.Path, err)
		}

		session, err := uc.sessionRepo.GetSessionByID(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("reload session: %w", err)
		}

		messages, err := uc.builder.Build(ctx, session, prompt.TurnInput{
			Synthetic:      true,
			TargetPage:     spec.Name,
			StyleReference: styleRef,
		})
		if err != nil {
			return fmt.Errorf("build generation context for %q: %w", spec.Name, err)
		}

		reply, err := uc.provider.Complete(ctx, messages)
		if err != nil {
			if serr := uc.pageRepo.UpdatePageStatus(ctx, page.ID, entity.PageStatusFailed); serr != nil {
				ctxzap.Error(ctx, "failed to mark page failed", zap.String("page_id", page.ID), zap.Error(serr))
			}
			return fmt.Errorf("generate page %q: %w", spec.Name, err)
		}

		if _, err := uc.messageRepo.CreateMessage(ctx, entity.Message{
			SessionID: sessionID,
			Role:      entity.RoleAssistant,
			Content:   marker.StripTags(reply),
			IsCode:    strings.Contains(reply, "```"),
		}); err != nil {
			return fmt.Errorf("persist generation reply: %w", err)
		}

		// Page identity comes from the declared structure; the model's own
		// page tag is only a cross-check.
		if mk := marker.ExtractStage(reply); mk.CurrentPage != "" && mk.CurrentPage != spec.Name {
			ctxzap.Warn(ctx, "reply page tag does not match the requested page",
				zap.String("requested", spec.Name),
				zap.String("reported", mk.CurrentPage),
			)
		}

		code := marker.ExtractCodeBlock(reply, "html")
		accepted, err := uc.applyGeneratedPage(ctx, session, spec, code, i, len(specs))
		if err != nil {
			return err
		}
		if accepted {
			styleRef = code
		}

		ctxzap.Info(ctx, "page generation step finished",
			zap.String("page", spec.Name),
			zap.Int("index", i+1),
			zap.Int("total", len(specs)),
			zap.Bool("accepted", accepted),
		)
	}

	return nil
}
