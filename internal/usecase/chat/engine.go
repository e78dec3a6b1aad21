package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/protolab/prototype-backend/internal/entity"
	"github.com/protolab/prototype-backend/internal/marker"
	"github.com/protolab/prototype-backend/internal/prompt"
)

type actionKind int

const (
	actionDone actionKind = iota
	actionContinue
)

// nextAction is what a turn tells the driver loop to do next: stop, or run
// one more synthetic turn.
type nextAction struct {
	kind  actionKind
	input prompt.TurnInput
}

func done() nextAction {
	return nextAction{kind: actionDone}
}

func continueWith(in prompt.TurnInput) nextAction {
	return nextAction{kind: actionContinue, input: in}
}

// analysisFenceRe matches the fenced block the ANALYZING prompt asks for.
var analysisFenceRe = regexp.MustCompile("(?is)```requirement analysis result[ \t]*\r?\n(.*?)```")

// applyMarker applies the transition table to one parsed reply. The session's
// persisted stage is always synced to the marker's current stage, so the next
// turn's prompt selection matches where the model believes the conversation
// is, even without a declared transition.
func (uc *Usecase) applyMarker(ctx context.Context, session *entity.Session, mk marker.Marker, reply string) (nextAction, error) {
	// The latest analysis always overwrites prior requirements, with or
	// without a declared transition.
	if mk.CurrentStage == entity.StageAnalyzing {
		if analysis := extractAnalysis(reply); analysis != "" {
			if _, err := uc.sessionRepo.UpdateSessionRequirements(ctx, session.ID, analysis); err != nil {
				return done(), fmt.Errorf("update requirements: %w", err)
			}
		}
	}

	// Edits apply whenever the model reports the editing stage and names a
	// page, regardless of any transition.
	if mk.CurrentStage == entity.StageEditing && mk.ModifiedPage != "" {
		if err := uc.applyEdit(ctx, session, mk.ModifiedPage, reply); err != nil {
			return done(), err
		}
	}

	if _, err := uc.sessionRepo.UpdateSessionStage(ctx, session.ID, mk.CurrentStage); err != nil {
		return done(), fmt.Errorf("sync session stage: %w", err)
	}

	if !mk.HasTransition() {
		return done(), nil
	}

	switch {
	case mk.CurrentStage == entity.StageCollecting && mk.NextStage == entity.StageAnalyzing:
		if _, err := uc.sessionRepo.UpdateSessionStage(ctx, session.ID, entity.StageAnalyzing); err != nil {
			return done(), fmt.Errorf("advance to analyzing: %w", err)
		}
		uc.addNote(ctx, session.ID, "Requirement collection finished. Analyzing requirements.")
		return continueWith(prompt.TurnInput{Synthetic: true}), nil

	case mk.CurrentStage == entity.StageAnalyzing && mk.NextStage == entity.StageDesigning:
		if _, err := uc.sessionRepo.UpdateSessionStage(ctx, session.ID, entity.StageDesigning); err != nil {
			return done(), fmt.Errorf("advance to designing: %w", err)
		}
		uc.addNote(ctx, session.ID, "Requirement analysis confirmed. Designing the page structure.")
		return continueWith(prompt.TurnInput{Synthetic: true}), nil

	case mk.CurrentStage == entity.StageDesigning && mk.NextStage == entity.StageGenerating:
		return uc.confirmStructureAndGenerate(ctx, session, reply)

	case mk.CurrentStage == entity.StageGenerating && mk.NextStage == entity.StageCompleted:
		if _, err := uc.sessionRepo.UpdateSessionStage(ctx, session.ID, entity.StageCompleted); err != nil {
			return done(), fmt.Errorf("advance to completed: %w", err)
		}
		uc.addNote(ctx, session.ID, "Prototype generation completed.")
		return done(), nil

	case mk.CurrentStage == entity.StageCompleted && mk.NextStage == entity.StageEditing:
		// No structural change: the stage sync above already recorded
		// COMPLETED, and the model will report EDITING on its next reply.
		uc.addNote(ctx, session.ID, "Revision requested for the finished prototype.")
		return done(), nil

	default:
		ctxzap.Warn(ctx, "unexpected stage transition ignored",
			zap.String("session_id", session.ID),
			zap.String("from", string(mk.CurrentStage)),
			zap.String("to", string(mk.NextStage)),
		)
		return done(), nil
	}
}

// confirmStructureAndGenerate parses the proposed page structure and, when
// valid, persists it and launches the background generation sequence. A
// malformed structure leaves the session in DESIGNING so the user can
// re-prompt.
func (uc *Usecase) confirmStructureAndGenerate(ctx context.Context, session *entity.Session, reply string) (nextAction, error) {
	raw, ok := marker.ExtractJSONBlock(reply)
	if !ok {
		ctxzap.Warn(ctx, "structure confirmation without json block", zap.String("session_id", session.ID))
		uc.addNote(ctx, session.ID, "The proposed page structure could not be read. Please ask the assistant to restate it.")
		return done(), nil
	}

	specs, err := parsePageSpecs(raw)
	if err != nil {
		ctxzap.Warn(ctx, "invalid page structure",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		uc.addNote(ctx, session.ID, fmt.Sprintf("The proposed page structure is invalid: %v. Please ask the assistant to restate it.", err))
		return done(), nil
	}

	if _, err := uc.sessionRepo.UpdateSessionPageStructure(ctx, session.ID, raw); err != nil {
		return done(), fmt.Errorf("persist page structure: %w", err)
	}

	if err := uc.applyStructure(ctx, session, specs); err != nil {
		return done(), fmt.Errorf("apply page structure: %w", err)
	}

	if _, err := uc.sessionRepo.UpdateSessionStage(ctx, session.ID, entity.StageGenerating); err != nil {
		return done(), fmt.Errorf("advance to generating: %w", err)
	}

	uc.addNote(ctx, session.ID, fmt.Sprintf("Page structure confirmed: %d pages. Generation started.", len(specs)))

	if err := uc.launchGeneration(ctx, session, specs); err != nil {
		return done(), err
	}

	// The generation sequence runs as its own task; the user turn returns
	// immediately instead of advancing inline.
	return done(), nil
}

// parsePageSpecs decodes the structure JSON. It accepts either a bare array
// of pages or an object wrapping one under a "pages" key, since models
// produce both.
func parsePageSpecs(raw string) ([]entity.PageSpec, error) {
	var specs []entity.PageSpec
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		var wrapper struct {
			Pages []entity.PageSpec `json:"pages"`
		}
		if werr := json.Unmarshal([]byte(raw), &wrapper); werr != nil || wrapper.Pages == nil {
			return nil, fmt.Errorf("parse page structure: %w", err)
		}
		specs = wrapper.Pages
	}

	if len(specs) == 0 {
		return nil, entity.ErrPageStructureEmpty
	}

	for i, spec := range specs {
		if strings.TrimSpace(spec.Name) == "" {
			return nil, fmt.Errorf("page %d: %w: name", i+1, entity.ErrMissingField)
		}
		if strings.TrimSpace(spec.Path) == "" {
			return nil, fmt.Errorf("page %q: %w: path", spec.Name, entity.ErrMissingField)
		}
	}

	return specs, nil
}

// extractAnalysis pulls the body of the labeled analysis fence, falling back
// to the full reply (minus tags) when the model skipped the fence.
func extractAnalysis(reply string) string {
	if match := analysisFenceRe.FindStringSubmatch(reply); match != nil {
		return strings.TrimSpace(match[1])
	}
	return marker.StripTags(reply)
}
