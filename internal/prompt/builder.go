package prompt

import (
	"context"
	"fmt"

	"github.com/protolab/prototype-backend/internal/entity"
)

const defaultHistoryLimit = 20

// MessageStore is the slice of the message repository the builder needs:
// persisting the literal user message and reading recent history.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg entity.Message) (*entity.Message, error)
	ListRecentMessages(ctx context.Context, sessionID string, limit int) ([]*entity.Message, error)
}

// TurnInput is the current turn's input to the builder.
type TurnInput struct {
	Content string
	// Synthetic marks internally generated control turns. They are sent as
	// the fixed ContinueInput text and are never persisted as user messages.
	Synthetic bool
	// TargetPage names the specific page a generation or continuation turn
	// is about; empty otherwise.
	TargetPage string
	// StyleReference optionally carries the content of an already generated
	// page, so that later pages keep a consistent look.
	StyleReference string
	// Attachments carries image resource URLs attached to this turn.
	Attachments []string
}

// Builder produces the exact ordered message list sent to the model for one
// turn.
type Builder struct {
	messages     MessageStore
	historyLimit int
}

func NewBuilder(messages MessageStore, historyLimit int) *Builder {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Builder{
		messages:     messages,
		historyLimit: historyLimit,
	}
}

// Build assembles the prompt for one turn. Ordering is fixed: global system
// instruction, stage instruction, confirmed requirements, confirmed page
// structure, trimmed history (oldest first), the current input, and an
// attachment notice when images accompany the turn.
//
// For literal user turns the user message is persisted before returning, so
// that the transcript order matches what was actually sent.
func (b *Builder) Build(ctx context.Context, session *entity.Session, in TurnInput) ([]entity.ChatMessage, error) {
	prompt := []entity.ChatMessage{
		entity.SystemMessage(globalPrompt),
		entity.SystemMessage(StagePrompt(session.Stage)),
	}

	if session.Requirements != nil && *session.Requirements != "" {
		prompt = append(prompt, entity.SystemMessage(
			"Confirmed requirement analysis from earlier in this conversation:\n\n"+*session.Requirements))
	}

	if session.PageStructure != nil && *session.PageStructure != "" {
		prompt = append(prompt, entity.SystemMessage(
			"Confirmed page structure from earlier in this conversation:\n\n"+*session.PageStructure))
	}

	history, err := b.messages.ListRecentMessages(ctx, session.ID, b.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	for _, msg := range history {
		switch msg.Role {
		case entity.RoleUser:
			prompt = append(prompt, entity.UserMessage(msg.Content, msg.Attachments...))
		case entity.RoleAssistant:
			prompt = append(prompt, entity.AssistantMessage(msg.Content))
		}
		// internal notes are transcript-only, never sent to the model
	}

	if in.Synthetic {
		if in.TargetPage != "" {
			prompt = append(prompt, entity.SystemMessage(
				fmt.Sprintf("Generate the page named %q now. Output only that page.", in.TargetPage)))
		}
		if in.StyleReference != "" {
			prompt = append(prompt, entity.SystemMessage(
				"Match the look of this previously generated page:\n\n"+in.StyleReference))
		}
		prompt = append(prompt, entity.UserMessage(ContinueInput))
		return prompt, nil
	}

	prompt = append(prompt, entity.UserMessage(in.Content, in.Attachments...))

	if len(in.Attachments) > 0 {
		prompt = append(prompt, entity.UserMessage(
			"The message above includes image attachments. Take their content into account."))
	}

	if _, err := b.messages.CreateMessage(ctx, entity.Message{
		SessionID:   session.ID,
		Role:        entity.RoleUser,
		Content:     in.Content,
		Attachments: in.Attachments,
	}); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	return prompt, nil
}
