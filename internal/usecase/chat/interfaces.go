package chat

import (
	"context"

	"github.com/protolab/prototype-backend/internal/entity"
)

// ChatCompletionProvider is the chat completion capability the turn pipeline
// consumes. Implementations live in internal/integration/llm.
type ChatCompletionProvider interface {
	// Complete performs a single-shot completion.
	Complete(ctx context.Context, messages []entity.ChatMessage) (string, error)
	// StreamComplete streams the completion, invoking onChunk for every text
	// chunk, and returns the accumulated reply. Cancelling ctx aborts the
	// stream; the partial text must not be treated as a reply.
	StreamComplete(ctx context.Context, messages []entity.ChatMessage, onChunk func(chunk string)) (string, error)
}

// Notifier is told when a background generation sequence finishes, so an
// out-of-band channel can ping the user. genErr is nil on success.
type Notifier interface {
	GenerationFinished(ctx context.Context, session *entity.Session, pageCount int, genErr error)
}

// NoopNotifier is used when no notification channel is configured.
type NoopNotifier struct{}

func (NoopNotifier) GenerationFinished(context.Context, *entity.Session, int, error) {}
