package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protolab/prototype-backend/internal/entity"
)

type fakeStore struct {
	history []*entity.Message
	created []entity.Message
}

func (s *fakeStore) CreateMessage(_ context.Context, msg entity.Message) (*entity.Message, error) {
	s.created = append(s.created, msg)
	return &msg, nil
}

func (s *fakeStore) ListRecentMessages(_ context.Context, _ string, limit int) ([]*entity.Message, error) {
	if len(s.history) > limit {
		return s.history[len(s.history)-limit:], nil
	}
	return s.history, nil
}

func strPtr(s string) *string { return &s }

func TestBuild_OrderingForLiteralTurn(t *testing.T) {
	store := &fakeStore{history: []*entity.Message{
		{Role: entity.RoleUser, Content: "first question"},
		{Role: entity.RoleAssistant, Content: "first answer"},
		{Role: entity.RoleInternal, Content: "stage advanced"},
	}}
	b := NewBuilder(store, 0)

	session := &entity.Session{
		ID:            "s1",
		Stage:         entity.StageDesigning,
		Requirements:  strPtr("the requirements"),
		PageStructure: strPtr(`[{"name":"Home"}]`),
	}

	messages, err := b.Build(context.Background(), session, TurnInput{Content: "looks good"})
	require.NoError(t, err)

	// global, stage, requirements, structure, 2 history entries, user input.
	require.Len(t, messages, 7)
	assert.Equal(t, entity.ChatRoleSystem, messages[0].Role)
	assert.Contains(t, messages[1].Content, "Current stage: DESIGNING")
	assert.Contains(t, messages[2].Content, "the requirements")
	assert.Contains(t, messages[3].Content, `"name":"Home"`)
	assert.Equal(t, "first question", messages[4].Content)
	assert.Equal(t, "first answer", messages[5].Content)
	assert.Equal(t, "looks good", messages[6].Content)

	// Internal notes never reach the model.
	for _, msg := range messages {
		assert.NotContains(t, msg.Content, "stage advanced")
	}

	// The literal user turn is persisted.
	require.Len(t, store.created, 1)
	assert.Equal(t, entity.RoleUser, store.created[0].Role)
	assert.Equal(t, "looks good", store.created[0].Content)
}

func TestBuild_SyntheticTurnIsNotPersisted(t *testing.T) {
	store := &fakeStore{}
	b := NewBuilder(store, 0)

	session := &entity.Session{ID: "s1", Stage: entity.StageGenerating}

	messages, err := b.Build(context.Background(), session, TurnInput{
		Synthetic:      true,
		TargetPage:     "Cart",
		StyleReference: "<html>ref</html>",
	})
	require.NoError(t, err)

	assert.Empty(t, store.created)

	last := messages[len(messages)-1]
	assert.Equal(t, entity.ChatRoleUser, last.Role)
	assert.Equal(t, ContinueInput, last.Content)

	joined := ""
	for _, msg := range messages {
		joined += msg.Content + "\n"
	}
	assert.Contains(t, joined, `"Cart"`)
	assert.Contains(t, joined, "<html>ref</html>")
}

func TestBuild_AttachmentsCarriedAndAnnounced(t *testing.T) {
	store := &fakeStore{}
	b := NewBuilder(store, 0)

	session := &entity.Session{ID: "s1", Stage: entity.StageCollecting}

	messages, err := b.Build(context.Background(), session, TurnInput{
		Content:     "use this style",
		Attachments: []string{"https://storage.local/img.png"},
	})
	require.NoError(t, err)

	userMsg := messages[len(messages)-2]
	assert.Equal(t, []string{"https://storage.local/img.png"}, userMsg.ImageURLs)
	assert.Contains(t, messages[len(messages)-1].Content, "image attachments")

	require.Len(t, store.created, 1)
	assert.Equal(t, []string{"https://storage.local/img.png"}, store.created[0].Attachments)
}

func TestStagePrompt_FallsBackToCollecting(t *testing.T) {
	assert.Equal(t, StagePrompt(entity.StageCollecting), StagePrompt(entity.StageNone))
	assert.Contains(t, StagePrompt(entity.StageEditing), "MODIFIED_PAGE")
}
