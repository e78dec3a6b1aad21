package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/protolab/prototype-backend/internal/entity"
	"github.com/protolab/prototype-backend/internal/prompt"
)

func newTestUsecase(store *memStore, provider *scriptedProvider, notifier Notifier) *Usecase {
	return NewUsecase(
		store, store, store, store,
		prompt.NewBuilder(store, 0),
		provider,
		notifier,
		zap.NewNop(),
	)
}

func seedSession(t *testing.T, store *memStore, stage entity.Stage) *entity.Session {
	t.Helper()
	session, err := store.CreateSession(context.Background(), entity.Session{
		OwnerID: "owner-1",
		Name:    "shop prototype",
		Stage:   stage,
	})
	require.NoError(t, err)
	return session
}

func TestHandleTurn_AutoAdvancesThroughAnalysis(t *testing.T) {
	store := newMemStore()
	provider := &scriptedProvider{replies: []string{
		"<STAGE:COLLECTING>Got everything I need.<NEXT_STAGE:ANALYZING>",
		"<STAGE:ANALYZING>Here is my analysis.\n```requirement analysis result\nAn online shop with a catalog and a cart.\n```\n<NEXT_STAGE:DESIGNING>",
		"<STAGE:DESIGNING>I suggest three pages: home, catalog, cart.",
	}}
	uc := newTestUsecase(store, provider, nil)
	session := seedSession(t, store, entity.StageCollecting)

	resp, err := uc.HandleTurn(context.Background(), "owner-1", session.ID, &entity.ChatRequest{
		Content: "That is all, let's move on.",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, provider.callCount())
	assert.Equal(t, entity.StageDesigning, resp.Stage)
	assert.Equal(t, "I suggest three pages: home, catalog, cart.", resp.Reply)
	assert.NotContains(t, resp.Reply, "<STAGE:")

	got, err := store.GetSessionByID(context.Background(), session.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Requirements)
	assert.Equal(t, "An online shop with a catalog and a cart.", *got.Requirements)

	notes := store.internalNotes(session.ID)
	require.Len(t, notes, 2)
	assert.Contains(t, notes[0], "Analyzing requirements")
	assert.Contains(t, notes[1], "Designing the page structure")
}

func TestHandleTurn_RejectedWhileGenerating(t *testing.T) {
	store := newMemStore()
	provider := &scriptedProvider{replies: []string{
		"<STAGE:COLLECTING>Tell me more about the second project.",
	}}
	uc := newTestUsecase(store, provider, nil)
	session := seedSession(t, store, entity.StageGenerating)
	_, err := store.SetSessionGenerating(context.Background(), session.ID, true)
	require.NoError(t, err)

	_, err = uc.HandleTurn(context.Background(), "owner-1", session.ID, &entity.ChatRequest{Content: "status?"})
	require.ErrorIs(t, err, entity.ErrGenerationInProgress)
	assert.Equal(t, 0, provider.callCount())

	// The lock is per session: other sessions keep taking turns.
	other, err := store.CreateSession(context.Background(), entity.Session{
		OwnerID: "owner-1",
		Name:    "second prototype",
		Stage:   entity.StageCollecting,
	})
	require.NoError(t, err)

	resp, err := uc.HandleTurn(context.Background(), "owner-1", other.ID, &entity.ChatRequest{Content: "A landing page."})
	require.NoError(t, err)
	assert.Equal(t, "Tell me more about the second project.", resp.Reply)
	assert.Equal(t, 1, provider.callCount())
}

func TestHandleTurn_ForeignOwnerLooksLikeMissingSession(t *testing.T) {
	store := newMemStore()
	provider := &scriptedProvider{}
	uc := newTestUsecase(store, provider, nil)
	session := seedSession(t, store, entity.StageCollecting)

	_, err := uc.HandleTurn(context.Background(), "owner-2", session.ID, &entity.ChatRequest{Content: "hello"})
	require.ErrorIs(t, err, entity.ErrSessionNotFound)
	assert.Equal(t, 0, provider.callCount())
}

func TestHandleTurn_StructureConfirmationRunsGeneration(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	provider := &scriptedProvider{replies: []string{
		"<STAGE:DESIGNING>Confirmed. Here is the structure:\n```json\n[{\"name\":\"Home\",\"path\":\"index.html\",\"description\":\"landing\"},{\"name\":\"Cart\",\"path\":\"cart.html\",\"description\":\"cart\"}]\n```\n<NEXT_STAGE:GENERATING>",
		"<STAGE:GENERATING><CURRENT_PAGE:Home>```html\n<html><body>Home</body></html>\n```",
		"<STAGE:GENERATING><CURRENT_PAGE:Cart>```html\n<html><body>Cart</body></html>\n```",
	}}
	uc := newTestUsecase(store, provider, notifier)
	session := seedSession(t, store, entity.StageDesigning)

	resp, err := uc.HandleTurn(context.Background(), "owner-1", session.ID, &entity.ChatRequest{
		Content: "Looks good, go ahead.",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StageGenerating, resp.Stage)

	uc.WaitGeneration(session.ID)

	got, err := store.GetSessionByID(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StageCompleted, got.Stage)
	assert.False(t, got.Generating)
	require.NotNil(t, got.PageStructure)

	home, err := store.GetPageByPath(context.Background(), session.ID, "index.html")
	require.NoError(t, err)
	assert.Equal(t, entity.PageStatusGenerated, home.Status)
	assert.Equal(t, 1, home.Version)
	assert.Equal(t, "<html><body>Home</body></html>", home.Content)

	cart, err := store.GetPageByPath(context.Background(), session.ID, "cart.html")
	require.NoError(t, err)
	assert.Equal(t, entity.PageStatusGenerated, cart.Status)
	assert.Equal(t, 1, cart.Version)

	// The second page's prompt carries the first page as a style reference.
	require.Equal(t, 3, provider.callCount())
	var styled bool
	for _, msg := range provider.calls[2] {
		if strings.Contains(msg.Content, "Match the look") && strings.Contains(msg.Content, "Home</body>") {
			styled = true
		}
	}
	assert.True(t, styled)

	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, 2, notifier.pageCount)
	assert.NoError(t, notifier.genErr)
}

func TestHandleTurn_InvalidStructureStaysDesigning(t *testing.T) {
	store := newMemStore()
	provider := &scriptedProvider{replies: []string{
		"<STAGE:DESIGNING>Confirmed, starting generation.<NEXT_STAGE:GENERATING>",
	}}
	uc := newTestUsecase(store, provider, nil)
	session := seedSession(t, store, entity.StageDesigning)

	resp, err := uc.HandleTurn(context.Background(), "owner-1", session.ID, &entity.ChatRequest{Content: "Go ahead."})
	require.NoError(t, err)
	assert.Equal(t, entity.StageDesigning, resp.Stage)

	pages, err := store.ListPagesBySession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Empty(t, pages)

	notes := store.internalNotes(session.ID)
	require.NotEmpty(t, notes)
	assert.Contains(t, notes[len(notes)-1], "could not be read")
}

func TestGeneration_BuffersRepliesWithoutMarkup(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	provider := &scriptedProvider{replies: []string{
		"<STAGE:DESIGNING>```json\n[{\"name\":\"Home\",\"path\":\"index.html\",\"description\":\"landing\"}]\n```\n<NEXT_STAGE:GENERATING>",
		"<STAGE:GENERATING><CURRENT_PAGE:Home>```text\nI would describe the page as warm and friendly.\n```",
	}}
	uc := newTestUsecase(store, provider, notifier)
	session := seedSession(t, store, entity.StageDesigning)

	_, err := uc.HandleTurn(context.Background(), "owner-1", session.ID, &entity.ChatRequest{Content: "Go ahead."})
	require.NoError(t, err)
	uc.WaitAllGenerations()

	home, err := store.GetPageByPath(context.Background(), session.ID, "index.html")
	require.NoError(t, err)
	assert.Empty(t, home.Content)
	assert.Equal(t, 1, home.Version)
	require.NotNil(t, home.PartialContent)
	assert.Contains(t, *home.PartialContent, "warm and friendly")

	notes := store.internalNotes(session.ID)
	require.NotEmpty(t, notes)
	assert.Contains(t, strings.Join(notes, "\n"), "contained no markup")
}

func TestGeneration_LogsPageTagMismatch(t *testing.T) {
	store := newMemStore()
	provider := &scriptedProvider{replies: []string{
		"<STAGE:DESIGNING>```json\n[{\"name\":\"Home\",\"path\":\"index.html\",\"description\":\"landing\"}]\n```\n<NEXT_STAGE:GENERATING>",
		"<STAGE:GENERATING><CURRENT_PAGE:Contact>```html\n<html><body>Home</body></html>\n```",
	}}
	uc := newTestUsecase(store, provider, nil)
	session := seedSession(t, store, entity.StageDesigning)

	core, logs := observer.New(zap.WarnLevel)
	ctx := ctxzap.ToContext(context.Background(), zap.New(core))

	_, err := uc.HandleTurn(ctx, "owner-1", session.ID, &entity.ChatRequest{Content: "Go ahead."})
	require.NoError(t, err)
	uc.WaitGeneration(session.ID)

	// The declared structure wins: the page is stored despite the stray tag.
	home, err := store.GetPageByPath(context.Background(), session.ID, "index.html")
	require.NoError(t, err)
	assert.Equal(t, entity.PageStatusGenerated, home.Status)

	entries := logs.FilterMessage("reply page tag does not match the requested page").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Home", entries[0].ContextMap()["requested"])
	assert.Equal(t, "Contact", entries[0].ContextMap()["reported"])
}

func TestGeneration_FailureKeepsStageAndReleasesLock(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	provider := &scriptedProvider{replies: []string{
		"<STAGE:DESIGNING>```json\n[{\"name\":\"Home\",\"path\":\"index.html\",\"description\":\"landing\"}]\n```\n<NEXT_STAGE:GENERATING>",
	}}
	uc := newTestUsecase(store, provider, notifier)
	session := seedSession(t, store, entity.StageDesigning)

	_, err := uc.HandleTurn(context.Background(), "owner-1", session.ID, &entity.ChatRequest{Content: "Go ahead."})
	require.NoError(t, err)
	uc.WaitGeneration(session.ID)

	got, err := store.GetSessionByID(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StageGenerating, got.Stage)
	assert.False(t, got.Generating)

	home, err := store.GetPageByPath(context.Background(), session.ID, "index.html")
	require.NoError(t, err)
	assert.Equal(t, entity.PageStatusFailed, home.Status)

	assert.Equal(t, 1, notifier.calls)
	assert.Error(t, notifier.genErr)
}

func TestHandleTurn_EditArchivesAndBumpsVersion(t *testing.T) {
	store := newMemStore()
	uc := newTestUsecase(store, &scriptedProvider{replies: []string{
		"<STAGE:EDITING><MODIFIED_PAGE:Home>Done, darker header.\n```html\n<html><body>v2</body></html>\n```",
		"<STAGE:EDITING><MODIFIED_PAGE:Home>Done, larger font.\n```html\n<html><body>v3</body></html>\n```",
	}}, nil)
	session := seedSession(t, store, entity.StageCompleted)
	page, err := store.CreatePage(context.Background(), entity.Page{
		SessionID: session.ID,
		Name:      "Home",
		Path:      "index.html",
		Content:   "<html><body>v1</body></html>",
		Status:    entity.PageStatusGenerated,
		Version:   1,
	})
	require.NoError(t, err)

	for _, content := range []string{"Make the header darker.", "Make the font larger."} {
		_, err = uc.HandleTurn(context.Background(), "owner-1", session.ID, &entity.ChatRequest{Content: content})
		require.NoError(t, err)
	}

	got, err := store.GetPageByID(context.Background(), page.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, entity.PageStatusModified, got.Status)
	assert.Equal(t, "<html><body>v3</body></html>", got.Content)

	history, err := store.ListHistoryByPage(context.Background(), page.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Version)
	assert.Equal(t, "<html><body>v1</body></html>", history[0].Content)
	assert.Equal(t, 2, history[1].Version)
	assert.Equal(t, "<html><body>v2</body></html>", history[1].Content)
}

func TestHandleTurn_EditOfUnknownPageLeavesNote(t *testing.T) {
	store := newMemStore()
	uc := newTestUsecase(store, &scriptedProvider{replies: []string{
		"<STAGE:EDITING><MODIFIED_PAGE:Checkout>Updated the checkout page.",
	}}, nil)
	session := seedSession(t, store, entity.StageCompleted)

	_, err := uc.HandleTurn(context.Background(), "owner-1", session.ID, &entity.ChatRequest{Content: "Change the checkout."})
	require.NoError(t, err)

	notes := store.internalNotes(session.ID)
	require.NotEmpty(t, notes)
	assert.Contains(t, notes[len(notes)-1], "no such page")
}

func TestHandleTurnStream_StreamsFirstReplyOnly(t *testing.T) {
	store := newMemStore()
	provider := &scriptedProvider{replies: []string{
		"<STAGE:COLLECTING>Understood.<NEXT_STAGE:ANALYZING>",
		"<STAGE:ANALYZING>```requirement analysis result\nA blog.\n```<NEXT_STAGE:DESIGNING>",
		"<STAGE:DESIGNING>One page should do.",
	}}
	uc := newTestUsecase(store, provider, nil)
	session := seedSession(t, store, entity.StageCollecting)

	var chunks []string
	resp, err := uc.HandleTurnStream(context.Background(), "owner-1", session.ID, &entity.ChatRequest{Content: "done"}, func(chunk string) {
		chunks = append(chunks, chunk)
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StageDesigning, resp.Stage)
	// Only the first turn streams; the auto-advance turns run silently.
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "Understood.")
}
