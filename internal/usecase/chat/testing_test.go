package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/protolab/prototype-backend/internal/entity"
)

// memStore is an in-memory implementation of the persistence interfaces,
// shared by the tests in this package. All methods are safe for concurrent
// use because the generation sequence runs on its own goroutine.
type memStore struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*entity.Session
	messages []*entity.Message
	pages    map[string]*entity.Page
	history  []*entity.PageHistory
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[string]*entity.Session),
		pages:    make(map[string]*entity.Page),
	}
}

func (s *memStore) nextID() string {
	s.seq++
	return fmt.Sprintf("id-%d", s.seq)
}

func (s *memStore) CreateSession(_ context.Context, session entity.Session) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ID == "" {
		session.ID = s.nextID()
	}
	if session.Stage == "" {
		session.Stage = entity.StageCollecting
	}
	cp := session
	s.sessions[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) GetSessionByID(_ context.Context, id string) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	out := *session
	return &out, nil
}

func (s *memStore) ListSessionsByOwner(_ context.Context, ownerID string, limit, offset int) ([]*entity.Session, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Session
	for _, session := range s.sessions {
		if session.OwnerID == ownerID {
			cp := *session
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (s *memStore) UpdateSessionInfo(_ context.Context, id string, name, description *string) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	if name != nil {
		session.Name = *name
	}
	if description != nil {
		session.Description = description
	}
	out := *session
	return &out, nil
}

func (s *memStore) UpdateSessionStage(_ context.Context, id string, stage entity.Stage) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	session.Stage = stage
	out := *session
	return &out, nil
}

func (s *memStore) UpdateSessionRequirements(_ context.Context, id, requirements string) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	session.Requirements = &requirements
	out := *session
	return &out, nil
}

func (s *memStore) UpdateSessionPageStructure(_ context.Context, id, structure string) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	session.PageStructure = &structure
	out := *session
	return &out, nil
}

func (s *memStore) SetSessionGenerating(_ context.Context, id string, generating bool) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	session.Generating = generating
	out := *session
	return &out, nil
}

func (s *memStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memStore) CreateMessage(_ context.Context, msg entity.Message) (*entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = s.nextID()
	}
	cp := msg
	s.messages = append(s.messages, &cp)
	out := cp
	return &out, nil
}

func (s *memStore) ListMessagesBySession(_ context.Context, sessionID string, limit, offset int) ([]*entity.Message, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Message
	for _, msg := range s.messages {
		if msg.SessionID == sessionID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (s *memStore) ListRecentMessages(_ context.Context, sessionID string, limit int) ([]*entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Message
	for _, msg := range s.messages {
		if msg.SessionID != sessionID {
			continue
		}
		if msg.Role != entity.RoleUser && msg.Role != entity.RoleAssistant {
			continue
		}
		cp := *msg
		out = append(out, &cp)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) CreatePage(_ context.Context, page entity.Page) (*entity.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page.ID == "" {
		page.ID = s.nextID()
	}
	cp := page
	s.pages[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) GetPageByID(_ context.Context, id string) (*entity.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[id]
	if !ok {
		return nil, entity.ErrPageNotFound
	}
	out := *page
	return &out, nil
}

func (s *memStore) GetPageByPath(_ context.Context, sessionID, path string) (*entity.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, page := range s.pages {
		if page.SessionID == sessionID && page.Path == path {
			out := *page
			return &out, nil
		}
	}
	return nil, entity.ErrPageNotFound
}

func (s *memStore) GetPageByName(_ context.Context, sessionID, name string) (*entity.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, page := range s.pages {
		if page.SessionID == sessionID && page.Name == name {
			out := *page
			return &out, nil
		}
	}
	return nil, entity.ErrPageNotFound
}

func (s *memStore) ListPagesBySession(_ context.Context, sessionID string) ([]*entity.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Page
	for _, page := range s.pages {
		if page.SessionID == sessionID {
			cp := *page
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) UpdatePageContent(_ context.Context, id, content string, version int, status entity.PageStatus) (*entity.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[id]
	if !ok {
		return nil, entity.ErrPageNotFound
	}
	page.Content = content
	page.Version = version
	page.Status = status
	page.PartialContent = nil
	out := *page
	return &out, nil
}

func (s *memStore) UpdatePageStatus(_ context.Context, id string, status entity.PageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[id]
	if !ok {
		return entity.ErrPageNotFound
	}
	page.Status = status
	return nil
}

func (s *memStore) UpdatePagePartialContent(_ context.Context, id, partial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[id]
	if !ok {
		return entity.ErrPageNotFound
	}
	page.PartialContent = &partial
	return nil
}

func (s *memStore) CreatePageHistory(_ context.Context, h entity.PageHistory) (*entity.PageHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == "" {
		h.ID = s.nextID()
	}
	cp := h
	s.history = append(s.history, &cp)
	out := cp
	return &out, nil
}

func (s *memStore) ListHistoryByPage(_ context.Context, pageID string) ([]*entity.PageHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.PageHistory
	for _, h := range s.history {
		if h.PageID == pageID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

// internalNotes returns the contents of the session's internal notes in order.
func (s *memStore) internalNotes(sessionID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, msg := range s.messages {
		if msg.SessionID == sessionID && msg.Role == entity.RoleInternal {
			out = append(out, msg.Content)
		}
	}
	return out
}

// scriptedProvider replays a fixed sequence of replies and records every
// prompt it was called with.
type scriptedProvider struct {
	mu      sync.Mutex
	replies []string
	calls   [][]entity.ChatMessage
	err     error
}

func (p *scriptedProvider) Complete(_ context.Context, messages []entity.ChatMessage) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.calls = append(p.calls, messages)
	if len(p.replies) == 0 {
		return "", fmt.Errorf("scripted provider exhausted after %d calls", len(p.calls))
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	return reply, nil
}

func (p *scriptedProvider) StreamComplete(ctx context.Context, messages []entity.ChatMessage, onChunk func(chunk string)) (string, error) {
	reply, err := p.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	onChunk(reply)
	return reply, nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// recordingNotifier captures GenerationFinished calls.
type recordingNotifier struct {
	mu        sync.Mutex
	pageCount int
	genErr    error
	calls     int
}

func (n *recordingNotifier) GenerationFinished(_ context.Context, _ *entity.Session, pageCount int, genErr error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.pageCount = pageCount
	n.genErr = genErr
}
