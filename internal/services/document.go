package services

import (
	"context"
	"sync"
	"time"

	planrepo "github.com/planforge/planforge-backend/internal/data/repos/plan"
	"github.com/planforge/planforge-backend/internal/domain/plan"
	"github.com/planforge/planforge-backend/internal/platform/logger"
	"github.com/planforge/planforge-backend/internal/realtime"
	"github.com/planforge/planforge-backend/internal/session"
)

// DocumentService keeps one live DocumentSession per owner session id and
// routes HTTP and sync traffic to it.
type DocumentService interface {
	Get(ctx context.Context, ownerSessionID string) (session.DocumentView, error)
	Ingest(ctx context.Context, ownerSessionID string, messages []plan.ConversationMessage) (session.DocumentView, error)
	BeginEdit(ctx context.Context, ownerSessionID, sectionID, currentContent string) error
	SaveEdit(ctx context.Context, ownerSessionID, sectionID, content string) (session.DocumentView, error)
	CancelEdit(ctx context.Context, ownerSessionID, sectionID string) error
	Discard(ctx context.Context, ownerSessionID string) error

	// ApplyRemote fans a sync update out to every live session. Sessions for
	// other documents ignore it.
	ApplyRemote(update realtime.DocumentUpdate)

	// Channel resolves the SSE channel for an owner, opening the document if
	// needed.
	Channel(ctx context.Context, ownerSessionID string) (string, error)

	Shutdown()
}

type documentService struct {
	log      *logger.Logger
	deps     session.Deps
	opts     session.Options

	mu       sync.Mutex
	sessions map[string]*session.DocumentSession
}

func NewDocumentService(
	log *logger.Logger,
	documents planrepo.PlanDocumentRepo,
	sections planrepo.PlanSectionRepo,
	emitter SSEEmitter,
	debounceInterval time.Duration,
) DocumentService {
	return &documentService{
		log: log.With("service", "DocumentService"),
		deps: session.Deps{
			Log:       log,
			Documents: documents,
			Sections:  sections,
			Emitter:   emitter,
		},
		opts:     session.Options{DebounceInterval: debounceInterval},
		sessions: make(map[string]*session.DocumentSession),
	}
}

func (s *documentService) loadOrOpen(ctx context.Context, ownerSessionID string) (*session.DocumentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[ownerSessionID]; ok {
		return sess, nil
	}
	sess, err := session.Open(ctx, s.deps, s.opts, ownerSessionID)
	if err != nil {
		return nil, err
	}
	s.log.Info("opened document session",
		"owner_session_id", ownerSessionID,
		"document_id", sess.DocumentID())
	s.sessions[ownerSessionID] = sess
	return sess, nil
}

func (s *documentService) Get(ctx context.Context, ownerSessionID string) (session.DocumentView, error) {
	sess, err := s.loadOrOpen(ctx, ownerSessionID)
	if err != nil {
		return session.DocumentView{}, err
	}
	return sess.Snapshot(), nil
}

func (s *documentService) Ingest(ctx context.Context, ownerSessionID string, messages []plan.ConversationMessage) (session.DocumentView, error) {
	sess, err := s.loadOrOpen(ctx, ownerSessionID)
	if err != nil {
		return session.DocumentView{}, err
	}
	if err := sess.IngestConversation(ctx, messages); err != nil {
		return session.DocumentView{}, err
	}
	return sess.Snapshot(), nil
}

func (s *documentService) BeginEdit(ctx context.Context, ownerSessionID, sectionID, currentContent string) error {
	sess, err := s.loadOrOpen(ctx, ownerSessionID)
	if err != nil {
		return err
	}
	return sess.BeginEdit(sectionID, currentContent)
}

func (s *documentService) SaveEdit(ctx context.Context, ownerSessionID, sectionID, content string) (session.DocumentView, error) {
	sess, err := s.loadOrOpen(ctx, ownerSessionID)
	if err != nil {
		return session.DocumentView{}, err
	}
	if err := sess.SaveEdit(ctx, sectionID, content); err != nil {
		return session.DocumentView{}, err
	}
	return sess.Snapshot(), nil
}

func (s *documentService) CancelEdit(ctx context.Context, ownerSessionID, sectionID string) error {
	sess, err := s.loadOrOpen(ctx, ownerSessionID)
	if err != nil {
		return err
	}
	return sess.CancelEdit(sectionID)
}

func (s *documentService) Discard(ctx context.Context, ownerSessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[ownerSessionID]
	if ok {
		delete(s.sessions, ownerSessionID)
	}
	s.mu.Unlock()

	if !ok {
		var err error
		sess, err = session.Open(ctx, s.deps, s.opts, ownerSessionID)
		if err != nil {
			return err
		}
	}
	s.log.Info("discarding document",
		"owner_session_id", ownerSessionID,
		"document_id", sess.DocumentID())
	return sess.Discard(ctx)
}

func (s *documentService) ApplyRemote(update realtime.DocumentUpdate) {
	s.mu.Lock()
	live := make([]*session.DocumentSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	for _, sess := range live {
		sess.ApplyRemote(update)
	}
}

func (s *documentService) Channel(ctx context.Context, ownerSessionID string) (string, error) {
	sess, err := s.loadOrOpen(ctx, ownerSessionID)
	if err != nil {
		return "", err
	}
	return sess.Channel(), nil
}

func (s *documentService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for owner, sess := range s.sessions {
		sess.Dispose()
		delete(s.sessions, owner)
	}
}
