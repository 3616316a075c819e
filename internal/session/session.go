package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/planforge/planforge-backend/internal/catalog"
	planrepo "github.com/planforge/planforge-backend/internal/data/repos/plan"
	"github.com/planforge/planforge-backend/internal/domain/plan"
	"github.com/planforge/planforge-backend/internal/engine"
	"github.com/planforge/planforge-backend/internal/platform/logger"
	"github.com/planforge/planforge-backend/internal/realtime"
)

// Emitter delivers side-channel notifications (SSE events and sync
// publishes). Delivery is best-effort; the session never blocks on it.
type Emitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

type Deps struct {
	Log       *logger.Logger
	Documents planrepo.PlanDocumentRepo
	Sections  planrepo.PlanSectionRepo
	Emitter   Emitter
}

type Options struct {
	// DebounceInterval overrides the autosave quiet period. Zero means
	// DefaultDebounceInterval.
	DebounceInterval time.Duration
}

// DocumentSession owns one open document: the in-memory section map, the
// local edit lock, the autosave scheduler and the sync channel identity.
// Exactly one editing session owns a document at a time on a client.
type DocumentSession struct {
	log      *logger.Logger
	deps     Deps
	clientID string

	mu               sync.Mutex
	doc              *plan.PlanDocument
	sections         map[string]*plan.PlanSection
	editingSectionID string
	editingDraft     string
	tracker          *engine.CompletionTracker
	disposed         bool

	saver *autosaver
}

// Open loads the owner's document, creating it (and one section row per
// catalog entry) on first access.
func Open(ctx context.Context, deps Deps, opts Options, ownerSessionID string) (*DocumentSession, error) {
	if deps.Log == nil || deps.Documents == nil || deps.Sections == nil {
		return nil, fmt.Errorf("missing session dependencies")
	}

	doc, err := deps.Documents.GetByOwnerSessionID(ctx, nil, ownerSessionID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		doc = &plan.PlanDocument{
			ID:             uuid.New(),
			OwnerSessionID: ownerSessionID,
			Title:          engine.DocumentTitle(""),
		}
		if err := deps.Documents.Create(ctx, nil, doc); err != nil {
			return nil, fmt.Errorf("create document: %w", err)
		}
	}

	rows, err := deps.Sections.GetByDocumentID(ctx, nil, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	byID := make(map[string]*plan.PlanSection, len(rows))
	for _, row := range rows {
		byID[row.SectionID] = row
	}

	// The section set is fixed by the catalog: one row per catalog id,
	// created here and never added or removed afterwards.
	var missing []*plan.PlanSection
	for _, id := range catalog.IDs() {
		if _, ok := byID[id]; ok {
			continue
		}
		row := &plan.PlanSection{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			SectionID:  id,
			Origin:     plan.OriginAI,
		}
		missing = append(missing, row)
		byID[id] = row
	}
	if len(missing) > 0 {
		if err := deps.Sections.CreateAll(ctx, nil, missing); err != nil {
			return nil, fmt.Errorf("create sections: %w", err)
		}
	}

	tracker := engine.NewCompletionTracker()
	for id, sec := range byID {
		tracker.Prime(id, sec.Content)
	}

	s := &DocumentSession{
		log:      deps.Log.With("component", "DocumentSession", "document_id", doc.ID),
		deps:     deps,
		clientID: uuid.NewString(),
		doc:      doc,
		sections: byID,
		tracker:  tracker,
	}
	s.saver = newAutosaver(deps.Log, opts.DebounceInterval, s.commitSections, s.isLocked, s.emitSaveStatus)
	return s, nil
}

func (s *DocumentSession) DocumentID() uuid.UUID {
	return s.doc.ID
}

func (s *DocumentSession) ClientID() string {
	return s.clientID
}

// Channel is the logical sync channel this session publishes on and watches.
func (s *DocumentSession) Channel() string {
	return realtime.SyncChannel(s.doc.OwnerSessionID, s.doc.ID.String())
}

func (s *DocumentSession) IsAutoSaving() bool {
	return s.saver.Saving()
}

func (s *DocumentSession) LastSavedAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.LastSavedAt
}

// IngestConversation re-scans the full ordered message list and merges every
// extracted candidate into the document. Safe to call repeatedly with the
// same list: re-resolving identical candidates changes nothing.
func (s *DocumentSession) IngestConversation(ctx context.Context, messages []plan.ConversationMessage) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}

	var changed, completed []string
	for _, msg := range messages {
		if msg.Role != plan.RoleAssistant {
			continue
		}
		candidates := engine.ExtractCandidates(msg.Content)
		for _, id := range catalog.IDs() {
			raw, ok := candidates[id]
			if !ok {
				continue
			}
			cleaned, ok := engine.CleanContent(raw)
			if !ok {
				continue
			}
			sec := s.sections[id]
			locked := s.editingSectionID == id
			res := engine.ResolveAI(sec.Content, sec.Origin, cleaned, locked)
			if !res.Adopted || res.Content == sec.Content {
				continue
			}
			old := sec.Content
			sec.Content = res.Content
			sec.Origin = res.Origin
			sec.LastUpdated = time.Now().UTC()
			changed = append(changed, id)
			if s.tracker.Observe(id, old, sec.Content) {
				completed = append(completed, id)
			}
		}
	}

	entity := engine.DetectBusinessName(messages)
	entityChanged := entity != "" && entity != s.doc.DetectedEntityName
	if entityChanged {
		s.doc.DetectedEntityName = entity
		s.doc.Title = engine.DocumentTitle(entity)
	}
	docID := s.doc.ID
	title := s.doc.Title
	update := s.buildUpdateLocked(changed)
	s.mu.Unlock()

	if entityChanged {
		if err := s.deps.Documents.UpdateTitleAndEntity(ctx, nil, docID, title, entity); err != nil {
			s.log.Warn("failed to persist detected entity name", "error", err)
		}
	}

	if len(changed) > 0 {
		s.saver.MarkDirty()
		s.emitSectionEvents(changed, completed)
		s.publish(update)
	}
	return nil
}

// BeginEdit takes the local edit lock for one section. At most one section
// per session is under edit; re-beginning moves the lock.
func (s *DocumentSession) BeginEdit(sectionID, currentContent string) error {
	if _, ok := catalog.ByID(sectionID); !ok {
		return ErrUnknownSection
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	s.editingSectionID = sectionID
	s.editingDraft = currentContent
	return nil
}

// SaveEdit commits a manual edit: content is stamped manual, the lock clears,
// and a commit is forced immediately, bypassing the debounce. Lock mismatch
// is a validation error; a failed commit is reported through the autosave
// status event and retried on the next dirty mark, never thrown here.
func (s *DocumentSession) SaveEdit(ctx context.Context, sectionID, content string) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.editingSectionID != sectionID {
		s.mu.Unlock()
		return ErrNotEditing
	}
	sec := s.sections[sectionID]
	old := sec.Content
	sec.Content = content
	sec.Origin = plan.OriginManual
	sec.LastUpdated = time.Now().UTC()
	s.editingSectionID = ""
	s.editingDraft = ""

	changed := []string{}
	if old != content {
		changed = append(changed, sectionID)
	}
	var completed []string
	if s.tracker.Observe(sectionID, old, content) {
		completed = append(completed, sectionID)
	}
	update := s.buildUpdateLocked(changed)
	s.mu.Unlock()

	s.emitSectionEvents(changed, completed)
	if len(changed) > 0 {
		s.publish(update)
	}
	if err := s.saver.Flush(); err != nil {
		s.log.Warn("forced commit after save failed", "error", err, "section_id", sectionID)
	}
	return nil
}

// CancelEdit releases the lock without touching content. The next resolution
// pass may adopt candidates for this section again.
func (s *DocumentSession) CancelEdit(sectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	if s.editingSectionID != sectionID {
		return ErrNotEditing
	}
	s.editingSectionID = ""
	s.editingDraft = ""
	return nil
}

// ApplyRemote feeds a sync message from another session through the merge
// resolver. Updates for a different document, our own published updates, and
// unknown section keys are all ignored.
func (s *DocumentSession) ApplyRemote(update realtime.DocumentUpdate) {
	if update.Kind != "" && update.Kind != realtime.DocumentUpdateKind {
		return
	}
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	if update.DocumentID != s.doc.ID.String() {
		s.mu.Unlock()
		return
	}
	if update.SourceClientID != "" && update.SourceClientID == s.clientID {
		s.mu.Unlock()
		return
	}

	var changed, completed []string
	for _, id := range catalog.IDs() {
		payload, ok := update.Sections[id]
		if !ok {
			continue
		}
		sec := s.sections[id]
		locked := s.editingSectionID == id
		res := engine.ResolveRemote(sec.Content, sec.Origin, payload.Content, payload.Origin, locked)
		if !res.Adopted || (res.Content == sec.Content && res.Origin == sec.Origin) {
			continue
		}
		old := sec.Content
		sec.Content = res.Content
		sec.Origin = res.Origin
		sec.LastUpdated = time.Now().UTC()
		if old != sec.Content {
			changed = append(changed, id)
		}
		if s.tracker.Observe(id, old, sec.Content) {
			completed = append(completed, id)
		}
	}
	s.mu.Unlock()

	// The originating session owns persistence of its own change; applying a
	// remote snapshot schedules no commit here.
	s.emitSectionEvents(changed, completed)
}

// Snapshot returns a consistent view of the document in catalog order.
func (s *DocumentSession) Snapshot() DocumentView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := DocumentView{
		ID:                 s.doc.ID.String(),
		OwnerSessionID:     s.doc.OwnerSessionID,
		Title:              s.doc.Title,
		DetectedEntityName: s.doc.DetectedEntityName,
		EditingSectionID:   s.editingSectionID,
		IsAutoSaving:       s.saver.Saving(),
		LastSavedAt:        s.doc.LastSavedAt,
	}
	for _, def := range catalog.Definitions() {
		sec := s.sections[def.ID]
		sv := SectionView{
			ID:          def.ID,
			Title:       def.Title,
			Content:     sec.Content,
			Origin:      sec.Origin,
			Completed:   sec.Completed(),
			LastUpdated: sec.LastUpdated,
		}
		if sv.Completed {
			view.CompletedCount++
		}
		view.Sections = append(view.Sections, sv)
	}
	view.CompletionPercentage = engine.Percentage(view.CompletedCount, len(view.Sections))
	return view
}

// Discard deletes the whole document and tears the session down.
func (s *DocumentSession) Discard(ctx context.Context) error {
	s.mu.Lock()
	docID := s.doc.ID
	s.mu.Unlock()

	s.Dispose()
	if err := s.deps.Sections.DeleteByDocumentID(ctx, nil, docID); err != nil {
		return fmt.Errorf("delete sections: %w", err)
	}
	if err := s.deps.Documents.DeleteByID(ctx, nil, docID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Dispose cancels the pending debounce so a stale commit from this document
// can never fire after the owner moves on. Idempotent.
func (s *DocumentSession) Dispose() {
	s.mu.Lock()
	s.disposed = true
	s.editingSectionID = ""
	s.editingDraft = ""
	s.mu.Unlock()
	s.saver.Stop()
}

func (s *DocumentSession) isLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editingSectionID != ""
}

func (s *DocumentSession) commitSections(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	rows := make([]*plan.PlanSection, 0, len(s.sections))
	for _, id := range catalog.IDs() {
		if sec, ok := s.sections[id]; ok {
			row := *sec
			rows = append(rows, &row)
		}
	}
	docID := s.doc.ID
	s.mu.Unlock()

	if err := s.deps.Sections.UpsertContents(ctx, nil, rows); err != nil {
		return fmt.Errorf("commit sections: %w", err)
	}
	now := time.Now().UTC()
	if err := s.deps.Documents.TouchLastSavedAt(ctx, nil, docID, now); err != nil {
		return fmt.Errorf("touch last_saved_at: %w", err)
	}
	s.mu.Lock()
	s.doc.LastSavedAt = &now
	s.mu.Unlock()
	return nil
}

// buildUpdateLocked snapshots the changed sections for publishing. Caller
// holds s.mu.
func (s *DocumentSession) buildUpdateLocked(changed []string) realtime.DocumentUpdate {
	update := realtime.DocumentUpdate{
		Kind:           realtime.DocumentUpdateKind,
		DocumentID:     s.doc.ID.String(),
		SourceClientID: s.clientID,
		Sections:       make(map[string]realtime.SectionPayload, len(changed)),
	}
	for _, id := range changed {
		sec := s.sections[id]
		update.Sections[id] = realtime.SectionPayload{Content: sec.Content, Origin: sec.Origin}
	}
	return update
}

func (s *DocumentSession) emitSectionEvents(changed, completed []string) {
	if s.deps.Emitter == nil {
		return
	}
	channel := s.Channel()
	for _, id := range changed {
		s.deps.Emitter.Emit(context.Background(), realtime.SSEMessage{
			Channel: channel,
			Event:   realtime.SSEEventSectionChanged,
			Data:    map[string]any{"document_id": s.doc.ID, "section_id": id},
		})
	}
	for _, id := range completed {
		s.deps.Emitter.Emit(context.Background(), realtime.SSEMessage{
			Channel: channel,
			Event:   realtime.SSEEventSectionCompleted,
			Data:    map[string]any{"document_id": s.doc.ID, "section_id": id},
		})
	}
}

func (s *DocumentSession) publish(update realtime.DocumentUpdate) {
	if s.deps.Emitter == nil || len(update.Sections) == 0 {
		return
	}
	s.deps.Emitter.Emit(context.Background(), realtime.SSEMessage{
		Channel: s.Channel(),
		Event:   realtime.SSEEventDocumentUpdate,
		Data:    update,
	})
}

func (s *DocumentSession) emitSaveStatus(saving bool, err error) {
	if s.deps.Emitter == nil {
		return
	}
	data := map[string]any{"saving": saving}
	s.mu.Lock()
	if s.doc.LastSavedAt != nil {
		data["last_saved_at"] = *s.doc.LastSavedAt
	}
	s.mu.Unlock()
	if err != nil {
		data["error"] = err.Error()
	}
	s.deps.Emitter.Emit(context.Background(), realtime.SSEMessage{
		Channel: s.Channel(),
		Event:   realtime.SSEEventAutoSaveStatus,
		Data:    data,
	})
}
