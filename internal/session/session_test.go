package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/planforge/planforge-backend/internal/catalog"
	planrepo "github.com/planforge/planforge-backend/internal/data/repos/plan"
	"github.com/planforge/planforge-backend/internal/data/repos/testutil"
	"github.com/planforge/planforge-backend/internal/domain/plan"
	"github.com/planforge/planforge-backend/internal/realtime"
)

type captureEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (e *captureEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *captureEmitter) byEvent(ev realtime.SSEEvent) []realtime.SSEMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []realtime.SSEMessage
	for _, m := range e.msgs {
		if m.Event == ev {
			out = append(out, m)
		}
	}
	return out
}

// savingStarts counts AutoSaveStatus events with saving=true, i.e. commits
// that actually ran.
func (e *captureEmitter) savingStarts() int {
	n := 0
	for _, m := range e.byEvent(realtime.SSEEventAutoSaveStatus) {
		if data, ok := m.Data.(map[string]any); ok {
			if saving, _ := data["saving"].(bool); saving {
				n++
			}
		}
	}
	return n
}

func openSession(t *testing.T, owner string, interval time.Duration) (*DocumentSession, *captureEmitter, Deps) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	emitter := &captureEmitter{}
	deps := Deps{
		Log:       log,
		Documents: planrepo.NewPlanDocumentRepo(db, log),
		Sections:  planrepo.NewPlanSectionRepo(db, log),
		Emitter:   emitter,
	}
	s, err := Open(context.Background(), deps, Options{DebounceInterval: interval}, owner)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Dispose)
	return s, emitter, deps
}

func sectionView(t *testing.T, view DocumentView, id string) SectionView {
	t.Helper()
	for _, sv := range view.Sections {
		if sv.ID == id {
			return sv
		}
	}
	t.Fatalf("section %q not in view", id)
	return SectionView{}
}

func assistant(text string) plan.ConversationMessage {
	return plan.ConversationMessage{Role: plan.RoleAssistant, Content: text}
}

const longManualContent = "We bake sourdough loaves in small batches every morning and deliver them " +
	"to forty neighborhood cafes across the city before they open their doors."

func TestOpenCreatesCatalogSections(t *testing.T) {
	s, _, deps := openSession(t, "owner-open", time.Hour)

	view := s.Snapshot()
	if len(view.Sections) != catalog.Count() {
		t.Fatalf("expected %d sections, got %d", catalog.Count(), len(view.Sections))
	}
	for i, id := range catalog.IDs() {
		if view.Sections[i].ID != id {
			t.Fatalf("section %d out of catalog order: %s", i, view.Sections[i].ID)
		}
	}
	if view.CompletionPercentage != 0 {
		t.Fatalf("fresh document should be 0%% complete, got %d", view.CompletionPercentage)
	}

	// Reopening the same owner resumes the same document.
	again, err := Open(context.Background(), deps, Options{}, "owner-open")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Dispose()
	if again.DocumentID() != s.DocumentID() {
		t.Fatalf("reopen created a new document: %s vs %s", again.DocumentID(), s.DocumentID())
	}
}

func TestIngestExtractsCleansAndPublishes(t *testing.T) {
	s, emitter, _ := openSession(t, "owner-ingest", time.Hour)

	msgs := []plan.ConversationMessage{
		{Role: plan.RoleUser, Content: "Help me describe what we do."},
		assistant("## Executive Summary\n" +
			"We help small bakeries manage inventory. Our solution reduces waste by 30%. " +
			"Would you like me to continue?"),
	}
	if err := s.IngestConversation(context.Background(), msgs); err != nil {
		t.Fatalf("IngestConversation: %v", err)
	}

	sv := sectionView(t, s.Snapshot(), "executive_summary")
	want := "We help small bakeries manage inventory. Our solution reduces waste by 30%."
	if sv.Content != want {
		t.Fatalf("executive summary:\n got %q\nwant %q", sv.Content, want)
	}
	if sv.Origin != plan.OriginAI {
		t.Fatalf("origin should be ai, got %q", sv.Origin)
	}
	if sv.Completed {
		t.Fatalf("76 characters must not count as complete")
	}

	updates := emitter.byEvent(realtime.SSEEventDocumentUpdate)
	if len(updates) != 1 {
		t.Fatalf("expected one sync publish, got %d", len(updates))
	}
	update, ok := updates[0].Data.(realtime.DocumentUpdate)
	if !ok {
		t.Fatalf("unexpected update payload type %T", updates[0].Data)
	}
	if update.Kind != realtime.DocumentUpdateKind || update.DocumentID != s.DocumentID().String() {
		t.Fatalf("bad update envelope: %+v", update)
	}
	if update.SourceClientID != s.ClientID() {
		t.Fatalf("update must carry the session's client id")
	}
	if got := update.Sections["executive_summary"].Content; got != want {
		t.Fatalf("published content: %q", got)
	}
	if len(emitter.byEvent(realtime.SSEEventSectionChanged)) != 1 {
		t.Fatalf("expected one SectionContentChanged event")
	}
}

func TestIngestIdempotent(t *testing.T) {
	s, emitter, _ := openSession(t, "owner-idem", time.Hour)

	msgs := []plan.ConversationMessage{
		assistant("## Market Analysis\n" +
			"The bakery market in our city has doubled since 2020 overall. " +
			"Independent shops now capture a third of all bread sales locally."),
	}
	if err := s.IngestConversation(context.Background(), msgs); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	first := sectionView(t, s.Snapshot(), "market_analysis").Content
	publishes := len(emitter.byEvent(realtime.SSEEventDocumentUpdate))

	// Re-scanning the same conversation resolves identical candidates and
	// must change and publish nothing.
	if err := s.IngestConversation(context.Background(), msgs); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if got := sectionView(t, s.Snapshot(), "market_analysis").Content; got != first {
		t.Fatalf("content changed on re-ingest:\n got %q\nwas %q", got, first)
	}
	if got := len(emitter.byEvent(realtime.SSEEventDocumentUpdate)); got != publishes {
		t.Fatalf("re-ingest published again: %d vs %d", got, publishes)
	}
}

func TestIngestDetectsBusinessName(t *testing.T) {
	s, _, _ := openSession(t, "owner-name", time.Hour)

	msgs := []plan.ConversationMessage{
		{Role: plan.RoleUser, Content: "My business is called Golden Crust Bakery"},
		assistant("Great, noted."),
	}
	if err := s.IngestConversation(context.Background(), msgs); err != nil {
		t.Fatalf("IngestConversation: %v", err)
	}
	view := s.Snapshot()
	if !strings.HasPrefix(view.DetectedEntityName, "Golden Crust Bakery") {
		t.Fatalf("entity name not detected: %q", view.DetectedEntityName)
	}
	if !strings.HasSuffix(view.Title, "Business Plan") || view.Title == "Business Plan" {
		t.Fatalf("title should carry the entity name: %q", view.Title)
	}
}

func TestSaveEditStampsManualAndForcesCommit(t *testing.T) {
	s, emitter, deps := openSession(t, "owner-save", time.Hour)

	if err := s.BeginEdit("executive_summary", ""); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	if err := s.SaveEdit(context.Background(), "executive_summary", longManualContent); err != nil {
		t.Fatalf("SaveEdit: %v", err)
	}

	view := s.Snapshot()
	sv := sectionView(t, view, "executive_summary")
	if sv.Origin != plan.OriginManual {
		t.Fatalf("saved content must be manual, got %q", sv.Origin)
	}
	if !sv.Completed {
		t.Fatalf("content of %d chars should be complete", len(longManualContent))
	}
	if view.EditingSectionID != "" {
		t.Fatalf("save must release the edit lock")
	}
	if view.IsAutoSaving {
		t.Fatalf("flush is synchronous; no commit should be in flight")
	}
	if view.LastSavedAt == nil {
		t.Fatalf("forced commit should have set last_saved_at")
	}
	if emitter.savingStarts() != 1 {
		t.Fatalf("expected exactly one commit, got %d", emitter.savingStarts())
	}
	if len(emitter.byEvent(realtime.SSEEventSectionCompleted)) != 1 {
		t.Fatalf("expected one completion event")
	}

	// Persisted, not just in memory.
	rows, err := deps.Sections.GetByDocumentID(context.Background(), nil, s.DocumentID())
	if err != nil {
		t.Fatalf("GetByDocumentID: %v", err)
	}
	found := false
	for _, row := range rows {
		if row.SectionID == "executive_summary" {
			found = true
			if row.Content != longManualContent || row.Origin != plan.OriginManual {
				t.Fatalf("persisted row mismatch: %q %q", row.Content, row.Origin)
			}
		}
	}
	if !found {
		t.Fatalf("executive_summary row missing from storage")
	}
}

func TestSaveEditLockMismatch(t *testing.T) {
	s, _, _ := openSession(t, "owner-mismatch", time.Hour)

	if err := s.SaveEdit(context.Background(), "executive_summary", "x"); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("save without lock: %v", err)
	}
	if err := s.BeginEdit("executive_summary", ""); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	if err := s.SaveEdit(context.Background(), "market_analysis", "x"); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("save of a different section: %v", err)
	}
	if got := sectionView(t, s.Snapshot(), "market_analysis").Content; got != "" {
		t.Fatalf("rejected save must not touch content: %q", got)
	}
	if err := s.BeginEdit("nonexistent", ""); !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("BeginEdit on unknown section: %v", err)
	}
}

func TestEditLockShieldsSectionDuringIngest(t *testing.T) {
	s, _, _ := openSession(t, "owner-lock", time.Hour)

	if err := s.BeginEdit("executive_summary", "draft in progress"); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	msgs := []plan.ConversationMessage{
		assistant("## Executive Summary\n" +
			"We help small bakeries manage inventory. Our solution reduces waste by 30%. " +
			"It ships as a weekly subscription."),
		assistant("## Market Analysis\n" +
			"The bakery market in our city has doubled since 2020 overall. " +
			"Independent shops now capture a third of all bread sales locally."),
	}
	if err := s.IngestConversation(context.Background(), msgs); err != nil {
		t.Fatalf("IngestConversation: %v", err)
	}

	view := s.Snapshot()
	if got := sectionView(t, view, "executive_summary").Content; got != "" {
		t.Fatalf("locked section must not change: %q", got)
	}
	if got := sectionView(t, view, "market_analysis").Content; got == "" {
		t.Fatalf("unlocked sections should still resolve")
	}

	// After cancel the next pass adopts candidates again.
	if err := s.CancelEdit("executive_summary"); err != nil {
		t.Fatalf("CancelEdit: %v", err)
	}
	if err := s.IngestConversation(context.Background(), msgs); err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if got := sectionView(t, s.Snapshot(), "executive_summary").Content; got == "" {
		t.Fatalf("candidate should be adopted after cancel")
	}
}

func TestDebounceCoalescesRapidChanges(t *testing.T) {
	s, emitter, _ := openSession(t, "owner-debounce", 50*time.Millisecond)

	base := "The bakery market in our city has doubled since 2020 overall. " +
		"Independent shops now capture a third of all bread sales locally."
	for i := 0; i < 3; i++ {
		msg := assistant("## Market Analysis\n" + base + strings.Repeat(" Demand keeps growing year over year.", i+1))
		if err := s.IngestConversation(context.Background(), []plan.ConversationMessage{msg}); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	time.Sleep(300 * time.Millisecond)
	if got := emitter.savingStarts(); got != 1 {
		t.Fatalf("three rapid changes should coalesce into one commit, got %d", got)
	}
	if s.LastSavedAt() == nil {
		t.Fatalf("debounced commit never ran")
	}
}

func TestEditLockSuppressesDebouncedCommit(t *testing.T) {
	s, emitter, _ := openSession(t, "owner-suppress", 40*time.Millisecond)

	msg := assistant("## Market Analysis\n" +
		"The bakery market in our city has doubled since 2020 overall. " +
		"Independent shops now capture a third of all bread sales locally.")
	if err := s.IngestConversation(context.Background(), []plan.ConversationMessage{msg}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := s.BeginEdit("executive_summary", ""); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if got := emitter.savingStarts(); got != 0 {
		t.Fatalf("no commit may run while an edit lock is held, got %d", got)
	}
	if s.LastSavedAt() != nil {
		t.Fatalf("nothing should have been committed yet")
	}

	// The save both releases the lock and forces the commit.
	if err := s.SaveEdit(context.Background(), "executive_summary", longManualContent); err != nil {
		t.Fatalf("SaveEdit: %v", err)
	}
	if s.LastSavedAt() == nil {
		t.Fatalf("save must flush the pending changes")
	}
}

func TestApplyRemoteIgnoresMismatchedDocument(t *testing.T) {
	s, emitter, _ := openSession(t, "owner-remote-mismatch", time.Hour)

	s.ApplyRemote(realtime.DocumentUpdate{
		Kind:       realtime.DocumentUpdateKind,
		DocumentID: uuid.NewString(),
		Sections: map[string]realtime.SectionPayload{
			"executive_summary": {Content: longManualContent, Origin: plan.OriginManual},
		},
	})

	if got := sectionView(t, s.Snapshot(), "executive_summary").Content; got != "" {
		t.Fatalf("update for another document must be ignored: %q", got)
	}
	if len(emitter.byEvent(realtime.SSEEventSectionChanged)) != 0 {
		t.Fatalf("no events expected for a mismatched document")
	}
}

func TestApplyRemoteAdoptsAndRespectsLock(t *testing.T) {
	s, emitter, _ := openSession(t, "owner-remote", 40*time.Millisecond)

	if err := s.BeginEdit("executive_summary", "local draft"); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	s.ApplyRemote(realtime.DocumentUpdate{
		Kind:           realtime.DocumentUpdateKind,
		DocumentID:     s.DocumentID().String(),
		SourceClientID: "peer-client",
		Sections: map[string]realtime.SectionPayload{
			"executive_summary": {Content: "remote overwrite attempt", Origin: plan.OriginManual},
			"market_analysis":   {Content: longManualContent, Origin: plan.OriginManual},
			"not_a_section":     {Content: "ignored", Origin: plan.OriginAI},
		},
	})

	view := s.Snapshot()
	if got := sectionView(t, view, "executive_summary").Content; got != "" {
		t.Fatalf("locked section must survive remote updates: %q", got)
	}
	ma := sectionView(t, view, "market_analysis")
	if ma.Content != longManualContent || ma.Origin != plan.OriginManual {
		t.Fatalf("remote section not adopted: %q %q", ma.Content, ma.Origin)
	}

	// The originating session persists its own change; applying a remote
	// snapshot must not schedule a commit here. The lock is held so the
	// window could not have been the reason either once we cancel it.
	if err := s.CancelEdit("executive_summary"); err != nil {
		t.Fatalf("CancelEdit: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if got := emitter.savingStarts(); got != 0 {
		t.Fatalf("remote apply must not trigger autosave, got %d commits", got)
	}
}

func TestApplyRemoteIgnoresOwnEcho(t *testing.T) {
	s, emitter, _ := openSession(t, "owner-echo", time.Hour)

	s.ApplyRemote(realtime.DocumentUpdate{
		Kind:           realtime.DocumentUpdateKind,
		DocumentID:     s.DocumentID().String(),
		SourceClientID: s.ClientID(),
		Sections: map[string]realtime.SectionPayload{
			"executive_summary": {Content: longManualContent, Origin: plan.OriginManual},
		},
	})
	if got := sectionView(t, s.Snapshot(), "executive_summary").Content; got != "" {
		t.Fatalf("session must ignore its own published updates: %q", got)
	}
	if len(emitter.byEvent(realtime.SSEEventSectionChanged)) != 0 {
		t.Fatalf("no events expected for an echoed update")
	}
}

func TestCompletionFiresOncePerSection(t *testing.T) {
	s, emitter, _ := openSession(t, "owner-complete", time.Hour)

	save := func(content string) {
		t.Helper()
		if err := s.BeginEdit("executive_summary", ""); err != nil {
			t.Fatalf("BeginEdit: %v", err)
		}
		if err := s.SaveEdit(context.Background(), "executive_summary", content); err != nil {
			t.Fatalf("SaveEdit: %v", err)
		}
	}

	save(longManualContent)
	save("short again")
	save(longManualContent)

	if got := len(emitter.byEvent(realtime.SSEEventSectionCompleted)); got != 1 {
		t.Fatalf("completion must fire once per section lifetime, got %d", got)
	}
}

func TestDisposeStopsAutosaveAndRejectsUse(t *testing.T) {
	s, emitter, _ := openSession(t, "owner-dispose", 40*time.Millisecond)

	msg := assistant("## Market Analysis\n" +
		"The bakery market in our city has doubled since 2020 overall. " +
		"Independent shops now capture a third of all bread sales locally.")
	if err := s.IngestConversation(context.Background(), []plan.ConversationMessage{msg}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	s.Dispose()

	time.Sleep(150 * time.Millisecond)
	if got := emitter.savingStarts(); got != 0 {
		t.Fatalf("dispose must cancel the pending commit, got %d", got)
	}
	if err := s.IngestConversation(context.Background(), nil); !errors.Is(err, ErrDisposed) {
		t.Fatalf("use after dispose: %v", err)
	}
}

func TestDiscardDeletesDocument(t *testing.T) {
	s, _, deps := openSession(t, "owner-discard", time.Hour)
	ctx := context.Background()

	if err := s.Discard(ctx); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	doc, err := deps.Documents.GetByOwnerSessionID(ctx, nil, "owner-discard")
	if err != nil {
		t.Fatalf("GetByOwnerSessionID: %v", err)
	}
	if doc != nil {
		t.Fatalf("document should be deleted")
	}
	rows, err := deps.Sections.GetByDocumentID(ctx, nil, s.DocumentID())
	if err != nil {
		t.Fatalf("GetByDocumentID: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("sections should be deleted, got %d", len(rows))
	}
}
