package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/planforge/planforge-backend/internal/domain/plan"
)

type SSEEvent string

const (
	SSEEventDocumentUpdate   SSEEvent = "DocumentUpdate"
	SSEEventSectionCompleted SSEEvent = "SectionCompleted"
	SSEEventSectionChanged   SSEEvent = "SectionContentChanged"
	SSEEventAutoSaveStatus   SSEEvent = "AutoSaveStatus"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

const DocumentUpdateKind = "document_update"

// SectionPayload is one section's content as carried on the wire.
type SectionPayload struct {
	Content string             `json:"content"`
	Origin  plan.SectionOrigin `json:"origin"`
}

// DocumentUpdate is the sync message exchanged between sessions watching the
// same document. Updates for an unknown documentId, and section keys not in
// the catalog, are ignored by receivers. SourceClientID lets a session tell
// its own published updates apart from a peer's.
type DocumentUpdate struct {
	Kind           string                    `json:"kind"`
	DocumentID     string                    `json:"documentId"`
	SourceClientID string                    `json:"sourceClientId,omitempty"`
	Sections       map[string]SectionPayload `json:"sections"`
}

// SyncChannel is the logical channel key for one document's updates.
func SyncChannel(ownerSessionID, documentID string) string {
	return ownerSessionID + ":" + documentID
}

// DecodeDocumentUpdate recovers a DocumentUpdate from a message payload that
// has been through JSON, where Data arrives as a generic map. Payloads built
// in-process pass through unchanged.
func DecodeDocumentUpdate(data any) (DocumentUpdate, error) {
	switch v := data.(type) {
	case DocumentUpdate:
		return v, nil
	case *DocumentUpdate:
		if v == nil {
			return DocumentUpdate{}, fmt.Errorf("nil document update")
		}
		return *v, nil
	default:
		raw, err := json.Marshal(data)
		if err != nil {
			return DocumentUpdate{}, fmt.Errorf("encode update payload: %w", err)
		}
		var update DocumentUpdate
		if err := json.Unmarshal(raw, &update); err != nil {
			return DocumentUpdate{}, fmt.Errorf("decode update payload: %w", err)
		}
		return update, nil
	}
}
