package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIngested is emitted after a document's chunks are stored.
	EventTypeDocumentIngested = "kbase.document.ingested"

	// EventTypeDocumentDeleted is emitted after chunks are removed.
	EventTypeDocumentDeleted = "kbase.document.deleted"

	// EventTypeCollectionReset is emitted after the knowledge base is emptied.
	EventTypeCollectionReset = "kbase.collection.reset"
)

// DocumentEvent is a transport-neutral event payload for a change to the
// knowledge base.
type DocumentEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Source        EventSource  `json:"source"`
	Document      DocumentMeta `json:"document"`
}

// EventSource identifies where the change originated.
type EventSource struct {
	Service    string `json:"service"`
	Collection string `json:"collection,omitempty"`

	// Origin is "upload", "watch" or "cli".
	Origin string `json:"origin,omitempty"`
}

// DocumentMeta describes the affected document.
type DocumentMeta struct {
	Filename   string   `json:"filename,omitempty"`
	Type       string   `json:"type,omitempty"`
	ChunkIDs   []string `json:"chunk_ids,omitempty"`
	Chunks     int      `json:"chunks"`
	ArchiveKey string   `json:"archive_key,omitempty"`
	DurationMs int64    `json:"duration_ms,omitempty"`
	Characters int      `json:"characters,omitempty"`
}

// NewDocumentEvent returns an event of eventType with a fresh ID and
// timestamp.
func NewDocumentEvent(eventType string, source EventSource, doc DocumentMeta) *DocumentEvent {
	return &DocumentEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Document:      doc,
	}
}

// Key returns the partitioning key for the event: the filename when known,
// else the first chunk ID, else the event type. Events for the same file
// therefore stay ordered.
func (e *DocumentEvent) Key() string {
	switch {
	case e.Document.Filename != "":
		return e.Document.Filename
	case len(e.Document.ChunkIDs) > 0:
		return e.Document.ChunkIDs[0]
	default:
		return e.EventType
	}
}
