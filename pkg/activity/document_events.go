package activity

import (
	"strings"
	"time"
)

// Document lifecycle verbs.
const (
	VerbDocumentLoaded   = "document.loaded"
	VerbDocumentReplaced = "document.replaced"
	VerbDocumentReloaded = "document.reloaded"
	VerbDocumentSaved    = "document.saved"
	VerbDocumentExported = "document.exported"
)

// ObjectTypeDocument is the object type of every document event.
const ObjectTypeDocument = "document"

// DocumentEventInput describes the common fields for document lifecycle events.
type DocumentEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Channel    string
	Recipients []string
	Metadata   map[string]any
	// Path is the absolute path of the document and becomes the object ID.
	Path       string
	Pointer    string
	Format     string
	Version    uint64
	SnapshotID string
	// Target is the destination of an export.
	Target     string
	OccurredAt time.Time
}

// BuildDocumentLoadedEvent reports a document entering the state.
func BuildDocumentLoadedEvent(input DocumentEventInput) Event {
	return buildDocumentEvent(VerbDocumentLoaded, input)
}

// BuildDocumentReplacedEvent reports an in-memory content replacement.
func BuildDocumentReplacedEvent(input DocumentEventInput) Event {
	return buildDocumentEvent(VerbDocumentReplaced, input)
}

// BuildDocumentReloadedEvent reports a document re-read from disk.
func BuildDocumentReloadedEvent(input DocumentEventInput) Event {
	return buildDocumentEvent(VerbDocumentReloaded, input)
}

// BuildDocumentSavedEvent reports a document flushed to disk.
func BuildDocumentSavedEvent(input DocumentEventInput) Event {
	return buildDocumentEvent(VerbDocumentSaved, input)
}

// BuildDocumentExportedEvent reports a document written to another path.
func BuildDocumentExportedEvent(input DocumentEventInput) Event {
	return buildDocumentEvent(VerbDocumentExported, input)
}

func buildDocumentEvent(verb string, input DocumentEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Pointer != "" {
		metadata = ensureMetadata(metadata)
		metadata["pointer"] = input.Pointer
	}
	if input.Format != "" {
		metadata = ensureMetadata(metadata)
		metadata["format"] = input.Format
	}
	if input.Version != 0 {
		metadata = ensureMetadata(metadata)
		metadata["version"] = input.Version
	}
	if input.SnapshotID != "" {
		metadata = ensureMetadata(metadata)
		metadata["snapshot_id"] = input.SnapshotID
	}
	if input.Target != "" {
		metadata = ensureMetadata(metadata)
		metadata["target"] = input.Target
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.Path)
	if objectID == "" {
		objectID = strings.TrimSpace(input.SnapshotID)
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectTypeDocument,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Recipients: recipients,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
