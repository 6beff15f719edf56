package activity

import (
	"context"
	"testing"
)

func TestBuildDocumentSavedEventIncludesMetadata(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	input := DocumentEventInput{
		ActorID:    " actor ",
		UserID:     " user ",
		TenantID:   " tenant ",
		Path:       "/srv/config.json",
		Pointer:    "/server/port",
		Format:     "json-pretty",
		Version:    42,
		SnapshotID: "snap-1",
		Metadata:   meta,
		Recipients: []string{"ops@example.com"},
		Channel:    "sparse",
	}

	event := BuildDocumentSavedEvent(input)

	if event.Verb != VerbDocumentSaved {
		t.Fatalf("expected verb %s got %s", VerbDocumentSaved, event.Verb)
	}
	if event.ObjectType != ObjectTypeDocument || event.ObjectID != "/srv/config.json" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "actor" || event.UserID != "user" || event.TenantID != "tenant" {
		t.Fatalf("unexpected identity fields: %+v", event)
	}
	if event.Metadata["pointer"] != "/server/port" || event.Metadata["format"] != "json-pretty" {
		t.Fatalf("expected pointer and format metadata, got %+v", event.Metadata)
	}
	if event.Metadata["version"] != uint64(42) || event.Metadata["snapshot_id"] != "snap-1" {
		t.Fatalf("expected version metadata, got %+v", event.Metadata)
	}
	if event.Metadata["custom"] != "value" {
		t.Fatalf("expected custom metadata, got %+v", event.Metadata)
	}
	event.Metadata["custom"] = "changed"
	if meta["custom"] != "value" {
		t.Fatalf("expected input metadata untouched")
	}
	event.Recipients[0] = "changed"
	if input.Recipients[0] != "ops@example.com" {
		t.Fatalf("expected input recipients untouched, got %v", input.Recipients)
	}
}

func TestBuildDocumentEventFallsBackToSnapshotID(t *testing.T) {
	event := BuildDocumentReplacedEvent(DocumentEventInput{SnapshotID: "snapshot-42"})
	if event.ObjectID != "snapshot-42" {
		t.Fatalf("expected snapshot fallback, got %q", event.ObjectID)
	}
	if event.Metadata["version"] != nil {
		t.Fatalf("expected zero version to be omitted, got %+v", event.Metadata)
	}
}

func TestBuildDocumentExportedEventRecordsTarget(t *testing.T) {
	event := BuildDocumentExportedEvent(DocumentEventInput{Path: "/a.json", Target: "/b.yaml"})
	if event.Verb != VerbDocumentExported || event.Metadata["target"] != "/b.yaml" {
		t.Fatalf("unexpected export event: %+v", event)
	}
}

func TestBuildDocumentEventsWorkWithHooks(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}

	if err := hooks.Notify(context.Background(), BuildDocumentLoadedEvent(DocumentEventInput{Path: "/a.json"})); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := hooks.Notify(context.Background(), BuildDocumentLoadedEvent(DocumentEventInput{})); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected only the identified event to be captured, got %d", len(capture.Events))
	}
	if capture.Events[0].Verb != VerbDocumentLoaded {
		t.Fatalf("expected verb %s, got %s", VerbDocumentLoaded, capture.Events[0].Verb)
	}
}
