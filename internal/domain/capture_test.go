package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestCaptureInsertSnapshotsAppliedState(t *testing.T) {
	changeset := NewChangeSet("companies", "Company", map[string]any{"id": int64(7), "name": "Acme LLC"}).
		Change("city", "Greenwich")

	version, err := Capture(EventInsert, changeset, CaptureOptions{})
	if err != nil {
		t.Fatalf("unexpected capture error: %v", err)
	}

	if version.Event != EventInsert {
		t.Errorf("expected insert event, got %q", version.Event)
	}
	if version.ItemType != "Company" {
		t.Errorf("expected item type Company, got %q", version.ItemType)
	}
	if version.ItemID != 7 {
		t.Errorf("expected item id 7, got %d", version.ItemID)
	}

	expected := map[string]any{"id": int64(7), "name": "Acme LLC", "city": "Greenwich"}
	if len(version.ItemChanges) != len(expected) {
		t.Fatalf("expected %d attributes, got %v", len(expected), version.ItemChanges)
	}
	for key, value := range expected {
		if version.ItemChanges[key] != value {
			t.Errorf("attribute %s = %v, want %v", key, version.ItemChanges[key], value)
		}
	}
}

func TestCaptureUpdateRecordsDiffOnly(t *testing.T) {
	changeset := NewChangeSet("companies", "Company", map[string]any{"id": int64(7), "name": "Acme LLC", "city": "Greenwich"}).
		Change("city", "Hong Kong")

	version, err := Capture(EventUpdate, changeset, CaptureOptions{})
	if err != nil {
		t.Fatalf("unexpected capture error: %v", err)
	}

	if len(version.ItemChanges) != 1 {
		t.Fatalf("diff must contain only changed attributes, got %v", version.ItemChanges)
	}
	if version.ItemChanges["city"] != "Hong Kong" {
		t.Errorf("diff city = %v, want Hong Kong", version.ItemChanges["city"])
	}
}

func TestCaptureDeleteSnapshotsBaseState(t *testing.T) {
	base := map[string]any{"id": int64(7), "name": "Acme LLC", "city": "Greenwich"}
	version, err := Capture(EventDelete, NewChangeSet("companies", "Company", base), CaptureOptions{})
	if err != nil {
		t.Fatalf("unexpected capture error: %v", err)
	}

	for key, value := range base {
		if version.ItemChanges[key] != value {
			t.Errorf("snapshot %s = %v, want %v", key, version.ItemChanges[key], value)
		}
	}
}

func TestCaptureCopiesProvenanceVerbatim(t *testing.T) {
	actor := uuid.New()
	origin := "scraper"
	version, err := Capture(EventInsert, NewChangeSet("companies", "Company", nil), CaptureOptions{
		OriginatorID: &actor,
		Origin:       &origin,
		Meta:         map[string]any{"batch": 12},
	})
	if err != nil {
		t.Fatalf("unexpected capture error: %v", err)
	}

	if version.OriginatorID == nil || *version.OriginatorID != actor {
		t.Errorf("originator not copied: %v", version.OriginatorID)
	}
	if version.Origin == nil || *version.Origin != origin {
		t.Errorf("origin not copied: %v", version.Origin)
	}
	if version.Meta["batch"] != 12 {
		t.Errorf("meta not copied: %v", version.Meta)
	}
}

func TestCaptureRejectsUnknownEvent(t *testing.T) {
	if _, err := Capture(Event("truncate"), NewChangeSet("companies", "Company", nil), CaptureOptions{}); err == nil {
		t.Fatalf("expected error for unknown event")
	}
}

func TestEventSnapshotPolicy(t *testing.T) {
	snapshotting := map[Event]bool{
		EventInsert:     true,
		EventUpdate:     false,
		EventDelete:     true,
		EventSoftDelete: true,
	}
	for event, want := range snapshotting {
		if event.Snapshot() != want {
			t.Errorf("event %q snapshot = %v, want %v", event, event.Snapshot(), want)
		}
	}
}
