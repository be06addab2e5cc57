package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// CaptureOptions carries the provenance metadata copied verbatim onto every
// captured version.
type CaptureOptions struct {
	OriginatorID *uuid.UUID
	Origin       *string
	Meta         map[string]any
}

// Capture computes the version payload for one mutation. It is a pure
// function of its inputs: inserts, deletes and soft deletes snapshot the full
// attribute map, updates record only the proposed diff. The caller is
// responsible for skipping capture entirely when an update carries an empty
// diff.
func Capture(event Event, changeset ChangeSet, opts CaptureOptions) (Version, error) {
	if !event.Valid() {
		return Version{}, fmt.Errorf("unknown version event %q", event)
	}

	var changes map[string]any
	if event.Snapshot() {
		changes = changeset.Applied()
	} else {
		changes = copyAttributes(changeset.Changes)
	}

	itemID, _ := changeset.ItemID()

	return Version{
		Event:        event,
		ItemType:     changeset.ItemType,
		ItemID:       itemID,
		ItemChanges:  changes,
		OriginatorID: opts.OriginatorID,
		Origin:       opts.Origin,
		Meta:         copyMeta(opts.Meta),
	}, nil
}

// CaptureSnapshot captures a version directly from a persisted attribute map,
// used once the persistence engine has returned the record's final state.
func CaptureSnapshot(event Event, table, itemType string, attrs map[string]any, opts CaptureOptions) (Version, error) {
	changeset := NewChangeSet(table, itemType, attrs)
	return Capture(event, changeset, opts)
}

func copyMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	return copyAttributes(meta)
}
