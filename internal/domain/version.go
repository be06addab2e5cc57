package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event classifies the mutation a version row records.
type Event string

const (
	EventInsert     Event = "insert"
	EventUpdate     Event = "update"
	EventDelete     Event = "delete"
	EventSoftDelete Event = "soft_delete"
)

// Valid reports whether the event is one of the recorded mutation kinds.
func (e Event) Valid() bool {
	switch e {
	case EventInsert, EventUpdate, EventDelete, EventSoftDelete:
		return true
	}
	return false
}

// Snapshot reports whether the event persists a full attribute snapshot.
// Updates persist only the diff; everything else persists the whole record.
func (e Event) Snapshot() bool {
	return e != EventUpdate
}

// Version is one immutable entry in the ledger. It records what changed on a
// tracked record, who changed it, and when. Rows are never mutated after
// their owning transaction commits, with one exception: the strict-mode
// finalize step patches ItemChanges inside the same transaction that created
// the row.
type Version struct {
	ID           int64          `json:"id"`
	Event        Event          `json:"event"`
	ItemType     string         `json:"item_type"`
	ItemID       int64          `json:"item_id"`
	ItemChanges  map[string]any `json:"item_changes"`
	OriginatorID *uuid.UUID     `json:"originator_id,omitempty"`
	Origin       *string        `json:"origin,omitempty"`
	Meta         map[string]any `json:"meta,omitempty"`
	InsertedAt   time.Time      `json:"inserted_at"`
}

// ChangesAsJSONB serialises the item changes for JSONB storage.
func (v *Version) ChangesAsJSONB() (json.RawMessage, error) {
	if v.ItemChanges == nil {
		v.ItemChanges = make(map[string]any)
	}
	return json.Marshal(v.ItemChanges)
}

// MetaAsJSONB serialises the meta annotation, or returns nil when unset.
func (v *Version) MetaAsJSONB() (json.RawMessage, error) {
	if v.Meta == nil {
		return nil, nil
	}
	return json.Marshal(v.Meta)
}

// FromJSONBChanges decodes a JSONB attribute map.
func FromJSONBChanges(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var changes map[string]any
	if err := json.Unmarshal(raw, &changes); err != nil {
		return nil, fmt.Errorf("failed to decode item changes: %w", err)
	}
	return changes, nil
}
