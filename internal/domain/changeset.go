package domain

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// FieldError describes a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ChangeSet is a proposed mutation against one tracked record: the record's
// base state, the attributes actually changing, and the validation outcome.
// The versioning engine consumes changesets read-only; builders return copies
// following the immutable pattern used across the domain package.
type ChangeSet struct {
	Table    string
	ItemType string
	Base     map[string]any
	Changes  map[string]any
	Errors   []FieldError
}

// NewChangeSet creates a changeset over the record's current state.
func NewChangeSet(table, itemType string, base map[string]any) ChangeSet {
	return ChangeSet{
		Table:    table,
		ItemType: itemType,
		Base:     copyAttributes(base),
		Changes:  map[string]any{},
	}
}

// Change returns a new changeset with one proposed attribute change.
// Proposing a value equal to the base state is a no-op: unchanged attributes
// never enter the diff.
func (c ChangeSet) Change(key string, value any) ChangeSet {
	next := c.clone()
	if base, ok := c.Base[key]; ok && attributeEqual(base, value) {
		delete(next.Changes, key)
		return next
	}
	next.Changes[key] = value
	return next
}

// attributeEqual compares attribute values structurally. JSONB and array
// columns come back from the driver as maps and slices, which a plain ==
// cannot compare.
func attributeEqual(base, value any) bool {
	return reflect.DeepEqual(base, value)
}

// WithChanges returns a new changeset with the given attribute changes merged
// in, dropping entries equal to the base state.
func (c ChangeSet) WithChanges(changes map[string]any) ChangeSet {
	next := c
	for key, value := range changes {
		next = next.Change(key, value)
	}
	return next
}

// AddError returns a new changeset carrying an additional field error.
func (c ChangeSet) AddError(field, message string) ChangeSet {
	next := c.clone()
	next.Errors = append(next.Errors, FieldError{Field: field, Message: message})
	return next
}

// Valid reports whether the changeset carries no field errors.
func (c ChangeSet) Valid() bool {
	return len(c.Errors) == 0
}

// NoChanges reports whether the change mapping is empty. An empty mapping on
// update means the whole operation is a no-op and no version is emitted.
func (c ChangeSet) NoChanges() bool {
	return len(c.Changes) == 0
}

// Applied returns the base state with the proposed changes applied.
func (c ChangeSet) Applied() map[string]any {
	applied := copyAttributes(c.Base)
	for key, value := range c.Changes {
		applied[key] = value
	}
	return applied
}

// ItemID extracts the record identifier from the base state.
func (c ChangeSet) ItemID() (int64, bool) {
	return AttributeID(c.Base)
}

// ErrorValue packages the field errors as the error surfaced when an invalid
// changeset is submitted.
func (c ChangeSet) ErrorValue() error {
	return &InvalidChangeSetError{ItemType: c.ItemType, Errors: append([]FieldError(nil), c.Errors...)}
}

func (c ChangeSet) clone() ChangeSet {
	return ChangeSet{
		Table:    c.Table,
		ItemType: c.ItemType,
		Base:     copyAttributes(c.Base),
		Changes:  copyAttributes(c.Changes),
		Errors:   append([]FieldError(nil), c.Errors...),
	}
}

// InvalidChangeSetError is returned when a mutation is attempted with a
// changeset that failed validation. The transaction is never started.
type InvalidChangeSetError struct {
	ItemType string
	Errors   []FieldError
}

func (e *InvalidChangeSetError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for _, fieldErr := range e.Errors {
		fields = append(fields, fmt.Sprintf("%s: %s", fieldErr.Field, fieldErr.Message))
	}
	sort.Strings(fields)
	return fmt.Sprintf("invalid changeset for %s: %s", e.ItemType, strings.Join(fields, "; "))
}

// AttributeID extracts the "id" attribute from a persisted attribute map,
// coercing the numeric representations the driver may hand back.
func AttributeID(attrs map[string]any) (int64, bool) {
	value, ok := attrs["id"]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

func copyAttributes(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for key, value := range attrs {
		out[key] = value
	}
	return out
}
