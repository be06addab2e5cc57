package versioning

import (
	"github.com/rpattn/verledger/internal/domain"
)

// Result is the outcome of a successful versioned mutation: every visible
// step's result keyed by its configured name, with typed accessors for the
// record and version steps. Internal bookkeeping steps (the strict-mode
// reservation and placeholder) are stripped before a Result is built.
type Result struct {
	modelKey   string
	versionKey string
	returnKey  string
	steps      map[string]any
}

func newResult(cfg Config, steps map[string]any) Result {
	return Result{
		modelKey:   cfg.ModelKey,
		versionKey: cfg.VersionKey,
		returnKey:  cfg.ReturnKey,
		steps:      steps,
	}
}

// Step returns a named step's result.
func (r Result) Step(name string) (any, bool) {
	value, ok := r.steps[name]
	return value, ok
}

// Model returns the persisted record from the record step.
func (r Result) Model() (map[string]any, bool) {
	value, ok := r.steps[r.modelKey]
	if !ok {
		return nil, false
	}
	attrs, ok := value.(map[string]any)
	return attrs, ok
}

// Version returns the version captured by the version step.
func (r Result) Version() (domain.Version, bool) {
	value, ok := r.steps[r.versionKey]
	if !ok {
		return domain.Version{}, false
	}
	version, ok := value.(domain.Version)
	return version, ok
}

// Versions returns the version rows a bulk projection inserted, when the
// call asked for them.
func (r Result) Versions() ([]domain.Version, bool) {
	value, ok := r.steps[r.versionKey]
	if !ok {
		return nil, false
	}
	versions, ok := value.([]domain.Version)
	return versions, ok
}

// VersionCount returns how many version rows a bulk projection inserted.
func (r Result) VersionCount() (int64, bool) {
	value, ok := r.steps[r.versionKey]
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case int64:
		return v, true
	case []domain.Version:
		return int64(len(v)), true
	}
	return 0, false
}

// Affected returns the row count of a bulk record mutation.
func (r Result) Affected() (int64, bool) {
	value, ok := r.steps[r.modelKey]
	if !ok {
		return 0, false
	}
	count, ok := value.(int64)
	return count, ok
}

// Selected returns the single step chosen by the return-key option, falling
// back to the full step map when no key was chosen. The boolean reports
// whether the chosen key produced a result, so a missing step is
// distinguishable from a step that legitimately returned nil.
func (r Result) Selected() (any, bool) {
	if r.returnKey != "" {
		value, ok := r.steps[r.returnKey]
		return value, ok
	}
	return r.Steps(), true
}

// Steps returns a copy of every visible step result.
func (r Result) Steps() map[string]any {
	out := make(map[string]any, len(r.steps))
	for name, value := range r.steps {
		out[name] = value
	}
	return out
}
