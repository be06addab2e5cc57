package domain

// Attribute names the strict-mode link protocol maintains on tracked records.
// FirstVersionAttr is set once at creation and never changes; CurrentVersionAttr
// moves forward on every successful mutation.
const (
	FirstVersionAttr   = "first_version_id"
	CurrentVersionAttr = "current_version_id"
)

// SoftDeleteAttr is the timestamp column a soft delete sets on the record.
const SoftDeleteAttr = "deleted_at"
