package validator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/verledger/internal/domain"
)

// FieldType enumerates the attribute types a changeset validator checks.
type FieldType string

const (
	FieldTypeString    FieldType = "STRING"
	FieldTypeInteger   FieldType = "INTEGER"
	FieldTypeFloat     FieldType = "FLOAT"
	FieldTypeBoolean   FieldType = "BOOLEAN"
	FieldTypeTimestamp FieldType = "TIMESTAMP"
	FieldTypeJSON      FieldType = "JSON"
	FieldTypeUUID      FieldType = "UUID"
)

// FieldDefinition represents a field definition for validation
type FieldDefinition struct {
	Type       FieldType `json:"type"`
	Required   bool      `json:"required"`
	Validation any       `json:"validation,omitempty"`
}

// ChangeSetValidator validates proposed attribute changes against field
// definitions, attaching field errors to the changeset it returns.
type ChangeSetValidator struct{}

// NewChangeSetValidator creates a new changeset validator
func NewChangeSetValidator() *ChangeSetValidator {
	return &ChangeSetValidator{}
}

// Validate checks the changeset's applied state against the definitions and
// returns a changeset carrying any field errors found. A changeset that
// comes back Valid() is safe to hand to the versioning engine.
func (cv *ChangeSetValidator) Validate(changeset domain.ChangeSet, definitions map[string]FieldDefinition) domain.ChangeSet {
	applied := changeset.Applied()

	for fieldName, fieldDef := range definitions {
		value, exists := applied[fieldName]

		if fieldDef.Required && (!exists || value == nil) {
			changeset = changeset.AddError(fieldName, fmt.Sprintf("required field '%s' is missing", fieldName))
			continue
		}
		if !exists || value == nil {
			continue
		}

		if err := cv.validateFieldType(fieldName, value, fieldDef.Type); err != nil {
			changeset = changeset.AddError(fieldName, err.Error())
		}

		if fieldDef.Validation != nil {
			if err := cv.validateCustomRules(fieldName, value, fieldDef.Validation); err != nil {
				changeset = changeset.AddError(fieldName, err.Error())
			}
		}
	}

	// Reject proposed changes to fields outside the definitions
	for fieldName := range changeset.Changes {
		if _, exists := definitions[fieldName]; !exists {
			changeset = changeset.AddError(fieldName, fmt.Sprintf("field '%s' is not defined", fieldName))
		}
	}

	return changeset
}

// validateFieldType validates the type of a field value
func (cv *ChangeSetValidator) validateFieldType(fieldName string, value any, expectedType FieldType) error {
	switch FieldType(strings.ToUpper(string(expectedType))) {
	case FieldTypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field '%s' must be a string, got %T", fieldName, value)
		}
	case FieldTypeInteger:
		if !cv.isInteger(value) {
			return fmt.Errorf("field '%s' must be an integer, got %T", fieldName, value)
		}
	case FieldTypeFloat:
		if !cv.isFloat(value) {
			return fmt.Errorf("field '%s' must be a float, got %T", fieldName, value)
		}
	case FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field '%s' must be a boolean, got %T", fieldName, value)
		}
	case FieldTypeTimestamp:
		switch v := value.(type) {
		case string:
			if _, err := time.Parse(time.RFC3339, v); err != nil {
				return fmt.Errorf("field '%s' must be a valid timestamp (RFC3339): %v", fieldName, err)
			}
		case time.Time:
			// already parsed; accept value
		default:
			return fmt.Errorf("field '%s' must be a timestamp string, got %T", fieldName, value)
		}
	case FieldTypeJSON:
		if _, err := json.Marshal(value); err != nil {
			return fmt.Errorf("field '%s' contains invalid JSON: %v", fieldName, err)
		}
	case FieldTypeUUID:
		strVal, ok := value.(string)
		if !ok {
			if _, ok := value.(uuid.UUID); ok {
				return nil
			}
			return fmt.Errorf("field '%s' must be a UUID string, got %T", fieldName, value)
		}
		if _, err := uuid.Parse(strings.TrimSpace(strVal)); err != nil {
			return fmt.Errorf("field '%s' must be a valid UUID string: %v", fieldName, err)
		}
	default:
		return fmt.Errorf("unknown field type: %s", expectedType)
	}

	return nil
}

// validateCustomRules validates optional field rules
func (cv *ChangeSetValidator) validateCustomRules(fieldName string, value any, rules any) error {
	rulesMap, ok := rules.(map[string]any)
	if !ok {
		return fmt.Errorf("validation rules must be a map")
	}

	if minVal, exists := rulesMap["min"]; exists {
		if !cv.isGreaterThanOrEqual(value, minVal) {
			return fmt.Errorf("field '%s' value %v is less than minimum %v", fieldName, value, minVal)
		}
	}

	if maxVal, exists := rulesMap["max"]; exists {
		if !cv.isLessThanOrEqual(value, maxVal) {
			return fmt.Errorf("field '%s' value %v is greater than maximum %v", fieldName, value, maxVal)
		}
	}

	if minLen, exists := rulesMap["min_length"]; exists {
		if strVal, ok := value.(string); ok {
			if len(strVal) < toInt(minLen) {
				return fmt.Errorf("field '%s' length %d is less than minimum %v", fieldName, len(strVal), minLen)
			}
		}
	}

	if maxLen, exists := rulesMap["max_length"]; exists {
		if strVal, ok := value.(string); ok {
			if len(strVal) > toInt(maxLen) {
				return fmt.Errorf("field '%s' length %d is greater than maximum %v", fieldName, len(strVal), maxLen)
			}
		}
	}

	return nil
}

// Helper methods for type checking
func (cv *ChangeSetValidator) isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return v == float64(int64(v))
	case string:
		_, err := strconv.Atoi(v)
		return err == nil
	default:
		return false
	}
}

func (cv *ChangeSetValidator) isFloat(value any) bool {
	switch v := value.(type) {
	case float32, float64:
		return true
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case string:
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	default:
		return false
	}
}

func (cv *ChangeSetValidator) isGreaterThanOrEqual(value, min any) bool {
	left, leftOK := toFloat(value)
	right, rightOK := toFloat(min)
	return leftOK && rightOK && left >= right
}

func (cv *ChangeSetValidator) isLessThanOrEqual(value, max any) bool {
	left, leftOK := toFloat(value)
	right, rightOK := toFloat(max)
	return leftOK && rightOK && left <= right
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func toInt(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
