package validator

import (
	"strings"
	"testing"

	"github.com/rpattn/verledger/internal/domain"
)

func companyDefinitions() map[string]FieldDefinition {
	return map[string]FieldDefinition{
		"name":       {Type: FieldTypeString, Required: true, Validation: map[string]any{"min_length": 1, "max_length": 80}},
		"city":       {Type: FieldTypeString},
		"employees":  {Type: FieldTypeInteger, Validation: map[string]any{"min": 0}},
		"founded_at": {Type: FieldTypeTimestamp},
		"owner_id":   {Type: FieldTypeUUID},
		"active":     {Type: FieldTypeBoolean},
	}
}

func fieldMessages(cs domain.ChangeSet, field string) []string {
	var messages []string
	for _, fieldErr := range cs.Errors {
		if fieldErr.Field == field {
			messages = append(messages, fieldErr.Message)
		}
	}
	return messages
}

func TestValidateAcceptsWellTypedChanges(t *testing.T) {
	cs := domain.NewChangeSet("companies", "Company", map[string]any{"id": int64(1), "name": "Acme LLC"}).
		WithChanges(map[string]any{
			"city":       "Greenwich",
			"employees":  12,
			"founded_at": "2019-06-01T00:00:00Z",
			"owner_id":   "2f8a1a70-5f1e-4f54-9c2f-cc6f2d9b9a11",
			"active":     true,
		})

	validated := NewChangeSetValidator().Validate(cs, companyDefinitions())
	if !validated.Valid() {
		t.Fatalf("expected valid changeset, got errors: %v", validated.Errors)
	}
}

func TestValidateMissingRequiredField(t *testing.T) {
	cs := domain.NewChangeSet("companies", "Company", nil).Change("city", "Greenwich")

	validated := NewChangeSetValidator().Validate(cs, companyDefinitions())
	if validated.Valid() {
		t.Fatal("expected invalid changeset")
	}
	if msgs := fieldMessages(validated, "name"); len(msgs) != 1 || !strings.Contains(msgs[0], "required") {
		t.Errorf("unexpected name errors: %v", msgs)
	}
}

func TestValidateTypeMismatches(t *testing.T) {
	cs := domain.NewChangeSet("companies", "Company", map[string]any{"name": "Acme LLC"}).
		WithChanges(map[string]any{
			"employees":  "a dozen",
			"active":     "yes",
			"founded_at": "last tuesday",
			"owner_id":   "not-a-uuid",
		})

	validated := NewChangeSetValidator().Validate(cs, companyDefinitions())
	for _, field := range []string{"employees", "active", "founded_at", "owner_id"} {
		if len(fieldMessages(validated, field)) == 0 {
			t.Errorf("expected an error on %s", field)
		}
	}
}

func TestValidateIntegerAcceptsWholeFloat(t *testing.T) {
	// JSON decoding hands integers back as float64.
	cs := domain.NewChangeSet("companies", "Company", map[string]any{"name": "Acme LLC"}).
		Change("employees", float64(12))

	validated := NewChangeSetValidator().Validate(cs, companyDefinitions())
	if !validated.Valid() {
		t.Fatalf("whole float should pass integer check, got %v", validated.Errors)
	}

	cs = domain.NewChangeSet("companies", "Company", map[string]any{"name": "Acme LLC"}).
		Change("employees", float64(12.5))
	validated = NewChangeSetValidator().Validate(cs, companyDefinitions())
	if validated.Valid() {
		t.Fatal("fractional float should fail integer check")
	}
}

func TestValidateCustomRules(t *testing.T) {
	cs := domain.NewChangeSet("companies", "Company", map[string]any{"name": "Acme LLC"}).
		Change("employees", -3)

	validated := NewChangeSetValidator().Validate(cs, companyDefinitions())
	if msgs := fieldMessages(validated, "employees"); len(msgs) != 1 || !strings.Contains(msgs[0], "minimum") {
		t.Errorf("unexpected employees errors: %v", msgs)
	}

	cs = domain.NewChangeSet("companies", "Company", nil).
		Change("name", strings.Repeat("x", 81))
	validated = NewChangeSetValidator().Validate(cs, companyDefinitions())
	if msgs := fieldMessages(validated, "name"); len(msgs) != 1 || !strings.Contains(msgs[0], "maximum") {
		t.Errorf("unexpected name errors: %v", msgs)
	}
}

func TestValidateRejectsUndefinedFields(t *testing.T) {
	cs := domain.NewChangeSet("companies", "Company", map[string]any{"name": "Acme LLC"}).
		Change("favourite_colour", "teal")

	validated := NewChangeSetValidator().Validate(cs, companyDefinitions())
	if msgs := fieldMessages(validated, "favourite_colour"); len(msgs) != 1 || !strings.Contains(msgs[0], "not defined") {
		t.Errorf("unexpected errors: %v", msgs)
	}
}

func TestValidateIsCaseInsensitiveOnType(t *testing.T) {
	defs := map[string]FieldDefinition{"city": {Type: FieldType("string")}}
	cs := domain.NewChangeSet("companies", "Company", nil).Change("city", "Greenwich")

	validated := NewChangeSetValidator().Validate(cs, defs)
	if !validated.Valid() {
		t.Fatalf("lowercase type name should validate, got %v", validated.Errors)
	}
}
