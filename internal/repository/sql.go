package repository

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rpattn/verledger/internal/domain"
)

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sortedKeys gives attribute maps a deterministic column order.
func sortedKeys(attrs map[string]any) []string {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// renderPredicate builds the WHERE clause for a predicate, appending bind
// arguments to args. The alias prefixes every column reference; an empty
// predicate renders TRUE so bulk statements stay well formed.
func renderPredicate(predicate domain.Predicate, alias string, args *[]any) (string, error) {
	if predicate.Empty() {
		return "TRUE", nil
	}

	clauses := make([]string, 0, len(predicate.Conditions))
	for _, cond := range predicate.Conditions {
		if cond.Field == "" {
			return "", fmt.Errorf("predicate condition is missing a field name")
		}
		column := quoteIdent(cond.Field)
		if alias != "" {
			column = alias + "." + column
		}

		switch cond.Op {
		case domain.ConditionOpEq:
			*args = append(*args, cond.Value)
			clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(*args)))
		case domain.ConditionOpIn:
			if len(cond.Values) == 0 {
				// IN over the empty set matches nothing.
				clauses = append(clauses, "FALSE")
				continue
			}
			placeholders := make([]string, 0, len(cond.Values))
			for _, value := range cond.Values {
				*args = append(*args, value)
				placeholders = append(placeholders, fmt.Sprintf("$%d", len(*args)))
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
		case domain.ConditionOpIsNull:
			clauses = append(clauses, fmt.Sprintf("%s IS NULL", column))
		case domain.ConditionOpNotNull:
			clauses = append(clauses, fmt.Sprintf("%s IS NOT NULL", column))
		default:
			return "", fmt.Errorf("unsupported predicate operator %q", cond.Op)
		}
	}

	return strings.Join(clauses, " AND "), nil
}
