package domain

// ConditionOp enumerates the comparison operators a bulk predicate supports.
// This is deliberately not a query builder; bulk operations only need
// equality-class filtering.
type ConditionOp string

const (
	ConditionOpEq      ConditionOp = "eq"
	ConditionOpIn      ConditionOp = "in"
	ConditionOpIsNull  ConditionOp = "is_null"
	ConditionOpNotNull ConditionOp = "not_null"
)

// Condition is a single field comparison inside a predicate.
type Condition struct {
	Field  string
	Op     ConditionOp
	Value  any
	Values []any
}

// Predicate is a conjunction of conditions selecting the rows a bulk
// operation applies to. An empty predicate matches every row.
type Predicate struct {
	Conditions []Condition
}

// Where starts a predicate with one equality condition.
func Where(field string, value any) Predicate {
	return Predicate{}.And(field, value)
}

// And appends an equality condition.
func (p Predicate) And(field string, value any) Predicate {
	return p.append(Condition{Field: field, Op: ConditionOpEq, Value: value})
}

// AndIn appends a set-membership condition.
func (p Predicate) AndIn(field string, values ...any) Predicate {
	return p.append(Condition{Field: field, Op: ConditionOpIn, Values: append([]any(nil), values...)})
}

// AndIsNull appends an IS NULL condition.
func (p Predicate) AndIsNull(field string) Predicate {
	return p.append(Condition{Field: field, Op: ConditionOpIsNull})
}

// AndNotNull appends an IS NOT NULL condition.
func (p Predicate) AndNotNull(field string) Predicate {
	return p.append(Condition{Field: field, Op: ConditionOpNotNull})
}

// Empty reports whether the predicate places no restriction on matched rows.
func (p Predicate) Empty() bool {
	return len(p.Conditions) == 0
}

func (p Predicate) append(cond Condition) Predicate {
	next := Predicate{Conditions: make([]Condition, 0, len(p.Conditions)+1)}
	next.Conditions = append(next.Conditions, p.Conditions...)
	next.Conditions = append(next.Conditions, cond)
	return next
}
