package bridge

import "fmt"

// Operator is a relational constraint sense.
type Operator string

const (
	LessThan     Operator = "<"
	LessEqual    Operator = "<="
	GreaterThan  Operator = ">"
	GreaterEqual Operator = ">="
	Equal        Operator = "="
)

// ParseOperator accepts the relational operators a constraint may use.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(s); op {
	case LessThan, LessEqual, GreaterThan, GreaterEqual, Equal:
		return op, nil
	case "==":
		return Equal, nil
	}
	return "", fmt.Errorf("unknown constraint operator %q", s)
}

// greater reports whether the constraint is satisfied by lhs exceeding rhs.
func (op Operator) greater() bool {
	return op == GreaterThan || op == GreaterEqual
}

// Satisfied reports whether lhs op rhs holds.
func (op Operator) Satisfied(lhs, rhs float64) bool {
	switch op {
	case LessThan:
		return lhs < rhs
	case LessEqual:
		return lhs <= rhs
	case GreaterThan:
		return lhs > rhs
	case GreaterEqual:
		return lhs >= rhs
	default:
		return lhs == rhs
	}
}

type outcomeKind int

const (
	kindValue outcomeKind = iota
	kindRelation
)

// Outcome is either a plain value or a relation between two sides of a
// constraint. Build one with Value or Relation.
type Outcome struct {
	kind     outcomeKind
	value    float64
	lhs      float64
	rhs      float64
	op       Operator
	violated bool
}

// Value wraps a scalar response reading.
func Value(v float64) Outcome {
	return Outcome{kind: kindValue, value: v}
}

// Relation describes a constraint reading.
func Relation(lhs, rhs float64, op Operator, violated bool) Outcome {
	return Outcome{kind: kindRelation, lhs: lhs, rhs: rhs, op: op, violated: violated}
}

// IsRelation reports whether o came from Relation.
func (o Outcome) IsRelation() bool { return o.kind == kindRelation }

// Violated reports the constraint state carried by a relation.
func (o Outcome) Violated() bool { return o.kind == kindRelation && o.violated }

// Residual returns the number handed to the engine. For relations it is
// rhs-lhs for a greater-than sense and lhs-rhs otherwise, so zero or
// negative means satisfied.
func (o Outcome) Residual() float64 {
	if o.kind == kindValue {
		return o.value
	}
	if o.op.greater() {
		return o.rhs - o.lhs
	}
	return o.lhs - o.rhs
}

func (o Outcome) String() string {
	if o.kind == kindValue {
		return fmt.Sprintf("%g", o.value)
	}
	return fmt.Sprintf("%g %s %g", o.lhs, o.op, o.rhs)
}
