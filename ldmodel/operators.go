package ldmodel

// Operator identifies the comparison performed by a clause.
type Operator string

// Name returns the string value of the operator, which is how it appears in JSON.
func (op Operator) Name() string {
	return string(op)
}

const (
	// OperatorIn matches a user value against any of the clause values with strict
	// equality (also comparing types, so the number 99 does not match the string "99").
	OperatorIn Operator = "in"
	// OperatorEndsWith matches a string user value that ends with the clause value.
	OperatorEndsWith Operator = "endsWith"
	// OperatorStartsWith matches a string user value that starts with the clause value.
	OperatorStartsWith Operator = "startsWith"
	// OperatorMatches matches a string user value against a clause value interpreted
	// as a regular expression.
	OperatorMatches Operator = "matches"
	// OperatorContains matches a string user value that contains the clause value.
	OperatorContains Operator = "contains"
	// OperatorLessThan matches a numeric user value that is less than the clause value.
	OperatorLessThan Operator = "lessThan"
	// OperatorLessThanOrEqual matches a numeric user value that is less than or equal
	// to the clause value.
	OperatorLessThanOrEqual Operator = "lessThanOrEqual"
	// OperatorGreaterThan matches a numeric user value that is greater than the
	// clause value.
	OperatorGreaterThan Operator = "greaterThan"
	// OperatorGreaterThanOrEqual matches a numeric user value that is greater than or
	// equal to the clause value.
	OperatorGreaterThanOrEqual Operator = "greaterThanOrEqual"
	// OperatorBefore matches a user value that is a timestamp earlier than the clause
	// value. Timestamps may be RFC3339 strings or numbers of milliseconds since epoch.
	OperatorBefore Operator = "before"
	// OperatorAfter matches a user value that is a timestamp later than the clause value.
	OperatorAfter Operator = "after"
	// OperatorSegmentMatch matches a user who is a member of any segment whose key is
	// among the clause values. This operator is resolved by the evaluator, since it
	// requires a segment lookup; the matching functions in this package treat it as a
	// non-match.
	OperatorSegmentMatch Operator = "segmentMatch"
	// OperatorSemVerEqual matches a user value equal to the clause value, where both
	// are semantic version strings. Missing minor and patch components are tolerated,
	// so "2" is equivalent to "2.0.0".
	OperatorSemVerEqual Operator = "semVerEqual"
	// OperatorSemVerLessThan matches a semantic version user value less than the
	// clause value.
	OperatorSemVerLessThan Operator = "semVerLessThan"
	// OperatorSemVerGreaterThan matches a semantic version user value greater than
	// the clause value.
	OperatorSemVerGreaterThan Operator = "semVerGreaterThan"
)
