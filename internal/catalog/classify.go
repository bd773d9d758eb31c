package catalog

import "strings"

// Class is the operator-semantics family a GIN/GiST index falls into.
// Exactly one applies per index, chosen by the ordered rule table below.
type Class int

const (
	ClassStandard Class = iota // plain equality semantics
	ClassJSONB                 // containment / key-existence / path extraction
	ClassFullText              // text-search match over a tsvector expression
	ClassTrigram               // similarity search on a raw text column
)

func (c Class) String() string {
	switch c {
	case ClassJSONB:
		return "jsonb"
	case ClassFullText:
		return "fulltext"
	case ClassTrigram:
		return "trigram"
	default:
		return "standard"
	}
}

// Tags is the classification result for one IndexDescriptor.
type Tags struct {
	Composite    bool
	SingleColumn bool
	Partial      bool

	// Expression is true when any column entry is an expression rather
	// than a plain column name; ExpressionText holds the first such entry.
	Expression     bool
	ExpressionText string

	Class Class
}

// ginRules is the ordered classification cascade for GIN indexes. Order is
// the precedence: jsonb beats fulltext beats trigram; anything unmatched
// stays standard. GiST indexes always fall through to standard — spatial
// classification would slot in here.
var ginRules = []struct {
	class Class
	match func(d IndexDescriptor) bool
}{
	{ClassJSONB, isJSONB},
	{ClassFullText, isFullText},
	{ClassTrigram, isTrigram},
}

// Classify derives the categorical tags for an index. It is a pure
// function: same descriptor in, same tags out.
func Classify(d IndexDescriptor) Tags {
	t := Tags{
		Composite:    len(d.Columns) > 1,
		SingleColumn: len(d.Columns) == 1,
		Partial:      d.Predicate != "",
		Class:        ClassStandard,
	}

	for _, col := range d.Columns {
		if isExpression(col) {
			t.Expression = true
			t.ExpressionText = col
			break
		}
	}

	if d.AccessMethod == "gin" {
		for _, rule := range ginRules {
			if rule.match(d) {
				t.Class = rule.class
				break
			}
		}
	}

	return t
}

// isExpression reports whether a column entry carries function-call or
// cast syntax instead of a bare column name.
func isExpression(col string) bool {
	return strings.Contains(col, "(") || strings.Contains(col, "::")
}

func isJSONB(d IndexDescriptor) bool {
	if d.OperatorClasses["jsonb_ops"] || d.OperatorClasses["jsonb_path_ops"] {
		return true
	}
	if len(d.Columns) == 1 {
		return d.ColumnTypes[d.Columns[0]] == "jsonb"
	}
	return false
}

func isFullText(d IndexDescriptor) bool {
	if strings.Contains(d.Definition, "to_tsvector(") {
		return true
	}
	for _, col := range d.Columns {
		if strings.Contains(col, "to_tsvector(") {
			return true
		}
	}
	return false
}

func isTrigram(d IndexDescriptor) bool {
	return d.OperatorClasses["gin_trgm_ops"] || d.OperatorClasses["gist_trgm_ops"]
}
