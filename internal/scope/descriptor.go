package scope

// Contract tags the argument shape a scope accepts. Callers can inspect it
// before invoking instead of trial-and-erroring the Build call.
type Contract int

const (
	// ContractPositional takes exactly one positional value.
	ContractPositional Contract = iota

	// ContractPositionalPair takes two positional values (path + expected
	// value, or text + optional threshold).
	ContractPositionalPair

	// ContractNamed takes a single map argument whose keys must cover
	// every required key.
	ContractNamed

	// ContractOptionalPositional takes zero arguments, or one positional
	// value. Blank values degrade to zero-argument behavior.
	ContractOptionalPositional

	// ContractOptionalNamed takes zero arguments, or a map covering every
	// required key — partial key sets are rejected.
	ContractOptionalNamed
)

func (c Contract) String() string {
	switch c {
	case ContractPositional:
		return "positional"
	case ContractPositionalPair:
		return "positional_pair"
	case ContractNamed:
		return "named"
	case ContractOptionalPositional:
		return "optional_positional"
	case ContractOptionalNamed:
		return "optional_named"
	default:
		return "unknown"
	}
}

// QueryDescriptor is one generated, invocable query constructor. Immutable
// once registered; invoking Build never mutates it.
type QueryDescriptor struct {
	// Name is the registry key, e.g. "by_account_id_and_email".
	Name string

	// Contract is the argument shape Build expects.
	Contract Contract

	// RequiredKeys lists the named keys for the named contracts,
	// in index column order.
	RequiredKeys []string

	// Template documents the operator pattern the scope applies,
	// e.g. "metadata @> $1::jsonb".
	Template string

	// Predicate is the partial-index condition applied unconditionally
	// by every invocation. Empty for total indexes.
	Predicate string

	// Index is the name of the physical index this scope was derived from.
	Index string

	build func(args ...any) (Filter, error)
}

// Build invokes the scope with the given arguments and returns the
// composable filter, or a contract violation error.
func (d *QueryDescriptor) Build(args ...any) (Filter, error) {
	return d.build(args...)
}
