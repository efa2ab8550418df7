// Package queryir is the intermediate representation for queries over
// recorded trace samples.
//
// A query selects the samples of one session that satisfy a predicate tree:
//
//	[--where terms] → [Query IR] → [querysql] → SQLite
//
// The IR knows nothing about SQL. querysql compiles it to a parameterized
// statement against the samples table, and store executes it.
//
// # Predicates
//
//   - VariableIs: the sample's qualified variable name equals a string
//   - VariableMatch: the variable name matches a glob pattern (* and ?)
//   - Compare: the sample value compared to a constant
//   - SeqRange: the tick seq lies in a closed interval
//   - And, Or: conjunction and disjunction of other predicates
//
// An empty And is always true; an empty Or is rejected by Validate.
//
// # Sealed Interfaces
//
// Predicate is sealed with a marker method, so only this package's types
// implement it and compilers can switch over them exhaustively.
//
// # Filter Syntax
//
// ParseFilter reads the terms accepted by "trace query --where":
//
//	value>0.5
//	seq>=10
//	variable=L:A32NX_ELEC_AC_1_BUS_IS_POWERED
//	variable~L:A32NX_ELEC_*
//
// Comma-separated terms in one filter are joined with And.
package queryir
