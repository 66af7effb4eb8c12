// Package schema defines the descriptor tree the engine resolves: a tagged
// union of Leaf nodes, each bound to one dot-path of the shared data object,
// and Layout nodes that only arrange children. Predicates receive the whole
// data object plus a read-only payload so rules can depend on other fields or
// on caller context such as roles or feature flags.
package schema
