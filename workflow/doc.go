// Package workflow models the declarative workflow document: ordered
// stages keyed $1..$n, each holding either a connector (an Input plugin
// plus filter bindings and an optional Output plugin) or a single
// processor plugin.
//
// Parsing preserves document order for stages, filters, and arguments.
// Validation enforces the binding rules: every %{var} variable appears
// exactly once, is bound by exactly one filter, and never collides with
// an argument name; a binding value references at most one earlier
// stage, bare or wrapped in dir() modifiers.
//
// A validated document yields Occurrences, the typed per-plugin units a
// stage compile operates on:
//
//	doc, err := workflow.ParseFile("workflow.yml")
//	if err := doc.Validate(); err != nil { ... }
//	for _, occ := range doc.Occurrences() { ... }
package workflow
