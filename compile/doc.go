// Package compile turns validated plugin occurrences into executable
// task-graph fragments.
//
// A Session scopes one build process: it holds the logger, optional
// metrics, and the public key handle, opened once and reused across
// stages. CompileStage resolves the occurrence's value lists from
// result manifests, expands them into bindings, protects sensitive
// values, resolves local files, emits one task node per binding plus a
// single aggregation node, and writes the fragment. Any failure along
// the way leaves no fragment file behind.
package compile
