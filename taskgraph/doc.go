// Package taskgraph models the backend's native workflow graph: jobs,
// their logical file uses, and dependency edges, serialized as YAML.
// It is both the emitting side for compiled fragments and outer graphs
// and the reading side for graph validation.
//
// Job ids follow construction order, and dependency edges are recorded
// in insertion order, so building the same graph twice yields identical
// output. Levels orders a graph by dependency depth; ValidateOuter and
// ValidateCatalog apply the executable allowlist and logical-file rules
// hosted deployments enforce on untrusted outer graphs.
package taskgraph
