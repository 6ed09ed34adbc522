// Package planner lays out runs and builds their outer task graphs.
//
// A planned run gets an epoch-second id, a local run directory holding
// the document copy, outer graph, and transformation catalog, and a
// shared job directory path on the execution target. The outer graph
// interleaves directory and key setup, per-occurrence local build jobs,
// and the subworkflows executing their fragments, with stages chained
// through their leaf subworkflows.
package planner
