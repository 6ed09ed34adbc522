// Package engine is the execution controller behind the flowkit CLI.
//
// Plan turns a workflow document into a laid-out run directory: the
// document is parsed and validated, sensitive values are collected,
// the planner writes the outer graph and transformation catalog, the
// run is recorded in the store, and in production mode the run
// directory is handed to the configured submit broker.
//
// BuildStage and BuildFinal are the other direction: the outer graph's
// build jobs invoke them with positional argument vectors, and they
// bridge those vectors back into stage compiler requests. They need no
// store or broker, so they work on submit hosts that carry no flowkit
// configuration.
package engine
