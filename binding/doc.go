// Package binding expands named value lists into ordered sets of concrete
// bindings, one per combination, and encodes binding payloads for
// single-argument transport.
//
// Expansion enumerates the Cartesian product of all declared value lists
// with the last-declared list varying fastest:
//
//	vars := binding.NewCollection().Add("date", dates)
//	refs := binding.NewCollection().Add("1", stageOne)
//	combs, err := binding.Expand(vars, refs, singleValue)
//
// Per-binding artifact names index into this order, so it is part of the
// package contract and must not change.
package binding
