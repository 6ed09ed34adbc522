package util

import "strings"

// NoValue is the sentinel carried on job argument vectors when a slot has
// nothing to transmit. Builder tasks on the execution site receive every
// argument positionally, so absence must be an explicit token.
const NoValue = "None"

// JoinNames encodes a list of names as a single comma-separated argument.
// An empty list encodes as the NoValue sentinel.
func JoinNames(names []string) string {
	if len(names) == 0 {
		return NoValue
	}
	return strings.Join(names, ",")
}

// SplitNames decodes a comma-separated argument produced by JoinNames.
// The NoValue sentinel and the empty string decode as no names.
func SplitNames(encoded string) []string {
	if encoded == "" || encoded == NoValue {
		return nil
	}
	return strings.Split(encoded, ",")
}
