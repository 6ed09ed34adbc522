// Package util provides the name-list codec used on job argument
// vectors: comma-separated names with an explicit sentinel for empty
// slots.
package util
