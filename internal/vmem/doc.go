// Package vmem provides platform-specific helpers for reserving the address
// space behind an emulated program break.
//
// On unix the reservation is an anonymous private mapping and released pages
// are handed back with madvise. Elsewhere a Go byte slice stands in for the
// mapping and Discard simply zeroes the range.
package vmem
