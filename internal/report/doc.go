// Package report renders the final run state into human-readable text.
//
// The generator takes its clock by injection, so identical state and
// identical time always produce byte-identical output. A run that failed
// upstream gets a short failure report instead of numbers that were never
// computed.
package report
