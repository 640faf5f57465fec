// Package source abstracts where call-volume CSV data comes from.
//
// A Source yields one readable CSV document per Open call. FileSource reads
// a local file, HTTPSource fetches from an HTTP endpoint with optional
// auth, and SheetURL builds the CSV export endpoint for a published Google
// Sheet so a sheet can be consumed through HTTPSource without API
// credentials.
//
// Watch re-runs a callback whenever a local source file changes, for the
// CLI watch mode.
package source
