// Package loader implements the ingestion stage of the SLA pipeline: it
// reads a call-volume CSV from a source, validates it, aggregates the
// incoming and answered totals, derives the response rate, and classifies
// it into a grade.
//
// Every failure — unreadable source, empty data, missing columns, zero
// incoming total — is converted into pipeline error fields at the stage
// boundary. Nothing escapes as a panic, so a failed load still produces a
// structured run result downstream.
package loader
