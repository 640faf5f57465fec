// Package sample generates realistic call-volume CSV fixtures: one row per
// operating hour (09:00 through 02:00) with lunch and evening peaks, for
// demos and local testing.
package sample
