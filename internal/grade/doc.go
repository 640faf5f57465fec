// Package grade classifies call-center response rates into discrete SLA
// grades and compares grades against a target.
//
// The threshold table is the single source of truth: both classification
// (FromRate) and goal comparison (GoalMet) read from it — no other package
// hard-codes grade boundaries.
//
// Grade boundaries (inclusive lower bounds): S ≥95, A ≥90, B ≥80, C ≥70,
// everything else D. Unknown grade symbols rank below D.
package grade
