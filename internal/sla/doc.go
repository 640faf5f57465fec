// Package sla assembles the call-center SLA pipeline — load, grade, report —
// behind a single Analyzer used by the CLI, the watch loop, and the Slack
// bot.
package sla
