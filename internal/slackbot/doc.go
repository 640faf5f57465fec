// Package slackbot runs the Slack Socket Mode front-end: it opens a Socket
// Mode connection with the app-level token, acknowledges incoming event
// envelopes, and answers mentions and /slareport commands by running the SLA
// analyzer and posting the rendered report back with the bot token.
//
// The mention or command text becomes the run's scenario annotation, so a
// caller can attach context ("heavy snow expected, 20 agents on shift") that
// is echoed verbatim in the report.
package slackbot
