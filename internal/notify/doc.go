// Package notify delivers finished SLA reports to webhook targets: Slack
// incoming webhooks, Teams message cards, or a generic HTTP JSON endpoint.
// Delivery failures are logged and never fail the run.
package notify
