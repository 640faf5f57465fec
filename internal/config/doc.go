// Package config loads the YAML configuration for the callgrade binaries.
//
// Secrets are never stored in the file: the config references environment
// variable names (SLACK_BOT_TOKEN_ENV style), and values are resolved at
// use time. A .env file next to the process is loaded first, so local runs
// work without exporting anything.
package config
