package slackbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/callgrade/callgrade/internal/config"
	"github.com/callgrade/callgrade/internal/pipeline"
)

const (
	defaultAPIURL = "https://slack.com/api"

	// apiTimeout bounds one Slack Web API call.
	apiTimeout = 10 * time.Second

	// pongWait is how long to wait for traffic before treating the socket
	// as dead; Slack pings well inside this window.
	pongWait = 60 * time.Second

	// writeTimeout is the deadline for a single write to the socket.
	writeTimeout = 10 * time.Second

	// reconnectDelay spaces out reconnect attempts after a dropped socket.
	reconnectDelay = 3 * time.Second
)

// mentionRE strips leading <@U…> bot mentions from event text.
var mentionRE = regexp.MustCompile(`<@[A-Z0-9]+>`)

// Runner produces a run result for a scenario annotation. The SLA analyzer
// satisfies it.
type Runner interface {
	Run(ctx context.Context, scenario string) pipeline.Result
}

// Bot is a Slack Socket Mode client bound to one Runner.
type Bot struct {
	botToken string
	appToken string
	channel  string // destination channel; empty means reply in place
	runner   Runner

	// APIURL overrides the Slack Web API base, for tests.
	APIURL string
	// Dialer overrides the websocket dialer, for tests.
	Dialer *websocket.Dialer

	client *http.Client
}

// New builds a Bot from the Slack section of the config.
func New(cfg config.SlackConfig, runner Runner) *Bot {
	return &Bot{
		botToken: cfg.BotToken(),
		appToken: cfg.AppToken(),
		channel:  cfg.Channel,
		runner:   runner,
		APIURL:   defaultAPIURL,
		Dialer:   websocket.DefaultDialer,
		client:   &http.Client{Timeout: apiTimeout},
	}
}

// Run opens the Socket Mode connection and serves events until ctx is
// cancelled. Dropped connections are reopened; only a failure to obtain a
// socket URL (bad app token) is fatal.
func (b *Bot) Run(ctx context.Context) error {
	if b.appToken == "" || b.botToken == "" {
		return fmt.Errorf("slackbot: bot and app tokens are required")
	}

	for {
		wsURL, err := b.connectionsOpen(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("slackbot: open socket mode connection: %w", err)
		}

		if err := b.serve(ctx, wsURL); err != nil {
			slog.Warn("slackbot: connection lost — reconnecting", "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

// envelope is the Socket Mode frame wrapping every event.
type envelope struct {
	EnvelopeID string          `json:"envelope_id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
}

// eventsPayload carries Events API payloads (app_mention, message).
type eventsPayload struct {
	Event struct {
		Type    string `json:"type"`
		Text    string `json:"text"`
		Channel string `json:"channel"`
		BotID   string `json:"bot_id"`
	} `json:"event"`
}

// slashPayload carries slash command payloads.
type slashPayload struct {
	Command   string `json:"command"`
	Text      string `json:"text"`
	ChannelID string `json:"channel_id"`
}

// serve reads envelopes from one socket until it closes or Slack asks for a
// reconnect. Acks and event handling happen on this goroutine — the socket
// has a single writer.
func (b *Bot) serve(ctx context.Context, wsURL string) error {
	conn, _, err := b.Dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// Close the socket when ctx ends so the read below unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteMessage(websocket.PongMessage, []byte(data))
	})

	slog.Info("slackbot: socket mode connected")

	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if env.EnvelopeID != "" {
			ack := map[string]string{"envelope_id": env.EnvelopeID}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ack); err != nil {
				return fmt.Errorf("ack: %w", err)
			}
		}

		switch env.Type {
		case "hello":
			slog.Debug("slackbot: hello received")

		case "disconnect":
			slog.Info("slackbot: disconnect requested by slack")
			return nil

		case "events_api":
			var p eventsPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				slog.Warn("slackbot: bad events payload", "err", err)
				continue
			}
			// Ignore the bot's own messages, or mentions loop forever.
			if p.Event.BotID != "" {
				continue
			}
			if p.Event.Type != "app_mention" {
				continue
			}
			b.handle(ctx, p.Event.Channel, p.Event.Text)

		case "slash_commands":
			var p slashPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				slog.Warn("slackbot: bad slash payload", "err", err)
				continue
			}
			b.handle(ctx, p.ChannelID, p.Text)
		}
	}
}

// handle runs the analyzer with the request text as the scenario annotation
// and posts the rendered report.
func (b *Bot) handle(ctx context.Context, eventChannel, text string) {
	scenario := strings.TrimSpace(mentionRE.ReplaceAllString(text, ""))
	slog.Info("slackbot: report requested", "scenario_len", len(scenario))

	res := b.runner.Run(ctx, scenario)

	target := b.channel
	if target == "" {
		target = eventChannel
	}

	body := res.Report
	if body == "" {
		body = "SLA run failed: " + res.Error
	}
	if err := b.postMessage(ctx, target, body); err != nil {
		slog.Error("slackbot: post report failed", "channel", target, "err", err)
	}
}

// connectionsOpen exchanges the app-level token for a Socket Mode URL.
func (b *Bot) connectionsOpen(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.APIURL+"/apps.connections.open", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+b.appToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		OK    bool   `json:"ok"`
		URL   string `json:"url"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !out.OK {
		return "", fmt.Errorf("slack api error: %s", out.Error)
	}
	return out.URL, nil
}

// postMessage sends text to a channel via chat.postMessage.
func (b *Bot) postMessage(ctx context.Context, channel, text string) error {
	payload, _ := json.Marshal(map[string]string{
		"channel": channel,
		"text":    text,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.APIURL+"/chat.postMessage", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+b.botToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("slack api error: %s", out.Error)
	}
	return nil
}
