package slackbot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/callgrade/callgrade/internal/config"
	"github.com/callgrade/callgrade/internal/grade"
	"github.com/callgrade/callgrade/internal/pipeline"
)

// fakeRunner records the scenario it was invoked with.
type fakeRunner struct {
	mu       sync.Mutex
	scenario string
	result   pipeline.Result
}

func (f *fakeRunner) Run(ctx context.Context, scenario string) pipeline.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scenario = scenario
	return f.result
}

func (f *fakeRunner) lastScenario() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scenario
}

// fakeSlack emulates the two Web API endpoints and one Socket Mode socket.
type fakeSlack struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu        sync.Mutex
	conns     int
	acks      []string
	posted    chan map[string]string
	envelopes []any // frames the first socket connection sends, in order
}

func newFakeSlack(t *testing.T, envelopes []any) *fakeSlack {
	f := &fakeSlack{
		t:         t,
		posted:    make(chan map[string]string, 4),
		envelopes: envelopes,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/apps.connections.open", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer xapp-test" {
			t.Errorf("connections.open auth = %q", got)
		}
		wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "url": wsURL})
	})
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer xoxb-test" {
			t.Errorf("postMessage auth = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var msg map[string]string
		json.Unmarshal(body, &msg)
		f.posted <- msg
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	mux.HandleFunc("/ws", f.serveWS)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSlack) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	f.mu.Lock()
	f.conns++
	first := f.conns == 1
	f.mu.Unlock()

	if !first {
		// Later reconnects idle until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}

	for _, env := range f.envelopes {
		if err := conn.WriteJSON(env); err != nil {
			return
		}
		// Collect the ack for frames that carry an envelope_id.
		if m, ok := env.(map[string]any); ok && m["envelope_id"] != nil {
			var ack map[string]string
			if err := conn.ReadJSON(&ack); err != nil {
				return
			}
			f.mu.Lock()
			f.acks = append(f.acks, ack["envelope_id"])
			f.mu.Unlock()
		}
	}
	// Hold the socket open; the client exits via the disconnect frame or ctx.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func newBot(t *testing.T, f *fakeSlack, runner Runner, channel string) *Bot {
	t.Setenv("TEST_SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("TEST_SLACK_APP_TOKEN", "xapp-test")
	b := New(config.SlackConfig{
		BotTokenEnv: "TEST_SLACK_BOT_TOKEN",
		AppTokenEnv: "TEST_SLACK_APP_TOKEN",
		Channel:     channel,
	}, runner)
	b.APIURL = f.srv.URL
	return b
}

func TestRun_MentionTriggersReport(t *testing.T) {
	mention := map[string]any{
		"envelope_id": "env-1",
		"type":        "events_api",
		"payload": map[string]any{
			"event": map[string]any{
				"type":    "app_mention",
				"text":    "<@U0BOT> heavy snow expected tonight",
				"channel": "C0SOURCE",
			},
		},
	}
	f := newFakeSlack(t, []any{
		map[string]any{"type": "hello"},
		mention,
	})

	runner := &fakeRunner{result: pipeline.Result{
		Success: true,
		Report:  "# Call Center SLA Report\n\nfine",
		Grade:   grade.S,
	}}
	bot := newBot(t, f, runner, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	select {
	case msg := <-f.posted:
		if msg["channel"] != "C0SOURCE" {
			t.Errorf("posted to %q, want C0SOURCE", msg["channel"])
		}
		if !strings.Contains(msg["text"], "Call Center SLA Report") {
			t.Errorf("posted text = %q", msg["text"])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message posted")
	}

	if got := runner.lastScenario(); got != "heavy snow expected tonight" {
		t.Errorf("scenario = %q (mention must be stripped)", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.acks) != 1 || f.acks[0] != "env-1" {
		t.Errorf("acks = %v", f.acks)
	}
}

func TestRun_SlashCommandPostsToConfiguredChannel(t *testing.T) {
	slash := map[string]any{
		"envelope_id": "env-2",
		"type":        "slash_commands",
		"payload": map[string]any{
			"command":    "/slareport",
			"text":       "budget review tomorrow",
			"channel_id": "C0WHERETYPED",
		},
	}
	f := newFakeSlack(t, []any{slash})

	runner := &fakeRunner{result: pipeline.Result{Success: true, Report: "report body"}}
	bot := newBot(t, f, runner, "C0TARGET")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bot.Run(ctx)

	select {
	case msg := <-f.posted:
		if msg["channel"] != "C0TARGET" {
			t.Errorf("posted to %q, want the configured channel", msg["channel"])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message posted")
	}

	if got := runner.lastScenario(); got != "budget review tomorrow" {
		t.Errorf("scenario = %q", got)
	}
}

func TestRun_IgnoresBotEcho(t *testing.T) {
	echo := map[string]any{
		"envelope_id": "env-3",
		"type":        "events_api",
		"payload": map[string]any{
			"event": map[string]any{
				"type":    "app_mention",
				"text":    "<@U0BOT> report",
				"channel": "C1",
				"bot_id":  "B0SELF",
			},
		},
	}
	f := newFakeSlack(t, []any{echo})

	runner := &fakeRunner{result: pipeline.Result{Success: true, Report: "x"}}
	bot := newBot(t, f, runner, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bot.Run(ctx)

	select {
	case msg := <-f.posted:
		t.Errorf("bot answered its own message: %v", msg)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestRun_FailedRunPostsError(t *testing.T) {
	mention := map[string]any{
		"envelope_id": "env-4",
		"type":        "events_api",
		"payload": map[string]any{
			"event": map[string]any{
				"type":    "app_mention",
				"text":    "<@U0BOT>",
				"channel": "C1",
			},
		},
	}
	f := newFakeSlack(t, []any{mention})

	runner := &fakeRunner{result: pipeline.Result{
		Success: false,
		Error:   "cannot read source calls.csv",
		Report:  "# Call Center SLA Report\n\nReport unavailable: cannot read source calls.csv\n",
	}}
	bot := newBot(t, f, runner, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bot.Run(ctx)

	select {
	case msg := <-f.posted:
		if !strings.Contains(msg["text"], "cannot read source") {
			t.Errorf("text = %q", msg["text"])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message posted")
	}
}

func TestRun_RequiresTokens(t *testing.T) {
	bot := New(config.SlackConfig{}, &fakeRunner{})
	if err := bot.Run(context.Background()); err == nil {
		t.Fatal("Run must fail without tokens")
	}
}

func TestRun_BadAppToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "invalid_auth"})
	}))
	defer srv.Close()

	t.Setenv("TEST_SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("TEST_SLACK_APP_TOKEN", "xapp-bad")
	bot := New(config.SlackConfig{
		BotTokenEnv: "TEST_SLACK_BOT_TOKEN",
		AppTokenEnv: "TEST_SLACK_APP_TOKEN",
	}, &fakeRunner{})
	bot.APIURL = srv.URL

	err := bot.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid_auth") {
		t.Errorf("Run error = %v", err)
	}
}
