package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Priya8975/chatlog-relay/internal/domain"
	"github.com/Priya8975/chatlog-relay/internal/webhook"
	ws "github.com/Priya8975/chatlog-relay/internal/websocket"
)

var (
	testHookID    = "123456789012345678"
	testHookToken = strings.Repeat("tok3n", 13)
)

type recordingHub struct {
	mu     sync.Mutex
	events []ws.RelayEvent
}

func (h *recordingHub) Broadcast(event ws.RelayEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHub) last() ws.RelayEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.events[len(h.events)-1]
}

type failingExecutor struct{ err error }

func (f failingExecutor) Execute(context.Context, string, *discordgo.WebhookParams) error {
	return f.err
}

type panickingExecutor struct{}

func (panickingExecutor) Execute(context.Context, string, *discordgo.WebhookParams) error {
	panic("boom")
}

// setupDeliveryTest returns a deliverer posting to srv and the buffer its
// logger writes to.
func setupDeliveryTest(t *testing.T, srv *httptest.Server, exec Executor) (*Deliverer, *bytes.Buffer, *recordingHub) {
	t.Helper()

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	hosts := []string{"discord.com"}
	if srv != nil {
		u, _ := url.Parse(srv.URL)
		hosts = append(hosts, u.Hostname())
	}
	parser := webhook.NewParser(hosts)
	if exec == nil {
		exec = webhook.NewClient(parser, 2*time.Second)
	}

	hub := &recordingHub{}
	d := NewDeliverer(exec, webhook.NewCardBuilder(1), logger, DelivererOptions{
		Redact: parser.Redact,
		Hub:    hub,
	})
	return d, &logs, hub
}

func testJob(webhookURL string) domain.DeliveryJob {
	return domain.DeliveryJob{
		ID: "dlv-1",
		Entry: domain.RoutingEntry{
			SourceChannelID: "chan-1",
			LogChannelID:    "log-1",
			WebhookURL:      webhookURL,
		},
		Message: domain.InboundMessage{
			AuthorID:   "42",
			AuthorName: "alice",
			ChannelID:  "chan-1",
			Content:    "hello",
			CreatedAt:  time.Now(),
		},
	}
}

func TestDelivery_SuccessfulEndpoint(t *testing.T) {
	var receivedCount atomic.Int32
	var body []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedCount.Add(1)
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"id": "1"})
	}))
	defer server.Close()

	d, logs, hub := setupDeliveryTest(t, server, nil)
	d.Deliver(context.Background(), testJob(server.URL+"/api/webhooks/"+testHookID+"/"+testHookToken))

	if receivedCount.Load() != 1 {
		t.Fatalf("expected exactly 1 delivery attempt, got %d", receivedCount.Load())
	}
	var params discordgo.WebhookParams
	if err := json.Unmarshal(body, &params); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if len(params.Embeds) != 1 || !strings.Contains(params.Embeds[0].Description, "hello") {
		t.Errorf("card should carry the message, got %s", body)
	}
	if params.Username != "alice" {
		t.Errorf("sender should be overridden to the author, got %q", params.Username)
	}
	if strings.Contains(logs.String(), `"level":"ERROR"`) {
		t.Errorf("unexpected error log: %s", logs.String())
	}
	if ev := hub.last(); ev.Type != ws.EventDelivered || ev.DeliveryID != "dlv-1" {
		t.Errorf("unexpected relay event %+v", ev)
	}
}

func TestDelivery_FailuresAreLoggedNotRaised(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"invalid", domain.NewError(domain.InvalidEndpoint, "parse", domain.ErrInvalidEndpoint), "invalid webhook"},
		{"network", domain.NewError(domain.NetworkFailure, "POST webhook", errors.New("connection refused")), "network error sending webhook"},
		{"unexpected", errors.New("boom"), "unexpected error sending webhook"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, logs, hub := setupDeliveryTest(t, nil, failingExecutor{err: tt.err})

			d.Deliver(context.Background(), testJob("https://discord.com/api/webhooks/"+testHookID+"/"+testHookToken))

			out := logs.String()
			if !strings.Contains(out, tt.message) {
				t.Errorf("expected %q in logs, got %s", tt.message, out)
			}
			if !strings.Contains(out, `"channel_id":"chan-1"`) {
				t.Errorf("expected channel id in logs, got %s", out)
			}
			if strings.Contains(out, testHookToken) {
				t.Errorf("logs must not leak the webhook token: %s", out)
			}
			if ev := hub.last(); ev.Type != ws.EventFailed || ev.Kind != domain.KindOf(tt.err).String() {
				t.Errorf("unexpected relay event %+v", ev)
			}
		})
	}
}

func TestDelivery_NetworkFailureAgainstClosedServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL + "/api/webhooks/" + testHookID + "/" + testHookToken
	d, logs, _ := setupDeliveryTest(t, server, nil)
	server.Close()

	d.Deliver(context.Background(), testJob(target))

	if !strings.Contains(logs.String(), "network error sending webhook") {
		t.Errorf("expected network error log, got %s", logs.String())
	}
}

func TestDelivery_RecoversPanics(t *testing.T) {
	d, logs, _ := setupDeliveryTest(t, nil, panickingExecutor{})

	d.Deliver(context.Background(), testJob("https://discord.com/api/webhooks/"+testHookID+"/"+testHookToken))

	if !strings.Contains(logs.String(), "unexpected error sending webhook") {
		t.Errorf("expected unexpected error log, got %s", logs.String())
	}
}

func TestDelivery_DoesNotMutateEntry(t *testing.T) {
	d, _, _ := setupDeliveryTest(t, nil, failingExecutor{err: errors.New("x")})
	job := testJob("https://discord.com/api/webhooks/" + testHookID + "/" + testHookToken)
	before := job.Entry

	d.Deliver(context.Background(), job)

	if job.Entry != before {
		t.Errorf("entry changed: %+v -> %+v", before, job.Entry)
	}
}
