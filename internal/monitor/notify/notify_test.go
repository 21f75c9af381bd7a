package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func TestWebhookChannel_SendsTextPayload(t *testing.T) {
	var received webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	if err := channel.Send(context.Background(), "washer: active too long"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if received.MsgType != "text" {
		t.Fatalf("expected msgtype text, got %q", received.MsgType)
	}
	if received.Text.Content != "washer: active too long" {
		t.Fatalf("unexpected content %q", received.Text.Content)
	}
}

func TestWebhookChannel_Non2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	if err := channel.Send(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error on 502 response")
	}
}

func TestNewWebhookChannel_EmptyURL(t *testing.T) {
	if _, err := NewWebhookChannel(""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestTemplate_Default(t *testing.T) {
	tpl, err := NewTemplate("")
	if err != nil {
		t.Fatalf("new template: %v", err)
	}
	content, err := tpl.Render(TemplateData{Entity: "washer", Message: "active too long: 14.0m > 13.4m", Time: "2026-03-01T12:14:00Z"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "[Device Alert]\nwasher: active too long: 14.0m > 13.4m\nTime: 2026-03-01T12:14:00Z"
	if content != want {
		t.Fatalf("unexpected content:\n%s", content)
	}
}

func TestTemplate_Custom(t *testing.T) {
	tpl, err := NewTemplate("{{.Entity}} -> {{.Message}}")
	if err != nil {
		t.Fatalf("new template: %v", err)
	}
	content, err := tpl.Render(TemplateData{Entity: "washer", Message: "hi"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if content != "washer -> hi" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestNotifier_RendersAndDelivers(t *testing.T) {
	var content string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload webhookPayload
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		content = payload.Text.Content
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	notifier, err := NewNotifier(channel, nil, WithClock(fixedClock{now: time.Date(2026, 3, 1, 12, 14, 0, 0, time.UTC)}))
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := notifier.Notify(context.Background(), "washer", "active too long: 14.0m > 13.4m"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !strings.Contains(content, "washer: active too long: 14.0m > 13.4m") {
		t.Fatalf("unexpected delivered content %q", content)
	}
	if !strings.Contains(content, "Time: 2026-03-01T12:14:00Z") {
		t.Fatalf("expected rendered timestamp, got %q", content)
	}
}

type stubTarget struct {
	messages []string
	err      error
}

func (s *stubTarget) Notify(_ context.Context, _, message string) error {
	s.messages = append(s.messages, message)
	return s.err
}

func TestMultiNotifier_AttemptsAllTargets(t *testing.T) {
	failing := &stubTarget{err: errors.New("boom")}
	working := &stubTarget{}
	multi := NewMultiNotifier(failing, working)

	err := multi.Notify(context.Background(), "washer", "hello")
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected first error returned, got %v", err)
	}
	if len(working.messages) != 1 {
		t.Fatalf("all targets must be attempted, got %v", working.messages)
	}
}
