package transcript

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"taskdeck/internal/db"
	"taskdeck/internal/gateway"
)

type fakeSender struct {
	resp     gateway.SendMessageResponse
	err      error
	lastConv string
}

func (f *fakeSender) Send(_ context.Context, _ int64, _, conversationID string) (gateway.SendMessageResponse, error) {
	f.lastConv = conversationID
	if f.err != nil {
		return gateway.SendMessageResponse{}, f.err
	}
	return f.resp, nil
}

func TestRecorder_SettlesOnSuccess(t *testing.T) {
	sender := &fakeSender{resp: gateway.SendMessageResponse{
		ConversationID: "5",
		AIResponse:     "Task created!",
		Timestamp:      "2026-01-02T03:04:05Z",
	}}
	rec := NewRecorder(sender, NewLog(), nil, false, nil)

	resp, err := rec.Send(context.Background(), 5, "create a task to buy milk", "")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if resp.AIResponse != "Task created!" {
		t.Fatalf("unexpected reply: %q", resp.AIResponse)
	}
	msgs := rec.Log().Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected user+ai messages, got %d", len(msgs))
	}
	if msgs[0].SenderType != SenderUser || msgs[0].Status != StatusSent {
		t.Fatalf("user message not settled: %+v", msgs[0])
	}
	if msgs[1].SenderType != SenderAI || msgs[1].Content != "Task created!" {
		t.Fatalf("unexpected ai message: %+v", msgs[1])
	}
	if rec.Log().HasPending() {
		t.Fatalf("pending message left after settle")
	}
}

func TestRecorder_RollsBackOnFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("backend down")}
	rec := NewRecorder(sender, NewLog(), nil, false, nil)

	_, err := rec.Send(context.Background(), 5, "hello", "")
	if err == nil {
		t.Fatalf("expected send error")
	}
	if got := rec.Log().Messages(); len(got) != 0 {
		t.Fatalf("expected empty log after rollback, got %+v", got)
	}
}

func TestRecorder_ReusesLatestConversation(t *testing.T) {
	store := newTestStore(t)
	if err := store.RememberConversation("9", 5, "earlier chat"); err != nil {
		t.Fatalf("remember conversation failed: %v", err)
	}

	sender := &fakeSender{resp: gateway.SendMessageResponse{ConversationID: "9", AIResponse: "ok", Timestamp: "2026-01-02T03:04:05Z"}}
	rec := NewRecorder(sender, NewLog(), store, true, nil)

	if _, err := rec.Send(context.Background(), 5, "what did I ask before", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if sender.lastConv != "9" {
		t.Fatalf("expected cached conversation id, got %q", sender.lastConv)
	}

	msgs, err := store.LoadConversation("9")
	if err != nil {
		t.Fatalf("load conversation failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected persisted exchange, got %d messages", len(msgs))
	}
}

func TestFirstWords(t *testing.T) {
	if got := firstWords("create a task to buy milk tomorrow morning", 6); got != "create a task to buy milk" {
		t.Fatalf("unexpected title: %q", got)
	}
	if got := firstWords("hello", 6); got != "hello" {
		t.Fatalf("unexpected title: %q", got)
	}
}

func TestRecorder_HistoryFromStore(t *testing.T) {
	store := newTestStore(t)
	sender := &fakeSender{resp: gateway.SendMessageResponse{ConversationID: "9", AIResponse: "done", Timestamp: "2026-01-02T03:04:05Z"}}
	rec := NewRecorder(sender, NewLog(), store, true, nil)

	if _, err := rec.Send(context.Background(), 5, "add a task to buy milk", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	// A fresh recorder over the same store: history must survive the process.
	fresh := NewRecorder(sender, NewLog(), store, true, nil)
	msgs, err := fresh.History(5, "")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected persisted exchange, got %d messages", len(msgs))
	}
	if msgs[0].SenderType != SenderUser || msgs[0].Content != "add a task to buy milk" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].SenderType != SenderAI || msgs[1].Content != "done" {
		t.Fatalf("unexpected reply message: %+v", msgs[1])
	}
	// History rehydrates the in-memory log.
	if got := fresh.Log().Messages(); len(got) != 2 {
		t.Fatalf("expected log rehydration, got %d messages", len(got))
	}
}

func TestRecorder_HistoryFallsBackToLog(t *testing.T) {
	sender := &fakeSender{resp: gateway.SendMessageResponse{ConversationID: "9", AIResponse: "ok", Timestamp: "2026-01-02T03:04:05Z"}}
	rec := NewRecorder(sender, NewLog(), nil, false, nil)

	if _, err := rec.Send(context.Background(), 5, "hello", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	msgs, err := rec.History(5, "")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected in-memory exchange, got %d messages", len(msgs))
	}
}

func TestRecorder_ClearDropsLogAndStore(t *testing.T) {
	store := newTestStore(t)
	sender := &fakeSender{resp: gateway.SendMessageResponse{ConversationID: "9", AIResponse: "ok", Timestamp: "2026-01-02T03:04:05Z"}}
	rec := NewRecorder(sender, NewLog(), store, true, nil)

	if _, err := rec.Send(context.Background(), 5, "hello", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := rec.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if got := rec.Log().Messages(); len(got) != 0 {
		t.Fatalf("in-memory log not cleared: %+v", got)
	}
	if got := store.LatestConversationID(5); got != "" {
		t.Fatalf("store still remembers conversation %q after clear", got)
	}
	msgs, err := store.LoadConversation("9")
	if err != nil {
		t.Fatalf("load conversation failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("store still holds %d messages after clear", len(msgs))
	}
}

func TestRecorder_WarnsButSucceedsWhenPersistenceFails(t *testing.T) {
	gdb, err := db.Open(filepath.Join(t.TempDir(), "taskdeck.db"))
	if err != nil {
		t.Fatalf("open db failed: %v", err)
	}
	store, err := NewStore(gdb)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap db failed: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close db failed: %v", err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sender := &fakeSender{resp: gateway.SendMessageResponse{
		ConversationID: "5",
		AIResponse:     "ok",
		Timestamp:      "2026-01-02T03:04:05Z",
	}}
	rec := NewRecorder(sender, NewLog(), store, true, logger)

	resp, err := rec.Send(context.Background(), 5, "hello", "5")
	if err != nil {
		t.Fatalf("send failed despite broken store: %v", err)
	}
	if resp.AIResponse != "ok" {
		t.Fatalf("unexpected reply: %q", resp.AIResponse)
	}
	logged := buf.String()
	if !strings.Contains(logged, "WARN") || !strings.Contains(logged, "transcript") {
		t.Fatalf("expected warn log for persistence failure, got %q", logged)
	}
}
