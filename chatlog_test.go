package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEscapeContent(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"two\nlines", `two\nlines`},
		{`back\slash`, `back\\slash`},
		{"mixed\\\nboth", `mixed\\\nboth`},
	}
	for _, c := range cases {
		got := escapeContent(c.in)
		if got != c.want {
			t.Errorf("escapeContent(%q) = %q, want %q", c.in, got, c.want)
		}
		if back := unescapeContent(got); back != c.in {
			t.Errorf("unescapeContent(%q) = %q, want %q", got, back, c.in)
		}
	}
}

func TestChatLogPath(t *testing.T) {
	got := chatLogPath("/logs", ChatChannel, "go/nuts:x y")
	want := filepath.Join("/logs", "channel_go_nuts_x_y.log")
	if got != want {
		t.Errorf("expected %q, got %q", got, want)
	}

	got = chatLogPath("/logs", ChatPerson, "alice")
	if !strings.HasSuffix(got, "query_alice.log") {
		t.Errorf("expected query prefix, got %q", got)
	}
}

func TestAppendAndLoadChatLog(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)

	appendChatLog(dir, ChatChannel, "go", Message{
		Time: at, Kind: MessageText, From: "alice", Text: "hello\nworld",
	})
	appendChatLog(dir, ChatChannel, "go", Message{
		Time: at.Add(time.Minute), Kind: MessageAction, From: "bob", Text: "waves",
	})

	msgs, err := loadChatHistory(dir, ChatChannel, "go", 10)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].From != "alice" || msgs[0].Text != "hello\nworld" {
		t.Errorf("unexpected first message %+v", msgs[0])
	}
	if msgs[1].Kind != MessageAction {
		t.Errorf("expected action kind, got %v", msgs[1].Kind)
	}
	if !msgs[0].Time.Equal(at) {
		t.Errorf("expected time %v, got %v", at, msgs[0].Time)
	}
}

func TestLoadChatHistoryMissingFile(t *testing.T) {
	msgs, err := loadChatHistory(t.TempDir(), ChatChannel, "nope", 10)
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected empty history, got %d", len(msgs))
	}
}

func TestLoadChatHistoryCapped(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		appendChatLog(dir, ChatChannel, "go", Message{
			Time: at.Add(time.Duration(i) * time.Second),
			Kind: MessageText,
			From: "alice",
			Text: fmt.Sprintf("msg %d", i),
		})
	}

	msgs, err := loadChatHistory(dir, ChatChannel, "go", 10)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(msgs) != 10 {
		t.Fatalf("expected 10 messages, got %d", len(msgs))
	}
	// The newest messages survive.
	if msgs[9].Text != "msg 24" {
		t.Errorf("expected newest last, got %q", msgs[9].Text)
	}
	if msgs[0].Text != "msg 15" {
		t.Errorf("expected oldest kept to be msg 15, got %q", msgs[0].Text)
	}
}

func TestLoadChatHistorySkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := chatLogPath(dir, ChatChannel, "go")
	content := "garbage line\n" +
		"2026-08-29 10:00:00\ttext\talice\tok\n" +
		"not\tenough\tfields\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	msgs, err := loadChatHistory(dir, ChatChannel, "go", 10)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "ok" {
		t.Errorf("expected the single valid line, got %v", msgs)
	}
}

func TestHistoryChunksRecomputed(t *testing.T) {
	dir := t.TempDir()
	appendChatLog(dir, ChatPerson, "alice", Message{
		Time: time.Now(), Kind: MessageText, From: "alice",
		Text: "see https://example.com",
	})
	msgs, err := loadChatHistory(dir, ChatPerson, "alice", 10)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	chunks := msgs[0].Chunks()
	if len(chunks) != 2 || chunks[1].Kind != ChunkLink {
		t.Errorf("expected replayed message to carry link chunks, got %v", chunks)
	}
	if msgs[0].Highlight {
		t.Error("replayed lines must not recompute highlights")
	}
}
