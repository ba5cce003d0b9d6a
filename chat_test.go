package main

import (
	"testing"
	"time"
)

func testMsg(text string, highlight bool) Message {
	m := NewMessage(MessageText, "alice", text, time.Now(), nil, "")
	m.Highlight = highlight
	return m
}

func TestNormalizeChatName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"#Go", "go"},
		{"go", "go"},
		{"&Local", "local"},
		{"@Alice", "alice"},
		{"##double", "#double"},
		{"", ""},
		{"#", ""},
	}
	for _, c := range cases {
		if got := normalizeChatName(c.in); got != c.want {
			t.Errorf("normalizeChatName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestChatPush(t *testing.T) {
	t.Run("sequence numbers are positions", func(t *testing.T) {
		c := NewChat("#go", ChatChannel)
		c.Push(testMsg("a", false), false)
		c.Push(testMsg("b", false), false)
		msgs := c.Messages()
		if msgs[0].Seq != 0 || msgs[1].Seq != 1 {
			t.Errorf("expected seqs 0,1 got %d,%d", msgs[0].Seq, msgs[1].Seq)
		}
	})

	t.Run("active chat advances unread pointer", func(t *testing.T) {
		c := NewChat("#go", ChatChannel)
		c.Push(testMsg("a", false), true)
		if c.UnreadPointer() != 1 {
			t.Errorf("expected unread pointer 1, got %d", c.UnreadPointer())
		}
	})

	t.Run("inactive chat grows unread region", func(t *testing.T) {
		c := NewChat("#go", ChatChannel)
		c.Push(testMsg("a", false), false)
		c.Push(testMsg("b", false), false)
		if c.UnreadPointer() != 0 {
			t.Errorf("expected unread pointer 0, got %d", c.UnreadPointer())
		}
	})

	t.Run("highlight indices strictly increase", func(t *testing.T) {
		c := NewChat("#go", ChatChannel)
		c.Push(testMsg("a", true), false)
		c.Push(testMsg("b", false), false)
		c.Push(testMsg("c", true), false)
		got := c.HighlightIndices()
		if len(got) != 2 || got[0] != 0 || got[1] != 2 {
			t.Errorf("expected highlight indices [0 2], got %v", got)
		}
	})

	t.Run("system feed records no highlights", func(t *testing.T) {
		c := NewChat("server", ChatSystem)
		c.Push(testMsg("mentions air", true), false)
		if len(c.HighlightIndices()) != 0 {
			t.Errorf("expected no highlight indices, got %v", c.HighlightIndices())
		}
	})
}

func TestChatTabState(t *testing.T) {
	t.Run("fully read", func(t *testing.T) {
		c := NewChat("#go", ChatChannel)
		c.Push(testMsg("a", false), true)
		if got := c.TabState(); got != TabRead {
			t.Errorf("expected TabRead, got %v", got)
		}
	})

	t.Run("unread without highlight", func(t *testing.T) {
		c := NewChat("#go", ChatChannel)
		c.Push(testMsg("a", false), false)
		if got := c.TabState(); got != TabUnread {
			t.Errorf("expected TabUnread, got %v", got)
		}
	})

	t.Run("unread highlight wins", func(t *testing.T) {
		c := NewChat("#go", ChatChannel)
		c.Push(testMsg("a", false), false)
		c.Push(testMsg("b", true), false)
		if got := c.TabState(); got != TabHighlight {
			t.Errorf("expected TabHighlight, got %v", got)
		}
	})

	t.Run("read highlight does not linger", func(t *testing.T) {
		c := NewChat("#go", ChatChannel)
		c.Push(testMsg("a", true), false)
		c.MarkAsRead()
		if got := c.TabState(); got != TabRead {
			t.Errorf("expected TabRead after MarkAsRead, got %v", got)
		}
	})

	t.Run("new highlight after read flips back", func(t *testing.T) {
		c := NewChat("#go", ChatChannel)
		c.Push(testMsg("a", true), false)
		c.MarkAsRead()
		c.Push(testMsg("b", true), false)
		if got := c.TabState(); got != TabHighlight {
			t.Errorf("expected TabHighlight, got %v", got)
		}
	})
}

func TestChatUnreadPointerInvariants(t *testing.T) {
	// Across an arbitrary interleaving of pushes, reads and focus changes,
	// the unread pointer never moves backwards, never passes the log length,
	// and the highlight indices stay a strictly increasing subset.
	c := NewChat("#go", ChatChannel)
	rng := uint32(42)
	prev := 0
	for i := 0; i < 200; i++ {
		rng = rng*1664525 + 1013904223
		switch rng % 7 {
		case 0:
			c.MarkAsRead()
		default:
			c.Push(testMsg("m", rng%3 == 1), rng%2 == 0)
		}

		up := c.UnreadPointer()
		if up < prev {
			t.Fatalf("step %d: unread pointer went backwards (%d -> %d)", i, prev, up)
		}
		if up > c.Len() {
			t.Fatalf("step %d: unread pointer %d exceeds log length %d", i, up, c.Len())
		}
		prev = up

		last := -1
		for _, hi := range c.HighlightIndices() {
			if hi <= last {
				t.Fatalf("step %d: highlight indices not strictly increasing: %v", i, c.HighlightIndices())
			}
			if !c.Messages()[hi].Highlight {
				t.Fatalf("step %d: index %d recorded but message not highlighted", i, hi)
			}
			last = hi
		}
	}

	c.MarkAsRead()
	if c.UnreadPointer() != c.Len() {
		t.Errorf("after MarkAsRead expected pointer %d, got %d", c.Len(), c.UnreadPointer())
	}
}

func TestChatMarkAsRead(t *testing.T) {
	c := NewChat("#go", ChatChannel)
	c.Push(testMsg("a", false), true)
	c.Push(testMsg("b", false), false)
	c.Push(testMsg("c", false), false)

	c.MarkAsRead()
	if c.UnreadPointer() != 3 {
		t.Errorf("expected unread pointer 3, got %d", c.UnreadPointer())
	}
	// Marker sits where the unread region began.
	if got := c.MarkerPos(); got != 1 {
		t.Errorf("expected marker at 1, got %d", got)
	}
}

func TestChatMarkerSuppressedWhenNothingWasUnread(t *testing.T) {
	c := NewChat("#go", ChatChannel)
	c.Push(testMsg("a", false), true)
	c.MarkAsRead()
	if got := c.MarkerPos(); got != -1 {
		t.Errorf("expected no marker, got %d", got)
	}
}

func TestChatClear(t *testing.T) {
	c := NewChat("#go", ChatChannel)
	c.State = StateJoined
	c.Push(testMsg("a", true), false)
	c.MarkAsRead()
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("expected empty log, got %d messages", c.Len())
	}
	if c.UnreadPointer() != 0 || c.MarkerPos() != -1 {
		t.Errorf("expected reset bookkeeping, got unread=%d marker=%d", c.UnreadPointer(), c.MarkerPos())
	}
	if len(c.HighlightIndices()) != 0 {
		t.Errorf("expected no highlights, got %v", c.HighlightIndices())
	}
	if c.State != StateJoined {
		t.Errorf("expected Clear to leave state alone, got %v", c.State)
	}
}

func TestNewMessage(t *testing.T) {
	t.Run("computes highlight", func(t *testing.T) {
		m := NewMessage(MessageText, "alice", "ping dana", time.Now(), nil, "dana")
		if !m.Highlight {
			t.Error("expected highlight for own nick mention")
		}
	})

	t.Run("highlight matches through the cached folded text", func(t *testing.T) {
		m := NewMessage(MessageText, "alice", "PING DaNa", time.Now(), nil, "dana")
		if !m.Highlight {
			t.Error("expected case-insensitive highlight from the cached lowercase form")
		}
		if m.lowerText != "ping dana" {
			t.Errorf("unexpected cached text %q", m.lowerText)
		}
	})

	t.Run("system messages never highlight", func(t *testing.T) {
		m := NewMessage(MessageSystem, "", "dana joined", time.Now(), nil, "dana")
		if m.Highlight {
			t.Error("expected no highlight on system message")
		}
	})

	t.Run("chunks computed once", func(t *testing.T) {
		m := NewMessage(MessageText, "alice", "see https://example.com", time.Now(), nil, "")
		chunks := m.Chunks()
		if len(chunks) != 2 || chunks[1].Kind != ChunkLink {
			t.Errorf("expected text+link chunks, got %v", chunks)
		}
	})
}
