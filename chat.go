package main

import (
	"strings"
	"time"
)

type MessageKind int

const (
	MessageText MessageKind = iota
	MessageAction
	MessageSystem
)

// Message is one chat line. The chunk sequence and the lowercase form are
// derived once at construction and cached; a Message never changes after it
// has been pushed into a Chat.
type Message struct {
	Time      time.Time
	Kind      MessageKind
	From      string
	Text      string
	Highlight bool
	Seq       int    // position in its chat's log, set by Push
	Origin    string // source chat name when re-surfaced in the highlight feed

	lowerText string
	chunks    []MessageChunk
}

// NewMessage builds a Message, computing its chunk sequence and highlight
// flag from the configured keywords and the user's own nick.
func NewMessage(kind MessageKind, from, text string, at time.Time, keywords []string, ownNick string) Message {
	m := Message{
		Time:      at,
		Kind:      kind,
		From:      from,
		Text:      text,
		lowerText: strings.ToLower(text),
		chunks:    ChunkMessage(text),
	}
	if kind != MessageSystem {
		m.Highlight = highlighted(m.lowerText, keywords, ownNick)
	}
	return m
}

// Chunks returns the cached chunk sequence.
func (m *Message) Chunks() []MessageChunk { return m.chunks }

type ChatKind int

const (
	ChatChannel ChatKind = iota
	ChatPerson
	ChatSystem
)

// ChatState tracks channel membership. It changes only on explicit
// join/part/disconnect events, never by inference.
type ChatState int

const (
	StateLeft ChatState = iota
	StateJoinInProgress
	StateJoined
	StateDisconnected
)

type TabState int

const (
	TabRead TabState = iota
	TabUnread
	TabHighlight
)

// Chat is one conversation: an append-only message log plus unread and
// highlight bookkeeping.
type Chat struct {
	Name  string
	Key   string // lowercase, sigil-stripped
	Kind  ChatKind
	State ChatState

	msgs       []Message
	unread     int // index of the first unread message
	prevUnread int // unread pointer before the last MarkAsRead
	highlights []int
}

func NewChat(name string, kind ChatKind) *Chat {
	return &Chat{
		Name: name,
		Key:  normalizeChatName(name),
		Kind: kind,
	}
}

// normalizeChatName lowercases a conversation name and strips a single
// leading sigil, so "#Go" and "go" address the same chat and log file.
func normalizeChatName(name string) string {
	name = strings.ToLower(name)
	if len(name) > 0 && strings.IndexByte("#&+!@", name[0]) >= 0 {
		name = name[1:]
	}
	return name
}

// Push appends a message. Highlighted messages outside the system feed are
// recorded in the highlight index list. When the chat is the one currently
// focused the unread pointer advances over the new message immediately;
// otherwise it stays put and the unread region grows.
func (c *Chat) Push(msg Message, active bool) {
	msg.Seq = len(c.msgs)
	if msg.Highlight && c.Kind != ChatSystem {
		c.highlights = append(c.highlights, msg.Seq)
	}
	c.msgs = append(c.msgs, msg)
	if active {
		c.unread = len(c.msgs)
	}
}

// TabState reports how the chat should appear in the sidebar: fully read,
// carrying unread messages, or carrying an unread highlight.
func (c *Chat) TabState() TabState {
	if c.unread == len(c.msgs) {
		return TabRead
	}
	if len(c.highlights) > 0 && c.highlights[len(c.highlights)-1] >= c.unread {
		return TabHighlight
	}
	return TabUnread
}

// MarkAsRead snapshots the unread pointer (so the unread-boundary marker can
// be placed) and advances it over the whole log.
func (c *Chat) MarkAsRead() {
	c.prevUnread = c.unread
	c.unread = len(c.msgs)
}

// Clear empties the log and all bookkeeping. ChatState is untouched.
func (c *Chat) Clear() {
	c.msgs = nil
	c.unread = 0
	c.prevUnread = 0
	c.highlights = nil
}

func (c *Chat) Messages() []Message { return c.msgs }
func (c *Chat) Len() int            { return len(c.msgs) }

// UnreadPointer is the index of the first unread message.
func (c *Chat) UnreadPointer() int { return c.unread }

// MarkerPos returns the position of the unread-boundary marker, or -1 when
// no marker should be drawn.
func (c *Chat) MarkerPos() int {
	if c.prevUnread >= len(c.msgs) {
		return -1
	}
	return c.prevUnread
}

// HighlightIndices returns the recorded highlight positions, oldest first.
func (c *Chat) HighlightIndices() []int { return c.highlights }
