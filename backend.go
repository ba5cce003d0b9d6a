package main

import (
	"fmt"
	"time"
)

// ConnState is the connection state machine position.
type ConnState int

const (
	ConnDisconnected ConnState = iota
	ConnInProgress
	ConnConnected
	ConnScheduled // auto-reconnect timer armed
)

// ConnectionStatus is the full connection status carried by StatusEvent.
type ConnectionStatus struct {
	State       ConnState
	ByUser      bool      // Disconnected: whether the user asked for it
	NextAttempt time.Time // Scheduled: when the retry fires
	Detail      string    // Disconnected: failure detail, empty on user action
}

func (s ConnectionStatus) String() string {
	switch s.State {
	case ConnInProgress:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnScheduled:
		return fmt.Sprintf("reconnecting in %ds", int(time.Until(s.NextAttempt).Seconds())+1)
	default:
		if s.Detail != "" {
			return "disconnected: " + s.Detail
		}
		return "disconnected"
	}
}

// BackendEvent is anything a backend reports to the application. Results of
// commands flow back only as events, never as return values, and event
// order per backend is FIFO.
type BackendEvent interface{ backendEvent() }

// StatusEvent reports a connection state change.
type StatusEvent struct{ Status ConnectionStatus }

// ActivityEvent is emitted for every inbound frame, independent of its
// classification, as a liveness signal.
type ActivityEvent struct{ At time.Time }

// MessageEvent is an inbound chat message. The application derives chunks
// and the highlight flag itself when it builds the displayable Message.
type MessageEvent struct {
	Target string // conversation name: channel, or peer nick for private messages
	From   string
	Kind   MessageKind // MessageText or MessageAction
	Text   string
	Time   time.Time
}

// ServerMessageEvent is an informational server line (welcome, MOTD), shown
// in the system feed.
type ServerMessageEvent struct{ Text string }

// ChannelJoinedEvent confirms our own join of a channel.
type ChannelJoinedEvent struct{ Name string }

// ModeratorAddedEvent reports a user gaining (or being listed with)
// moderator status in a channel.
type ModeratorAddedEvent struct {
	Channel  string
	Username string
}

type ProtocolErrorKind int

const (
	// ErrorAuth is a fatal credential failure: likely bad credentials or
	// rate-limiting. The session terminates immediately.
	ErrorAuth ProtocolErrorKind = iota
	// ErrorFatal is any other unrecoverable transport failure.
	ErrorFatal
	// ErrorScoped is a server rejection aimed at one conversation; Target
	// carries the offending name.
	ErrorScoped
	// ErrorServer is an unscoped server error, shown only in the server feed.
	ErrorServer
)

// ProtocolErrorEvent is a classified error. Scoped errors carry the target
// conversation; fatal kinds force a Disconnected status right after.
type ProtocolErrorEvent struct {
	Kind   ProtocolErrorKind
	Target string
	Text   string
}

func (StatusEvent) backendEvent()         {}
func (ActivityEvent) backendEvent()       {}
func (MessageEvent) backendEvent()        {}
func (ServerMessageEvent) backendEvent()  {}
func (ChannelJoinedEvent) backendEvent()  {}
func (ModeratorAddedEvent) backendEvent() {}
func (ProtocolErrorEvent) backendEvent()  {}

// ChatBackend is the capability boundary the application talks to. All
// commands are fire-and-forget except Disconnect, which returns only after
// the session worker has exited, guaranteeing no further events.
type ChatBackend interface {
	Connect()
	Disconnect()
	JoinChannel(name string)
	LeaveChannel(name string)
	SendMessage(target, text string)
	SendAction(target, text string)
	Events() <-chan BackendEvent
}

// NewBackend picks the transport once, at startup, from configuration.
// The set of transports is closed: plain TCP (optionally TLS) or IRC over a
// websocket stream. Callers never branch on which one is live.
func NewBackend(cfg Config) (ChatBackend, error) {
	switch cfg.Transport {
	case "", "tcp":
		return newIRCBackend(cfg, dialTCP), nil
	case "websocket":
		return newIRCBackend(cfg, dialWebsocket), nil
	default:
		return nil, fmt.Errorf("unknown transport %q (want tcp or websocket)", cfg.Transport)
	}
}
