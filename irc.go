package main

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"gopkg.in/irc.v4"
)

const quitReason = "tern"

// ircBackend drives one line-protocol session. A worker goroutine owns the
// connection; the application talks to it only through fire-and-forget
// commands and the outbound event channel. The mutex guards the session
// pointer and the reconnect timer, never network I/O.
type ircBackend struct {
	cfg    Config
	dial   dialFunc
	events chan BackendEvent

	mu         sync.Mutex
	sess       *session
	connecting bool
	aborted    bool // disconnect requested while the dial was in flight
	retry      *time.Timer
	gen        int // bumped by Disconnect; stale retries check it and die
}

// session is the narrowly-scoped shared handle: the worker owns conn, the
// quit channel signals shutdown, done closes when the worker has exited,
// flushed closes once the writer has drained its queue on shutdown.
type session struct {
	conn    io.ReadWriteCloser
	out     chan *irc.Message
	quit    chan struct{}
	done    chan struct{}
	flushed chan struct{}
	gen     int
}

func newIRCBackend(cfg Config, dial dialFunc) *ircBackend {
	return &ircBackend{
		cfg:    cfg,
		dial:   dial,
		events: make(chan BackendEvent, 256),
	}
}

func (b *ircBackend) Events() <-chan BackendEvent { return b.events }

// emit delivers an event to the application. A full queue means the
// consumer is gone or wedged; the event is logged and swallowed rather than
// blocking or crashing the worker.
func (b *ircBackend) emit(ev BackendEvent) {
	select {
	case b.events <- ev:
	default:
		log.Printf("irc: dropping %T: event queue full", ev)
	}
}

// Connect starts a session asynchronously: an InProgress status now, then
// either Connected or Disconnected with failure detail from the worker.
func (b *ircBackend) Connect() {
	b.mu.Lock()
	if b.sess != nil || b.connecting {
		b.mu.Unlock()
		log.Printf("irc: connect ignored: session already active")
		return
	}
	b.connecting = true
	if b.retry != nil {
		b.retry.Stop()
		b.retry = nil
	}
	gen := b.gen
	b.mu.Unlock()

	b.emit(StatusEvent{ConnectionStatus{State: ConnInProgress}})
	go b.run(gen)
}

// Disconnect is idempotent. With a live session it sends a QUIT notice,
// signals the worker and joins it before returning, so no further events
// from that session can arrive afterwards.
func (b *ircBackend) Disconnect() {
	b.mu.Lock()
	b.gen++
	if b.retry != nil {
		b.retry.Stop()
		b.retry = nil
		b.mu.Unlock()
		b.emit(StatusEvent{ConnectionStatus{State: ConnDisconnected, ByUser: true}})
		return
	}
	if b.connecting {
		b.aborted = true
		b.mu.Unlock()
		b.emit(StatusEvent{ConnectionStatus{State: ConnDisconnected, ByUser: true}})
		return
	}
	s := b.sess
	b.sess = nil
	b.mu.Unlock()

	if s == nil {
		log.Printf("irc: disconnect ignored: not connected")
		return
	}

	// Graceful teardown notice; the writer drains the queue on quit.
	select {
	case s.out <- &irc.Message{Command: "QUIT", Params: []string{quitReason}}:
	default:
	}
	close(s.quit) // release the shutdown signal before joining
	<-s.done      // join the worker
	b.emit(StatusEvent{ConnectionStatus{State: ConnDisconnected, ByUser: true}})
}

func (b *ircBackend) JoinChannel(name string) {
	b.send(&irc.Message{Command: "JOIN", Params: []string{name}})
}

func (b *ircBackend) LeaveChannel(name string) {
	b.send(&irc.Message{Command: "PART", Params: []string{name}})
}

func (b *ircBackend) SendMessage(target, text string) {
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			b.send(&irc.Message{Command: "PRIVMSG", Params: []string{target, line}})
		}
	}
}

func (b *ircBackend) SendAction(target, text string) {
	b.send(&irc.Message{Command: "PRIVMSG", Params: []string{target, "\x01ACTION " + text + "\x01"}})
}

// send queues an outbound frame, or logs and drops it when no session is up.
func (b *ircBackend) send(m *irc.Message) {
	b.mu.Lock()
	s := b.sess
	b.mu.Unlock()
	if s == nil {
		log.Printf("irc: %s dropped: no active session", m.Command)
		return
	}
	select {
	case s.out <- m:
	default:
		log.Printf("irc: %s dropped: outbound queue full", m.Command)
	}
}

// run dials and, on success, installs the session and enters the worker
// loop. It runs on the worker goroutine; the application thread never
// touches the network.
func (b *ircBackend) run(gen int) {
	conn, err := b.dial(b.cfg)

	b.mu.Lock()
	b.connecting = false
	aborted := b.aborted
	b.aborted = false
	b.mu.Unlock()

	if aborted {
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		detail := fmt.Sprintf("connect failed: %v", err)
		b.emit(ProtocolErrorEvent{Kind: ErrorFatal, Text: detail})
		b.emit(StatusEvent{ConnectionStatus{State: ConnDisconnected, Detail: detail}})
		if b.cfg.AutoReconnectEnabled() {
			b.scheduleReconnect(gen)
		}
		return
	}

	s := &session{
		conn:    conn,
		out:     make(chan *irc.Message, 64),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		flushed: make(chan struct{}),
		gen:     gen,
	}
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		conn.Close()
		return
	}
	b.sess = s
	b.mu.Unlock()

	b.loop(s)
}

// loop is the session worker: it pumps inbound frames through the
// classifier, answers pings, and watches for shutdown, read/write failure
// and keep-alive timeouts. All blocking happens here or in the reader and
// writer goroutines it owns.
func (b *ircBackend) loop(s *session) {
	defer close(s.done)

	// stopped releases the reader and writer when the loop exits on a
	// failure path, where s.quit is never closed.
	stopped := make(chan struct{})
	defer close(stopped)

	frames := make(chan *irc.Message, 16)
	readErr := make(chan error, 1)
	go func() {
		r := irc.NewReader(s.conn)
		for {
			msg, err := r.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- msg:
			case <-s.quit:
				return
			case <-stopped:
				return
			}
		}
	}()

	writeErr := make(chan error, 1)
	go func() {
		defer close(s.flushed)
		w := irc.NewWriter(s.conn)
		for {
			select {
			case msg := <-s.out:
				if err := w.WriteMessage(msg); err != nil {
					writeErr <- err
					return
				}
			case <-stopped:
				return
			case <-s.quit:
				// flush queued frames (the QUIT notice) before exiting
				for {
					select {
					case msg := <-s.out:
						if err := w.WriteMessage(msg); err != nil {
							return
						}
					default:
						return
					}
				}
			}
		}
	}()

	if b.cfg.Password != "" {
		s.out <- &irc.Message{Command: "PASS", Params: []string{b.cfg.Password}}
	}
	s.out <- &irc.Message{Command: "NICK", Params: []string{b.cfg.Nick}}
	s.out <- &irc.Message{Command: "USER", Params: []string{b.cfg.User, "0", "*", b.cfg.RealName}}

	tickEvery := b.cfg.pingTimeout() / 2
	if tickEvery < time.Second {
		tickEvery = time.Second
	}
	ticker := time.NewTicker(tickEvery)
	defer ticker.Stop()

	lastSeen := time.Now()
	pinged := false

	for {
		select {
		case <-s.quit:
			// Let the writer drain the teardown notice before the
			// conn goes away; the timeout covers a wedged peer.
			select {
			case <-s.flushed:
			case <-time.After(time.Second):
			}
			s.conn.Close()
			return

		case err := <-readErr:
			s.conn.Close()
			b.sessionFailed(s, fmt.Sprintf("connection lost: %v", err))
			return

		case err := <-writeErr:
			s.conn.Close()
			b.sessionFailed(s, fmt.Sprintf("write failed: %v", err))
			return

		case msg := <-frames:
			lastSeen = time.Now()
			pinged = false
			b.emit(ActivityEvent{At: lastSeen})

			if msg.Command == "PING" {
				select {
				case s.out <- &irc.Message{Command: "PONG", Params: msg.Params}:
				default:
				}
			}
			if msg.Command == "001" {
				b.emit(StatusEvent{ConnectionStatus{State: ConnConnected}})
			}

			authFailed := false
			for _, ev := range classifyFrame(msg, b.cfg.Nick) {
				b.emit(ev)
				if pe, ok := ev.(ProtocolErrorEvent); ok && pe.Kind == ErrorAuth {
					authFailed = true
				}
			}
			if authFailed {
				s.conn.Close()
				b.authFailed(s)
				return
			}

		case <-ticker.C:
			idle := time.Since(lastSeen)
			if idle >= 2*b.cfg.pingTimeout() {
				s.conn.Close()
				b.sessionFailed(s, "ping timeout")
				return
			}
			if idle >= b.cfg.pingTimeout() && !pinged {
				pinged = true
				select {
				case s.out <- &irc.Message{Command: "PING", Params: []string{quitReason}}:
				default:
				}
			}
		}
	}
}

// sessionFailed reports an unrecoverable transport error and, when
// auto-reconnect is on, schedules a retry. If the user already took the
// session (a racing Disconnect), the worker exits silently instead.
func (b *ircBackend) sessionFailed(s *session, detail string) {
	b.mu.Lock()
	if b.sess != s {
		b.mu.Unlock()
		return
	}
	b.sess = nil
	b.mu.Unlock()

	b.emit(ProtocolErrorEvent{Kind: ErrorFatal, Text: detail})
	b.emit(StatusEvent{ConnectionStatus{State: ConnDisconnected, Detail: detail}})
	if b.cfg.AutoReconnectEnabled() {
		b.scheduleReconnect(s.gen)
	}
}

// authFailed terminates after a credential rejection. The classifier has
// already surfaced the error event; retrying bad credentials is pointless,
// so no reconnect is scheduled.
func (b *ircBackend) authFailed(s *session) {
	b.mu.Lock()
	if b.sess != s {
		b.mu.Unlock()
		return
	}
	b.sess = nil
	b.mu.Unlock()

	b.emit(StatusEvent{ConnectionStatus{State: ConnDisconnected, Detail: "authentication failed"}})
}

// scheduleReconnect arms a fixed-delay retry that re-enters the connect
// path, and reports the deadline as a Scheduled status. Both the arming and
// the fired timer check the generation: a Disconnect between the two bumps
// it, so a retry that raced the user's teardown dies instead of reconnecting.
func (b *ircBackend) scheduleReconnect(gen int) {
	delay := b.cfg.reconnectDelay()
	at := time.Now().Add(delay)

	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	if b.retry != nil {
		b.retry.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		b.mu.Lock()
		if gen != b.gen || b.retry != t || b.sess != nil || b.connecting {
			b.mu.Unlock()
			return
		}
		b.retry = nil
		b.connecting = true
		b.mu.Unlock()

		b.emit(StatusEvent{ConnectionStatus{State: ConnInProgress}})
		go b.run(gen)
	})
	b.retry = t
	b.emit(StatusEvent{ConnectionStatus{State: ConnScheduled, NextAttempt: at}})
	b.mu.Unlock()
}
