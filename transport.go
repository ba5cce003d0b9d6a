package main

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

const dialTimeout = 15 * time.Second

// dialFunc opens the byte stream a session runs over. The worker owns the
// returned stream; closing it is how shutdown unblocks the reader.
type dialFunc func(cfg Config) (io.ReadWriteCloser, error)

// dialTCP opens a plain or TLS TCP connection to cfg.Server (host:port).
func dialTCP(cfg Config) (io.ReadWriteCloser, error) {
	d := net.Dialer{Timeout: dialTimeout}
	if cfg.TLS {
		conn, err := tls.DialWithDialer(&d, "tcp", cfg.Server, nil)
		if err != nil {
			return nil, fmt.Errorf("tls dial %s: %w", cfg.Server, err)
		}
		return conn, nil
	}
	conn, err := d.Dial("tcp", cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Server, err)
	}
	return conn, nil
}

// dialWebsocket connects to a ws:// or wss:// endpoint that relays the same
// line protocol inside websocket text messages.
func dialWebsocket(cfg Config) (io.ReadWriteCloser, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(cfg.Server, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", cfg.Server, err)
	}
	return &wsStream{conn: conn}, nil
}

// wsStream adapts a websocket connection to the io.ReadWriteCloser the
// session reader expects. Each Write becomes one text message; reads drain
// messages in order, so line framing survives the message boundary.
type wsStream struct {
	conn *websocket.Conn
	r    io.Reader // current in-flight message reader
}

func (w *wsStream) Read(p []byte) (int, error) {
	for {
		if w.r == nil {
			_, r, err := w.conn.NextReader()
			if err != nil {
				return 0, err
			}
			w.r = r
		}
		n, err := w.r.Read(p)
		if err == io.EOF {
			w.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (w *wsStream) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsStream) Close() error {
	return w.conn.Close()
}
