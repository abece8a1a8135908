// Package realtime keeps a STOMP subscription to the backend's message
// broker alive and delivers inbound messages to a single handler.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
)

const (
	handshakeWait = 10 * time.Second
	writeWait     = 10 * time.Second

	// clientHeartBeat is both the interval we offer to send at and the
	// interval we ask the server to send at.
	clientHeartBeat = 4000 * time.Millisecond
)

var (
	// ErrNotConnected is returned by Publish outside the Connected state.
	ErrNotConnected = errors.New("realtime: not connected")

	// ErrClosed is returned by Start after Stop.
	ErrClosed = errors.New("realtime: manager closed")
)

// State is the lifecycle state of a Manager.
type State int

const (
	Idle State = iota
	Connecting
	Connected
	Disconnected
	Failed
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Message is one payload received on a subscribed destination.
type Message struct {
	Destination string
	Body        json.RawMessage
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Body, v)
}

// Handler receives inbound messages on the connection's read goroutine.
type Handler func(Message)

// Options configures a Manager.
type Options struct {
	// Endpoint is the broker URL, e.g. ws://localhost:8080/ws.
	Endpoint string

	// Transport is TransportSockJS or TransportWebSocket.
	Transport string

	// Topics are subscribed after every successful connection.
	Topics []string

	// Policy schedules reconnect attempts. Defaults to Fixed(5s).
	Policy Policy

	// OnState is called after every state change. err is the cause of a
	// Disconnected or Failed transition.
	OnState func(state State, err error)

	// Dialer overrides the default WebSocket dialer.
	Dialer *websocket.Dialer
}

// Manager owns one logical broker connection and reconnects it according
// to its Policy. It is safe for concurrent use.
type Manager struct {
	opts    Options
	handler Handler
	dial    func(ctx context.Context, token string) (conn, error)

	mu       sync.Mutex
	state    State
	lastErr  error
	conn     conn
	cancel   context.CancelFunc
	done     chan struct{}
	lastText string
	hasLast  bool
}

// New creates an idle Manager. handler is the only handler that will
// ever be invoked, across any number of reconnects.
func New(opts Options, handler Handler) *Manager {
	if opts.Policy == nil {
		opts.Policy = Fixed(5 * time.Second)
	}
	if opts.Transport == "" {
		opts.Transport = TransportSockJS
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{HandshakeTimeout: handshakeWait}
	}
	if handler == nil {
		handler = func(Message) {}
	}
	m := &Manager{opts: opts, handler: handler}
	m.dial = func(ctx context.Context, token string) (conn, error) {
		return dial(ctx, m.opts.Dialer, m.opts.Endpoint, m.opts.Transport, token)
	}
	return m
}

// ExpandTopics substitutes the user ID into topic templates.
func ExpandTopics(templates []string, userID string) []string {
	r := strings.NewReplacer("{userId}", userID, "{userID}", userID)
	topics := make([]string, 0, len(templates))
	for _, t := range templates {
		if t == "" {
			continue
		}
		topics = append(topics, r.Replace(t))
	}
	return topics
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error behind the last Disconnected or Failed state.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Start begins connecting with token. An empty token leaves the manager
// Idle. Calling Start while already running is a no-op; after Failed it
// starts a fresh retry schedule.
func (m *Manager) Start(token string) error {
	m.mu.Lock()
	switch {
	case m.state == Closed:
		m.mu.Unlock()
		return ErrClosed
	case m.cancel != nil && m.state != Failed:
		m.mu.Unlock()
		return nil
	case token == "":
		m.mu.Unlock()
		return nil
	}

	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		m.run(ctx, token)
	}()
	return nil
}

// Stop cancels any pending reconnect, closes the connection and waits for
// the background goroutine. The manager is Closed afterwards.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.state == Closed {
		m.mu.Unlock()
		return
	}
	cancel, done, c := m.cancel, m.done, m.conn
	m.mu.Unlock()

	if c != nil {
		c.WriteFrame(frame.New(frame.DISCONNECT))
	}
	if cancel != nil {
		cancel()
		<-done
	}
	m.setState(Closed, nil)
}

// Publish sends v as a JSON SEND frame to destination.
func (m *Manager) Publish(destination string, v any) error {
	m.mu.Lock()
	c, state := m.conn, m.state
	m.mu.Unlock()
	if state != Connected || c == nil {
		return ErrNotConnected
	}

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding message for %s: %w", destination, err)
	}
	f := frame.New(frame.SEND,
		frame.Destination, destination,
		frame.ContentType, "application/json",
	)
	f.Body = body
	if err := c.WriteFrame(f); err != nil {
		return fmt.Errorf("publishing to %s: %w", destination, err)
	}
	return nil
}

func (m *Manager) setState(s State, err error) {
	m.mu.Lock()
	if m.state == Closed {
		m.mu.Unlock()
		return
	}
	m.state = s
	if err != nil || s == Connected {
		m.lastErr = err
	}
	m.mu.Unlock()

	if m.opts.OnState != nil {
		m.opts.OnState(s, err)
	}
}

func (m *Manager) run(ctx context.Context, token string) {
	b := backoff.WithContext(m.opts.Policy.NewBackOff(), ctx)
	attempts := 0

	for {
		m.setState(Connecting, nil)
		attempts++

		connected, err := m.connectAndServe(ctx, token)
		if ctx.Err() != nil {
			return
		}
		if connected {
			b.Reset()
			attempts = 1
		}
		log.Printf("realtime: connection lost: %v", err)
		m.setState(Disconnected, err)

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			if ctx.Err() != nil {
				return
			}
			m.setState(Failed, fmt.Errorf("giving up after %d failed attempts: %w", attempts, err))
			return
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// connectAndServe runs one connection from dial to loss. connected
// reports whether the connection reached Connected.
func (m *Manager) connectAndServe(ctx context.Context, token string) (connected bool, err error) {
	dialCtx, cancelDial := context.WithTimeout(ctx, handshakeWait)
	c, err := m.dial(dialCtx, token)
	cancelDial()
	if err != nil {
		return false, err
	}

	connCtx, cancelConn := context.WithCancel(ctx)
	defer cancelConn()
	go func() {
		<-connCtx.Done()
		c.Close()
	}()

	serverBeat, err := m.handshake(c, token)
	if err != nil {
		return false, err
	}

	for i, topic := range m.opts.Topics {
		sub := frame.New(frame.SUBSCRIBE,
			frame.Id, "sub-"+strconv.Itoa(i),
			frame.Destination, topic,
		)
		if err := c.WriteFrame(sub); err != nil {
			return false, fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}

	m.mu.Lock()
	m.conn = c
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()
	}()
	m.setState(Connected, nil)

	sendEvery, readWait := heartBeatIntervals(serverBeat)
	if sendEvery > 0 {
		go m.heartBeat(connCtx, c, sendEvery)
	}

	return true, m.readLoop(c, readWait)
}

// handshake sends CONNECT and waits for CONNECTED. It returns the
// server's heart-beat header.
func (m *Manager) handshake(c conn, token string) (string, error) {
	host := ""
	if u, err := url.Parse(m.opts.Endpoint); err == nil {
		host = u.Hostname()
	}
	beat := strconv.Itoa(int(clientHeartBeat/time.Millisecond))
	connect := frame.New(frame.CONNECT,
		frame.AcceptVersion, "1.2",
		frame.Host, host,
		frame.HeartBeat, beat+","+beat,
		"Authorization", "Bearer "+token,
	)
	if err := c.WriteFrame(connect); err != nil {
		return "", fmt.Errorf("sending CONNECT: %w", err)
	}

	c.SetReadDeadline(time.Now().Add(handshakeWait))
	defer c.SetReadDeadline(time.Time{})
	for {
		frames, err := c.ReadFrames()
		if err != nil {
			return "", fmt.Errorf("waiting for CONNECTED: %w", err)
		}
		for _, f := range frames {
			switch f.Command {
			case frame.CONNECTED:
				return f.Header.Get(frame.HeartBeat), nil
			case frame.ERROR:
				return "", fmt.Errorf("broker refused connection: %s", errorFrameText(f))
			}
		}
	}
}

// heartBeatIntervals negotiates heart-beating against the server's
// "sx,sy" header. A zero duration disables that direction.
func heartBeatIntervals(server string) (send, read time.Duration) {
	if server == "" {
		return 0, 0
	}
	sx, sy, err := frame.ParseHeartBeat(server)
	if err != nil {
		return 0, 0
	}
	if sy > 0 {
		send = max(clientHeartBeat, sy)
	}
	if sx > 0 {
		// Allow for network jitter before declaring the server dead.
		read = 2 * max(clientHeartBeat, sx)
	}
	return send, read
}

func (m *Manager) heartBeat(ctx context.Context, c conn, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.WriteHeartBeat(); err != nil {
				log.Printf("realtime: heart-beat: %v", err)
				return
			}
		}
	}
}

func (m *Manager) readLoop(c conn, readWait time.Duration) error {
	for {
		if readWait > 0 {
			c.SetReadDeadline(time.Now().Add(readWait))
		}
		frames, err := c.ReadFrames()
		for _, f := range frames {
			switch f.Command {
			case frame.MESSAGE:
				m.deliver(f)
			case frame.ERROR:
				return fmt.Errorf("broker error: %s", errorFrameText(f))
			}
		}
		if err != nil {
			if errors.Is(err, errMalformedFrame) {
				log.Printf("realtime: dropping unreadable frame: %v", err)
				continue
			}
			return err
		}
	}
}

// deliver forwards a MESSAGE frame to the handler unless its payload is
// not JSON or repeats the previous payload's text.
func (m *Manager) deliver(f *frame.Frame) {
	dest := f.Header.Get(frame.Destination)
	if !json.Valid(f.Body) {
		log.Printf("realtime: dropping malformed payload on %s: %q", dest, truncate(f.Body, 120))
		return
	}

	text := dedupText(f.Body)
	m.mu.Lock()
	dup := m.hasLast && m.lastText == text
	m.lastText, m.hasLast = text, true
	m.mu.Unlock()
	if dup {
		return
	}

	body := make(json.RawMessage, len(f.Body))
	copy(body, f.Body)
	m.handler(Message{Destination: dest, Body: body})
}

// dedupText is the text two payloads are compared on: the "message"
// field, else the "content" field, else the raw body.
func dedupText(body []byte) string {
	var fields struct {
		Message string `json:"message"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &fields); err == nil {
		if fields.Message != "" {
			return fields.Message
		}
		if fields.Content != "" {
			return fields.Content
		}
	}
	return string(body)
}

func errorFrameText(f *frame.Frame) string {
	if msg := f.Header.Get(frame.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(string(f.Body))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
