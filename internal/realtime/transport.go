package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Transport names.
const (
	TransportSockJS    = "sockjs"
	TransportWebSocket = "websocket"
)

// errRemoteClose is returned when the server ends a SockJS session.
var errRemoteClose = errors.New("server closed the session")

// conn carries STOMP frames over one WebSocket connection.
type conn interface {
	// WriteFrame sends one frame.
	WriteFrame(f *frame.Frame) error
	// WriteHeartBeat sends an EOL.
	WriteHeartBeat() error
	// ReadFrames blocks for the next WebSocket message and returns the
	// frames it carried. Heart-beats yield an empty slice.
	ReadFrames() ([]*frame.Frame, error)
	// SetReadDeadline bounds the next ReadFrames call. Zero disables it.
	SetReadDeadline(t time.Time) error
	Close() error
}

// dialURL builds the WebSocket URL for the transport. The token travels
// as a query parameter because browsers cannot set headers on the
// upgrade request and the backend authenticates it from the URI.
func dialURL(endpoint, transport, token string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}
	if transport == TransportSockJS {
		u.Path = strings.TrimRight(u.Path, "/") + sockJSPath()
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// sockJSPath returns "/{server}/{session}/websocket" with a random
// three-digit server id and eight-character session id.
func sockJSPath() string {
	session := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("/%03d/%s/websocket", rand.IntN(1000), session)
}

func dial(ctx context.Context, dialer *websocket.Dialer, endpoint, transport, token string) (conn, error) {
	target, err := dialURL(endpoint, transport, token)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket handshake: %w", err)
	}

	if transport == TransportSockJS {
		c := &sockJSConn{ws: ws}
		if err := c.awaitOpen(); err != nil {
			ws.Close()
			return nil, err
		}
		return c, nil
	}
	return &rawConn{ws: ws}, nil
}

// rawConn sends each STOMP frame as one text message.
type rawConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *rawConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *rawConn) WriteFrame(f *frame.Frame) error {
	data, err := encodeFrame(f)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *rawConn) WriteHeartBeat() error { return c.write(heartBeatEOL) }

func (c *rawConn) ReadFrames() ([]*frame.Frame, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return decodeFrames(data)
}

func (c *rawConn) SetReadDeadline(t time.Time) error { return c.ws.SetReadDeadline(t) }
func (c *rawConn) Close() error                      { return c.ws.Close() }

// sockJSConn speaks the SockJS websocket framing: the server sends "o"
// on open, "h" heart-beats, "a[...]" message arrays and "c[code,reason]"
// on close; the client sends JSON arrays of strings.
type sockJSConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *sockJSConn) awaitOpen() error {
	c.ws.SetReadDeadline(time.Now().Add(handshakeWait))
	defer c.ws.SetReadDeadline(time.Time{})

	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return fmt.Errorf("waiting for sockjs open: %w", err)
	}
	if string(data) != "o" {
		return fmt.Errorf("unexpected sockjs open frame %q", data)
	}
	return nil
}

func (c *sockJSConn) write(payload []byte) error {
	data, err := json.Marshal([]string{string(payload)})
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *sockJSConn) WriteFrame(f *frame.Frame) error {
	data, err := encodeFrame(f)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *sockJSConn) WriteHeartBeat() error { return c.write(heartBeatEOL) }

func (c *sockJSConn) ReadFrames() ([]*frame.Frame, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	payloads, err := decodeSockJS(data)
	if err != nil {
		return nil, err
	}
	var frames []*frame.Frame
	for _, p := range payloads {
		fs, err := decodeFrames([]byte(p))
		frames = append(frames, fs...)
		if err != nil {
			return frames, err
		}
	}
	return frames, nil
}

func (c *sockJSConn) SetReadDeadline(t time.Time) error { return c.ws.SetReadDeadline(t) }
func (c *sockJSConn) Close() error                      { return c.ws.Close() }

// decodeSockJS unwraps one SockJS message into its string payloads.
func decodeSockJS(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty sockjs frame")
	}
	switch data[0] {
	case 'o', 'h':
		return nil, nil
	case 'a':
		var payloads []string
		if err := json.Unmarshal(data[1:], &payloads); err != nil {
			return nil, fmt.Errorf("decoding sockjs array: %w", err)
		}
		return payloads, nil
	case 'm':
		var payload string
		if err := json.Unmarshal(data[1:], &payload); err != nil {
			return nil, fmt.Errorf("decoding sockjs message: %w", err)
		}
		return []string{payload}, nil
	case 'c':
		var reason []any
		if err := json.Unmarshal(data[1:], &reason); err == nil && len(reason) == 2 {
			return nil, fmt.Errorf("%w: %v %v", errRemoteClose, reason[0], reason[1])
		}
		return nil, errRemoteClose
	default:
		return nil, fmt.Errorf("unknown sockjs frame type %q", data[0])
	}
}
