package realtime

import (
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAddsContentLength(t *testing.T) {
	f := frame.New(frame.SEND, frame.Destination, "/app/chat.send", frame.ContentType, "application/json")
	f.Body = []byte(`{"content":"hi"}`)

	data, err := encodeFrame(f)
	require.NoError(t, err)
	assert.Equal(t,
		"SEND\ndestination:/app/chat.send\ncontent-type:application/json\ncontent-length:16\n\n{\"content\":\"hi\"}\x00",
		string(data))
}

func TestEncodeEscapesHeaders(t *testing.T) {
	data, err := encodeFrame(frame.New(frame.SEND, "x:key", "line\nbreak\\"))
	require.NoError(t, err)
	assert.Equal(t, "SEND\nx\\ckey:line\\nbreak\\\\\n\n\x00", string(data))
}

func TestDecodeRoundTrip(t *testing.T) {
	in := frame.New(frame.MESSAGE, frame.Destination, "/topic/alert/7", "weird", "a:b\nc")
	in.Body = []byte("payload\x00with nul")
	data, err := encodeFrame(in)
	require.NoError(t, err)

	frames, err := decodeFrames(data)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	out := frames[0]
	assert.Equal(t, frame.MESSAGE, out.Command)
	assert.Equal(t, "/topic/alert/7", out.Header.Get(frame.Destination))
	assert.Equal(t, "a:b\nc", out.Header.Get("weird"))
	assert.Equal(t, "payload\x00with nul", string(out.Body))
}

func TestDecodeSkipsHeartBeats(t *testing.T) {
	frames, err := decodeFrames([]byte("\n\r\n"))
	require.NoError(t, err)
	assert.Empty(t, frames)

	data := []byte("\nCONNECTED\nversion:1.2\nheart-beat:0,0\n\n\x00\nMESSAGE\ndestination:/x\n\nbody\x00\n")
	frames, err = decodeFrames(data)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, frame.CONNECTED, frames[0].Command)
	assert.Equal(t, "1.2", frames[0].Header.Get(frame.Version))
	assert.Equal(t, "body", string(frames[1].Body))
}

func TestDecodeRepeatedHeaderFirstWins(t *testing.T) {
	frames, err := decodeFrames([]byte("MESSAGE\nfoo:first\nfoo:second\n\n\x00"))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, "first", frames[0].Header.Get("foo"))
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"no terminator":         "MESSAGE\n\nbody",
		"no colon":              "MESSAGE\nbroken\n\n\x00",
		"short body":            "MESSAGE\ncontent-length:10\n\nabc\x00",
		"unterminated hdr":      "MESSAGE\nk:v",
		"huge content-length":   "MESSAGE\ndestination:/topic/x\ncontent-length:9223372036854775807\n\n{}\x00",
		"content-length beyond": "MESSAGE\ncontent-length:4000000000\n\n{}\x00",
		"negative length":       "MESSAGE\ncontent-length:-1\n\n{}\x00",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, err := decodeFrames([]byte(raw))
				assert.ErrorIs(t, err, errMalformedFrame)
			})
		})
	}
}

func TestDecodeKeepsFramesBeforeError(t *testing.T) {
	frames, err := decodeFrames([]byte("MESSAGE\ndestination:/x\n\nok\x00MESSAGE\nbroken\n\n\x00"))
	assert.ErrorIs(t, err, errMalformedFrame)
	require.Len(t, frames, 1)
	assert.Equal(t, "ok", string(frames[0].Body))
}

func TestHeartBeatIntervals(t *testing.T) {
	send, read := heartBeatIntervals("10000,8000")
	assert.Equal(t, 8*time.Second, send)
	assert.Equal(t, 20*time.Second, read)

	send, read = heartBeatIntervals("0,0")
	assert.Zero(t, send)
	assert.Zero(t, read)

	send, read = heartBeatIntervals("fast")
	assert.Zero(t, send+read)
}
