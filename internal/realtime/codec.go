package realtime

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-stomp/stomp/v3/frame"
)

// readerSize is shared by the bufio.Reader handed to frame.NewReaderSize so
// that the decoder reuses it instead of buffering ahead of it.
const readerSize = 4096

// errMalformedFrame is wrapped by every decoding error.
var errMalformedFrame = errors.New("malformed stomp frame")

var contentLengthPrefix = []byte(frame.ContentLength + ":")

// encodeFrame serializes f. A content-length header is added when the
// frame has a body and does not already carry one.
func encodeFrame(f *frame.Frame) ([]byte, error) {
	if len(f.Body) > 0 {
		if _, ok := f.Header.Contains(frame.ContentLength); !ok {
			f.Header.Set(frame.ContentLength, strconv.Itoa(len(f.Body)))
		}
	}
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return nil, fmt.Errorf("encoding %s frame: %w", f.Command, err)
	}
	return buf.Bytes(), nil
}

// heartBeatEOL is sent as a client heart-beat.
var heartBeatEOL = []byte{'\n'}

// decodeFrames reads every frame in one transport message. Heart-beat EOLs
// are skipped. Frames decoded before an error are returned with it.
func decodeFrames(data []byte) ([]*frame.Frame, error) {
	if err := checkContentLengths(data); err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(bytes.NewReader(data), readerSize)
	r := frame.NewReaderSize(br, readerSize)
	var frames []*frame.Frame
	for {
		if _, err := br.Peek(1); err == io.EOF {
			return frames, nil
		}
		f, err := r.Read()
		if err != nil {
			return frames, fmt.Errorf("%w: %w", errMalformedFrame, err)
		}
		if f != nil {
			frames = append(frames, f)
		}
	}
}

// checkContentLengths rejects a message whose content-length headers
// claim more bytes than the message holds, before the decoder allocates
// a body of that size.
func checkContentLengths(data []byte) error {
	for line := range bytes.Lines(data) {
		v, ok := bytes.CutPrefix(line, contentLengthPrefix)
		if !ok {
			continue
		}
		v = bytes.TrimRight(v, "\r\n")
		n, err := strconv.ParseUint(string(bytes.TrimSpace(v)), 10, 63)
		if err != nil || n > uint64(len(data)) {
			return fmt.Errorf("%w: content-length %q exceeds message", errMalformedFrame, v)
		}
	}
	return nil
}
