package publisher

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// separator between topic and body inside a frame
const separator = ": "

var (
	ErrInvalidFrame   = errors.New("frame must not contain a newline")
	ErrMalformedFrame = errors.New("malformed frame")
)

// Frame is one published unit as seen by a subscriber.
type Frame struct {
	Topic string
	Body  []byte
}

// EncodeFrame joins topic and body as "<topic>: <body>". Newlines delimit frames
// on the wire, so neither part may contain one.
func EncodeFrame(topic string, body []byte) ([]byte, error) {
	if strings.ContainsAny(topic, "\r\n") || bytes.ContainsAny(body, "\r\n") {
		return nil, ErrInvalidFrame
	}
	frame := make([]byte, 0, len(topic)+len(separator)+len(body))
	frame = append(frame, topic...)
	frame = append(frame, separator...)
	frame = append(frame, body...)
	return frame, nil
}

// ParseFrame splits a frame at the first separator.
func ParseFrame(line []byte) (Frame, error) {
	line = bytes.TrimRight(line, "\r\n")
	i := bytes.Index(line, []byte(separator))
	if i < 0 {
		return Frame{}, fmt.Errorf("%w: missing %q separator", ErrMalformedFrame, separator)
	}
	body := make([]byte, len(line)-i-len(separator))
	copy(body, line[i+len(separator):])
	return Frame{Topic: string(line[:i]), Body: body}, nil
}
