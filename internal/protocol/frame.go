// Package protocol implements the length-prefixed JSON wire format spoken
// over the supervisor's Unix domain socket: one request frame in, one
// response frame out, then the connection closes.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize is the largest frame body this protocol accepts, per spec.
const MaxFrameSize = 16 * 1024 * 1024

// ReadFrame reads one length-prefixed frame from r: a 4-byte big-endian
// length followed by that many bytes of UTF-8 JSON. Zero-length and
// oversized frames are rejected.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("protocol: reading frame length: %w", err)
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 {
		return nil, fmt.Errorf("protocol: zero-length frame")
	}
	if n > MaxFrameSize {
		return nil, fmt.Errorf("protocol: frame of %d bytes exceeds %d byte limit", n, MaxFrameSize)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("protocol: reading frame body: %w", err)
	}
	return body, nil
}

// WriteFrame writes body as one length-prefixed frame to w.
func WriteFrame(w io.Writer, body []byte) error {
	if len(body) == 0 {
		return fmt.Errorf("protocol: refusing to write a zero-length frame")
	}
	if len(body) > MaxFrameSize {
		return fmt.Errorf("protocol: frame of %d bytes exceeds %d byte limit", len(body), MaxFrameSize)
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))

	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("protocol: writing frame length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("protocol: writing frame body: %w", err)
	}
	return nil
}
