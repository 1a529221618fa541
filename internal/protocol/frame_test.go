package protocol

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteThenReadFrameRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	want := []byte(`{"type":"Success","data":{"ok":true}}`)

	if err := WriteFrame(&buf, want); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadFrame = %s, want %s", got, want)
	}
}

func TestWriteFrameRejectsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, nil); err == nil {
		t.Error("WriteFrame should reject a zero-length body")
	}
}

func TestWriteFrameRejectsOversized(t *testing.T) {
	var buf bytes.Buffer
	oversized := make([]byte, MaxFrameSize+1)
	if err := WriteFrame(&buf, oversized); err == nil {
		t.Error("WriteFrame should reject a body over MaxFrameSize")
	}
}

func TestReadFrameRejectsZeroLengthPrefix(t *testing.T) {
	r := bytes.NewReader([]byte{0, 0, 0, 0})
	if _, err := ReadFrame(r); err == nil {
		t.Error("ReadFrame should reject a declared zero-length frame")
	}
}

func TestReadFrameRejectsOversizedPrefix(t *testing.T) {
	r := bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	if _, err := ReadFrame(r); err == nil {
		t.Error("ReadFrame should reject a declared length over MaxFrameSize")
	}
}

func TestReadFrameRejectsTruncatedBody(t *testing.T) {
	r := strings.NewReader(string([]byte{0, 0, 0, 10}) + "short")
	if _, err := ReadFrame(r); err == nil {
		t.Error("ReadFrame should reject a body shorter than its declared length")
	}
}
