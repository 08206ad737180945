// Package frame owns the length-prefixed stream framing used on TCP.
//
// Ownership boundary:
// - the 4-byte big-endian length header (payload bytes only)
// - the reassembly state machine for arbitrarily-chunked streams
// - the payload size ceiling that bounds buffer growth
package frame

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	// HeaderLen is the length prefix width. The prefix covers only the
	// payload, never itself.
	HeaderLen = 4

	// MaxPayload bounds a single frame. A declared length above this is
	// protocol corruption, not a large message.
	MaxPayload = 16 * 1024
)

var (
	ErrEmptyFrame     = errors.New("frame: zero-length frame")
	ErrFrameTooLarge  = errors.New("frame: payload exceeds ceiling")
	ErrBufferTooSmall = errors.New("frame: output buffer too small")
)

// EncodeFrame writes the length header followed by payload into buf and
// returns the total byte count. Empty and oversized payloads are rejected
// before anything is written.
func EncodeFrame(buf, payload []byte) (int, error) {
	if len(payload) == 0 {
		return 0, ErrEmptyFrame
	}
	if len(payload) > MaxPayload {
		return 0, ErrFrameTooLarge
	}
	if len(buf) < HeaderLen+len(payload) {
		return 0, ErrBufferTooSmall
	}
	binary.BigEndian.PutUint32(buf[:HeaderLen], uint32(len(payload)))
	copy(buf[HeaderLen:], payload)
	return HeaderLen + len(payload), nil
}

// WriteFrame writes one framed payload to w.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyFrame
	}
	if len(payload) > MaxPayload {
		return ErrFrameTooLarge
	}
	var head [HeaderLen]byte
	binary.BigEndian.PutUint32(head[:], uint32(len(payload)))
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
