package frame

import "encoding/binary"

// Reader reassembles a raw, arbitrarily-chunked byte stream into discrete
// frame payloads. It owns a single fixed buffer and two cursors with the
// invariant 0 <= r <= w <= cap; it is never resized. One Reader per
// connection, driven by one goroutine.
//
// Usage loop: copy received bytes into WriteBuffer(), call Advance(n),
// then drain Next() until it reports that more bytes are needed.
type Reader struct {
	buf  []byte
	r, w int
	errs uint64
}

// NewReader returns a Reader sized for the maximum frame.
func NewReader() *Reader {
	return &Reader{buf: make([]byte, HeaderLen+MaxPayload)}
}

// WriteBuffer returns the writable tail of the buffer. If consumed bytes
// sit at the front, unconsumed bytes are first compacted to offset 0 so
// the single allocation suffices for any number of messages.
func (fr *Reader) WriteBuffer() []byte {
	if fr.r > 0 {
		n := copy(fr.buf, fr.buf[fr.r:fr.w])
		fr.r, fr.w = 0, n
	}
	return fr.buf[fr.w:]
}

// Advance records that n new bytes were placed at the start of the last
// WriteBuffer result.
func (fr *Reader) Advance(n int) {
	if n < 0 || fr.w+n > len(fr.buf) {
		panic("frame: advance past writable region")
	}
	fr.w += n
}

// Next returns the next complete payload, or (nil, nil) when more bytes
// are needed. A declared length of zero or above the ceiling is protocol
// corruption: the error counter is incremented once, the entire buffer is
// discarded, and a typed error is returned. A corrupt length invalidates
// all subsequent framing, so no partial recovery is attempted.
//
// The returned slice aliases the internal buffer and is valid until the
// next WriteBuffer or Next call.
func (fr *Reader) Next() ([]byte, error) {
	avail := fr.w - fr.r
	if avail < HeaderLen {
		return nil, nil
	}
	n := int(binary.BigEndian.Uint32(fr.buf[fr.r : fr.r+HeaderLen]))
	if n == 0 {
		fr.fail()
		return nil, ErrEmptyFrame
	}
	if n > MaxPayload {
		fr.fail()
		return nil, ErrFrameTooLarge
	}
	if avail < HeaderLen+n {
		return nil, nil
	}
	p := fr.buf[fr.r+HeaderLen : fr.r+HeaderLen+n]
	fr.r += HeaderLen + n
	if fr.r == fr.w {
		fr.r, fr.w = 0, 0
	}
	return p, nil
}

// HasPending reports whether unconsumed bytes remain.
func (fr *Reader) HasPending() bool {
	return fr.w > fr.r
}

// Errors returns the count of framing errors observed.
func (fr *Reader) Errors() uint64 {
	return fr.errs
}

// Reset discards all buffered bytes. Used on reconnect.
func (fr *Reader) Reset() {
	fr.r, fr.w = 0, 0
}

func (fr *Reader) fail() {
	fr.errs++
	fr.r, fr.w = 0, 0
}
