package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestEncodeFrameRoundTrip(t *testing.T) {
	payload := []byte("N, 1, IBM, 10000, 50, B, 1001\n")
	buf := make([]byte, HeaderLen+len(payload))
	n, err := EncodeFrame(buf, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if n != HeaderLen+len(payload) {
		t.Fatalf("n: got %d want %d", n, HeaderLen+len(payload))
	}
	if got := binary.BigEndian.Uint32(buf[:HeaderLen]); got != uint32(len(payload)) {
		t.Fatalf("header length: got %d want %d", got, len(payload))
	}
	if !bytes.Equal(buf[HeaderLen:n], payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestEncodeFrameRejects(t *testing.T) {
	buf := make([]byte, HeaderLen+MaxPayload)
	if _, err := EncodeFrame(buf, nil); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("empty: got %v", err)
	}
	if _, err := EncodeFrame(buf, make([]byte, MaxPayload+1)); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("oversized: got %v", err)
	}
	if _, err := EncodeFrame(make([]byte, 8), make([]byte, 16)); !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("short buf: got %v", err)
	}
}

func TestWriteFrame(t *testing.T) {
	var sink bytes.Buffer
	payload := []byte{0x4D, 'F'}
	if err := WriteFrame(&sink, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := append([]byte{0, 0, 0, 2}, payload...)
	if !bytes.Equal(sink.Bytes(), want) {
		t.Fatalf("stream: got %x want %x", sink.Bytes(), want)
	}
	if err := WriteFrame(&sink, nil); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("empty: got %v", err)
	}
}

// frames builds a contiguous stream of framed payloads.
func frames(t *testing.T, payloads ...[]byte) []byte {
	t.Helper()
	var stream bytes.Buffer
	for _, p := range payloads {
		if err := WriteFrame(&stream, p); err != nil {
			t.Fatalf("frame: %v", err)
		}
	}
	return stream.Bytes()
}

// feed pushes stream into fr in chunks of at most chunk bytes and collects
// every payload Next yields along the way.
func feed(t *testing.T, fr *Reader, stream []byte, chunk int) [][]byte {
	t.Helper()
	var got [][]byte
	for len(stream) > 0 {
		n := chunk
		if n > len(stream) {
			n = len(stream)
		}
		wb := fr.WriteBuffer()
		if n > len(wb) {
			n = len(wb)
		}
		if n == 0 {
			t.Fatal("no writable space and no complete frame")
		}
		copy(wb, stream[:n])
		fr.Advance(n)
		stream = stream[n:]
		for {
			p, err := fr.Next()
			if err != nil {
				t.Fatalf("next: %v", err)
			}
			if p == nil {
				break
			}
			got = append(got, append([]byte(nil), p...))
		}
	}
	return got
}

func TestReaderReassemblesChunkedStream(t *testing.T) {
	payloads := [][]byte{
		[]byte("A, IBM, 1, 1001\n"),
		{0x4D, 'F'},
		bytes.Repeat([]byte{0xAB}, 512),
		[]byte("B, MSFT, -, -\n"),
	}
	stream := frames(t, payloads...)

	for _, chunk := range []int{1, 2, 3, 7, 64, len(stream)} {
		fr := NewReader()
		got := feed(t, fr, stream, chunk)
		if len(got) != len(payloads) {
			t.Fatalf("chunk %d: got %d payloads, want %d", chunk, len(got), len(payloads))
		}
		for i := range payloads {
			if !bytes.Equal(got[i], payloads[i]) {
				t.Fatalf("chunk %d: payload %d mismatch", chunk, i)
			}
		}
		if fr.HasPending() {
			t.Fatalf("chunk %d: bytes left pending", chunk)
		}
		if fr.Errors() != 0 {
			t.Fatalf("chunk %d: unexpected framing errors: %d", chunk, fr.Errors())
		}
	}
}

func TestReaderZeroLengthDiscardsEverything(t *testing.T) {
	fr := NewReader()
	good := frames(t, []byte("A, IBM, 1, 1\n"))
	wb := fr.WriteBuffer()
	n := copy(wb, good)
	n += copy(wb[n:], []byte{0, 0, 0, 0}) // corrupt zero-length header
	n += copy(wb[n:], good)
	fr.Advance(n)

	p, err := fr.Next()
	if err != nil || p == nil {
		t.Fatalf("first frame: %v %v", p, err)
	}
	if _, err := fr.Next(); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame, got %v", err)
	}
	if fr.Errors() != 1 {
		t.Fatalf("errors: got %d want 1", fr.Errors())
	}
	// the trailing good frame was discarded along with the corruption
	if fr.HasPending() {
		t.Fatal("pending bytes after corrupt length")
	}
	if p, err := fr.Next(); p != nil || err != nil {
		t.Fatalf("post-reset next: %v %v", p, err)
	}
}

func TestReaderOversizedLength(t *testing.T) {
	fr := NewReader()
	wb := fr.WriteBuffer()
	binary.BigEndian.PutUint32(wb, MaxPayload+1)
	fr.Advance(HeaderLen)
	if _, err := fr.Next(); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
	if fr.Errors() != 1 || fr.HasPending() {
		t.Fatalf("state after oversize: errs=%d pending=%v", fr.Errors(), fr.HasPending())
	}
}

func TestReaderCompaction(t *testing.T) {
	fr := NewReader()
	big := bytes.Repeat([]byte{0x11}, MaxPayload)
	stream := frames(t, big, big, big)
	got := feed(t, fr, stream, 4096)
	if len(got) != 3 {
		t.Fatalf("got %d payloads, want 3", len(got))
	}
	for i, p := range got {
		if !bytes.Equal(p, big) {
			t.Fatalf("payload %d corrupted by compaction", i)
		}
	}
}

func TestReaderReset(t *testing.T) {
	fr := NewReader()
	wb := fr.WriteBuffer()
	n := copy(wb, []byte{0, 0, 0, 5, 'h'})
	fr.Advance(n)
	if !fr.HasPending() {
		t.Fatal("expected pending bytes")
	}
	fr.Reset()
	if fr.HasPending() {
		t.Fatal("pending bytes after reset")
	}
}

func TestAdvancePanicsPastWritableRegion(t *testing.T) {
	fr := NewReader()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	fr.Advance(len(fr.WriteBuffer()) + 1)
}
