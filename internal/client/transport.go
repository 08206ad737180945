package client

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/danmuck/orderwire/internal/wire/frame"
)

var (
	ErrClosed          = errors.New("client: connection closed")
	ErrSendUnsupported = errors.New("client: transport is receive-only")
	ErrTransport       = errors.New("client: transport failed")
)

// transport is the raw payload pipe under the codecs. TCP carries framed
// payloads; UDP and multicast carry one payload per datagram.
type transport interface {
	kind() TransportKind
	send(payload []byte) error
	// recv blocks until one payload arrives or the deadline passes.
	recv(deadline time.Time) ([]byte, error)
	// resetStream discards any locally buffered stream bytes.
	resetStream()
	close() error
}

func dialTransport(cfg Config) (transport, error) {
	switch cfg.Transport {
	case TransportTCP:
		return dialTCP(cfg)
	case TransportUDP:
		return dialUDP(cfg)
	case TransportMulticast:
		return dialMulticast(cfg)
	default:
		// TCP first: reliable and the only transport that supports
		// detection. A UDP "connection" never fails at this layer, so
		// it is the terminal fallback.
		t, err := dialTCP(cfg)
		if err != nil {
			return dialUDP(cfg)
		}
		return t, nil
	}
}

type tcpTransport struct {
	conn         net.Conn
	fr           *frame.Reader
	writeTimeout time.Duration
}

func dialTCP(cfg Config) (*tcpTransport, error) {
	conn, err := net.DialTimeout("tcp", cfg.Addr, cfg.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("client: tcp dial %s: %w", cfg.Addr, err)
	}
	return &tcpTransport{conn: conn, fr: frame.NewReader(), writeTimeout: cfg.WriteTimeout}, nil
}

func (t *tcpTransport) kind() TransportKind { return TransportTCP }

func (t *tcpTransport) send(payload []byte) error {
	if t.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	return frame.WriteFrame(t.conn, payload)
}

func (t *tcpTransport) recv(deadline time.Time) ([]byte, error) {
	for {
		p, err := t.fr.Next()
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
		buf := t.fr.WriteBuffer()
		_ = t.conn.SetReadDeadline(deadline)
		n, err := t.conn.Read(buf)
		if n > 0 {
			t.fr.Advance(n)
		}
		if err != nil && n == 0 {
			return nil, err
		}
	}
}

func (t *tcpTransport) resetStream() { t.fr.Reset() }

func (t *tcpTransport) close() error { return t.conn.Close() }

// FrameErrors exposes the framing error counter for the owning client.
func (t *tcpTransport) frameErrors() uint64 { return t.fr.Errors() }

const maxDatagram = 64 * 1024

type udpTransport struct {
	conn    net.Conn
	scratch []byte
}

func dialUDP(cfg Config) (*udpTransport, error) {
	conn, err := net.Dial("udp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("client: udp dial %s: %w", cfg.Addr, err)
	}
	return &udpTransport{conn: conn, scratch: make([]byte, maxDatagram)}, nil
}

func (t *udpTransport) kind() TransportKind { return TransportUDP }

func (t *udpTransport) send(payload []byte) error {
	_, err := t.conn.Write(payload)
	return err
}

func (t *udpTransport) recv(deadline time.Time) ([]byte, error) {
	_ = t.conn.SetReadDeadline(deadline)
	n, err := t.conn.Read(t.scratch)
	if err != nil {
		return nil, err
	}
	return t.scratch[:n], nil
}

func (t *udpTransport) resetStream() {}

func (t *udpTransport) close() error { return t.conn.Close() }

// multicastTransport subscribes to a market-data group. Receive-only.
type multicastTransport struct {
	conn    *net.UDPConn
	scratch []byte
}

func dialMulticast(cfg Config) (*multicastTransport, error) {
	group, err := net.ResolveUDPAddr("udp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("client: multicast addr %s: %w", cfg.Addr, err)
	}
	conn, err := net.ListenMulticastUDP("udp", nil, group)
	if err != nil {
		return nil, fmt.Errorf("client: multicast join %s: %w", cfg.Addr, err)
	}
	return &multicastTransport{conn: conn, scratch: make([]byte, maxDatagram)}, nil
}

func (t *multicastTransport) kind() TransportKind { return TransportMulticast }

func (t *multicastTransport) send([]byte) error { return ErrSendUnsupported }

func (t *multicastTransport) recv(deadline time.Time) ([]byte, error) {
	_ = t.conn.SetReadDeadline(deadline)
	n, _, err := t.conn.ReadFromUDP(t.scratch)
	if err != nil {
		return nil, err
	}
	return t.scratch[:n], nil
}

func (t *multicastTransport) resetStream() {}

func (t *multicastTransport) close() error { return t.conn.Close() }

// isTimeout distinguishes "nothing arrived yet" (recoverable) from "the
// peer is gone" (fatal to the connection).
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
