package client

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/orderwire/internal/observability"
	"github.com/danmuck/orderwire/internal/wire"
	"github.com/danmuck/orderwire/internal/wire/frame"
)

// Journal records outbound order flow for replay after reconnect.
// Implemented by journal.Journal; nil disables journaling.
type Journal interface {
	RecordOrder(o wire.NewOrder) error
	RecordCancel(x wire.Cancel) error
	MarkAcked(orderID uint32) error
}

// Stats are per-client counters. Each client owns its counters
// exclusively; reads are only meaningful from the goroutine driving the
// client.
type Stats struct {
	OrdersSent  uint64
	CancelsSent uint64
	FlushesSent uint64

	Acks       uint64
	CancelAcks uint64
	Trades     uint64
	TopOfBook  uint64
	Rejects    uint64

	DecodeErrors  uint64
	FramingErrors uint64
}

// Client is one connection to the matching service. Not safe for
// concurrent use; a client belongs to the goroutine that dialed it.
type Client struct {
	cfg    Config
	tr     transport
	format Format
	jn     Journal

	scratch []byte
	pending [][]byte // undelivered lines from a multi-message datagram
	stats   Stats
}

// Dial connects, negotiates transport and format once, and returns a
// ready client.
func Dial(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	tr, err := dialTransport(cfg)
	if err != nil {
		return nil, err
	}
	c := &Client{
		cfg:     cfg,
		tr:      tr,
		jn:      cfg.Journal,
		scratch: make([]byte, 0, 128),
	}
	c.negotiate()
	observability.RecordNegotiation(tr.kind().String(), c.format.String())
	return c, nil
}

// Format returns the negotiated wire format.
func (c *Client) Format() Format { return c.format }

// Transport returns the resolved transport kind.
func (c *Client) Transport() TransportKind { return c.tr.kind() }

// Stats returns a snapshot of the client counters.
func (c *Client) Stats() Stats {
	s := c.stats
	if t, ok := c.tr.(*tcpTransport); ok {
		s.FramingErrors = t.frameErrors()
	}
	return s
}

// Place sends a new order.
func (c *Client) Place(o wire.NewOrder) error {
	msg, err := c.encodeNewOrder(o)
	if err != nil {
		return err
	}
	if err := c.tr.send(msg); err != nil {
		return fmt.Errorf("client: send new-order: %w", err)
	}
	c.stats.OrdersSent++
	observability.RecordSend(c.format.String(), "new-order")
	if c.jn != nil {
		if err := c.jn.RecordOrder(o); err != nil {
			log.Warn().Err(err).Uint32("order_id", o.OrderID).Msg("journal write failed")
		}
	}
	return nil
}

// CancelOrder withdraws a resting order.
func (c *Client) CancelOrder(x wire.Cancel) error {
	msg, err := c.encodeCancel(x)
	if err != nil {
		return err
	}
	if err := c.tr.send(msg); err != nil {
		return fmt.Errorf("client: send cancel: %w", err)
	}
	c.stats.CancelsSent++
	observability.RecordSend(c.format.String(), "cancel")
	if c.jn != nil {
		if err := c.jn.RecordCancel(x); err != nil {
			log.Warn().Err(err).Uint32("order_id", x.OrderID).Msg("journal write failed")
		}
	}
	return nil
}

// Flush asks the server to clear all books.
func (c *Client) Flush() error {
	var msg []byte
	if c.format == FormatBinary {
		var buf [wire.BinFlushSize]byte
		n, _ := wire.EncodeFlush(buf[:])
		msg = buf[:n]
	} else {
		msg = wire.AppendFlush(c.scratch[:0])
	}
	if err := c.tr.send(msg); err != nil {
		return fmt.Errorf("client: send flush: %w", err)
	}
	c.stats.FlushesSent++
	observability.RecordSend(c.format.String(), "flush")
	return nil
}

// Recv waits up to timeout for the next server message. The boolean is
// false with a nil error when nothing arrived in time (retryable); a
// non-nil error means either a malformed message or, when it wraps
// ErrTransport, a dead peer.
func (c *Client) Recv(timeout time.Duration) (wire.Report, bool, error) {
	payload, ok, err := c.nextPayload(timeout)
	if !ok || err != nil {
		return wire.Report{}, false, err
	}

	var rep wire.Report
	if c.format == FormatBinary {
		rep, err = wire.DecodeReport(payload)
	} else {
		rep, err = wire.ParseReport(payload)
	}
	if err != nil {
		c.stats.DecodeErrors++
		observability.RecordDecodeError(c.format.String())
		return wire.Report{}, false, err
	}
	c.note(rep)
	return rep, true, nil
}

// Close tears the connection down.
func (c *Client) Close() error {
	return c.tr.close()
}

func (c *Client) nextPayload(timeout time.Duration) ([]byte, bool, error) {
	if len(c.pending) > 0 {
		p := c.pending[0]
		c.pending = c.pending[1:]
		return p, true, nil
	}

	p, err := c.tr.recv(time.Now().Add(timeout))
	if err != nil {
		switch {
		case isFramingErr(err):
			c.stats.FramingErrors++
			observability.RecordFrameError()
			return nil, false, err
		case isTimeout(err):
			return nil, false, nil
		default:
			return nil, false, fmt.Errorf("%w: %v", ErrTransport, err)
		}
	}

	// A text datagram may carry several newline-delimited messages; the
	// receive buffer is reused, so queued lines must be copied out.
	if c.format == FormatText && c.tr.kind() != TransportTCP {
		lines := splitLines(p)
		if len(lines) == 0 {
			return nil, false, nil
		}
		for _, l := range lines[1:] {
			c.pending = append(c.pending, append([]byte(nil), l...))
		}
		return lines[0], true, nil
	}
	return p, true, nil
}

func (c *Client) encodeNewOrder(o wire.NewOrder) ([]byte, error) {
	if c.format == FormatBinary {
		c.scratch = c.scratch[:cap(c.scratch)]
		n, err := wire.EncodeNewOrder(c.scratch, o)
		if err != nil {
			return nil, err
		}
		return c.scratch[:n], nil
	}
	line, err := wire.AppendNewOrder(c.scratch[:0], o)
	if err != nil {
		return nil, err
	}
	c.scratch = line[:0]
	return line, nil
}

func (c *Client) encodeCancel(x wire.Cancel) ([]byte, error) {
	if c.format == FormatBinary {
		c.scratch = c.scratch[:cap(c.scratch)]
		n, err := wire.EncodeCancel(c.scratch, x)
		if err != nil {
			return nil, err
		}
		return c.scratch[:n], nil
	}
	line, err := wire.AppendCancel(c.scratch[:0], x)
	if err != nil {
		return nil, err
	}
	c.scratch = line[:0]
	return line, nil
}

func (c *Client) note(rep wire.Report) {
	switch rep.Kind {
	case wire.ReportAck:
		c.stats.Acks++
		if c.jn != nil {
			_ = c.jn.MarkAcked(rep.OrderID)
		}
	case wire.ReportCancelAck:
		c.stats.CancelAcks++
		if c.jn != nil {
			_ = c.jn.MarkAcked(rep.OrderID)
		}
	case wire.ReportTrade:
		c.stats.Trades++
	case wire.ReportTopOfBook:
		c.stats.TopOfBook++
	case wire.ReportReject:
		c.stats.Rejects++
	}
	observability.RecordReport(c.format.String(), rep.Kind.String())
}

func isFramingErr(err error) bool {
	return errors.Is(err, frame.ErrEmptyFrame) || errors.Is(err, frame.ErrFrameTooLarge)
}

func splitLines(p []byte) [][]byte {
	var out [][]byte
	for _, l := range bytes.Split(p, []byte{'\n'}) {
		l = bytes.TrimSpace(l)
		if len(l) > 0 {
			out = append(out, l)
		}
	}
	return out
}
