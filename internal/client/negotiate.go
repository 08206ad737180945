package client

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/orderwire/internal/wire"
)

// Detection probes use reserved sentinel order ids, one per format, so
// the server never sees the same key twice if both probes land.
const (
	probeSymbol   = "PROBE"
	probeUserID   = 0xFFFFFFF0
	probeBinaryID = 0xFFFFFF01
	probeTextID   = 0xFFFFFF02
)

// negotiate resolves the wire format for the dialed transport. Detection
// never aborts the connection: when in doubt the answer is text, the
// most permissive default.
func (c *Client) negotiate() {
	switch {
	case c.cfg.Format != FormatAuto:
		c.format = c.cfg.Format
	case c.tr.kind() != TransportTCP:
		// A unicast UDP probe never elicits a response in this design,
		// and multicast is receive-only.
		c.format = FormatText
	default:
		c.format = c.detectFormat()
	}
	log.Info().
		Str("transport", c.tr.kind().String()).
		Str("format", c.format.String()).
		Msg("session negotiated")
}

// detectFormat sends a binary probe order and inspects the first
// response byte. Magic means the peer speaks binary; anything else,
// including silence, means text by elimination.
func (c *Client) detectFormat() Format {
	probe := wire.NewOrder{
		UserID:   probeUserID,
		Symbol:   probeSymbol,
		Price:    1,
		Quantity: 1,
		Side:     wire.SideBuy,
		OrderID:  probeBinaryID,
	}

	var buf [wire.BinNewOrderSize]byte
	n, _ := wire.EncodeNewOrder(buf[:], probe)
	if err := c.tr.send(buf[:n]); err == nil {
		p, err := c.tr.recv(time.Now().Add(c.cfg.DetectInterval))
		if err == nil && len(p) > 0 && p[0] == wire.Magic {
			c.cancelProbe(FormatBinary, probeBinaryID)
			c.drain()
			return FormatBinary
		}
	}

	probe.OrderID = probeTextID
	if line, err := wire.AppendNewOrder(nil, probe); err == nil {
		if err := c.tr.send(line); err == nil {
			c.cancelProbe(FormatText, probeTextID)
		}
	}
	c.drain()
	return FormatText
}

// cancelProbe withdraws the sentinel order the detected peer accepted so
// the probe leaves no residual state on the server.
func (c *Client) cancelProbe(f Format, orderID uint32) {
	x := wire.Cancel{UserID: probeUserID, Symbol: probeSymbol, OrderID: orderID}
	var msg []byte
	if f == FormatBinary {
		var buf [wire.BinCancelSize]byte
		n, err := wire.EncodeCancel(buf[:], x)
		if err != nil {
			return
		}
		msg = buf[:n]
	} else {
		line, err := wire.AppendCancel(nil, x)
		if err != nil {
			return
		}
		msg = line
	}
	if err := c.tr.send(msg); err != nil {
		log.Debug().Err(err).Msg("probe cancel failed")
	}
}

// drain consumes trailing probe responses for a bounded number of short
// intervals, then discards any stale stream bytes. Never unbounded.
func (c *Client) drain() {
	for i := 0; i < c.cfg.MaxDrainIters; i++ {
		if _, err := c.tr.recv(time.Now().Add(c.cfg.DrainInterval)); err != nil {
			break
		}
	}
	c.tr.resetStream()
}
