package wire

import "errors"

// MaxSymbolLen is the fixed width of the symbol field on the wire.
const MaxSymbolLen = 8

var (
	ErrBadSymbol = errors.New("wire: symbol must be 1-8 ASCII bytes")
	ErrBadSide   = errors.New("wire: side must be buy or sell")
)

// Side is the order side. Its value is the wire byte, so a packet capture
// reads the same as the in-memory tag.
type Side byte

const (
	SideNone Side = 0
	SideBuy  Side = 'B'
	SideSell Side = 'S'
)

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "none"
	}
}

// CommandKind tags client -> server messages. Values are the shared ASCII
// tag bytes used by both wire formats.
type CommandKind byte

const (
	CmdNewOrder CommandKind = 'N'
	CmdCancel   CommandKind = 'C'
	CmdFlush    CommandKind = 'F'
)

// NewOrder places a new order with the matching service.
type NewOrder struct {
	UserID   uint32
	Symbol   string
	Price    uint32 // cents
	Quantity uint32
	Side     Side
	OrderID  uint32
}

// Cancel withdraws a resting order. The symbol is part of the canonical
// cancel in both wire formats.
type Cancel struct {
	UserID  uint32
	Symbol  string
	OrderID uint32
}

// Command is one decoded client -> server message. Exactly one payload is
// meaningful, selected by Kind; Flush carries no fields.
type Command struct {
	Kind     CommandKind
	NewOrder NewOrder
	Cancel   Cancel
}

// PackSymbol validates and packs a symbol into its fixed wire width,
// right-padded with zero bytes.
func PackSymbol(s string) ([MaxSymbolLen]byte, uint8, error) {
	var out [MaxSymbolLen]byte
	if len(s) == 0 || len(s) > MaxSymbolLen {
		return out, 0, ErrBadSymbol
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e || s[i] == ',' {
			return out, 0, ErrBadSymbol
		}
	}
	copy(out[:], s)
	return out, uint8(len(s)), nil
}

// UnpackSymbol recovers the symbol string from its zero-padded wire form.
func UnpackSymbol(b [MaxSymbolLen]byte) (string, uint8) {
	n := 0
	for n < MaxSymbolLen && b[n] != 0 {
		n++
	}
	return string(b[:n]), uint8(n)
}
