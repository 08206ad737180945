package wire

import "unsafe"

// ReportKind tags server -> client messages. Values are the shared ASCII
// tag bytes used by both wire formats.
type ReportKind byte

const (
	ReportAck       ReportKind = 'A'
	ReportCancelAck ReportKind = 'X'
	ReportTrade     ReportKind = 'T'
	ReportTopOfBook ReportKind = 'B'
	ReportReject    ReportKind = 'R'
)

func (k ReportKind) Valid() bool {
	switch k {
	case ReportAck, ReportCancelAck, ReportTrade, ReportTopOfBook, ReportReject:
		return true
	}
	return false
}

func (k ReportKind) String() string {
	switch k {
	case ReportAck:
		return "ack"
	case ReportCancelAck:
		return "cancel-ack"
	case ReportTrade:
		return "trade"
	case ReportTopOfBook:
		return "top-of-book"
	case ReportReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Report is the codec-independent decoded form of one server -> client
// message. It is a flat record: every kind fills only the fields it needs
// and leaves the rest zero. For Trade, UserID/OrderID carry the buy side.
//
// The struct is padded to exactly one cache line so that records passed
// through the ring buffer never straddle a line boundary.
type Report struct {
	Kind      ReportKind
	Side      Side
	SymbolLen uint8
	Reason    uint8
	Symbol    [MaxSymbolLen]byte

	UserID      uint32
	OrderID     uint32
	SellUserID  uint32
	SellOrderID uint32
	Price       uint32
	Quantity    uint32

	_ [28]byte
}

// Report must stay exactly one cache line wide.
var (
	_ [64 - unsafe.Sizeof(Report{})]byte
	_ [unsafe.Sizeof(Report{}) - 64]byte
)

// SymbolString returns the symbol without its zero padding.
func (r *Report) SymbolString() string {
	return string(r.Symbol[:r.SymbolLen])
}

// EmptyBook reports whether a top-of-book record is the "no resting
// orders on this side" sentinel.
func (r *Report) EmptyBook() bool {
	return r.Kind == ReportTopOfBook && r.Price == 0 && r.Quantity == 0
}
