package wire

import "encoding/binary"

// Magic identifies a binary-format payload. A message is binary iff its
// first byte equals Magic; this is the sole discriminator from text traffic.
const Magic byte = 0x4D

// Canonical binary message sizes. Big-endian, no implicit padding; every
// offset below is part of the external contract.
const (
	BinNewOrderSize  = 27 // magic, 'N', user(4), symbol(8), price(4), qty(4), side(1), order(4)
	BinCancelSize    = 18 // magic, 'C', user(4), symbol(8), order(4)
	BinFlushSize     = 2  // magic, 'F'
	BinAckSize       = 18 // magic, 'A'/'X', symbol(8), user(4), order(4)
	BinTradeSize     = 34 // magic, 'T', symbol(8), buyU(4), buyO(4), sellU(4), sellO(4), price(4), qty(4)
	BinTopOfBookSize = 19 // magic, 'B', symbol(8), side(1), price(4), qty(4)
	BinRejectSize    = 19 // magic, 'R', symbol(8), user(4), order(4), reason(1)
)

// EncodeNewOrder writes the binary form of o into buf and returns the byte
// count. buf is untouched on error.
func EncodeNewOrder(buf []byte, o NewOrder) (int, error) {
	sym, _, err := PackSymbol(o.Symbol)
	if err != nil {
		return 0, err
	}
	if !o.Side.Valid() {
		return 0, ErrBadSide
	}
	if o.Quantity == 0 {
		return 0, ErrBadQuantity
	}
	if len(buf) < BinNewOrderSize {
		return 0, ErrBufferTooSmall
	}
	buf[0] = Magic
	buf[1] = byte(CmdNewOrder)
	binary.BigEndian.PutUint32(buf[2:6], o.UserID)
	copy(buf[6:14], sym[:])
	binary.BigEndian.PutUint32(buf[14:18], o.Price)
	binary.BigEndian.PutUint32(buf[18:22], o.Quantity)
	buf[22] = byte(o.Side)
	binary.BigEndian.PutUint32(buf[23:27], o.OrderID)
	return BinNewOrderSize, nil
}

// EncodeCancel writes the binary form of x into buf.
func EncodeCancel(buf []byte, x Cancel) (int, error) {
	sym, _, err := PackSymbol(x.Symbol)
	if err != nil {
		return 0, err
	}
	if len(buf) < BinCancelSize {
		return 0, ErrBufferTooSmall
	}
	buf[0] = Magic
	buf[1] = byte(CmdCancel)
	binary.BigEndian.PutUint32(buf[2:6], x.UserID)
	copy(buf[6:14], sym[:])
	binary.BigEndian.PutUint32(buf[14:18], x.OrderID)
	return BinCancelSize, nil
}

// EncodeFlush writes the binary flush message into buf.
func EncodeFlush(buf []byte) (int, error) {
	if len(buf) < BinFlushSize {
		return 0, ErrBufferTooSmall
	}
	buf[0] = Magic
	buf[1] = byte(CmdFlush)
	return BinFlushSize, nil
}

// EncodeReport writes the binary form of a server -> client message.
func EncodeReport(buf []byte, r Report) (int, error) {
	switch r.Kind {
	case ReportAck, ReportCancelAck:
		if len(buf) < BinAckSize {
			return 0, ErrBufferTooSmall
		}
		buf[0] = Magic
		buf[1] = byte(r.Kind)
		copy(buf[2:10], r.Symbol[:])
		binary.BigEndian.PutUint32(buf[10:14], r.UserID)
		binary.BigEndian.PutUint32(buf[14:18], r.OrderID)
		return BinAckSize, nil
	case ReportTrade:
		if len(buf) < BinTradeSize {
			return 0, ErrBufferTooSmall
		}
		buf[0] = Magic
		buf[1] = byte(ReportTrade)
		copy(buf[2:10], r.Symbol[:])
		binary.BigEndian.PutUint32(buf[10:14], r.UserID)
		binary.BigEndian.PutUint32(buf[14:18], r.OrderID)
		binary.BigEndian.PutUint32(buf[18:22], r.SellUserID)
		binary.BigEndian.PutUint32(buf[22:26], r.SellOrderID)
		binary.BigEndian.PutUint32(buf[26:30], r.Price)
		binary.BigEndian.PutUint32(buf[30:34], r.Quantity)
		return BinTradeSize, nil
	case ReportTopOfBook:
		if len(buf) < BinTopOfBookSize {
			return 0, ErrBufferTooSmall
		}
		buf[0] = Magic
		buf[1] = byte(ReportTopOfBook)
		copy(buf[2:10], r.Symbol[:])
		buf[10] = byte(r.Side)
		binary.BigEndian.PutUint32(buf[11:15], r.Price)
		binary.BigEndian.PutUint32(buf[15:19], r.Quantity)
		return BinTopOfBookSize, nil
	case ReportReject:
		if len(buf) < BinRejectSize {
			return 0, ErrBufferTooSmall
		}
		buf[0] = Magic
		buf[1] = byte(ReportReject)
		copy(buf[2:10], r.Symbol[:])
		binary.BigEndian.PutUint32(buf[10:14], r.UserID)
		binary.BigEndian.PutUint32(buf[14:18], r.OrderID)
		buf[18] = r.Reason
		return BinRejectSize, nil
	default:
		return 0, ErrUnknownType
	}
}

// DecodeReport decodes one binary server -> client message. Magic and
// minimum length are validated before any field is touched; an unknown
// kind byte is reported, never coerced.
func DecodeReport(b []byte) (Report, error) {
	var r Report
	if len(b) < BinFlushSize {
		return r, ErrTooShort
	}
	if b[0] != Magic {
		return r, ErrInvalidMagic
	}
	kind := ReportKind(b[1])
	if !kind.Valid() {
		return r, ErrUnknownType
	}
	switch kind {
	case ReportAck, ReportCancelAck:
		if len(b) < BinAckSize {
			return r, ErrTooShort
		}
		r.Kind = kind
		copy(r.Symbol[:], b[2:10])
		r.UserID = binary.BigEndian.Uint32(b[10:14])
		r.OrderID = binary.BigEndian.Uint32(b[14:18])
	case ReportTrade:
		if len(b) < BinTradeSize {
			return r, ErrTooShort
		}
		r.Kind = ReportTrade
		copy(r.Symbol[:], b[2:10])
		r.UserID = binary.BigEndian.Uint32(b[10:14])
		r.OrderID = binary.BigEndian.Uint32(b[14:18])
		r.SellUserID = binary.BigEndian.Uint32(b[18:22])
		r.SellOrderID = binary.BigEndian.Uint32(b[22:26])
		r.Price = binary.BigEndian.Uint32(b[26:30])
		r.Quantity = binary.BigEndian.Uint32(b[30:34])
	case ReportTopOfBook:
		if len(b) < BinTopOfBookSize {
			return r, ErrTooShort
		}
		r.Kind = ReportTopOfBook
		copy(r.Symbol[:], b[2:10])
		switch s := Side(b[10]); {
		case s.Valid():
			r.Side = s
		case s != SideNone:
			return Report{}, ErrBadSide
		}
		r.Price = binary.BigEndian.Uint32(b[11:15])
		r.Quantity = binary.BigEndian.Uint32(b[15:19])
	case ReportReject:
		if len(b) < BinRejectSize {
			return r, ErrTooShort
		}
		r.Kind = ReportReject
		copy(r.Symbol[:], b[2:10])
		r.UserID = binary.BigEndian.Uint32(b[10:14])
		r.OrderID = binary.BigEndian.Uint32(b[14:18])
		r.Reason = b[18]
	}
	_, r.SymbolLen = UnpackSymbol(r.Symbol)
	return r, nil
}

// DecodeCommand decodes one binary client -> server message. Used by test
// peers and by tooling that replays captured order flow.
func DecodeCommand(b []byte) (Command, error) {
	var c Command
	if len(b) < BinFlushSize {
		return c, ErrTooShort
	}
	if b[0] != Magic {
		return c, ErrInvalidMagic
	}
	switch CommandKind(b[1]) {
	case CmdNewOrder:
		if len(b) < BinNewOrderSize {
			return c, ErrTooShort
		}
		c.Kind = CmdNewOrder
		var sym [MaxSymbolLen]byte
		copy(sym[:], b[6:14])
		s, _ := UnpackSymbol(sym)
		c.NewOrder = NewOrder{
			UserID:   binary.BigEndian.Uint32(b[2:6]),
			Symbol:   s,
			Price:    binary.BigEndian.Uint32(b[14:18]),
			Quantity: binary.BigEndian.Uint32(b[18:22]),
			Side:     Side(b[22]),
			OrderID:  binary.BigEndian.Uint32(b[23:27]),
		}
	case CmdCancel:
		if len(b) < BinCancelSize {
			return c, ErrTooShort
		}
		c.Kind = CmdCancel
		var sym [MaxSymbolLen]byte
		copy(sym[:], b[6:14])
		s, _ := UnpackSymbol(sym)
		c.Cancel = Cancel{
			UserID:  binary.BigEndian.Uint32(b[2:6]),
			Symbol:  s,
			OrderID: binary.BigEndian.Uint32(b[14:18]),
		}
	case CmdFlush:
		c.Kind = CmdFlush
	default:
		return c, ErrUnknownType
	}
	return c, nil
}
