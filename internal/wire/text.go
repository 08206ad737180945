package wire

import (
	"bytes"
	"fmt"
	"strconv"
)

// Text format: one message per '\n'-terminated line, comma-separated,
// decimal ASCII numbers, optional surrounding whitespace per field. The
// kind letter in column 1 is case significant and doubles as the format
// discriminator: anything whose first byte is not Magic is text.
//
// The empty-book sentinel uses the literal token "-" for price and
// quantity, never "0", so that it round-trips losslessly.
const emptyToken = "-"

const sep = ", "

// AppendNewOrder appends "N, user, symbol, price, qty, side, order\n".
func AppendNewOrder(dst []byte, o NewOrder) ([]byte, error) {
	if _, _, err := PackSymbol(o.Symbol); err != nil {
		return dst, err
	}
	if !o.Side.Valid() {
		return dst, ErrBadSide
	}
	if o.Quantity == 0 {
		return dst, ErrBadQuantity
	}
	dst = append(dst, byte(CmdNewOrder))
	dst = appendNum(dst, o.UserID)
	dst = append(dst, sep...)
	dst = append(dst, o.Symbol...)
	dst = appendNum(dst, o.Price)
	dst = appendNum(dst, o.Quantity)
	dst = append(dst, sep...)
	dst = append(dst, byte(o.Side))
	dst = appendNum(dst, o.OrderID)
	return append(dst, '\n'), nil
}

// AppendCancel appends "C, user, symbol, order\n".
func AppendCancel(dst []byte, x Cancel) ([]byte, error) {
	if _, _, err := PackSymbol(x.Symbol); err != nil {
		return dst, err
	}
	dst = append(dst, byte(CmdCancel))
	dst = appendNum(dst, x.UserID)
	dst = append(dst, sep...)
	dst = append(dst, x.Symbol...)
	dst = appendNum(dst, x.OrderID)
	return append(dst, '\n'), nil
}

// AppendFlush appends "F\n".
func AppendFlush(dst []byte) []byte {
	return append(dst, byte(CmdFlush), '\n')
}

// AppendReport appends the text form of one server -> client message.
func AppendReport(dst []byte, r Report) ([]byte, error) {
	if r.SymbolLen == 0 || int(r.SymbolLen) > MaxSymbolLen {
		return dst, ErrEmptySymbol
	}
	sym := r.Symbol[:r.SymbolLen]
	switch r.Kind {
	case ReportAck, ReportCancelAck:
		dst = append(dst, byte(r.Kind))
		dst = append(dst, sep...)
		dst = append(dst, sym...)
		dst = appendNum(dst, r.UserID)
		dst = appendNum(dst, r.OrderID)
	case ReportTrade:
		dst = append(dst, byte(ReportTrade))
		dst = append(dst, sep...)
		dst = append(dst, sym...)
		dst = appendNum(dst, r.UserID)
		dst = appendNum(dst, r.OrderID)
		dst = appendNum(dst, r.SellUserID)
		dst = appendNum(dst, r.SellOrderID)
		dst = appendNum(dst, r.Price)
		dst = appendNum(dst, r.Quantity)
	case ReportTopOfBook:
		dst = append(dst, byte(ReportTopOfBook))
		dst = append(dst, sep...)
		dst = append(dst, sym...)
		if r.Side.Valid() {
			dst = append(dst, sep...)
			dst = append(dst, byte(r.Side))
		}
		if r.EmptyBook() {
			dst = append(dst, sep...)
			dst = append(dst, emptyToken...)
			dst = append(dst, sep...)
			dst = append(dst, emptyToken...)
		} else {
			dst = appendNum(dst, r.Price)
			dst = appendNum(dst, r.Quantity)
		}
	case ReportReject:
		dst = append(dst, byte(ReportReject))
		dst = append(dst, sep...)
		dst = append(dst, sym...)
		dst = appendNum(dst, r.UserID)
		dst = appendNum(dst, r.OrderID)
		dst = appendNum(dst, uint32(r.Reason))
	default:
		return dst, ErrUnknownType
	}
	return append(dst, '\n'), nil
}

// ParseReport parses one text server -> client line. Surrounding
// whitespace and the trailing newline are trimmed before classifying.
// The legacy "C, symbol, user, order" cancel-ack form is accepted on
// receive; "X" is the canonical tag on send.
func ParseReport(line []byte) (Report, error) {
	var r Report
	fields, err := splitFields(line)
	if err != nil {
		return r, err
	}
	if len(fields[0]) != 1 {
		return r, ErrUnknownType
	}
	kind := fields[0][0]
	switch kind {
	case byte(ReportAck), byte(ReportCancelAck), 'C':
		if len(fields) < 4 {
			return r, ErrMissingFields
		}
		r.Kind = ReportAck
		if kind != byte(ReportAck) {
			r.Kind = ReportCancelAck
		}
		if err := parseSymbol(&r, fields[1]); err != nil {
			return Report{}, err
		}
		if r.UserID, err = parseNum(fields[2]); err != nil {
			return Report{}, err
		}
		if r.OrderID, err = parseNum(fields[3]); err != nil {
			return Report{}, err
		}
	case byte(ReportTrade):
		if len(fields) < 8 {
			return r, ErrMissingFields
		}
		r.Kind = ReportTrade
		if err := parseSymbol(&r, fields[1]); err != nil {
			return Report{}, err
		}
		nums := []*uint32{&r.UserID, &r.OrderID, &r.SellUserID, &r.SellOrderID, &r.Price, &r.Quantity}
		for i, dst := range nums {
			if *dst, err = parseNum(fields[2+i]); err != nil {
				return Report{}, err
			}
		}
	case byte(ReportTopOfBook):
		return parseTopOfBook(fields)
	case byte(ReportReject):
		if len(fields) < 5 {
			return r, ErrMissingFields
		}
		r.Kind = ReportReject
		if err := parseSymbol(&r, fields[1]); err != nil {
			return Report{}, err
		}
		if r.UserID, err = parseNum(fields[2]); err != nil {
			return Report{}, err
		}
		if r.OrderID, err = parseNum(fields[3]); err != nil {
			return Report{}, err
		}
		reason, err := parseNum(fields[4])
		if err != nil {
			return Report{}, err
		}
		r.Reason = uint8(reason)
	default:
		return r, ErrUnknownType
	}
	return r, nil
}

// parseTopOfBook handles the top-of-book shapes:
//
//	B, symbol, side, price, qty
//	B, symbol, price, qty      (no side column)
//	B, symbol, -, -            (empty book, no side column)
//
// "-" stands in for price and quantity when that side of the book holds
// no orders; it is never a number, and it never appears alone.
func parseTopOfBook(fields [][]byte) (Report, error) {
	var r Report
	r.Kind = ReportTopOfBook
	switch len(fields) {
	case 4:
		if err := parseSymbol(&r, fields[1]); err != nil {
			return Report{}, err
		}
		pDash, qDash := isEmptyToken(fields[2]), isEmptyToken(fields[3])
		if pDash != qDash {
			return Report{}, ErrInvalidNumber
		}
		if !pDash {
			var err error
			if r.Price, err = parseNum(fields[2]); err != nil {
				return Report{}, err
			}
			if r.Quantity, err = parseNum(fields[3]); err != nil {
				return Report{}, err
			}
		}
	case 5:
		if err := parseSymbol(&r, fields[1]); err != nil {
			return Report{}, err
		}
		switch {
		case len(fields[2]) == 1 && Side(fields[2][0]).Valid():
			r.Side = Side(fields[2][0])
		case isEmptyToken(fields[2]):
			r.Side = SideNone
		default:
			return Report{}, ErrBadSide
		}
		pDash, qDash := isEmptyToken(fields[3]), isEmptyToken(fields[4])
		if pDash != qDash {
			return Report{}, ErrInvalidNumber
		}
		if !pDash {
			var err error
			if r.Price, err = parseNum(fields[3]); err != nil {
				return Report{}, err
			}
			if r.Quantity, err = parseNum(fields[4]); err != nil {
				return Report{}, err
			}
		}
	default:
		return Report{}, ErrMissingFields
	}
	return r, nil
}

// ParseCommand parses one text client -> server line.
func ParseCommand(line []byte) (Command, error) {
	var c Command
	fields, err := splitFields(line)
	if err != nil {
		return c, err
	}
	if len(fields[0]) != 1 {
		return c, ErrUnknownType
	}
	switch CommandKind(fields[0][0]) {
	case CmdNewOrder:
		if len(fields) < 7 {
			return c, ErrMissingFields
		}
		var o NewOrder
		if o.UserID, err = parseNum(fields[1]); err != nil {
			return c, err
		}
		if len(fields[2]) == 0 {
			return c, ErrEmptySymbol
		}
		o.Symbol = string(fields[2])
		if o.Price, err = parseNum(fields[3]); err != nil {
			return c, err
		}
		if o.Quantity, err = parseNum(fields[4]); err != nil {
			return c, err
		}
		if len(fields[5]) != 1 || !Side(fields[5][0]).Valid() {
			return c, ErrBadSide
		}
		o.Side = Side(fields[5][0])
		if o.OrderID, err = parseNum(fields[6]); err != nil {
			return c, err
		}
		c.Kind = CmdNewOrder
		c.NewOrder = o
	case CmdCancel:
		if len(fields) < 4 {
			return c, ErrMissingFields
		}
		var x Cancel
		if x.UserID, err = parseNum(fields[1]); err != nil {
			return c, err
		}
		if len(fields[2]) == 0 {
			return c, ErrEmptySymbol
		}
		x.Symbol = string(fields[2])
		if x.OrderID, err = parseNum(fields[3]); err != nil {
			return c, err
		}
		c.Kind = CmdCancel
		c.Cancel = x
	case CmdFlush:
		c.Kind = CmdFlush
	default:
		return c, ErrUnknownType
	}
	return c, nil
}

func appendNum(dst []byte, v uint32) []byte {
	dst = append(dst, sep...)
	return strconv.AppendUint(dst, uint64(v), 10)
}

func parseNum(f []byte) (uint32, error) {
	v, err := strconv.ParseUint(string(f), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, f)
	}
	return uint32(v), nil
}

func parseSymbol(r *Report, f []byte) error {
	if len(f) == 0 {
		return ErrEmptySymbol
	}
	sym, n, err := PackSymbol(string(f))
	if err != nil {
		return err
	}
	r.Symbol = sym
	r.SymbolLen = n
	return nil
}

func isEmptyToken(f []byte) bool {
	return len(f) == 1 && f[0] == emptyToken[0]
}

// splitFields trims the line and splits it into whitespace-trimmed comma
// fields. An empty line after trimming is an error, never silently
// ignored.
func splitFields(line []byte) ([][]byte, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, ErrEmptyMessage
	}
	parts := bytes.Split(line, []byte{','})
	fields := make([][]byte, len(parts))
	for i, p := range parts {
		fields[i] = bytes.TrimSpace(p)
	}
	return fields, nil
}
