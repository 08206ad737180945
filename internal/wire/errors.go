package wire

import "errors"

var (
	ErrBufferTooSmall = errors.New("wire: output buffer too small")
	ErrInvalidMagic   = errors.New("wire: invalid magic byte")
	ErrTooShort       = errors.New("wire: message too short")
	ErrUnknownType    = errors.New("wire: unknown message type")
	ErrBadQuantity    = errors.New("wire: quantity must be positive")

	ErrEmptyMessage  = errors.New("wire: empty message")
	ErrMissingFields = errors.New("wire: missing fields")
	ErrInvalidNumber = errors.New("wire: invalid numeric field")
	ErrEmptySymbol   = errors.New("wire: empty symbol field")
)
