// Package journal persists outbound order flow so a client can audit or
// replay what it sent after a reconnect. Backed by pebble; one journal
// per client instance.
package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/danmuck/orderwire/internal/wire"
)

type State uint8

const (
	StatePending State = iota
	StateAcked
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateAcked:
		return "ACKED"
	default:
		return "UNKNOWN"
	}
}

// Entry is one journaled outbound message.
type Entry struct {
	State   State
	SentAt  int64 // unix nanos
	Command wire.Command
}

// value encoding: [state:1][sentAt:8][binary wire command]
func encodeEntry(e Entry) ([]byte, error) {
	buf := make([]byte, 9+wire.BinNewOrderSize)
	buf[0] = byte(e.State)
	binary.BigEndian.PutUint64(buf[1:9], uint64(e.SentAt))
	var n int
	var err error
	switch e.Command.Kind {
	case wire.CmdNewOrder:
		n, err = wire.EncodeNewOrder(buf[9:], e.Command.NewOrder)
	case wire.CmdCancel:
		n, err = wire.EncodeCancel(buf[9:], e.Command.Cancel)
	default:
		return nil, wire.ErrUnknownType
	}
	if err != nil {
		return nil, err
	}
	return buf[:9+n], nil
}

func decodeEntry(b []byte) (Entry, error) {
	if len(b) < 9+wire.BinFlushSize {
		return Entry{}, errors.New("journal: invalid entry length")
	}
	cmd, err := wire.DecodeCommand(b[9:])
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		State:   State(b[0]),
		SentAt:  int64(binary.BigEndian.Uint64(b[1:9])),
		Command: cmd,
	}, nil
}

// Journal is a pebble-backed outbound log.
type Journal struct {
	db *pebble.DB
}

func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", dir, err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordOrder journals a sent new-order as pending.
func (j *Journal) RecordOrder(o wire.NewOrder) error {
	val, err := encodeEntry(Entry{
		State:   StatePending,
		SentAt:  time.Now().UnixNano(),
		Command: wire.Command{Kind: wire.CmdNewOrder, NewOrder: o},
	})
	if err != nil {
		return err
	}
	return j.db.Set(orderKey(o.OrderID), val, pebble.Sync)
}

// RecordCancel journals a sent cancel as pending.
func (j *Journal) RecordCancel(x wire.Cancel) error {
	val, err := encodeEntry(Entry{
		State:   StatePending,
		SentAt:  time.Now().UnixNano(),
		Command: wire.Command{Kind: wire.CmdCancel, Cancel: x},
	})
	if err != nil {
		return err
	}
	return j.db.Set(cancelKey(x.OrderID), val, pebble.Sync)
}

// MarkAcked flips the journaled order and any cancel for it to acked.
// Unknown ids are ignored; the ack may belong to a previous session.
func (j *Journal) MarkAcked(orderID uint32) error {
	for _, key := range [][]byte{orderKey(orderID), cancelKey(orderID)} {
		if err := j.markAcked(key); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) markAcked(key []byte) error {
	val, closer, err := j.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil
		}
		return err
	}
	entry, derr := decodeEntry(val)
	_ = closer.Close()
	if derr != nil {
		return derr
	}
	if entry.State == StateAcked {
		return nil
	}
	entry.State = StateAcked
	out, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	return j.db.Set(key, out, pebble.Sync)
}

// Get returns the journaled order entry for id.
func (j *Journal) Get(orderID uint32) (Entry, bool, error) {
	val, closer, err := j.db.Get(orderKey(orderID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	defer closer.Close()
	entry, err := decodeEntry(val)
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// Pending iterates all entries still awaiting an ack: cancels first,
// then orders, each group in ascending id order.
func (j *Journal) Pending(fn func(e Entry) error) error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("cancel/"),
		UpperBound: []byte("order/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		entry, err := decodeEntry(iter.Value())
		if err != nil {
			return err
		}
		if entry.State != StatePending {
			continue
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return iter.Error()
}

func orderKey(id uint32) []byte {
	return []byte(fmt.Sprintf("order/%010d", id))
}

func cancelKey(id uint32) []byte {
	return []byte(fmt.Sprintf("cancel/%010d", id))
}
