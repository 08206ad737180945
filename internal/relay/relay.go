// Package relay republishes decoded market-data reports to Kafka.
//
// The client receive loop is the single producer into the ring; the
// relay pump goroutine is the single consumer. Stopping is out-of-band:
// the pump checks its context between poll attempts, never inside the
// ring.
package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/orderwire/internal/observability"
	"github.com/danmuck/orderwire/internal/spsc"
	"github.com/danmuck/orderwire/internal/wire"
)

// Event is the published JSON shape.
type Event struct {
	V      int    `json:"v"`
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
	Side   string `json:"side,omitempty"`

	UserID      uint32 `json:"user_id,omitempty"`
	OrderID     uint32 `json:"order_id,omitempty"`
	SellUserID  uint32 `json:"sell_user_id,omitempty"`
	SellOrderID uint32 `json:"sell_order_id,omitempty"`
	Price       uint32 `json:"price"`
	Quantity    uint32 `json:"qty"`
	EmptyBook   bool   `json:"empty_book,omitempty"`
}

const pollInterval = 5 * time.Millisecond

type Relay struct {
	ring     *spsc.Ring[wire.Report]
	producer sarama.SyncProducer
	topic    string
}

// New connects a synchronous producer to brokers.
func New(brokers []string, topic string, ring *spsc.Ring[wire.Report]) (*Relay, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithProducer(producer, topic, ring), nil
}

// NewWithProducer wires an existing producer; used with sarama/mocks in
// tests.
func NewWithProducer(producer sarama.SyncProducer, topic string, ring *spsc.Ring[wire.Report]) *Relay {
	return &Relay{ring: ring, producer: producer, topic: topic}
}

// Offer hands one decoded report to the relay. Returns false when the
// ring is full; the report is dropped and counted, never blocked on.
func (r *Relay) Offer(rep wire.Report) bool {
	if !r.ring.Push(rep) {
		observability.RecordRingDrop()
		return false
	}
	return true
}

// Start runs the pump until ctx is done.
func (r *Relay) Start(ctx context.Context) {
	log.Info().Str("topic", r.topic).Msg("relay started")

	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.pumpOnce()
			}
		}
	}()
}

func (r *Relay) pumpOnce() {
	for {
		rep, ok := r.ring.Pop()
		if !ok {
			return
		}
		if err := r.publish(rep); err != nil {
			observability.RecordRelayEvent(false)
			log.Warn().Err(err).Msg("relay publish failed")
			continue
		}
		observability.RecordRelayEvent(true)
	}
}

func (r *Relay) publish(rep wire.Report) error {
	ev := Event{
		V:           1,
		Type:        rep.Kind.String(),
		Symbol:      rep.SymbolString(),
		UserID:      rep.UserID,
		OrderID:     rep.OrderID,
		SellUserID:  rep.SellUserID,
		SellOrderID: rep.SellOrderID,
		Price:       rep.Price,
		Quantity:    rep.Quantity,
	}
	if rep.Side.Valid() {
		ev.Side = rep.Side.String()
	}
	if rep.EmptyBook() {
		ev.EmptyBook = true
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: r.topic,
		Key:   sarama.StringEncoder(ev.Symbol),
		Value: sarama.ByteEncoder(payload),
	}
	_, _, err = r.producer.SendMessage(msg)
	return err
}

func (r *Relay) Close() error {
	return r.producer.Close()
}
