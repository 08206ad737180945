package main

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/orderwire/internal/client"
	"github.com/danmuck/orderwire/internal/config"
	"github.com/danmuck/orderwire/internal/observability"
	"github.com/danmuck/orderwire/internal/relay"
	"github.com/danmuck/orderwire/internal/spsc"
	"github.com/danmuck/orderwire/internal/wire"
)

func main() {
	observability.InitLogger("relayctl")

	configPath := flag.String("config", "cmd/relayctl/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if len(cfg.Relay.Brokers) == 0 {
		log.Fatal().Msg("relay_brokers is required")
	}

	ring := spsc.New[wire.Report](cfg.Relay.RingSlots)
	rly, err := relay.New(cfg.Relay.Brokers, cfg.Relay.Topic, ring)
	if err != nil {
		log.Fatal().Err(err).Msg("kafka producer failed")
	}
	defer rly.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	rly.Start(ctx)

	backoff := client.DefaultBackoff()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	attempt := 0
	for ctx.Err() == nil {
		cli, err := client.Dial(cfg.Client)
		if err != nil {
			attempt++
			delay := backoff.Next(attempt, rng)
			log.Warn().Err(err).Dur("retry_in", delay).Msg("dial failed")
			sleep(ctx, delay)
			continue
		}
		attempt = 0
		pump(ctx, cli, rly)
		_ = cli.Close()
	}
	log.Info().Msg("relay shutting down")
}

// pump is the ring's single producer; the relay goroutine is its single
// consumer. Returns when the connection dies or ctx is cancelled.
func pump(ctx context.Context, cli *client.Client, rly *relay.Relay) {
	for ctx.Err() == nil {
		rep, ok, err := cli.Recv(250 * time.Millisecond)
		if err != nil {
			if errors.Is(err, client.ErrTransport) {
				log.Error().Err(err).Msg("connection lost, redialing")
				return
			}
			log.Warn().Err(err).Msg("discarding malformed message")
			continue
		}
		if !ok {
			continue
		}
		if !rly.Offer(rep) {
			log.Warn().Str("kind", rep.Kind.String()).Msg("ring full, report dropped")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
