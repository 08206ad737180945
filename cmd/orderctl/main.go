package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/orderwire/internal/client"
	"github.com/danmuck/orderwire/internal/config"
	"github.com/danmuck/orderwire/internal/journal"
	"github.com/danmuck/orderwire/internal/observability"
	"github.com/danmuck/orderwire/internal/wire"
)

func main() {
	observability.InitLogger("orderctl")

	var (
		configPath = flag.String("config", "", "path to config.toml")
		addr       = flag.String("addr", "", "server address (overrides config)")
		transport  = flag.String("transport", "", "tcp|udp|multicast|auto")
		format     = flag.String("format", "", "binary|csv|auto")
		listen     = flag.Bool("listen", false, "follow the feed instead of sending")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Client.Addr = *addr
	}
	if *transport != "" {
		t, err := client.ParseTransport(*transport)
		if err != nil {
			log.Fatal().Err(err).Msg("bad -transport")
		}
		cfg.Client.Transport = t
	}
	if *format != "" {
		f, err := client.ParseFormat(*format)
		if err != nil {
			log.Fatal().Err(err).Msg("bad -format")
		}
		cfg.Client.Format = f
	}
	if cfg.Client.Addr == "" {
		log.Fatal().Msg("no server address; use -addr or a config file")
	}

	if cfg.Journal.Enabled {
		jn, err := journal.Open(cfg.Journal.Dir)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open journal")
		}
		defer jn.Close()
		cfg.Client.Journal = jn
	}

	cli, err := client.Dial(cfg.Client)
	if err != nil {
		log.Fatal().Err(err).Msg("dial failed")
	}
	defer cli.Close()

	if cfg.Debug.Addr != "" {
		go func() {
			// transport/format are frozen after dial, safe to serve
			status := func() any {
				return map[string]string{
					"transport": cli.Transport().String(),
					"format":    cli.Format().String(),
				}
			}
			if err := observability.ServeDebug(cfg.Debug.Addr, status); err != nil {
				log.Error().Err(err).Msg("debug server stopped")
			}
		}()
	}

	if *listen {
		follow(cli)
		return
	}
	sendLoop(cli)
}

// follow prints every decoded report until interrupted.
func follow(cli *client.Client) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-stop:
			return
		default:
		}
		rep, ok, err := cli.Recv(time.Second)
		if err != nil {
			if errors.Is(err, client.ErrTransport) {
				log.Error().Err(err).Msg("connection lost")
				return
			}
			log.Warn().Err(err).Msg("discarding malformed message")
			continue
		}
		if ok {
			printReport(rep)
		}
	}
}

// sendLoop reads text-format command lines from stdin and forwards them.
func sendLoop(cli *client.Client) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := sc.Bytes()
		cmd, err := wire.ParseCommand(line)
		if err != nil {
			log.Warn().Err(err).Str("line", string(line)).Msg("skipping line")
			continue
		}
		switch cmd.Kind {
		case wire.CmdNewOrder:
			err = cli.Place(cmd.NewOrder)
		case wire.CmdCancel:
			err = cli.CancelOrder(cmd.Cancel)
		case wire.CmdFlush:
			err = cli.Flush()
		}
		if err != nil {
			log.Error().Err(err).Msg("send failed")
			return
		}
		// pick up whatever the server answered so far
		for {
			rep, ok, err := cli.Recv(100 * time.Millisecond)
			if err != nil {
				log.Warn().Err(err).Msg("bad response")
				break
			}
			if !ok {
				break
			}
			printReport(rep)
		}
	}

	s := cli.Stats()
	log.Info().
		Uint64("orders", s.OrdersSent).
		Uint64("acks", s.Acks).
		Uint64("trades", s.Trades).
		Uint64("rejects", s.Rejects).
		Msg("session summary")
}

func printReport(rep wire.Report) {
	line, err := wire.AppendReport(nil, rep)
	if err != nil {
		log.Warn().Err(err).Msg("unprintable report")
		return
	}
	fmt.Print(string(line))
}
