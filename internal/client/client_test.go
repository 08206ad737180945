package client

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/orderwire/internal/testutil/testlog"
	"github.com/danmuck/orderwire/internal/wire"
	"github.com/danmuck/orderwire/internal/wire/frame"
)

// fakePeer is a minimal matching-service stand-in on a loopback TCP
// listener. In binary mode it acks binary commands and ignores text; in
// text mode the reverse. Every decoded command is recorded.
type fakePeer struct {
	t    *testing.T
	ln   net.Listener
	mode Format

	mu   sync.Mutex
	cmds []wire.Command
}

func startPeer(t *testing.T, mode Format) *fakePeer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	p := &fakePeer{t: t, ln: ln, mode: mode}
	go p.acceptLoop()
	t.Cleanup(func() { _ = ln.Close() })
	return p
}

func (p *fakePeer) addr() string { return p.ln.Addr().String() }

func (p *fakePeer) acceptLoop() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		go p.serve(conn)
	}
}

func (p *fakePeer) serve(conn net.Conn) {
	defer conn.Close()
	fr := frame.NewReader()
	for {
		payload, err := fr.Next()
		if err != nil {
			return
		}
		if payload == nil {
			buf := fr.WriteBuffer()
			n, err := conn.Read(buf)
			if n > 0 {
				fr.Advance(n)
			}
			if err != nil && n == 0 {
				return
			}
			continue
		}
		p.handle(conn, payload)
	}
}

func (p *fakePeer) handle(conn net.Conn, payload []byte) {
	binary := payload[0] == wire.Magic
	var cmd wire.Command
	var err error
	if binary {
		cmd, err = wire.DecodeCommand(payload)
	} else {
		cmd, err = wire.ParseCommand(payload)
	}
	if err != nil {
		return
	}
	p.mu.Lock()
	p.cmds = append(p.cmds, cmd)
	p.mu.Unlock()

	if binary != (p.mode == FormatBinary) {
		return // wrong dialect for this peer, stay silent
	}

	var rep wire.Report
	switch cmd.Kind {
	case wire.CmdNewOrder:
		rep = ackFor(wire.ReportAck, cmd.NewOrder.Symbol, cmd.NewOrder.UserID, cmd.NewOrder.OrderID)
	case wire.CmdCancel:
		rep = ackFor(wire.ReportCancelAck, cmd.Cancel.Symbol, cmd.Cancel.UserID, cmd.Cancel.OrderID)
	default:
		return
	}
	p.send(conn, rep)
}

func (p *fakePeer) send(conn net.Conn, rep wire.Report) {
	var msg []byte
	if p.mode == FormatBinary {
		var buf [64]byte
		n, err := wire.EncodeReport(buf[:], rep)
		if err != nil {
			p.t.Errorf("peer encode: %v", err)
			return
		}
		msg = buf[:n]
	} else {
		line, err := wire.AppendReport(nil, rep)
		if err != nil {
			p.t.Errorf("peer append: %v", err)
			return
		}
		msg = line
	}
	if err := frame.WriteFrame(conn, msg); err != nil {
		p.t.Errorf("peer write: %v", err)
	}
}

func (p *fakePeer) sawCancelFor(orderID uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.cmds {
		if c.Kind == wire.CmdCancel && c.Cancel.OrderID == orderID {
			return true
		}
	}
	return false
}

func ackFor(kind wire.ReportKind, symbol string, user, order uint32) wire.Report {
	sym, n, err := wire.PackSymbol(symbol)
	if err != nil {
		panic(err)
	}
	return wire.Report{Kind: kind, Symbol: sym, SymbolLen: n, UserID: user, OrderID: order}
}

func testConfig(addr string) Config {
	return Config{
		Addr:           addr,
		ConnectTimeout: 2 * time.Second,
		WriteTimeout:   2 * time.Second,
		DetectInterval: 200 * time.Millisecond,
		DrainInterval:  20 * time.Millisecond,
		MaxDrainIters:  3,
	}
}

func TestDialNegotiatesBinaryOverTCP(t *testing.T) {
	testlog.Start(t)
	peer := startPeer(t, FormatBinary)

	c, err := Dial(testConfig(peer.addr()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if c.Transport() != TransportTCP {
		t.Fatalf("transport: got %s want tcp", c.Transport())
	}
	if c.Format() != FormatBinary {
		t.Fatalf("format: got %s want binary", c.Format())
	}
	if !peer.sawCancelFor(probeBinaryID) {
		t.Fatal("detection probe was never cancelled")
	}
}

func TestDialFallsBackToTextWhenPeerIgnoresBinary(t *testing.T) {
	testlog.Start(t)
	peer := startPeer(t, FormatText)

	c, err := Dial(testConfig(peer.addr()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if c.Format() != FormatText {
		t.Fatalf("format: got %s want csv", c.Format())
	}
	if !peer.sawCancelFor(probeTextID) {
		t.Fatal("text probe was never cancelled")
	}
}

func TestDialFallsBackToUDPWhenTCPRefused(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close() // nothing listens here anymore

	c, err := Dial(testConfig(addr))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if c.Transport() != TransportUDP {
		t.Fatalf("transport: got %s want udp", c.Transport())
	}
	if c.Format() != FormatText {
		t.Fatalf("format: got %s want csv", c.Format())
	}
}

func TestPlaceCancelFlushBinary(t *testing.T) {
	testlog.Start(t)
	peer := startPeer(t, FormatBinary)

	c, err := Dial(testConfig(peer.addr()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	o := wire.NewOrder{UserID: 1, Symbol: "IBM", Price: 10000, Quantity: 50, Side: wire.SideBuy, OrderID: 1001}
	if err := c.Place(o); err != nil {
		t.Fatalf("place: %v", err)
	}
	rep := mustRecv(t, c)
	if rep.Kind != wire.ReportAck || rep.OrderID != 1001 || rep.SymbolString() != "IBM" {
		t.Fatalf("ack: %+v", rep)
	}

	if err := c.CancelOrder(wire.Cancel{UserID: 1, Symbol: "IBM", OrderID: 1001}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	rep = mustRecv(t, c)
	if rep.Kind != wire.ReportCancelAck || rep.OrderID != 1001 {
		t.Fatalf("cancel-ack: %+v", rep)
	}

	if err := c.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if _, ok, err := c.Recv(50 * time.Millisecond); ok || err != nil {
		t.Fatalf("flush should not be acked: ok=%v err=%v", ok, err)
	}

	s := c.Stats()
	if s.OrdersSent != 1 || s.CancelsSent != 1 || s.FlushesSent != 1 {
		t.Fatalf("send counters: %+v", s)
	}
	if s.Acks != 1 || s.CancelAcks != 1 {
		t.Fatalf("recv counters: %+v", s)
	}
}

func TestFixedTextFormatSkipsDetection(t *testing.T) {
	testlog.Start(t)
	peer := startPeer(t, FormatText)

	cfg := testConfig(peer.addr())
	cfg.Format = FormatText
	c, err := Dial(cfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	o := wire.NewOrder{UserID: 2, Symbol: "AAPL", Price: 500, Quantity: 10, Side: wire.SideSell, OrderID: 7}
	if err := c.Place(o); err != nil {
		t.Fatalf("place: %v", err)
	}
	rep := mustRecv(t, c)
	if rep.Kind != wire.ReportAck || rep.OrderID != 7 || rep.SymbolString() != "AAPL" {
		t.Fatalf("ack: %+v", rep)
	}

	peer.mu.Lock()
	seen := len(peer.cmds)
	peer.mu.Unlock()
	if seen != 1 {
		t.Fatalf("peer saw %d commands, want only the order (no probes)", seen)
	}
}

func TestRecvTimeoutIsRetryable(t *testing.T) {
	testlog.Start(t)
	peer := startPeer(t, FormatText)

	cfg := testConfig(peer.addr())
	cfg.Format = FormatText
	c, err := Dial(cfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if _, ok, err := c.Recv(50 * time.Millisecond); ok || err != nil {
		t.Fatalf("idle recv: ok=%v err=%v", ok, err)
	}
}

type recordingJournal struct {
	orders  []wire.NewOrder
	cancels []wire.Cancel
	acked   []uint32
}

func (j *recordingJournal) RecordOrder(o wire.NewOrder) error { j.orders = append(j.orders, o); return nil }
func (j *recordingJournal) RecordCancel(x wire.Cancel) error  { j.cancels = append(j.cancels, x); return nil }
func (j *recordingJournal) MarkAcked(id uint32) error         { j.acked = append(j.acked, id); return nil }

func TestJournalHooks(t *testing.T) {
	testlog.Start(t)
	peer := startPeer(t, FormatText)

	jn := &recordingJournal{}
	cfg := testConfig(peer.addr())
	cfg.Format = FormatText
	cfg.Journal = jn
	c, err := Dial(cfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	o := wire.NewOrder{UserID: 5, Symbol: "TSLA", Price: 100, Quantity: 1, Side: wire.SideBuy, OrderID: 31}
	if err := c.Place(o); err != nil {
		t.Fatalf("place: %v", err)
	}
	mustRecv(t, c)

	if len(jn.orders) != 1 || jn.orders[0] != o {
		t.Fatalf("journaled orders: %+v", jn.orders)
	}
	if len(jn.acked) != 1 || jn.acked[0] != 31 {
		t.Fatalf("journaled acks: %+v", jn.acked)
	}
}

func TestUDPTextDatagramSplitting(t *testing.T) {
	testlog.Start(t)
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	t.Cleanup(func() { _ = pc.Close() })

	// echo peer: any datagram gets one multi-message reply
	go func() {
		buf := make([]byte, maxDatagram)
		for {
			_, from, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			reply := []byte("A, IBM, 1, 1001\nB, IBM, B, 10000, 50\n")
			if _, err := pc.WriteTo(reply, from); err != nil {
				return
			}
		}
	}()

	cfg := testConfig(pc.LocalAddr().String())
	cfg.Transport = TransportUDP
	c, err := Dial(cfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	if c.Format() != FormatText {
		t.Fatalf("format: got %s want csv", c.Format())
	}

	o := wire.NewOrder{UserID: 1, Symbol: "IBM", Price: 10000, Quantity: 50, Side: wire.SideBuy, OrderID: 1001}
	if err := c.Place(o); err != nil {
		t.Fatalf("place: %v", err)
	}

	first := mustRecv(t, c)
	if first.Kind != wire.ReportAck || first.OrderID != 1001 {
		t.Fatalf("first report: %+v", first)
	}
	second := mustRecv(t, c)
	if second.Kind != wire.ReportTopOfBook || second.Side != wire.SideBuy || second.Price != 10000 {
		t.Fatalf("second report: %+v", second)
	}
}

func TestSplitLines(t *testing.T) {
	lines := splitLines([]byte("A, IBM, 1, 1\n\nB, IBM, -, -\n"))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if string(lines[0]) != "A, IBM, 1, 1" || string(lines[1]) != "B, IBM, -, -" {
		t.Fatalf("lines: %q %q", lines[0], lines[1])
	}
	if splitLines([]byte("  \n \n")) != nil {
		t.Fatal("blank datagram should yield no lines")
	}
}

func mustRecv(t *testing.T, c *Client) wire.Report {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rep, ok, err := c.Recv(200 * time.Millisecond)
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		if ok {
			return rep
		}
	}
	t.Fatal("no report before deadline")
	return wire.Report{}
}
