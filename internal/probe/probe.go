package probe

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"time"

	"github.com/tkjaer/eping/internal/shared"
	"github.com/tkjaer/eping/pkg/iface"
	"github.com/tkjaer/eping/pkg/ptr"
	"github.com/tkjaer/eping/pkg/resolve"
	"github.com/tkjaer/eping/pkg/route"
)

// Result is the outcome of one probe attempt.
type Result struct {
	Outcome     shared.Outcome
	Destination string
	Addr        netip.Addr
	Route       route.Route // Zero when the route lookup failed
	Seq         uint16
	Size        int
	Sent        time.Time

	// Set on success
	Reply     netip.Addr
	ReplyPTR  string
	ReplySize int
	TTL       uint8
	RTT       time.Duration

	// Set on send failure
	Err error
}

// Delay returns the round-trip time in milliseconds.
func (r Result) Delay() float64 {
	return float64(r.RTT) / float64(time.Millisecond)
}

// Record converts the result into its rendered form.
func (r Result) Record() shared.ProbeRecord {
	rec := shared.ProbeRecord{
		Destination: r.Destination,
		Size:        r.Size,
		Seq:         r.Seq,
		Outcome:     r.Outcome,
		Timestamp:   r.Sent,
	}
	if r.Addr.IsValid() {
		rec.DestinationIP = r.Addr.String()
	}
	if r.Route.Source.IsValid() {
		rec.SourceIP = r.Route.Source.String()
	}
	rec.Interface = r.Route.InterfaceName()
	if r.Outcome == shared.OutcomeSuccess {
		rec.ReplyIP = r.Reply.String()
		rec.ReplyPTR = r.ReplyPTR
		rec.ReplySize = r.ReplySize
		rec.TTL = r.TTL
		rec.RTT = r.Delay()
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	return rec
}

// Engine sends ICMP Echo Requests to one destination, one at a time, and
// keeps the sent/received tallies. It is not safe for concurrent use.
type Engine struct {
	config   ProbeConfig
	ident    *identity
	resolver *resolve.Resolver
	ptr      *ptr.PtrManager

	// route annotation, refreshed when the destination address changes
	route route.Route

	sent     uint
	received uint
	failed   uint

	now       func() time.Time
	openConn  openFunc
	routeFunc func(netip.Addr) (route.Route, error)
}

// NewEngine creates an Engine with a fresh identifier.
func NewEngine(cfg ProbeConfig) *Engine {
	e := &Engine{
		config:    cfg,
		ident:     newIdentity(),
		resolver:  resolve.NewResolver(resolve.DefaultTTL),
		now:       time.Now,
		openConn:  openRawConn,
		routeFunc: route.Get,
	}
	if !cfg.NoResolve {
		e.ptr = ptr.NewPtrManager()
	}
	slog.Debug("Created probe engine", "destination", cfg.Destination, "id", e.ident.id)
	return e
}

func (e *Engine) Sent() uint     { return e.sent }
func (e *Engine) Received() uint { return e.received }
func (e *Engine) Failed() uint   { return e.failed }

// Probe sends one Echo Request and waits up to the configured timeout for
// the matching reply. Timeouts and transport failures are reported through
// the Result. The returned error is ErrPermissionDenied, ErrUnsupported or the
// context's error when the probe was cancelled.
func (e *Engine) Probe(ctx context.Context) (Result, error) {
	result := Result{
		Destination: e.config.Destination,
		Size:        e.config.Size,
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	// Every attempt takes a sequence number, even one that never leaves the host.
	result.Seq = e.ident.next()

	addr, err := e.resolver.Lookup(ctx, e.config.Destination)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return e.sendFailed(result, err), nil
	}
	result.Addr = addr
	result.Route = e.routeTo(addr)

	conn, err := e.openConn(e.ident.id)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrUnsupported) {
			return result, err
		}
		return e.sendFailed(result, err), nil
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("Error closing socket", "error", err)
		}
	}()

	packet, err := encodeEchoRequest(e.ident.id, result.Seq, e.config.Size)
	if err != nil {
		return e.sendFailed(result, err), nil
	}

	result.Sent = e.now()
	if err := conn.WriteTo(packet, addr); err != nil {
		return e.sendFailed(result, err), nil
	}
	slog.Debug("Sent echo request", "destination", addr, "id", e.ident.id, "seq", result.Seq, "size", e.config.Size)

	reply, ok, err := e.awaitReply(ctx, conn, result.Seq, result.Sent)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return e.sendFailed(result, err), nil
	}

	e.sent++
	if !ok {
		result.Outcome = shared.OutcomeTimeout
		slog.Debug("Echo request timed out", "seq", result.Seq)
		return result, nil
	}

	e.received++
	result.Outcome = shared.OutcomeSuccess
	result.Reply = reply.source
	result.ReplySize = reply.payload
	result.TTL = reply.ttl
	result.RTT = reply.rtt
	result.ReplyPTR = e.lookupPTR(reply.source)
	return result, nil
}

// awaitReply reads datagrams until the reply to seq arrives or the timeout,
// counted from sent, runs out. Anything else read in between is dropped and
// its time deducted from the budget.
func (e *Engine) awaitReply(ctx context.Context, conn Conn, seq uint16, sent time.Time) (timedReply, bool, error) {
	deadline := sent.Add(e.config.Timeout)
	buf := make([]byte, receiveBufferSize)

	for {
		remaining := deadline.Sub(e.now())
		if remaining <= 0 {
			return timedReply{}, false, nil
		}

		readable, err := conn.Wait(ctx, remaining)
		if err != nil {
			return timedReply{}, false, err
		}
		if !readable {
			continue
		}

		n, err := conn.ReadFrom(buf)
		if err != nil {
			return timedReply{}, false, err
		}
		if n == 0 {
			continue
		}
		received := e.now()

		reply, err := decodeEchoReply(buf[:n])
		if err != nil {
			slog.Debug("Ignoring undecodable datagram", "error", err)
			continue
		}
		if !reply.answers(e.ident.id, seq) {
			slog.Debug("Ignoring unrelated ICMP message",
				"type", reply.icmp, "id", reply.id, "seq", reply.seq, "from", reply.source)
			continue
		}
		return timedReply{echoReply: reply, rtt: received.Sub(sent)}, true, nil
	}
}

type timedReply struct {
	echoReply
	rtt time.Duration
}

func (e *Engine) sendFailed(result Result, err error) Result {
	e.failed++
	slog.Warn("Probe failed", "destination", e.config.Destination, "seq", result.Seq, "error", err)
	result.Outcome = shared.OutcomeSendFailed
	result.Err = err
	return result
}

// routeTo returns the route used to reach addr, looking it up again only when
// the destination address changed.
func (e *Engine) routeTo(addr netip.Addr) route.Route {
	if e.route.Destination == addr {
		return e.route
	}
	r, err := e.routeFunc(addr)
	if err != nil {
		slog.Debug("Route lookup failed", "destination", addr, "error", err)
		return route.Route{}
	}
	slog.Debug("Route", "route", r.String())
	if iface.Fragments(r.Interface, e.config.Size) {
		limit, _ := iface.MaxEchoPayload(r.Interface)
		slog.Warn("Payload exceeds interface MTU, requests will be fragmented",
			"interface", r.InterfaceName(), "size", e.config.Size, "max_unfragmented", limit)
	}
	e.route = r
	return r
}

// lookupPTR returns the cached name of addr and schedules a lookup when
// there is none yet.
func (e *Engine) lookupPTR(addr netip.Addr) string {
	if e.ptr == nil {
		return ""
	}
	ip := addr.String()
	if name, found := e.ptr.GetPTR(ip); found {
		return name
	}
	go e.ptr.RequestPTR(ip)
	return ""
}
