package transport

import (
	"bytes"
	"time"
)

// DefaultPingPeriodNet is the net backend's ping interval (§4.2).
const DefaultPingPeriodNet = 2000 * time.Millisecond

// DefaultPingPeriodMux is the mux backend's ping interval (§4.2).
const DefaultPingPeriodMux = 1000 * time.Millisecond

// pingFailureThreshold is the number of consecutive missed pongs before
// link status drops to KO (§4.2).
const pingFailureThreshold = 3

// Pinger drives the ping/pong keepalive for one transport. It holds no
// locks and is meant to be driven exclusively by its owning transport's
// single event-loop goroutine (§5).
type Pinger struct {
	Period time.Duration

	nextSeq      uint16
	running      bool
	lastPayload  []byte
	sentAt       time.Time
	failures     int
	notifier     StatusNotifier
}

// NewPinger returns a Pinger firing every period.
func NewPinger(period time.Duration) *Pinger {
	return &Pinger{Period: period}
}

// Tick is called every Period. It checks whether the previous ping is still
// unanswered (incrementing the failure counter and possibly declaring KO),
// then sends a new NOACK ping frame on id 0 via send.
func (p *Pinger) Tick(now time.Time, send func(Frame)) {
	if p.running {
		p.failures++
		if p.failures >= pingFailureThreshold {
			p.notifier.Set(LinkKO)
		}
	}

	payload := make([]byte, 8)
	us := uint64(now.UnixMicro())
	for i := 0; i < 8; i++ {
		payload[i] = byte(us >> (8 * uint(i)))
	}

	p.lastPayload = payload
	p.sentAt = now
	p.running = true

	send(Frame{Type: TypeData, ID: IDPing, Seq: p.nextSeq, Payload: payload})
	p.nextSeq++
}

// HandlePing builds the PONG echo for a received ping frame (§4.2): same
// type and seq, id 1, payload echoed verbatim.
func HandlePing(f Frame) Frame {
	return Frame{Version: f.Version, Type: f.Type, ID: IDPong, Seq: f.Seq, Payload: f.Payload}
}

// HandlePong processes a received pong frame. It returns the measured RTT
// and true if it matched the in-flight ping; otherwise ok is false and the
// frame is ignored (stale or foreign pong).
func (p *Pinger) HandlePong(f Frame, now time.Time) (rtt time.Duration, ok bool) {
	if !p.running || !bytes.Equal(f.Payload, p.lastPayload) {
		return 0, false
	}
	rtt = now.Sub(p.sentAt)
	p.running = false
	p.failures = 0
	p.notifier.Set(LinkOK)
	return rtt, true
}

// DrainLinkStatus returns any queued link-status transition (§4.2's idle
// callback deferral). Call once per event-loop iteration.
func (p *Pinger) DrainLinkStatus() (LinkStatus, bool) {
	return p.notifier.Drain()
}
