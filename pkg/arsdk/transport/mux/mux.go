// Package mux implements the multiplexed-channel transport backend: one
// mux channel carries one arsdk frame per message, and a channel RESET is
// treated as an immediate link-down event (§1, §4.2).
package mux

import (
	"context"
	"time"

	"github.com/arsdk-go/arsdk/pkg/arsdk/arsdkerr"
	"github.com/arsdk-go/arsdk/pkg/arsdk/transport"
)

// Channel is the minimal contract this backend needs from the external
// mux collaborator (out of scope to specify further per §1): send and
// receive whole messages, and report when the channel is reset.
type Channel interface {
	Send(data []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Reset() <-chan struct{}
	Close() error
}

// Transport adapts a Channel into a transport.Transport.
type Transport struct {
	ch     Channel
	pinger *transport.Pinger
	onRecv func(transport.Frame)
	onLink func(transport.LinkStatus)

	cancel context.CancelFunc
}

// New wraps ch. PingPeriod defaults to transport.DefaultPingPeriodMux.
func New(ch Channel, pingPeriod time.Duration) *Transport {
	if pingPeriod == 0 {
		pingPeriod = transport.DefaultPingPeriodMux
	}
	return &Transport{ch: ch, pinger: transport.NewPinger(pingPeriod)}
}

func (t *Transport) SetCallbacks(onRecv func(transport.Frame), onLinkStatus func(transport.LinkStatus)) {
	t.onRecv = onRecv
	t.onLink = onLinkStatus
}

func (t *Transport) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.recvLoop(ctx)
	go t.pingLoop(ctx)
	go t.watchReset(ctx)
	return nil
}

func (t *Transport) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	return t.ch.Close()
}

func (t *Transport) Send(f transport.Frame) error {
	if f.Version == 0 {
		f.Version = 3
	}
	if err := t.ch.Send(transport.Encode(f)); err != nil {
		return arsdkerr.Wrap(arsdkerr.Transient, err, "transport/mux: send")
	}
	return nil
}

func (t *Transport) recvLoop(ctx context.Context) {
	for {
		data, err := t.ch.Recv(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				continue
			}
		}
		f, _, derr := transport.Decode(data)
		if derr != nil {
			continue
		}
		t.dispatch(f)
	}
}

func (t *Transport) dispatch(f transport.Frame) {
	if f.ID == transport.IDPing {
		_ = t.ch.Send(transport.Encode(transport.HandlePing(f)))
		return
	}
	if f.ID == transport.IDPong {
		t.pinger.HandlePong(f, time.Now())
		t.drainLink()
		return
	}
	if t.onRecv != nil {
		t.onRecv(f)
	}
}

func (t *Transport) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(t.pinger.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.pinger.Tick(now, func(f transport.Frame) {
				f.Version = 3
				_ = t.ch.Send(transport.Encode(f))
			})
			t.drainLink()
		}
	}
}

// watchReset downgrades link status to KO the moment the underlying
// channel reports a reset, independent of the ping/pong cadence (§4.2).
func (t *Transport) watchReset(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-t.ch.Reset():
		if t.onLink != nil {
			t.onLink(transport.LinkKO)
		}
	}
}

func (t *Transport) drainLink() {
	if s, ok := t.pinger.DrainLinkStatus(); ok && t.onLink != nil {
		t.onLink(s)
	}
}
