package cmditf

import (
	"context"
	"testing"
	"time"

	"github.com/arsdk-go/arsdk/pkg/arsdk/codec"
	"github.com/arsdk-go/arsdk/pkg/arsdk/transport"
)

type fakeTransport struct {
	sent   chan transport.Frame
	onRecv func(transport.Frame)
	onLink func(transport.LinkStatus)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sent: make(chan transport.Frame, 32)}
}

func (f *fakeTransport) Send(fr transport.Frame) error {
	f.sent <- fr
	return nil
}
func (f *fakeTransport) SetCallbacks(onRecv func(transport.Frame), onLinkStatus func(transport.LinkStatus)) {
	f.onRecv = onRecv
	f.onLink = onLinkStatus
}
func (f *fakeTransport) Start() error { return nil }
func (f *fakeTransport) Stop() error  { return nil }

func (f *fakeTransport) waitSent(t *testing.T) transport.Frame {
	t.Helper()
	select {
	case fr := <-f.sent:
		return fr
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a sent frame")
		return transport.Frame{}
	}
}

func takeOffCmd(t *testing.T) *codec.Command {
	t.Helper()
	desc, ok := codec.FindDescriptor(codec.ProjectArdrone3, codec.ClassArdrone3Piloting, 0)
	if !ok {
		t.Fatal("TakeOff descriptor not registered")
	}
	cmd, err := codec.Encode(desc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return cmd
}

func TestV1SendAndAck(t *testing.T) {
	tr := newFakeTransport()
	statusCh := make(chan SendStatus, 8)
	itf := NewV1(tr, DefaultC2DQueues(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go itf.Run(ctx)

	if err := itf.Send(takeOffCmd(t), func(c *codec.Command, s SendStatus, done bool) {
		statusCh <- s
	}, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	fr := tr.waitSent(t)
	if fr.Type != transport.TypeDataWithAck || fr.ID != transport.IDC2DWithAck {
		t.Fatalf("unexpected frame: %+v", fr)
	}
	if s := <-statusCh; s != StatusSent {
		t.Fatalf("first status = %v, want Sent", s)
	}

	tr.onRecv(transport.Frame{Type: transport.TypeAck, ID: transport.AckID(transport.IDC2DWithAck), Seq: fr.Seq, Payload: []byte{byte(fr.Seq)}})

	if s := <-statusCh; s != StatusAckReceived {
		t.Fatalf("second status = %v, want AckReceived", s)
	}
}

func TestV1RetriesOnTimeout(t *testing.T) {
	tr := newFakeTransport()
	itf := NewV1(tr, DefaultC2DQueues(), nil, nil)
	// Shrink the ack timeout so the test doesn't wait on the default.
	for _, q := range itf.queues {
		if q.Info.ID == transport.IDC2DWithAck {
			q.Info.AckTimeoutMs = 20
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go itf.Run(ctx)

	if err := itf.Send(takeOffCmd(t), nil, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	first := tr.waitSent(t)
	second := tr.waitSent(t)
	if first.Seq != second.Seq {
		t.Errorf("retry changed seq: %d vs %d", first.Seq, second.Seq)
	}
}

func TestV1RetryCountEmitsSentForEachAttempt(t *testing.T) {
	tr := newFakeTransport()
	statusCh := make(chan SendStatus, 8)
	itf := NewV1(tr, DefaultC2DQueues(), nil, nil)
	for _, q := range itf.queues {
		if q.Info.ID == transport.IDC2DWithAck {
			q.Info.AckTimeoutMs = 10
			q.Info.DefaultMaxRetry = 3
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go itf.Run(ctx)

	// GPSFixStateChanged is an ACK command with the Pop timeout policy, so
	// the queue's finite DefaultMaxRetry applies (TakeOff would retry
	// forever).
	desc, ok := codec.FindDescriptor(codec.ProjectArdrone3, codec.ClassArdrone3GPSSettingsState, 0)
	if !ok {
		t.Fatal("GPSFixStateChanged descriptor not registered")
	}
	cmd, err := codec.Encode(desc, int32(0))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := itf.Send(cmd, func(c *codec.Command, s SendStatus, done bool) {
		statusCh <- s
	}, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	want := []SendStatus{StatusSent, StatusSent, StatusSent, StatusSent, StatusTimeout}
	for i, w := range want {
		select {
		case s := <-statusCh:
			if s != w {
				t.Fatalf("status %d = %v, want %v", i, s, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for status %d (%v)", i, w)
		}
	}
}

func TestV1RetryPolicyOverridesToInfiniteForRetryTimeoutDescriptor(t *testing.T) {
	tr := newFakeTransport()
	itf := NewV1(tr, DefaultC2DQueues(), nil, nil)
	desc, ok := codec.FindDescriptor(codec.ProjectArdrone3, codec.ClassArdrone3Piloting, 0)
	if !ok {
		t.Fatal("TakeOff descriptor not registered")
	}
	if desc.Timeout != codec.TimeoutRetry {
		t.Fatal("TakeOff descriptor must be TimeoutRetry for this test to be meaningful")
	}
	cmd, err := codec.Encode(desc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := itf.handleSend(sendReq{cmd: cmd, result: make(chan error, 1)}); err != nil {
		t.Fatalf("handleSend: %v", err)
	}
	q := itf.findQueue(cmd.BufferType)
	e := q.pending.front()
	if e == nil {
		t.Fatal("entry not enqueued")
	}
	if e.maxRetry != -1 {
		t.Fatalf("maxRetry = %d, want -1 (infinite) for a TimeoutRetry descriptor", e.maxRetry)
	}
}

func TestV1AcceptsOnlyNewerSequence(t *testing.T) {
	tr := newFakeTransport()
	recvd := make(chan *codec.Command, 8)
	itf := NewV1(tr, DefaultD2CQueues(), func(c *codec.Command) { recvd <- c }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go itf.Run(ctx)

	cmd := takeOffCmd(t)
	frame := func(seq uint16) transport.Frame {
		return transport.Frame{Type: transport.TypeData, ID: transport.IDD2CNoAck, Seq: seq, Payload: cmd.Payload()}
	}

	tr.onRecv(frame(5))
	select {
	case <-recvd:
	case <-time.After(time.Second):
		t.Fatal("expected first frame to be delivered")
	}

	// Stale/duplicate: must be dropped.
	tr.onRecv(frame(5))
	select {
	case <-recvd:
		t.Fatal("duplicate sequence number should have been rejected")
	case <-time.After(50 * time.Millisecond):
	}

	// Newer: accepted.
	tr.onRecv(frame(6))
	select {
	case <-recvd:
	case <-time.After(time.Second):
		t.Fatal("expected newer frame to be delivered")
	}
}

func TestAcceptSeq8WrapAndOrdering(t *testing.T) {
	if !acceptSeq8(250, 251) {
		t.Error("251 should be accepted as newer than 250")
	}
	if acceptSeq8(5, 5) {
		t.Error("duplicate seq must not be accepted")
	}
	if acceptSeq8(5, 3) {
		t.Error("seq moving slightly backward must not be accepted")
	}
	if !acceptSeq8(250, 5) {
		t.Error("wrap from 250 to 5 should be accepted")
	}
}

func TestRingGrowsAndPreservesOrder(t *testing.T) {
	r := newRing()
	cmds := make([]*entry, 0, growStep+5)
	for i := 0; i < growStep+5; i++ {
		e := &entry{cmd: &codec.Command{ID: uint32(i)}}
		cmds = append(cmds, e)
		r.push(e)
	}
	if r.len() != len(cmds) {
		t.Fatalf("len = %d, want %d", r.len(), len(cmds))
	}
	for i, want := range cmds {
		if got := r.at(i); got != want {
			t.Fatalf("at(%d) mismatch after growth", i)
		}
	}
}
