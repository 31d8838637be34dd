package net

import (
	"net"
	"testing"
	"time"

	"github.com/arsdk-go/arsdk/pkg/arsdk/transport"
)

func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("freeUDPPort: %v", err)
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func TestSendRecvRoundTrip(t *testing.T) {
	portA := freeUDPPort(t)
	portB := freeUDPPort(t)

	a := New(Config{LocalAddr: "127.0.0.1", RxPort: portA, RemoteAddr: "127.0.0.1", TxPort: portB, PingPeriod: time.Hour})
	b := New(Config{LocalAddr: "127.0.0.1", RxPort: portB, RemoteAddr: "127.0.0.1", TxPort: portA, PingPeriod: time.Hour})

	recvd := make(chan transport.Frame, 4)
	b.SetCallbacks(func(f transport.Frame) { recvd <- f }, nil)

	if err := a.Start(); err != nil {
		t.Fatalf("a.Start: %v", err)
	}
	defer a.Stop()
	if err := b.Start(); err != nil {
		t.Fatalf("b.Start: %v", err)
	}
	defer b.Stop()

	want := transport.Frame{Version: 3, Type: transport.TypeData, ID: transport.IDC2DNoAck, Seq: 7, Payload: []byte("hello")}
	if err := a.Send(want); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-recvd:
		if got.ID != want.ID || got.Seq != want.Seq || string(got.Payload) != string(want.Payload) {
			t.Errorf("round trip mismatch: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestPingPongHandledInternally(t *testing.T) {
	portA := freeUDPPort(t)
	portB := freeUDPPort(t)

	a := New(Config{LocalAddr: "127.0.0.1", RxPort: portA, RemoteAddr: "127.0.0.1", TxPort: portB, PingPeriod: 20 * time.Millisecond})
	b := New(Config{LocalAddr: "127.0.0.1", RxPort: portB, RemoteAddr: "127.0.0.1", TxPort: portA, PingPeriod: time.Hour})

	var sawPingFrame bool
	b.SetCallbacks(func(f transport.Frame) { sawPingFrame = true }, nil)

	linkStatus := make(chan transport.LinkStatus, 4)
	a.SetCallbacks(nil, func(s transport.LinkStatus) { linkStatus <- s })

	if err := a.Start(); err != nil {
		t.Fatalf("a.Start: %v", err)
	}
	defer a.Stop()
	if err := b.Start(); err != nil {
		t.Fatalf("b.Start: %v", err)
	}
	defer b.Stop()

	select {
	case s := <-linkStatus:
		if s != transport.LinkOK {
			t.Errorf("first link status = %v, want LinkOK", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ping/pong to settle the link")
	}
	if sawPingFrame {
		t.Error("ping/pong frames must not reach onRecv")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	port := freeUDPPort(t)
	tr := New(Config{LocalAddr: "127.0.0.1", RxPort: port, RemoteAddr: "127.0.0.1", TxPort: port, PingPeriod: time.Hour})
	if err := tr.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tr.Stop(); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := tr.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if err := tr.Send(transport.Frame{Version: 3, ID: transport.IDC2DNoAck}); err == nil {
		t.Fatal("expected Send after Stop to error")
	}
}
