// Package net implements the datagram (UDP) transport backend: socket
// setup with OS-assigned port fallback, SO_RCVBUF/SNDBUF tuning, optional
// ToS marking, and the ping/pong keepalive loop (§4.2, §6.1).
package net

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/arsdk-go/arsdk/pkg/arsdk/arsdkerr"
	"github.com/arsdk-go/arsdk/pkg/arsdk/transport"
)

// socketBufferSize is the SO_RCVBUF/SO_SNDBUF target (§6.1).
const socketBufferSize = 64 * 1024

// Config configures one Transport.
type Config struct {
	LocalAddr  string // "" binds INADDR_ANY
	RxPort     int
	TxPort     int
	RemoteAddr string
	PingPeriod time.Duration
	QoS        bool // when true, marks outgoing packets IPTOS_PREC_INTERNETCONTROL (qos_mode=1, §4.8)
}

// Transport is the UDP datagram backend implementing transport.Transport.
type Transport struct {
	cfg     Config
	conn    *net.UDPConn
	remote  *net.UDPAddr
	pinger  *transport.Pinger
	onRecv  func(transport.Frame)
	onLink  func(transport.LinkStatus)

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc

	rxFails int
	txFails int
}

// New builds a Transport from cfg. It does not open the socket; call Start.
func New(cfg Config) *Transport {
	if cfg.PingPeriod == 0 {
		cfg.PingPeriod = transport.DefaultPingPeriodNet
	}
	return &Transport{cfg: cfg, pinger: transport.NewPinger(cfg.PingPeriod)}
}

func (t *Transport) SetCallbacks(onRecv func(transport.Frame), onLinkStatus func(transport.LinkStatus)) {
	t.onRecv = onRecv
	t.onLink = onLinkStatus
}

// Start binds the local socket, falling back to an OS-assigned port if
// RxPort is already in use, then begins the receive and ping loops.
func (t *Transport) Start() error {
	conn, err := bindWithFallback(t.cfg.LocalAddr, t.cfg.RxPort)
	if err != nil {
		return arsdkerr.Wrap(arsdkerr.NoResource, err, "transport/net: bind failed")
	}
	t.conn = conn

	if err := tuneSocket(conn, t.cfg.QoS); err != nil {
		_ = conn.Close()
		return arsdkerr.Wrap(arsdkerr.NoResource, err, "transport/net: socket tuning failed")
	}

	remote, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", t.cfg.RemoteAddr, t.cfg.TxPort))
	if err != nil {
		_ = conn.Close()
		return arsdkerr.Wrap(arsdkerr.InvalidArgument, err, "transport/net: bad remote addr")
	}
	t.remote = remote

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.recvLoop(ctx)
	go t.pingLoop(ctx)
	return nil
}

// Stop closes the socket and halts both loops. Idempotent.
func (t *Transport) Stop() error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.stopped = true
	t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

// Send writes one already-framed Frame to the remote address; a frame with
// Version 0 is sent as v3. ENOBUFS is swallowed as a transient, counted
// failure rather than a link fault (§6.1's "silent drop with fail counter"
// behavior) and Send returns nil; EAGAIN/EWOULDBLOCK are counted and
// returned as a Transient error. Neither marks the link KO.
func (t *Transport) Send(f transport.Frame) error {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if stopped {
		return arsdkerr.New(arsdkerr.NotConnected, "transport/net: stopped")
	}
	if ratio := dropRatio("ARSDK_TRANSPORT_NET_TX_DROP_RATIO"); ratio > 0 && shouldDrop(ratio) {
		return nil
	}
	if f.Version == 0 {
		f.Version = 3
	}
	data := transport.Encode(f)
	_, err := t.conn.WriteToUDP(data, t.remote)
	if err != nil {
		if isTransientSendErr(err) {
			t.txFails++
			if contains(err.Error(), "no buffer space available") {
				return nil
			}
			return arsdkerr.Wrap(arsdkerr.Transient, err, "transport/net: send")
		}
		return arsdkerr.Wrap(arsdkerr.Protocol, err, "transport/net: send")
	}
	return nil
}

func (t *Transport) recvLoop(ctx context.Context) {
	buf := make([]byte, 65536)
	dropRatioRx := dropRatio("ARSDK_TRANSPORT_NET_RX_DROP_RATIO")
	for {
		_ = t.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, _, err := t.conn.ReadFromUDP(buf)
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if isTransientSendErr(err) {
				t.rxFails++
				continue
			}
			return
		}
		if dropRatioRx > 0 && shouldDrop(dropRatioRx) {
			continue
		}
		f, _, derr := transport.Decode(buf[:n])
		if derr != nil {
			continue
		}
		t.dispatch(f)
	}
}

func (t *Transport) dispatch(f transport.Frame) {
	if f.ID == transport.IDPing {
		pong := transport.HandlePing(f)
		data := transport.Encode(pong)
		_, _ = t.conn.WriteToUDP(data, t.remote)
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
	ticker := time.NewTicker(t.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.pinger.Tick(now, func(f transport.Frame) {
				f.Version = 3
				data := transport.Encode(f)
				_, _ = t.conn.WriteToUDP(data, t.remote)
			})
			t.drainLink()
		}
	}
}

func (t *Transport) drainLink() {
	if s, ok := t.pinger.DrainLinkStatus(); ok && t.onLink != nil {
		t.onLink(s)
	}
}

// bindWithFallback binds addr:port; if the port is already in use it
// retries once with port 0, letting the OS assign one (§6.1).
func bindWithFallback(addr string, port int) (*net.UDPConn, error) {
	laddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", addr, port))
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err == nil {
		return conn, nil
	}
	if !os.IsExist(err) && !isAddrInUse(err) {
		return nil, err
	}
	laddr.Port = 0
	return net.ListenUDP("udp", laddr)
}

func isAddrInUse(err error) bool {
	return contains(err.Error(), "address already in use")
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}

// tuneSocket sets SO_RCVBUF/SO_SNDBUF and, when qos requests it, IP_TOS.
// net.ListenUDP exposes none of these, so this is the one place the
// syscall-level golang.org/x/sys/unix API is required instead of the
// stdlib net package alone.
func tuneSocket(conn *net.UDPConn, qos bool) error {
	rc, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = rc.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, socketBufferSize); e != nil {
			sockErr = e
			return
		}
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, socketBufferSize); e != nil {
			sockErr = e
			return
		}
		if qos {
			// IPTOS_PREC_INTERNETCONTROL (§4.8 qos_mode=1).
			_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TOS, 0xC0)
		}
	})
	if err != nil {
		return err
	}
	return sockErr
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func isTransientSendErr(err error) bool {
	return contains(err.Error(), "resource temporarily unavailable") ||
		contains(err.Error(), "no buffer space available") ||
		contains(err.Error(), "would block")
}

// dropRatio reads a 0..1 drop probability from an env var, for fault
// injection in integration tests (§9).
func dropRatio(envVar string) float64 {
	v := os.Getenv(envVar)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0
	}
	return f
}

var dropCounter uint64

func shouldDrop(ratio float64) bool {
	dropCounter++
	// Deterministic pseudo-sampling: avoids pulling in math/rand for a
	// test-only knob and stays reproducible across runs.
	return float64(dropCounter%1000)/1000.0 < ratio
}
