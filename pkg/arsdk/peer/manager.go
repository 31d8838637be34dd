// Package peer tracks connected devices/controllers for the lifetime of a
// process: each gets a unique random handle, a correlation id for logging,
// and a link-quality metric exported via a custom prometheus collector
// (§4.8, §9).
package peer

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/arsdk-go/arsdk/pkg/arsdk/arsdkerr"
	"github.com/arsdk-go/arsdk/pkg/arsdk/transport"
)

// Handle identifies one peer for the life of the process. 0 is reserved
// as the invalid handle.
type Handle uint16

const InvalidHandle Handle = 0

func (h Handle) String() string { return strconv.FormatUint(uint64(h), 10) }

// Peer is one connected device or controller.
type Peer struct {
	Handle        Handle
	CorrelationID xid.ID
	Name          string
	LinkStatus    transport.LinkStatus
	TxQualityPct  float64
	RxQualityPct  float64
	RTT           time.Duration
	Failures      uint64
}

// Manager allocates handles and keeps the registry of live peers. Safe for
// concurrent use: unlike the single-goroutine CmdItf/Transport contract,
// peers are commonly looked up from HTTP/metrics handlers running on
// their own goroutines.
type Manager struct {
	mu    sync.Mutex
	peers map[Handle]*Peer
	log   *logrus.Entry
}

func NewManager(log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{peers: make(map[Handle]*Peer), log: log}
}

// Register allocates a fresh random handle for name, retrying on
// collision, and returns the new Peer.
func (m *Manager) Register(name string) (*Peer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for attempt := 0; attempt < 32; attempt++ {
		h, err := randomHandle()
		if err != nil {
			return nil, arsdkerr.Wrap(arsdkerr.NoResource, err, "peer: generate handle")
		}
		if _, taken := m.peers[h]; taken {
			continue
		}
		p := &Peer{Handle: h, CorrelationID: xid.New(), Name: name, LinkStatus: transport.LinkUnknown}
		m.peers[h] = p
		m.log.WithFields(logrus.Fields{"handle": h, "correlation_id": p.CorrelationID.String(), "peer": name}).Info("peer registered")
		return p, nil
	}
	return nil, arsdkerr.New(arsdkerr.NoResource, "peer: could not allocate a unique handle")
}

// Unregister removes h from the registry.
func (m *Manager) Unregister(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.peers[h]; ok {
		m.log.WithFields(logrus.Fields{"handle": h, "correlation_id": p.CorrelationID.String()}).Info("peer unregistered")
		delete(m.peers, h)
	}
}

// Get returns the peer for h, if still registered.
func (m *Manager) Get(h Handle) (*Peer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peers[h]
	return p, ok
}

// SetLinkStatus updates h's link status, logging the transition.
func (m *Manager) SetLinkStatus(h Handle, s transport.LinkStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peers[h]
	if !ok {
		return
	}
	if p.LinkStatus == s {
		return
	}
	m.log.WithFields(logrus.Fields{"handle": h, "correlation_id": p.CorrelationID.String(), "status": s.String()}).Warn("link status changed")
	p.LinkStatus = s
}

// UpdateStats records the latest link-quality sample for h, as observed
// by its Transport's ack/retry bookkeeping.
func (m *Manager) UpdateStats(h Handle, txQualityPct, rxQualityPct float64, rtt time.Duration, failures uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peers[h]
	if !ok {
		return
	}
	p.TxQualityPct = txQualityPct
	p.RxQualityPct = rxQualityPct
	p.RTT = rtt
	p.Failures = failures
}

// Snapshot returns a point-in-time copy of the registry, for the metrics
// collector.
func (m *Manager) Snapshot() []Peer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Peer, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, *p)
	}
	return out
}

func randomHandle() (Handle, error) {
	var b [2]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			return 0, err
		}
		h := Handle(binary.LittleEndian.Uint16(b[:]))
		if h != InvalidHandle {
			return h, nil
		}
	}
}
