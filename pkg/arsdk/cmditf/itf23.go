package cmditf

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arsdk-go/arsdk/pkg/arsdk/arsdkerr"
	"github.com/arsdk-go/arsdk/pkg/arsdk/codec"
	"github.com/arsdk-go/arsdk/pkg/arsdk/transport"
)

// v2MaxPackSize and v3MaxPackSize are the per-frame payload ceilings of
// §4.6 and §4.7.
const (
	v2MaxPackSize = 1400
	v3MaxPackSize = 1000
)

// tooManyRetriesThreshold is the sent-without-ack count at which a pack's
// queue is flagged as a pathological link (§4.7).
const tooManyRetriesThreshold = 100

// lastPack mirrors ack statistics for the most recently fully-acknowledged
// pack on an ack-required queue, so a late duplicate ACK from a retry race
// can be recognized and counted instead of silently dropped (§3).
type lastPack struct {
	seq      uint16
	ackCount int
}

// PackSendStatusFunc reports pack-level send progress on an ack-required
// queue: every initial send and every retry (§4.7, §6.5 pack_send_status).
type PackSendStatusFunc func(queueID byte, seq uint16, sentCount int)

// PackRecvStatusFunc reports pack-level ack receipt on an ack-required
// queue, including duplicate acks recognized via the last_pack mirror
// (§4.7, §6.5 pack_recv_status).
type PackRecvStatusFunc func(queueID byte, seq uint16, duplicate bool, ackCount int)

// Option configures optional V23 behavior not covered by NewV23's required
// arguments.
type Option func(*V23)

// WithPackSendStatus registers a callback invoked whenever an ack-required
// pack is sent or resent.
func WithPackSendStatus(fn PackSendStatusFunc) Option {
	return func(v *V23) { v.onPackSendStatus = fn }
}

// WithPackRecvStatus registers a callback invoked whenever an ack-required
// pack is acknowledged, including duplicate acks of an already-acked pack.
func WithPackRecvStatus(fn PackRecvStatusFunc) Option {
	return func(v *V23) { v.onPackRecvStatus = fn }
}

// V23 implements the packed interface shared by v2 and v3 (§4.6, §4.7):
// multiple whole commands batched per frame, with v3 additionally allowed
// to fragment a single oversized command across successive frames on
// WITH_ACK-class queues.
type V23 struct {
	version     int
	maxPackSize int

	tr       transport.Transport
	queues   []*Queue
	byDataID map[byte]*Queue
	byAckID  map[byte]*Queue
	onRecv   func(*codec.Command)

	frameSeq    map[byte]uint16    // next outgoing frame seq, per transport id
	lastAckWait map[byte]uint16    // seq of the pack currently awaiting ack, per ack queue
	lastAcked   map[byte]*lastPack // last_pack mirror, per ack queue (§3)
	sentCount   map[byte]int       // packs sent without a successful ack, per ack queue
	recvSeq     map[byte]uint16
	recvSeqSet  map[byte]bool
	partial     map[byte][]byte // v3 fragment reassembly buffer, per transport id

	onPackSendStatus PackSendStatusFunc
	onPackRecvStatus PackRecvStatusFunc

	sendCh  chan sendReq
	frameCh chan transport.Frame
	stopCh  chan struct{}
}

// NewV23 builds a v2 (version=2) or v3 (version=3) packed interface.
func NewV23(version int, tr transport.Transport, infos []QueueInfo, onRecv func(*codec.Command), onLinkStatus func(transport.LinkStatus), opts ...Option) *V23 {
	maxSize := v2MaxPackSize
	if version == 3 {
		maxSize = v3MaxPackSize
	}
	v := &V23{
		version:     version,
		maxPackSize: maxSize,
		tr:          tr,
		byDataID:    make(map[byte]*Queue),
		byAckID:     make(map[byte]*Queue),
		onRecv:      onRecv,
		frameSeq:    make(map[byte]uint16),
		lastAckWait: make(map[byte]uint16),
		lastAcked:   make(map[byte]*lastPack),
		sentCount:   make(map[byte]int),
		recvSeq:     make(map[byte]uint16),
		recvSeqSet:  make(map[byte]bool),
		partial:     make(map[byte][]byte),
		sendCh:      make(chan sendReq),
		frameCh:     make(chan transport.Frame, 64),
		stopCh:      make(chan struct{}),
	}
	for _, info := range infos {
		q := NewQueue(info)
		v.queues = append(v.queues, q)
		v.byDataID[info.ID] = q
		if info.AckID != 0 {
			v.byAckID[info.AckID] = q
		}
	}
	for _, opt := range opts {
		opt(v)
	}
	tr.SetCallbacks(v.onFrame, onLinkStatus)
	return v
}

func (v *V23) onFrame(f transport.Frame) {
	select {
	case v.frameCh <- f:
	case <-v.stopCh:
	}
}

func (v *V23) Send(cmd *codec.Command, statusFn SendStatusFunc, userdata interface{}) error {
	req := sendReq{cmd: cmd, statusFn: statusFn, userdata: userdata, result: make(chan error, 1)}
	select {
	case v.sendCh <- req:
	case <-v.stopCh:
		return arsdkerr.New(arsdkerr.NotConnected, "cmditf: interface stopped")
	}
	return <-req.result
}

func (v *V23) Run(ctx context.Context) {
	ticker := time.NewTicker(tickResolution)
	defer ticker.Stop()
	defer close(v.stopCh)
	for {
		select {
		case <-ctx.Done():
			v.cancelAll()
			return
		case req := <-v.sendCh:
			req.result <- v.handleSend(req)
		case f := <-v.frameCh:
			v.handleFrame(f)
		case now := <-ticker.C:
			v.tick(now)
		}
	}
}

func (v *V23) findQueue(bt codec.BufferType) *Queue {
	for _, q := range v.queues {
		if q.Info.DataType == bt {
			return q
		}
	}
	return nil
}

func (v *V23) handleSend(req sendReq) error {
	q := v.findQueue(req.cmd.BufferType)
	if q == nil {
		return arsdkerr.New(arsdkerr.NoResource, "cmditf: no queue for buffer type %s", req.cmd.BufferType)
	}
	maxRetry := q.Info.DefaultMaxRetry
	if req.cmd.Desc != nil && req.cmd.Desc.Timeout == codec.TimeoutRetry {
		maxRetry = -1
	}
	e := &entry{
		cmd:        req.cmd,
		statusFn:   req.statusFn,
		userdata:   req.userdata,
		maxRetry:   maxRetry,
		ackTimeout: time.Duration(q.Info.AckTimeoutMs) * time.Millisecond,
	}
	q.enqueue(e)
	return nil
}

func (v *V23) tick(now time.Time) {
	for _, q := range v.queues {
		pb := newPackBuilder(v.version, v.maxPackSize)
		if q.Info.DataType == codec.BufferNonAck {
			v.packNonAck(q, pb)
		} else {
			v.packAckRequired(q, pb, now)
		}
		if pb.len() == 0 {
			continue
		}
		typ := transport.TypeData
		if q.Info.DataType != codec.BufferNonAck {
			typ = transport.TypeDataWithAck
		}
		seq := v.frameSeq[q.Info.ID]
		v.frameSeq[q.Info.ID]++
		if typ == transport.TypeDataWithAck {
			v.lastAckWait[q.Info.ID] = seq
			v.sentCount[q.Info.ID]++
			sc := v.sentCount[q.Info.ID]
			if v.onPackSendStatus != nil {
				v.onPackSendStatus(q.Info.ID, seq, sc)
			}
			if sc == tooManyRetriesThreshold {
				logrus.WithFields(logrus.Fields{"queue": q.Info.ID, "seq": seq}).Warn("too_many_retries")
			}
		}
		_ = v.tr.Send(transport.Frame{Version: v.version, Type: typ, ID: q.Info.ID, Seq: seq, Payload: pb.buf})
	}
}

func (v *V23) packNonAck(q *Queue, pb *packBuilder) {
	for q.len() > 0 {
		e := q.pending.front()
		payload := e.cmd.Payload()
		if !pb.addWhole(payload) {
			if pb.len() == 0 {
				q.pending.popFront()
				if e.statusFn != nil {
					e.statusFn(e.cmd, StatusCanceled, true)
				}
				continue
			}
			break
		}
		q.pending.popFront()
		if e.statusFn != nil {
			e.statusFn(e.cmd, StatusSent, true)
		}
	}
}

// packAckRequired fills pb with as many whole (or, for v3, fragmentable)
// entries as fit, sharing one ack cycle across everything packed together
// (§3, §4.6, §4.7). At most one pack per queue is ever in flight: if the
// front entry is still awaiting its ack, this either waits out the timeout
// or requeues the whole batch for retry before packing anything new.
func (v *V23) packAckRequired(q *Queue, pb *packBuilder, now time.Time) {
	front := q.pending.front()
	if front == nil {
		return
	}
	if front.waitingAck {
		if now.Sub(front.sentAt) < front.ackTimeout {
			return
		}
		for i := 0; i < q.pending.len(); {
			e := q.pending.at(i)
			if e == nil || !e.waitingAck {
				break
			}
			if e.maxRetry >= 0 && e.retryCount >= e.maxRetry {
				q.pending.removeAt(i)
				if e.statusFn != nil {
					e.statusFn(e.cmd, StatusTimeout, true)
				}
				continue
			}
			e.retryCount++
			e.fragOffset = 0
			e.waitingAck = false
			i++
		}
		if q.pending.len() == 0 {
			return
		}
	}

	for i := 0; i < q.pending.len(); {
		e := q.pending.at(i)
		if e == nil || e.waitingAck {
			break
		}
		payload := e.cmd.Payload()
		remaining := payload[e.fragOffset:]

		if v.version == 2 {
			if !pb.addWhole(remaining) {
				if pb.len() == 0 {
					q.pending.removeAt(i)
					if e.statusFn != nil {
						e.statusFn(e.cmd, StatusCanceled, true)
					}
					continue
				}
				break
			}
			e.fragOffset = len(payload)
			e.waitingAck = true
			e.sentAt = now
			if e.statusFn != nil {
				e.statusFn(e.cmd, StatusPacked, false)
			}
			i++
			continue
		}

		avail := pb.remaining()
		chunkLen := avail - v3FragOverhead
		if chunkLen > len(remaining) {
			chunkLen = len(remaining)
		}
		if chunkLen < 0 {
			break
		}
		more := chunkLen < len(remaining)
		if !pb.addFragment(remaining[:chunkLen], more) {
			break
		}
		e.fragOffset += chunkLen
		e.waitingAck = true
		e.sentAt = now
		if more {
			if e.statusFn != nil {
				e.statusFn(e.cmd, StatusPartiallyPacked, false)
			}
			break
		}
		if e.statusFn != nil {
			e.statusFn(e.cmd, StatusPacked, false)
		}
		i++
	}
}

func (v *V23) handleFrame(f transport.Frame) {
	if f.Type == transport.TypeAck {
		v.handleAck(f)
		return
	}
	if v.recvSeqSet[f.ID] && !acceptSeq16(v.recvSeq[f.ID], f.Seq) {
		return
	}
	v.recvSeq[f.ID] = f.Seq
	v.recvSeqSet[f.ID] = true

	items, err := decodePack(v.version, f.Payload)
	if err == nil {
		for _, it := range items {
			v.partial[f.ID] = append(v.partial[f.ID], it.data...)
			if it.more {
				continue
			}
			full := v.partial[f.ID]
			v.partial[f.ID] = nil
			if v.onRecv == nil {
				continue
			}
			cmd, _, derr := codec.DecodeCommand(full)
			if derr == nil {
				v.onRecv(cmd)
			}
		}
	}

	if f.Type == transport.TypeDataWithAck {
		seq := f.Seq
		_ = v.tr.Send(transport.Frame{Version: v.version, Type: transport.TypeAck, ID: transport.AckID(f.ID), Seq: f.Seq, Payload: []byte{byte(seq), byte(seq >> 8)}})
	}
}

func (v *V23) handleAck(f transport.Frame) {
	dataID := transport.DataID(f.ID)
	q := v.byDataID[dataID]
	if q == nil {
		return
	}
	if lp, ok := v.lastAcked[dataID]; ok && f.Seq == lp.seq {
		lp.ackCount++
		if v.onPackRecvStatus != nil {
			v.onPackRecvStatus(dataID, f.Seq, true, lp.ackCount)
		}
		return
	}
	want, ok := v.lastAckWait[dataID]
	if !ok || f.Seq != want {
		return
	}
	front := q.pending.front()
	if front == nil || !front.waitingAck {
		return
	}
	v.ackInFlightPack(q, dataID, f.Seq)
}

// ackInFlightPack pops every entry the pack awaiting ack on dataID's queue
// fully carried, records it in the last_pack mirror so a late duplicate
// ACK is recognized instead of dropped, and clears the retry-without-ack
// counter (§3, §8 "Duplicate ACK"). A trailing v3 command that was only
// partially packed stays at the front, no longer awaiting ack, so its
// next fragment goes out in the following pack.
func (v *V23) ackInFlightPack(q *Queue, dataID byte, seq uint16) {
	for q.pending.len() > 0 {
		e := q.pending.front()
		if e == nil || !e.waitingAck {
			break
		}
		if e.fragOffset < len(e.cmd.Payload()) {
			e.waitingAck = false
			break
		}
		q.pending.popFront()
		if e.statusFn != nil {
			e.statusFn(e.cmd, StatusAckReceived, true)
		}
	}
	v.lastAcked[dataID] = &lastPack{seq: seq, ackCount: 1}
	v.sentCount[dataID] = 0
	if v.onPackRecvStatus != nil {
		v.onPackRecvStatus(dataID, seq, false, 1)
	}
}

func (v *V23) cancelAll() {
	for _, q := range v.queues {
		for q.len() > 0 {
			e := q.pending.popFront()
			if e.statusFn != nil {
				e.statusFn(e.cmd, StatusCanceled, true)
			}
		}
	}
}
