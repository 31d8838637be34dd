package cmditf

import (
	"context"
	"time"

	"github.com/arsdk-go/arsdk/pkg/arsdk/arsdkerr"
	"github.com/arsdk-go/arsdk/pkg/arsdk/codec"
	"github.com/arsdk-go/arsdk/pkg/arsdk/transport"
)

// tickResolution bounds how often V1 polls for ack timeouts. The real
// scheduler arms a single-shot timer on the soonest deadline; a fine
// periodic poll is the stdlib-only approximation documented in the
// grounding ledger.
const tickResolution = 10 * time.Millisecond

type sendReq struct {
	cmd      *codec.Command
	statusFn SendStatusFunc
	userdata interface{}
	result   chan error
}

// V1 implements the legacy per-command interface (§4.5): one frame per
// command, at most one unacknowledged frame in flight per ack-requiring
// queue, NON_ACK queues sent fire-and-forget.
type V1 struct {
	tr         transport.Transport
	queues     []*Queue
	byDataID   map[byte]*Queue
	byAckID    map[byte]*Queue
	onRecv     func(*codec.Command)
	nextSeq    map[byte]uint8
	recvSeq    map[byte]uint8
	recvSeqSet map[byte]bool

	sendCh  chan sendReq
	frameCh chan transport.Frame
	stopCh  chan struct{}
}

// NewV1 builds a V1 interface driving tr, with one Queue per entry in
// infos, dispatching accepted incoming commands to onRecv.
func NewV1(tr transport.Transport, infos []QueueInfo, onRecv func(*codec.Command), onLinkStatus func(transport.LinkStatus)) *V1 {
	v := &V1{
		tr:         tr,
		byDataID:   make(map[byte]*Queue),
		byAckID:    make(map[byte]*Queue),
		onRecv:     onRecv,
		nextSeq:    make(map[byte]uint8),
		recvSeq:    make(map[byte]uint8),
		recvSeqSet: make(map[byte]bool),
		sendCh:     make(chan sendReq),
		frameCh:    make(chan transport.Frame, 64),
		stopCh:     make(chan struct{}),
	}
	for _, info := range infos {
		q := NewQueue(info)
		v.queues = append(v.queues, q)
		v.byDataID[info.ID] = q
		if info.AckID != 0 {
			v.byAckID[info.AckID] = q
		}
	}
	tr.SetCallbacks(v.onFrame, onLinkStatus)
	return v
}

func (v *V1) onFrame(f transport.Frame) {
	select {
	case v.frameCh <- f:
	case <-v.stopCh:
	}
}

// Send enqueues cmd on the queue matching its BufferType and blocks until
// the scheduler has accepted it (not until it is acked).
func (v *V1) Send(cmd *codec.Command, statusFn SendStatusFunc, userdata interface{}) error {
	req := sendReq{cmd: cmd, statusFn: statusFn, userdata: userdata, result: make(chan error, 1)}
	select {
	case v.sendCh <- req:
	case <-v.stopCh:
		return arsdkerr.New(arsdkerr.NotConnected, "cmditf: interface stopped")
	}
	return <-req.result
}

// Run drives the interface's event loop until ctx is canceled. It owns all
// mutable state; callers must not touch the interface concurrently other
// than through Send.
func (v *V1) Run(ctx context.Context) {
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

func (v *V1) findQueue(bt codec.BufferType) *Queue {
	for _, q := range v.queues {
		if q.Info.DataType == bt {
			return q
		}
	}
	return nil
}

func (v *V1) handleSend(req sendReq) error {
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

func (v *V1) tick(now time.Time) {
	for _, q := range v.queues {
		if q.Info.DataType == codec.BufferNonAck {
			for q.len() > 0 {
				e := q.pending.popFront()
				v.transmit(q, e)
				if e.statusFn != nil {
					e.statusFn(e.cmd, StatusSent, true)
				}
			}
			continue
		}
		e := q.pending.front()
		if e == nil {
			continue
		}
		if !e.waitingAck {
			v.transmit(q, e)
			e.waitingAck = true
			e.sentAt = now
			if e.statusFn != nil {
				e.statusFn(e.cmd, StatusSent, false)
			}
			continue
		}
		if now.Sub(e.sentAt) < e.ackTimeout {
			continue
		}
		if e.maxRetry >= 0 && e.retryCount >= e.maxRetry {
			q.pending.popFront()
			if e.statusFn != nil {
				e.statusFn(e.cmd, StatusTimeout, true)
			}
			continue
		}
		e.retryCount++
		v.transmit(q, e)
		e.sentAt = now
		if e.statusFn != nil {
			e.statusFn(e.cmd, StatusSent, false)
		}
	}
}

func (v *V1) transmit(q *Queue, e *entry) {
	if e.seq == 0 && e.retryCount == 0 {
		e.seq = uint32(v.nextSeq[q.Info.ID])
		v.nextSeq[q.Info.ID]++
	}
	typ := transport.TypeData
	if q.Info.DataType != codec.BufferNonAck {
		typ = transport.TypeDataWithAck
	}
	_ = v.tr.Send(transport.Frame{Type: typ, ID: q.Info.ID, Seq: uint16(byte(e.seq)), Payload: e.cmd.Payload()})
}

func (v *V1) handleFrame(f transport.Frame) {
	if f.Type == transport.TypeAck {
		v.handleAck(f)
		return
	}
	prev := v.recvSeq[f.ID]
	recv := byte(f.Seq)
	if v.recvSeqSet[f.ID] && !acceptSeq8(prev, recv) {
		return
	}
	v.recvSeq[f.ID] = recv
	v.recvSeqSet[f.ID] = true

	if f.Type == transport.TypeDataWithAck {
		_ = v.tr.Send(transport.Frame{Type: transport.TypeAck, ID: transport.AckID(f.ID), Seq: f.Seq, Payload: []byte{recv}})
	}

	if v.onRecv == nil {
		return
	}
	cmd, _, err := codec.DecodeCommand(f.Payload)
	if err != nil {
		return
	}
	v.onRecv(cmd)
}

func (v *V1) handleAck(f transport.Frame) {
	dataID := transport.DataID(f.ID)
	q := v.byDataID[dataID]
	if q == nil {
		return
	}
	e := q.pending.front()
	if e == nil || !e.waitingAck {
		return
	}
	if len(f.Payload) < 1 || f.Payload[0] != byte(e.seq) {
		return
	}
	q.pending.popFront()
	if e.statusFn != nil {
		e.statusFn(e.cmd, StatusAckReceived, true)
	}
}

func (v *V1) cancelAll() {
	for _, q := range v.queues {
		for q.len() > 0 {
			e := q.pending.popFront()
			if e.statusFn != nil {
				e.statusFn(e.cmd, StatusCanceled, true)
			}
		}
	}
}
