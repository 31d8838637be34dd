// Package cmditf implements the three on-the-wire command-interface
// variants (v1, v2, v3) that schedule outgoing commands onto a Transport
// and dispatch received ones back to the application (§4.5-§4.7).
package cmditf

import (
	"time"

	"github.com/arsdk-go/arsdk/pkg/arsdk/codec"
)

// SendStatus reports the lifecycle of a queued command to its caller.
type SendStatus int

const (
	StatusSent SendStatus = iota
	StatusPacked
	StatusPartiallyPacked
	StatusAckReceived
	StatusTimeout
	StatusCanceled
)

func (s SendStatus) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusPacked:
		return "packed"
	case StatusPartiallyPacked:
		return "partially_packed"
	case StatusAckReceived:
		return "ack_received"
	case StatusTimeout:
		return "timeout"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// SendStatusFunc is invoked one or more times as a sent command progresses;
// done is true on the final call for that command (ack, timeout or cancel).
type SendStatusFunc func(cmd *codec.Command, status SendStatus, done bool)

// QueueInfo configures one outgoing queue (§3 "Queue").
type QueueInfo struct {
	Name               string
	DataType           codec.BufferType
	ID                 byte // transport id this queue sends on
	AckID              byte // transport id acks for this queue arrive on (0 if none)
	MaxTxRateMs        int  // carried for configuration only; V1 and V23 do not throttle on it
	AckTimeoutMs       int  // 0 = use DefaultAckTimeoutMs
	Overwrite          bool
	DefaultMaxRetry    int // -1 = infinite
}

// DefaultAckTimeoutMs is used when a QueueInfo leaves AckTimeoutMs unset
// (§4.5).
const DefaultAckTimeoutMs = 150

// entry is one command waiting in, or in flight from, a Queue.
type entry struct {
	cmd        *codec.Command
	statusFn   SendStatusFunc
	userdata   interface{}
	seq        uint32 // interface-assigned sequence number, once sent
	waitingAck bool
	retryCount int
	maxRetry   int
	sentAt     time.Time
	ackTimeout time.Duration
	fragOffset int // v3 fragmentation: bytes of payload already packed
}

// Queue is a FIFO of entries for one data type, backed by a geometrically
// growing ring buffer (§3).
type Queue struct {
	Info    QueueInfo
	pending *ring
}

func NewQueue(info QueueInfo) *Queue {
	if info.AckTimeoutMs == 0 {
		info.AckTimeoutMs = DefaultAckTimeoutMs
	}
	return &Queue{Info: info, pending: newRing()}
}

// enqueue appends cmd, applying the queue's overwrite policy: when
// Overwrite is set and an entry for the same command ID is already
// pending (not yet sent), it is replaced in place rather than appended
// (§4.5 "overwrite").
func (q *Queue) enqueue(e *entry) {
	if q.Info.Overwrite {
		if i := q.pending.indexOfID(e.cmd.ID); i >= 0 {
			old := q.pending.at(i)
			if !old.waitingAck {
				if old.statusFn != nil {
					old.statusFn(old.cmd, StatusCanceled, true)
				}
				q.pending.data[(q.pending.head+i)%len(q.pending.data)] = e
				return
			}
		}
	}
	q.pending.push(e)
}

func (q *Queue) len() int { return q.pending.len() }
