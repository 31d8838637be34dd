package cmditf

import (
	"github.com/arsdk-go/arsdk/pkg/arsdk/codec"
	"github.com/arsdk-go/arsdk/pkg/arsdk/transport"
)

// DefaultC2DQueues returns the controller-to-device queue set used by the
// example commands and tests: one NON_ACK queue for high-rate piloting
// commands, one ACK queue for ordinary commands, one HIGH_PRIO queue for
// emergency commands (§6.3).
func DefaultC2DQueues() []QueueInfo {
	return []QueueInfo{
		{
			Name:            "c2d_nonack",
			DataType:        codec.BufferNonAck,
			ID:              transport.IDC2DNoAck,
			DefaultMaxRetry: -1,
		},
		{
			Name:            "c2d_ack",
			DataType:        codec.BufferAck,
			ID:              transport.IDC2DWithAck,
			AckID:           transport.AckID(transport.IDC2DWithAck),
			AckTimeoutMs:    150,
			DefaultMaxRetry: 4,
		},
		{
			Name:            "c2d_highprio",
			DataType:        codec.BufferHighPrio,
			ID:              transport.IDC2DHighPrio,
			AckID:           transport.AckID(transport.IDC2DHighPrio),
			AckTimeoutMs:    150,
			DefaultMaxRetry: -1,
		},
	}
}

// DefaultD2CQueues returns the device-to-controller queue set: one NON_ACK
// queue for streamed state, one ACK queue for events, one LOW_PRIO queue
// for bulk/background data.
func DefaultD2CQueues() []QueueInfo {
	return []QueueInfo{
		{
			Name:            "d2c_nonack",
			DataType:        codec.BufferNonAck,
			ID:              transport.IDD2CNoAck,
			DefaultMaxRetry: -1,
		},
		{
			Name:            "d2c_ack",
			DataType:        codec.BufferAck,
			ID:              transport.IDD2CWithAck,
			AckID:           transport.AckID(transport.IDD2CWithAck),
			AckTimeoutMs:    150,
			DefaultMaxRetry: 4,
		},
		{
			Name:            "d2c_lowprio",
			DataType:        codec.BufferLowPrio,
			ID:              transport.IDD2CLowPrio,
			AckID:           transport.AckID(transport.IDD2CLowPrio),
			AckTimeoutMs:    300,
			DefaultMaxRetry: 2,
		},
	}
}
