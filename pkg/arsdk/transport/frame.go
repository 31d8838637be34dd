// Package transport implements the wire framing shared by all backends:
// the fixed v1 header, the variable v2/v3 header, varuint payload lengths,
// and the ping/pong keepalive protocol (§4.2, §6.1, §6.3).
package transport

import (
	"fmt"

	"github.com/arsdk-go/arsdk/pkg/arsdk/varint"
)

// Frame-level dataType values (ARNetworkAL-style), independent of a
// command's BufferType: they select ack semantics for this one frame.
const (
	TypeAck          byte = 1
	TypeData         byte = 2 // no ack requested
	TypeLowLatency   byte = 3
	TypeDataWithAck  byte = 4
)

// Transport id allocation (§6.3).
const (
	IDPing       byte = 0
	IDPong       byte = 1
	IDCmdMin     byte = 10
	IDC2DNoAck   byte = 10
	IDC2DWithAck byte = 11
	IDC2DHighPrio byte = 12
	IDD2CLowPrio byte = 125
	IDD2CWithAck byte = 126
	IDD2CNoAck   byte = 127
	Ackoff       byte = 128
)

// AckID returns the ack-frame id corresponding to data-plane id x.
func AckID(x byte) byte { return x + Ackoff }

// DataID returns the data-plane id an ack frame with id x refers to.
func DataID(x byte) byte { return x - Ackoff }

// Frame is a decoded transport frame, version-tagged so the caller can
// re-encode it with Encode without losing which header shape produced it.
type Frame struct {
	Version int // 1, 2, or 3
	Type    byte
	ID      byte
	Seq     uint16 // v1 only uses the low 8 bits
	Payload []byte
}

// v1HeaderLen is the fixed [type][id][seq][frame_len u32] header size.
const v1HeaderLen = 7

// Encode renders f per its Version's wire format.
func Encode(f Frame) []byte {
	if f.Version == 1 {
		return encodeV1(f)
	}
	return encodeV23(f)
}

func encodeV1(f Frame) []byte {
	frameLen := uint32(v1HeaderLen + len(f.Payload))
	buf := make([]byte, 0, frameLen)
	buf = append(buf, f.Type, f.ID, byte(f.Seq))
	buf = append(buf, byte(frameLen), byte(frameLen>>8), byte(frameLen>>16), byte(frameLen>>24))
	buf = append(buf, f.Payload...)
	return buf
}

func encodeV23(f Frame) []byte {
	buf := make([]byte, 0, 8+len(f.Payload))
	buf = append(buf, byte(f.Version+10), f.Type, f.ID, byte(f.Seq), byte(f.Seq>>8))
	buf = varint.Encode(buf, uint32(len(f.Payload)))
	buf = append(buf, f.Payload...)
	return buf
}

// Decode parses one frame from the front of data, auto-detecting v1 vs
// v2/v3 by comparing the first byte against 10 (§4.2), and returns the
// number of bytes consumed.
func Decode(data []byte) (Frame, int, error) {
	if len(data) == 0 {
		return Frame{}, 0, fmt.Errorf("transport: empty frame")
	}
	if data[0] < 10 {
		return decodeV1(data)
	}
	return decodeV23(data)
}

func decodeV1(data []byte) (Frame, int, error) {
	if len(data) < v1HeaderLen {
		return Frame{}, 0, fmt.Errorf("transport: truncated v1 header")
	}
	typ, id, seq := data[0], data[1], data[2]
	frameLen := uint32(data[3]) | uint32(data[4])<<8 | uint32(data[5])<<16 | uint32(data[6])<<24
	if frameLen < v1HeaderLen || int(frameLen) > len(data) {
		return Frame{}, 0, fmt.Errorf("transport: invalid v1 frame_len %d", frameLen)
	}
	f := Frame{Version: 1, Type: typ, ID: id, Seq: uint16(seq), Payload: data[v1HeaderLen:frameLen]}
	return f, int(frameLen), nil
}

func decodeV23(data []byte) (Frame, int, error) {
	if len(data) < 5 {
		return Frame{}, 0, fmt.Errorf("transport: truncated v2/v3 header")
	}
	version := int(data[0]) - 10
	if version != 2 && version != 3 {
		return Frame{}, 0, fmt.Errorf("transport: unsupported protocol version byte %d", data[0])
	}
	typ, id := data[1], data[2]
	seq := uint16(data[3]) | uint16(data[4])<<8
	payloadLen, n, err := varint.Decode(data[5:])
	if err != nil {
		return Frame{}, 0, fmt.Errorf("transport: %w", err)
	}
	offset := 5 + n
	total := offset + int(payloadLen)
	if total > len(data) {
		return Frame{}, 0, fmt.Errorf("transport: truncated payload (want %d, have %d)", payloadLen, len(data)-offset)
	}
	f := Frame{Version: version, Type: typ, ID: id, Seq: seq, Payload: data[offset:total]}
	return f, total, nil
}
