package codec

import "math"

// DecodeCommand parses payload's [prj][cls][cmd] header, looks up its
// descriptor, decodes the argument list, and returns the resulting Command
// (which wraps payload without copying) plus the decoded argument values in
// descriptor order.
func DecodeCommand(payload []byte) (*Command, []interface{}, error) {
	if len(payload) < 4 {
		return nil, nil, newFormatErr("decode: payload too short for header (%d bytes)", len(payload))
	}
	prj, cls := payload[0], payload[1]
	cmd := uint16(payload[2]) | uint16(payload[3])<<8

	desc, ok := FindDescriptor(prj, cls, cmd)
	if !ok {
		return nil, nil, newFormatErr("decode: no descriptor for prj=%d cls=%d cmd=%d", prj, cls, cmd)
	}
	args, err := DecodeArgs(desc, payload)
	if err != nil {
		return nil, nil, err
	}
	return newCommand(desc, payload), args, nil
}

// DecodeArgs decodes payload's argument section against desc, first
// verifying the header matches desc's identity.
func DecodeArgs(desc *CmdDesc, payload []byte) ([]interface{}, error) {
	if len(payload) < 4 {
		return nil, newFormatErr("decode %s: payload too short for header", desc.Name)
	}
	if payload[0] != desc.Prj || payload[1] != desc.Cls {
		return nil, newFormatErr("decode %s: prj/cls mismatch", desc.Name)
	}
	cmd := uint16(payload[2]) | uint16(payload[3])<<8
	if cmd != desc.Cmd {
		return nil, newFormatErr("decode %s: cmd mismatch", desc.Name)
	}

	rest := payload[4:]
	args := make([]interface{}, 0, len(desc.Args))
	for _, ad := range desc.Args {
		v, n, err := decodeArg(ad, rest)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		rest = rest[n:]
	}
	return args, nil
}

func decodeArg(ad ArgDesc, b []byte) (interface{}, int, error) {
	need := func(n int) error {
		if len(b) < n {
			return newFormatErr("decode %s: need %d bytes, have %d", ad.Name, n, len(b))
		}
		return nil
	}
	switch ad.Type {
	case I8:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return int8(b[0]), 1, nil
	case U8:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return b[0], 1, nil
	case I16:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return int16(readU16(b)), 2, nil
	case U16:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return readU16(b), 2, nil
	case I32:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return int32(readU32(b)), 4, nil
	case U32:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return readU32(b), 4, nil
	case I64:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return int64(readU64(b)), 8, nil
	case U64:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return readU64(b), 8, nil
	case Float:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return math.Float32frombits(readU32(b)), 4, nil
	case Double:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return math.Float64frombits(readU64(b)), 8, nil
	case String:
		n := 0
		for n < len(b) && b[n] != 0 {
			n++
		}
		if n >= len(b) {
			return nil, 0, newFormatErr("decode %s: unterminated string", ad.Name)
		}
		return string(b[:n]), n + 1, nil
	case Enum:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return int32(readU32(b)), 4, nil
	case Binary:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		n := int(readU32(b))
		if err := need(4 + n); err != nil {
			return nil, 0, err
		}
		out := make([]byte, n)
		copy(out, b[4:4+n])
		return out, 4 + n, nil
	default:
		return nil, 0, newFormatErr("decode %s: unknown arg type %v", ad.Name, ad.Type)
	}
}

func readU16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func readU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func readU64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
