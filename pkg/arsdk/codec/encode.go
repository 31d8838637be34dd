package codec

import "math"

// Encode writes the little-endian [prj][cls][cmd_lo][cmd_hi] header followed
// by each argument in desc.Args order, and returns the resulting owned
// Command (§4.1, §6.2).
func Encode(desc *CmdDesc, args ...interface{}) (*Command, error) {
	if desc == nil {
		return nil, newArgErr("encode: nil descriptor")
	}
	if len(args) != len(desc.Args) {
		return nil, newArgErr("encode: %s expects %d args, got %d", desc.Name, len(desc.Args), len(args))
	}

	buf := newGrowBuf()
	buf.writeByte(desc.Prj)
	buf.writeByte(desc.Cls)
	buf.writeByte(byte(desc.Cmd))
	buf.writeByte(byte(desc.Cmd >> 8))

	for i, ad := range desc.Args {
		if err := encodeArg(buf, ad, args[i]); err != nil {
			return nil, err
		}
	}
	return newCommand(desc, buf.data), nil
}

func encodeArg(buf *growBuf, ad ArgDesc, v interface{}) error {
	switch ad.Type {
	case I8:
		x, ok := v.(int8)
		if !ok {
			return newArgErr("encode %s: want int8, got %T", ad.Name, v)
		}
		buf.writeByte(byte(x))
	case U8:
		x, ok := v.(uint8)
		if !ok {
			return newArgErr("encode %s: want uint8, got %T", ad.Name, v)
		}
		buf.writeByte(x)
	case I16:
		x, ok := v.(int16)
		if !ok {
			return newArgErr("encode %s: want int16, got %T", ad.Name, v)
		}
		writeU16(buf, uint16(x))
	case U16:
		x, ok := v.(uint16)
		if !ok {
			return newArgErr("encode %s: want uint16, got %T", ad.Name, v)
		}
		writeU16(buf, x)
	case I32:
		x, ok := v.(int32)
		if !ok {
			return newArgErr("encode %s: want int32, got %T", ad.Name, v)
		}
		writeU32(buf, uint32(x))
	case U32:
		x, ok := v.(uint32)
		if !ok {
			return newArgErr("encode %s: want uint32, got %T", ad.Name, v)
		}
		writeU32(buf, x)
	case I64:
		x, ok := v.(int64)
		if !ok {
			return newArgErr("encode %s: want int64, got %T", ad.Name, v)
		}
		writeU64(buf, uint64(x))
	case U64:
		x, ok := v.(uint64)
		if !ok {
			return newArgErr("encode %s: want uint64, got %T", ad.Name, v)
		}
		writeU64(buf, x)
	case Float:
		x, ok := v.(float32)
		if !ok {
			return newArgErr("encode %s: want float32, got %T", ad.Name, v)
		}
		writeU32(buf, math.Float32bits(x))
	case Double:
		x, ok := v.(float64)
		if !ok {
			return newArgErr("encode %s: want float64, got %T", ad.Name, v)
		}
		writeU64(buf, math.Float64bits(x))
	case String:
		x, ok := v.(string)
		if !ok {
			return newArgErr("encode %s: want string, got %T", ad.Name, v)
		}
		buf.write([]byte(x))
		buf.writeByte(0)
	case Enum:
		x, ok := v.(int32)
		if !ok {
			return newArgErr("encode %s: want int32 (enum), got %T", ad.Name, v)
		}
		writeU32(buf, uint32(x))
	case Binary:
		x, ok := v.([]byte)
		if !ok {
			return newArgErr("encode %s: want []byte, got %T", ad.Name, v)
		}
		writeU32(buf, uint32(len(x)))
		buf.write(x)
	default:
		return newArgErr("encode %s: unknown arg type %v", ad.Name, ad.Type)
	}
	return nil
}

func writeU16(buf *growBuf, v uint16) {
	buf.write([]byte{byte(v), byte(v >> 8)})
}

func writeU32(buf *growBuf, v uint32) {
	buf.write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func writeU64(buf *growBuf, v uint64) {
	buf.write([]byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	})
}
