// Package codec implements the typed command wire format: little-endian
// argument encoding, descriptor lookup, and human-readable formatting.
package codec

import "fmt"

// ArgType is the wire type of a single command argument.
type ArgType int

const (
	I8 ArgType = iota
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	Float
	Double
	String
	Enum
	Binary
)

func (t ArgType) String() string {
	switch t {
	case I8:
		return "i8"
	case U8:
		return "u8"
	case I16:
		return "i16"
	case U16:
		return "u16"
	case I32:
		return "i32"
	case U32:
		return "u32"
	case I64:
		return "i64"
	case U64:
		return "u64"
	case Float:
		return "float"
	case Double:
		return "double"
	case String:
		return "string"
	case Enum:
		return "enum"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// BufferType selects the TX queue a command belongs to, and influences RX
// classification (§3).
type BufferType int

const (
	BufferNonAck BufferType = iota
	BufferAck
	BufferHighPrio
	BufferLowPrio
	BufferInvalid
)

func (b BufferType) String() string {
	switch b {
	case BufferNonAck:
		return "NON_ACK"
	case BufferAck:
		return "ACK"
	case BufferHighPrio:
		return "HIGH_PRIO"
	case BufferLowPrio:
		return "LOW_PRIO"
	default:
		return "INVALID"
	}
}

// TimeoutPolicy is the descriptor's retry strategy on ack-timeout.
type TimeoutPolicy int

const (
	TimeoutPop TimeoutPolicy = iota
	TimeoutRetry
	TimeoutFlush
)

// ArgDesc describes a single ordered argument of a command.
type ArgDesc struct {
	Name string
	Type ArgType
	// EnumNames maps an Enum argument's value to a display name. Nil for
	// non-enum args. When Bitfield is set, Format treats the value as an OR
	// of named bits and renders "A|B|UNKNOWN(bit)".
	EnumNames map[int32]string
	Bitfield  bool
}

// CmdDesc is the static, immutable metadata for one command.
type CmdDesc struct {
	Prj        uint8
	Cls        uint8
	Cmd        uint16
	Name       string
	BufferType BufferType
	Timeout    TimeoutPolicy
	Args       []ArgDesc
}

// ID returns the derived (prj<<24)|(cls<<16)|cmd identifier (§3).
func (d *CmdDesc) ID() uint32 {
	return uint32(d.Prj)<<24 | uint32(d.Cls)<<16 | uint32(d.Cmd)
}

type classEntry struct {
	cls  uint8
	cmds []*CmdDesc
}

type projectEntry struct {
	prj     uint8
	classes []classEntry
}

// table is the static three-level (project, class, command) registry.
// Populated by RegisterProject at init time; see table.go.
var table []projectEntry

// RegisterProject adds (or merges into) the project entry for prj.
func RegisterProject(prj uint8, classes map[uint8][]*CmdDesc) {
	for i := range table {
		if table[i].prj == prj {
			mergeClasses(&table[i], classes)
			return
		}
	}
	pe := projectEntry{prj: prj}
	mergeClasses(&pe, classes)
	table = append(table, pe)
}

func mergeClasses(pe *projectEntry, classes map[uint8][]*CmdDesc) {
	for cls, cmds := range classes {
		found := false
		for i := range pe.classes {
			if pe.classes[i].cls == cls {
				pe.classes[i].cmds = append(pe.classes[i].cmds, cmds...)
				found = true
				break
			}
		}
		if !found {
			pe.classes = append(pe.classes, classEntry{cls: cls, cmds: cmds})
		}
	}
}

// FindDescriptor performs the linear, short-circuiting scan specified in
// §4.1: if the project exists but the class is unknown within it, it
// returns false without scanning other projects.
func FindDescriptor(prj, cls uint8, cmd uint16) (*CmdDesc, bool) {
	for _, p := range table {
		if p.prj != prj {
			continue
		}
		for _, c := range p.classes {
			if c.cls != cls {
				continue
			}
			for _, d := range c.cmds {
				if d.Cmd == cmd {
					return d, true
				}
			}
			return nil, false
		}
		return nil, false
	}
	return nil, false
}

// ErrKind classifies codec failures per spec §7.
type ErrKind int

const (
	ErrInvalidArgument ErrKind = iota
	ErrInvalidFormat
)

// Error is the codec package's error type.
type Error struct {
	Kind ErrKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newFormatErr(format string, a ...interface{}) error {
	return &Error{Kind: ErrInvalidFormat, Msg: fmt.Sprintf(format, a...)}
}

func newArgErr(format string, a ...interface{}) error {
	return &Error{Kind: ErrInvalidArgument, Msg: fmt.Sprintf(format, a...)}
}
