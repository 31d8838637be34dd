package codec

// Command is a typed protocol command: fixed identity (prj/cls/cmd, derived
// ID) plus an owned, refcounted payload buffer holding the wire-encoded
// form (§3).
type Command struct {
	Desc       *CmdDesc
	Prj        uint8
	Cls        uint8
	CmdID      uint16
	ID         uint32
	BufferType BufferType
	buf        *Buffer
}

// Payload returns the encoded [prj][cls][cmd_lo][cmd_hi][args...] bytes.
func (c *Command) Payload() []byte {
	return c.buf.Bytes()
}

// Clone adds a reference to the underlying buffer and returns a new Command
// value sharing it, per the copying-adds-a-reference ownership rule (§3).
func (c *Command) Clone() *Command {
	cl := *c
	cl.buf = c.buf.Ref()
	return &cl
}

// Release drops this Command's reference to its payload buffer.
func (c *Command) Release() {
	c.buf.Release()
}

// newCommand wraps an already-encoded payload for desc.
func newCommand(desc *CmdDesc, data []byte) *Command {
	return &Command{
		Desc:       desc,
		Prj:        desc.Prj,
		Cls:        desc.Cls,
		CmdID:      desc.Cmd,
		ID:         desc.ID(),
		BufferType: desc.BufferType,
		buf:        NewBuffer(data),
	}
}
