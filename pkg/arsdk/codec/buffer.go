package codec

import "sync/atomic"

// Buffer is a shared, reference-counted byte buffer backing a Command's
// encoded payload. Go's GC already reclaims the backing array once every
// reference is dropped, so Ref/Release here exist only to preserve the
// explicit ownership contract the spec describes (producer and transport
// both holding a reference across the TX path, §5) — useful for tests that
// assert lifecycle discipline, not for memory safety.
type Buffer struct {
	data []byte
	refs int32
}

// NewBuffer wraps data with an initial reference count of 1.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data, refs: 1}
}

// Bytes returns the buffer's contents. Callers must not retain slices past
// the buffer's last Release.
func (b *Buffer) Bytes() []byte { return b.data }

// Ref increments the reference count and returns b for chaining.
func (b *Buffer) Ref() *Buffer {
	atomic.AddInt32(&b.refs, 1)
	return b
}

// Release decrements the reference count, returning the count after
// decrement. Once it reaches zero the buffer is considered destroyed; the
// caller must not read from it again.
func (b *Buffer) Release() int32 {
	return atomic.AddInt32(&b.refs, -1)
}

// RefCount reports the current reference count (for tests/diagnostics).
func (b *Buffer) RefCount() int32 {
	return atomic.LoadInt32(&b.refs)
}
