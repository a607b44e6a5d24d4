// Package ref provides retain/release ownership for buffers shared between a
// caller and the mount table.
//
// A new object starts with one reference owned by its creator. Every other
// holder calls Retain when it takes a reference and Release when it drops it.
// The release callback runs once, when the last reference goes away.
package ref

import "sync/atomic"

// Object is anything with a shared lifetime.
type Object interface {
	Retain()
	Release() bool
	RefCount() int32
}

// Data is a shared, immutable byte buffer.
type Data interface {
	Object
	Bytes() []byte
}

// Counter implements Object and can be embedded.
type Counter struct {
	refs   atomic.Int32
	onFree func()
}

// Init sets the count to one and records the function run on last release.
func (c *Counter) Init(onFree func()) {
	c.refs.Store(1)
	c.onFree = onFree
}

// Retain adds a reference.
func (c *Counter) Retain() {
	c.refs.Add(1)
}

// Release drops a reference and reports whether it was the last one.
func (c *Counter) Release() bool {
	n := c.refs.Add(-1)
	if n < 0 {
		panic("ref: release of a freed object")
	}
	if n > 0 {
		return false
	}
	if c.onFree != nil {
		c.onFree()
	}
	return true
}

// RefCount returns the number of live references.
func (c *Counter) RefCount() int32 {
	return c.refs.Load()
}

// Buffer is a reference-counted byte slice. Its bytes are dropped when the
// last reference is released.
type Buffer struct {
	Counter
	data []byte
}

// NewBuffer copies data into a new buffer owned by the caller.
func NewBuffer(data []byte) *Buffer {
	b := &Buffer{data: append([]byte(nil), data...)}
	b.Init(func() { b.data = nil })
	return b
}

// Bytes returns the buffer contents. Callers must not modify them.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Size returns the buffer length.
func (b *Buffer) Size() int {
	return len(b.data)
}
