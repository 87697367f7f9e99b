// Package samplebuf defines the sample-buffer contract consumed by the
// convolution engine and supplies one reference, ref-counted
// implementation of it.
//
// The engine treats buffers as an external collaborator: it never
// allocates one, never writes to one, and only releases a reference when a
// buffer's samples are fully consumed. Buffer allocation and lifetime
// otherwise belong to the caller.
package samplebuf

import "sync/atomic"

// Buffer is the contract the convolution engine requires of any held
// sample buffer: a readable interleaved (re, im) Q.15 sample array, a
// sample count, and a decref the engine calls exactly once per buffer when
// it is fully consumed.
//
// The engine never calls Incref; ownership of one reference is transferred
// into the engine by the caller of Push.
type Buffer interface {
	// Data returns the interleaved (re0, im0, re1, im1, ...) Q.15 samples.
	// The engine treats this as read-only.
	Data() []int16

	// Len returns the number of complex samples (half the length of Data).
	Len() int

	// Decref releases one reference. Implementations should free backing
	// storage once the reference count reaches zero.
	Decref()
}

// Ref is a reference-counted in-memory Buffer implementation. It is the
// module's one concrete implementation of Buffer, used by tests and by the
// bundled command-line tools; production callers may supply any type that
// satisfies Buffer.
type Ref struct {
	data []int16
	len  int
	refs int32
}

// New wraps interleaved (re, im) Q.15 samples in a Ref with one reference
// already held, as if freshly allocated by the caller before the first
// Push. data must hold 2*len elements.
func New(data []int16) *Ref {
	if len(data)%2 != 0 {
		panic("samplebuf: data length must be even (interleaved re/im pairs)")
	}
	return &Ref{
		data: data,
		len:  len(data) / 2,
		refs: 1,
	}
}

// Data implements Buffer.
func (b *Ref) Data() []int16 { return b.data }

// Len implements Buffer.
func (b *Ref) Len() int { return b.len }

// Incref adds one reference. Not used by the engine itself; provided for
// callers that hand the same buffer to more than one consumer.
func (b *Ref) Incref() {
	atomic.AddInt32(&b.refs, 1)
}

// Decref implements Buffer. Panics if called more times than references
// were ever held, which indicates a double-free bug in the caller.
func (b *Ref) Decref() {
	n := atomic.AddInt32(&b.refs, -1)
	if n < 0 {
		panic("samplebuf: decref below zero (double free)")
	}
}

// Refs reports the current reference count. Intended for tests validating
// property 2 of the spec's testable properties (reference conservation).
func (b *Ref) Refs() int32 {
	return atomic.LoadInt32(&b.refs)
}
