// Package syncstr provides Buffer, a growable byte string guarded by a
// per-instance mutex, intended for code that shares string state between
// goroutines.
//
// A Buffer keeps a zero sentinel after its content, so its capacity is
// always at least Len()+1. Storage comes from a pluggable Allocator and
// wide text is converted through a pluggable Encoder. Storage is wiped
// before it is released or reallocated.
//
// Every method takes the buffer's lock for its whole duration. Callers that
// need several reads to be consistent take the lock with Lock and use the
// Locked methods, which never lock. Calling any other method of the same
// buffer while holding its lock deadlocks.
//
// Failures are reported as errors matching ErrAllocation, ErrEncoding,
// ErrInvalidArgument, ErrEmpty or ErrNotFound, or as the Invalid sentinel
// for operations returning positions and sizes. A failed mutation leaves
// the buffer as it was.
//
// Case folding is byte-wise: characters whose narrow form spans several
// bytes are not folded.
package syncstr
