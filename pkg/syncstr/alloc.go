package syncstr

import (
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"
)

// Allocator provides raw storage for buffers.
//
// Resize returns storage of exactly n bytes holding the first min(len(buf), n)
// bytes of buf. When it moves the content, the old storage must be wiped
// before it is given up. On error buf is left untouched.
type Allocator interface {
	Allocate(n int) ([]byte, error)
	Resize(buf []byte, n int) ([]byte, error)
	Release(buf []byte)
}

// HeapAllocator allocates from the Go heap.
type HeapAllocator struct{}

// Allocate returns n zeroed bytes from the Go heap.
func (HeapAllocator) Allocate(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrAllocation, n)
	}
	return make([]byte, n), nil
}

// Resize copies buf into new storage of n bytes and wipes the old storage.
func (h HeapAllocator) Resize(buf []byte, n int) ([]byte, error) {
	out, err := h.Allocate(n)
	if err != nil {
		return nil, err
	}
	copy(out, buf)
	wipe(buf)
	return out, nil
}

// Release is a no-op; callers wipe before releasing.
func (HeapAllocator) Release([]byte) {}

// DefaultAllocator is used by buffers created without WithAllocator.
var DefaultAllocator Allocator = HeapAllocator{}

// LimitedAllocator wraps another allocator with a budget of outstanding bytes.
type LimitedAllocator struct {
	next  Allocator
	limit atomic.Int64
	used  atomic.Int64
}

// NewLimitedAllocator returns an allocator that fails once more than limit
// bytes are outstanding. A nil next uses the Go heap.
func NewLimitedAllocator(next Allocator, limit int) *LimitedAllocator {
	if next == nil {
		next = HeapAllocator{}
	}
	a := &LimitedAllocator{next: next}
	a.limit.Store(int64(limit))
	return a
}

// InUse returns the number of bytes currently handed out.
func (a *LimitedAllocator) InUse() int {
	return int(a.used.Load())
}

// SetLimit changes the budget. It does not reclaim storage already handed out.
func (a *LimitedAllocator) SetLimit(limit int) {
	a.limit.Store(int64(limit))
}

func (a *LimitedAllocator) reserve(n int) error {
	limit := a.limit.Load()
	if a.used.Add(int64(n)) > limit {
		a.used.Add(-int64(n))
		return fmt.Errorf("%w: budget of %d bytes exceeded", ErrAllocation, limit)
	}
	return nil
}

// Allocate reserves n bytes of the budget and delegates to the wrapped allocator.
func (a *LimitedAllocator) Allocate(n int) ([]byte, error) {
	if err := a.reserve(n); err != nil {
		return nil, err
	}
	buf, err := a.next.Allocate(n)
	if err != nil {
		a.used.Add(-int64(n))
		return nil, err
	}
	return buf, nil
}

// Resize charges only the growth against the budget and credits back a shrink.
func (a *LimitedAllocator) Resize(buf []byte, n int) ([]byte, error) {
	delta := n - len(buf)
	if delta > 0 {
		if err := a.reserve(delta); err != nil {
			return nil, err
		}
	}
	out, err := a.next.Resize(buf, n)
	if err != nil {
		if delta > 0 {
			a.used.Add(-int64(delta))
		}
		return nil, err
	}
	if delta < 0 {
		a.used.Add(int64(delta))
	}
	return out, nil
}

// Release returns len(buf) bytes to the budget.
func (a *LimitedAllocator) Release(buf []byte) {
	a.used.Add(-int64(len(buf)))
	a.next.Release(buf)
}

const (
	minPoolClass = 4  // 16 bytes
	maxPoolClass = 16 // 64 KiB
)

// PooledAllocator recycles storage in power-of-two size classes. Requests
// above the largest class go straight to the heap. Storage is wiped before
// it is pooled.
type PooledAllocator struct {
	pools [maxPoolClass + 1]sync.Pool
}

// NewPooledAllocator returns an empty pooled allocator.
func NewPooledAllocator() *PooledAllocator {
	return &PooledAllocator{}
}

func sizeClass(n int) int {
	if n <= 1<<minPoolClass {
		return minPoolClass
	}
	return bits.Len(uint(n - 1))
}

// Allocate takes storage from the size class of n, or the heap above the largest class.
func (p *PooledAllocator) Allocate(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrAllocation, n)
	}
	class := sizeClass(n)
	if class > maxPoolClass {
		return make([]byte, n), nil
	}
	if v := p.pools[class].Get(); v != nil {
		buf := *(v.(*[]byte))
		return buf[:n], nil
	}
	return make([]byte, n, 1<<class), nil
}

// Resize moves buf into storage of n bytes and recycles the old storage.
func (p *PooledAllocator) Resize(buf []byte, n int) ([]byte, error) {
	out, err := p.Allocate(n)
	if err != nil {
		return nil, err
	}
	copy(out, buf)
	p.Release(buf)
	return out, nil
}

// Release wipes buf and returns it to its size class.
func (p *PooledAllocator) Release(buf []byte) {
	full := buf[:cap(buf)]
	wipe(full)
	c := cap(buf)
	if c < 1<<minPoolClass || c&(c-1) != 0 {
		return
	}
	class := sizeClass(c)
	if class > maxPoolClass {
		return
	}
	full = full[:0]
	p.pools[class].Put(&full)
}

func wipe(b []byte) {
	clear(b)
}
