package syncstr

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
)

var nextID atomic.Uint64

// Buffer is a growable byte string guarded by a per-instance mutex.
// All methods are safe for concurrent use. Methods with the Locked suffix
// are not and expect the caller to hold the lock taken with Lock.
type Buffer struct {
	mu sync.Mutex
	id uint64

	// len(data) is the capacity; data[length] is always 0.
	data   []byte
	length int

	alloc     Allocator
	enc       Encoder
	growth    Growth
	destroyed bool
}

func newBuffer(opts []Option) *Buffer {
	b := &Buffer{
		id:    nextID.Add(1),
		alloc: DefaultAllocator,
		enc:   DefaultEncoder,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Buffer) init(content []byte) error {
	n := len(content) + 1
	data, err := b.alloc.Allocate(n)
	if err != nil {
		return allocError(n, err)
	}
	copy(data, content)
	clear(data[len(content):])
	b.data, b.length = data, len(content)
	return nil
}

func build(content []byte, opts []Option) (*Buffer, error) {
	b := newBuffer(opts)
	if err := b.init(content); err != nil {
		return nil, err
	}
	return b, nil
}

// New returns an empty buffer with room for the sentinel only.
func New(opts ...Option) (*Buffer, error) {
	return build(nil, opts)
}

// FromString returns a buffer holding a copy of s.
func FromString(s string, opts ...Option) (*Buffer, error) {
	return build([]byte(s), opts)
}

// FromBytes returns a buffer holding a copy of p. No terminator is assumed;
// zero bytes inside p are kept.
func FromBytes(p []byte, opts ...Option) (*Buffer, error) {
	return build(p, opts)
}

// FromCString returns a buffer holding p up to, not including, its first
// zero byte. Without a zero byte all of p is copied.
func FromCString(p []byte, opts ...Option) (*Buffer, error) {
	if i := bytes.IndexByte(p, 0); i >= 0 {
		p = p[:i]
	}
	return build(p, opts)
}

// FromWide returns a buffer holding wide converted by the buffer's encoder.
func FromWide(wide []rune, opts ...Option) (*Buffer, error) {
	b := newBuffer(opts)
	p, err := b.enc.Encode(wide)
	if err != nil {
		return nil, err
	}
	defer wipe(p)
	if err := b.init(p); err != nil {
		return nil, err
	}
	return b, nil
}

// FromUTF16 is FromWide for UTF-16 code units.
func FromUTF16(units []uint16, opts ...Option) (*Buffer, error) {
	return FromWide(WideFromUTF16(units), opts...)
}

// FromBuffer returns a buffer holding a snapshot of src. The new buffer
// inherits the allocator, encoder and growth policy of src unless opts
// override them.
func FromBuffer(src *Buffer, opts ...Option) (*Buffer, error) {
	if err := src.lock(); err != nil {
		return nil, err
	}
	defer src.mu.Unlock()
	return src.spawn(src.data[:src.length], opts...)
}

// spawn builds an independent buffer sharing b's configuration. It does not
// lock the new buffer's source; the caller holds b's lock.
func (b *Buffer) spawn(content []byte, opts ...Option) (*Buffer, error) {
	inherited := append([]Option{
		WithAllocator(b.alloc),
		WithEncoder(b.enc),
		WithGrowth(b.growth),
	}, opts...)
	return build(content, inherited)
}

// lock acquires the mutex and fails without holding it if b is nil or destroyed.
func (b *Buffer) lock() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidArgument)
	}
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return ErrDestroyed
	}
	return nil
}

// snapshot copies the content under the lock. Callers wipe the copy.
func (b *Buffer) snapshot() ([]byte, error) {
	if err := b.lock(); err != nil {
		return nil, err
	}
	defer b.mu.Unlock()
	return bytes.Clone(b.data[:b.length]), nil
}

// Destroy zero-fills the storage, returns it to the allocator and leaves
// the buffer inert. Later calls fail with ErrDestroyed.
func (b *Buffer) Destroy() error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()

	wipe(b.data)
	b.alloc.Release(b.data)
	b.data = nil
	b.length = 0
	b.destroyed = true
	return nil
}

// Lock acquires exclusive access for a sequence of Locked calls.
// Calling any other method of b before Unlock deadlocks.
func (b *Buffer) Lock() {
	if b != nil {
		b.mu.Lock()
	}
}

// Unlock releases the lock taken with Lock.
func (b *Buffer) Unlock() {
	if b != nil {
		b.mu.Unlock()
	}
}

// LenLocked returns the length, or Invalid if b is destroyed.
func (b *Buffer) LenLocked() int {
	if b.destroyed {
		return Invalid
	}
	return b.length
}

// CapLocked returns the capacity, or Invalid if b is destroyed.
func (b *Buffer) CapLocked() int {
	if b.destroyed {
		return Invalid
	}
	return len(b.data)
}

// AllocatorLocked returns the allocator that owns the current storage.
func (b *Buffer) AllocatorLocked() Allocator {
	return b.alloc
}

// EncoderLocked returns the encoder used for wide input.
func (b *Buffer) EncoderLocked() Encoder {
	return b.enc
}

// ByteLocked returns the byte at i without bounds checking beyond the
// runtime's own.
func (b *Buffer) ByteLocked(i int) byte {
	return b.data[i]
}

// BytesLocked returns a view of the content. It is only valid until Unlock.
func (b *Buffer) BytesLocked() []byte {
	return b.data[:b.length]
}

// SliceLocked returns a new buffer holding a copy of bytes [start, end),
// configured like b.
func (b *Buffer) SliceLocked(start, end int) (*Buffer, error) {
	if b.destroyed {
		return nil, ErrDestroyed
	}
	if start < 0 || end < start || end > b.length {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfRange, start, end, b.length)
	}
	return b.spawn(b.data[start:end])
}

// At returns the byte at index i.
func (b *Buffer) At(i int) (byte, error) {
	if err := b.lock(); err != nil {
		return 0, err
	}
	defer b.mu.Unlock()

	if i < 0 || i >= b.length {
		return 0, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, b.length)
	}
	return b.data[i], nil
}

// Front returns the first byte.
func (b *Buffer) Front() (byte, error) {
	if err := b.lock(); err != nil {
		return 0, err
	}
	defer b.mu.Unlock()

	if b.length == 0 {
		return 0, ErrEmpty
	}
	return b.data[0], nil
}

// Back returns the last byte.
func (b *Buffer) Back() (byte, error) {
	if err := b.lock(); err != nil {
		return 0, err
	}
	defer b.mu.Unlock()

	if b.length == 0 {
		return 0, ErrEmpty
	}
	return b.data[b.length-1], nil
}

// Len returns the number of content bytes, or Invalid for a nil or
// destroyed buffer.
func (b *Buffer) Len() int {
	if err := b.lock(); err != nil {
		return Invalid
	}
	defer b.mu.Unlock()
	return b.length
}

// Cap returns the reserved storage including the sentinel, or Invalid for a
// nil or destroyed buffer.
func (b *Buffer) Cap() int {
	if err := b.lock(); err != nil {
		return Invalid
	}
	defer b.mu.Unlock()
	return len(b.data)
}

// Empty reports whether b holds no content. Nil and destroyed buffers are empty.
func (b *Buffer) Empty() bool {
	return b.Len() <= 0
}

// Bytes returns a copy of the content.
func (b *Buffer) Bytes() []byte {
	p, err := b.snapshot()
	if err != nil {
		return nil
	}
	return p
}

// String returns the content as a string.
func (b *Buffer) String() string {
	if err := b.lock(); err != nil {
		return ""
	}
	defer b.mu.Unlock()
	return string(b.data[:b.length])
}

// Drain returns the content and clears the buffer in one step.
func (b *Buffer) Drain() (string, error) {
	if err := b.lock(); err != nil {
		return "", err
	}
	defer b.mu.Unlock()

	s := string(b.data[:b.length])
	b.clearLocked()
	return s, nil
}

func (b *Buffer) resizeLocked(n int) error {
	data, err := b.alloc.Resize(b.data, n)
	if err != nil {
		return allocError(n, err)
	}
	b.data = data
	return nil
}

// growLocked makes room for extra more content bytes.
func (b *Buffer) growLocked(extra int) error {
	need := b.length + extra + 1
	if need <= len(b.data) {
		return nil
	}
	return b.resizeLocked(b.growth.capacityFor(need, len(b.data)))
}

// Resize reallocates the storage to exactly n bytes. The length is never
// changed, so n below Len()+1 is rejected.
func (b *Buffer) Resize(n int) error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()

	if n < b.length+1 {
		return fmt.Errorf("%w: capacity %d cannot hold length %d and sentinel", ErrInvalidArgument, n, b.length)
	}
	if n == len(b.data) {
		return nil
	}
	return b.resizeLocked(n)
}

// ShrinkToFit reduces the capacity to Len()+1.
func (b *Buffer) ShrinkToFit() error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()

	if len(b.data) == b.length+1 {
		return nil
	}
	return b.resizeLocked(b.length + 1)
}

// Clear zero-fills the storage and sets the length to 0. The capacity is kept.
func (b *Buffer) Clear() error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()

	b.clearLocked()
	return nil
}

func (b *Buffer) clearLocked() {
	wipe(b.data)
	b.length = 0
}

func (b *Buffer) appendLocked(p []byte) error {
	if err := b.growLocked(len(p)); err != nil {
		return err
	}
	copy(b.data[b.length:], p)
	b.length += len(p)
	b.data[b.length] = 0
	return nil
}

// PushBack appends one byte.
func (b *Buffer) PushBack(c byte) error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()

	if err := b.growLocked(1); err != nil {
		return err
	}
	b.data[b.length] = c
	b.length++
	b.data[b.length] = 0
	return nil
}

// PushBackRune converts r with the buffer's encoder and appends the result.
// A failed conversion leaves the buffer unchanged.
func (b *Buffer) PushBackRune(r rune) error {
	return b.AppendWide([]rune{r})
}

// PopBack removes the last byte.
func (b *Buffer) PopBack() error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()

	if b.length == 0 {
		return ErrEmpty
	}
	b.length--
	b.data[b.length] = 0
	return nil
}

// Append appends a snapshot of other. other may be b itself.
func (b *Buffer) Append(other *Buffer) error {
	p, err := other.snapshot()
	if err != nil {
		return err
	}
	defer wipe(p)
	return b.AppendBytes(p)
}

// AppendString appends s.
func (b *Buffer) AppendString(s string) error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()

	if err := b.growLocked(len(s)); err != nil {
		return err
	}
	copy(b.data[b.length:], s)
	b.length += len(s)
	b.data[b.length] = 0
	return nil
}

// AppendBytes appends p.
func (b *Buffer) AppendBytes(p []byte) error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()
	return b.appendLocked(p)
}

// AppendWide converts wide with the buffer's encoder and appends the result.
func (b *Buffer) AppendWide(wide []rune) error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidArgument)
	}
	// The encoder is fixed at construction and read without the lock.
	p, err := b.enc.Encode(wide)
	if err != nil {
		return err
	}
	defer wipe(p)
	return b.AppendBytes(p)
}

// Write implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	if err := b.AppendBytes(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Insert places c at index i, shifting the tail right. i == Len() appends.
func (b *Buffer) Insert(i int, c byte) error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()

	if i < 0 || i > b.length {
		return fmt.Errorf("%w: insert at %d of %d", ErrOutOfRange, i, b.length)
	}
	if err := b.growLocked(1); err != nil {
		return err
	}
	copy(b.data[i+1:b.length+1], b.data[i:b.length])
	b.data[i] = c
	b.length++
	b.data[b.length] = 0
	return nil
}

// Erase removes up to n bytes starting at i, clamped to the content.
func (b *Buffer) Erase(i, n int) error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()

	if i < 0 || i >= b.length {
		return fmt.Errorf("%w: erase at %d of %d", ErrOutOfRange, i, b.length)
	}
	if n <= 0 {
		return fmt.Errorf("%w: erase count %d", ErrInvalidArgument, n)
	}
	n = min(n, b.length-i)
	copy(b.data[i:], b.data[i+n:b.length])
	clear(b.data[b.length-n : b.length])
	b.length -= n
	return nil
}

// Swap exchanges the contents and storage of b and other. Both locks are
// held, taken in creation order so that concurrent opposite swaps of the
// same pair cannot deadlock.
func (b *Buffer) Swap(other *Buffer) error {
	if b == nil || other == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidArgument)
	}
	if b == other {
		if err := b.lock(); err != nil {
			return err
		}
		b.mu.Unlock()
		return nil
	}

	first, second := b, other
	if second.id < first.id {
		first, second = second, first
	}
	if err := first.lock(); err != nil {
		return err
	}
	defer first.mu.Unlock()
	if err := second.lock(); err != nil {
		return err
	}
	defer second.mu.Unlock()

	b.data, other.data = other.data, b.data
	b.length, other.length = other.length, b.length
	b.alloc, other.alloc = other.alloc, b.alloc
	return nil
}
