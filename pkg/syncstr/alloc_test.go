package syncstr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLimitedAllocatorLeavesBufferUnchanged(t *testing.T) {
	alloc := NewLimitedAllocator(nil, 8)

	b := mustString(t, "abc", WithAllocator(alloc))
	require.Equal(t, 4, alloc.InUse())

	err := b.AppendString("defgh")
	require.ErrorIs(t, err, ErrAllocation)
	require.Equal(t, "abc", b.String())
	require.Equal(t, 4, b.Cap())
	require.Equal(t, 4, alloc.InUse())

	require.NoError(t, b.Insert(0, 'x'))
	require.Equal(t, 5, alloc.InUse())

	require.ErrorIs(t, b.Resize(64), ErrAllocation)
	require.Equal(t, 5, b.Cap())

	require.NoError(t, b.ShrinkToFit())
	require.NoError(t, b.Destroy())
	require.Equal(t, 0, alloc.InUse())
}

func TestLimitedAllocatorRejectsCreation(t *testing.T) {
	alloc := NewLimitedAllocator(HeapAllocator{}, 0)

	_, err := New(WithAllocator(alloc))
	require.ErrorIs(t, err, ErrAllocation)

	_, err = FromString("x", WithAllocator(alloc))
	require.ErrorIs(t, err, ErrAllocation)
	require.Equal(t, 0, alloc.InUse())

	alloc.SetLimit(2)
	b, err := New(WithAllocator(alloc))
	require.NoError(t, err)
	require.NoError(t, b.PushBack('a'))
	require.ErrorIs(t, b.PushBackRune('b'), ErrAllocation)
	require.Equal(t, "a", b.String())
}

func TestHeapAllocatorResizeWipesOldStorage(t *testing.T) {
	var h HeapAllocator

	old, err := h.Allocate(4)
	require.NoError(t, err)
	copy(old, "abcd")

	grown, err := h.Resize(old, 8)
	require.NoError(t, err)
	require.Len(t, grown, 8)
	require.Equal(t, []byte("abcd\x00\x00\x00\x00"), grown)
	requireWiped(t, old)

	shrunk, err := h.Resize(grown, 2)
	require.NoError(t, err)
	require.Equal(t, []byte("ab"), shrunk)

	_, err = h.Allocate(-1)
	require.ErrorIs(t, err, ErrAllocation)
}

func TestPooledAllocator(t *testing.T) {
	p := NewPooledAllocator()

	buf, err := p.Allocate(10)
	require.NoError(t, err)
	require.Len(t, buf, 10)
	require.Equal(t, 16, cap(buf))
	copy(buf, "sensitive!")
	p.Release(buf)
	requireWiped(t, buf[:cap(buf)])

	again, err := p.Allocate(12)
	require.NoError(t, err)
	require.Len(t, again, 12)
	requireWiped(t, again)

	big, err := p.Allocate(1 << 20)
	require.NoError(t, err)
	require.Len(t, big, 1<<20)
	p.Release(big)

	b, err := New(WithAllocator(p))
	require.NoError(t, err)
	for i := range 100 {
		require.NoError(t, b.PushBack(byte('a'+i%26)))
	}
	require.Equal(t, 100, b.Len())
	require.Equal(t, byte('a'), b.Bytes()[26])
	require.NoError(t, b.Destroy())
}

func TestSizeClass(t *testing.T) {
	require.Equal(t, 4, sizeClass(1))
	require.Equal(t, 4, sizeClass(16))
	require.Equal(t, 5, sizeClass(17))
	require.Equal(t, 10, sizeClass(1024))
	require.Equal(t, 11, sizeClass(1025))
}
