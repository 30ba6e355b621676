package malloc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/maralloc/brk"
)

func TestCalloc_Zeroed(t *testing.T) {
	h, a := newTestHeap(t, testArenaSize)

	// Dirty a block, free it, and make sure Calloc zeroes the reused memory.
	dirty := mustAlloc(t, h, 64)
	fill(dirty, 0xff)
	mustAlloc(t, h, 8)
	h.Free(dirty)

	p, err := h.Calloc(8, 8)
	require.NoError(t, err)
	require.Equal(t, dirty, p, "reuses the dirtied block")
	requireFilled(t, p, 64, 0)
	checkLedger(t, h, a)

	for _, tt := range []struct{ n, size uintptr }{{1, 1}, {3, 7}, {100, 4}, {1, 4096}} {
		p, err := h.Calloc(tt.n, tt.size)
		require.NoError(t, err)
		requireFilled(t, p, tt.n*tt.size, 0)
		require.GreaterOrEqual(t, UsableSize(p), tt.n*tt.size)
	}
	require.Equal(t, uint64(5), h.Stats().CallocCalls)
	checkLedger(t, h, a)
}

func TestCalloc_InvalidArguments(t *testing.T) {
	h, a := newTestHeap(t, testArenaSize)

	tests := []struct {
		name        string
		count, size uintptr
	}{
		{"zero count", 0, 8},
		{"zero size", 8, 0},
		{"both zero", 0, 0},
		{"overflow max times two", math.MaxUint, 2},
		{"overflow half", math.MaxUint/2 + 1, 2},
		{"overflow square", 1 << (4 * ptrSize), 1 << (4 * ptrSize)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := h.Calloc(tt.count, tt.size)
			require.Nil(t, p)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
	require.Zero(t, h.Len())
	require.Zero(t, a.Len(), "rejected calls never reach the primitive")
	require.Equal(t, uint64(len(tests)), h.Stats().InvalidArgument)
}

func TestCalloc_OutOfMemory(t *testing.T) {
	a, err := brk.Open(testArenaSize)
	require.NoError(t, err)
	defer a.Close()
	g, err := brk.Limit(a, 128)
	require.NoError(t, err)
	h, err := New(g)
	require.NoError(t, err)

	p, err := h.Calloc(64, 64)
	require.Nil(t, p)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Zero(t, h.Len())
}

func TestRealloc_NilBehavesLikeAlloc(t *testing.T) {
	h, a := newTestHeap(t, testArenaSize)

	p, err := h.Realloc(nil, 24)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, uintptr(24), UsableSize(p))
	require.Equal(t, 1, h.Len())

	p, err = h.Realloc(nil, 0)
	require.Nil(t, p)
	require.ErrorIs(t, err, ErrInvalidArgument)
	checkLedger(t, h, a)
}

func TestRealloc_ZeroSizeLeavesPointer(t *testing.T) {
	h, a := newTestHeap(t, testArenaSize)

	p := mustAlloc(t, h, 16)
	fill(p, 0x11)

	q, err := h.Realloc(p, 0)
	require.Nil(t, q)
	require.ErrorIs(t, err, ErrInvalidArgument)
	requireFilled(t, p, 16, 0x11)
	require.False(t, h.Blocks()[0].Free, "p stays live")
	checkLedger(t, h, a)
}

func TestRealloc_InPlace(t *testing.T) {
	h, a := newTestHeap(t, testArenaSize)

	p := mustAlloc(t, h, 64)
	fill(p, 0x42)
	top := heapTop(t, a)

	for _, size := range []uintptr{1, 32, 64} {
		q, err := h.Realloc(p, size)
		require.NoError(t, err)
		require.Equal(t, p, q, "size %d fits the existing block", size)
	}
	requireFilled(t, p, 64, 0x42)
	require.Equal(t, uintptr(64), UsableSize(p), "no shrink")
	require.Equal(t, top, heapTop(t, a))
	require.Equal(t, uint64(3), h.Stats().ReallocInPlace)
	checkLedger(t, h, a)
}

func TestRealloc_GrowCopiesAndReleases(t *testing.T) {
	h, a := newTestHeap(t, testArenaSize)

	p := mustAlloc(t, h, 32)
	fill(p, 0x7a)

	q, err := h.Realloc(p, 200)
	require.NoError(t, err)
	require.NotEqual(t, p, q)
	require.Equal(t, uintptr(200), UsableSize(q))
	requireFilled(t, q, 32, 0x7a)

	blocks := h.Blocks()
	require.Len(t, blocks, 2)
	require.Equal(t, uintptr(p), blocks[0].Addr)
	require.True(t, blocks[0].Free, "old block is released as an interior block")
	require.Equal(t, uintptr(q), blocks[1].Addr)
	checkLedger(t, h, a)
}

func TestRealloc_GrowReusesFreeBlock(t *testing.T) {
	h, a := newTestHeap(t, testArenaSize)

	big := mustAlloc(t, h, 256)
	p := mustAlloc(t, h, 16)
	mustAlloc(t, h, 8) // keep p interior
	h.Free(big)
	fill(p, 0x33)

	q, err := h.Realloc(p, 100)
	require.NoError(t, err)
	require.Equal(t, big, q)
	requireFilled(t, q, 16, 0x33)
	require.True(t, h.Blocks()[1].Free)
	checkLedger(t, h, a)
}

func TestRealloc_FailureLeavesOriginal(t *testing.T) {
	a, err := brk.Open(testArenaSize)
	require.NoError(t, err)
	defer a.Close()
	g, err := brk.Limit(a, 512)
	require.NoError(t, err)
	h, err := New(g)
	require.NoError(t, err)

	p := mustAlloc(t, h, 100)
	fill(p, 0x5c)
	before := h.Blocks()

	q, err := h.Realloc(p, 4096)
	require.Nil(t, q)
	require.ErrorIs(t, err, ErrOutOfMemory)

	require.Equal(t, before, h.Blocks())
	requireFilled(t, p, 100, 0x5c)
	checkLedger(t, h, a)
}

func TestRealloc_Chain(t *testing.T) {
	h, a := newTestHeap(t, testArenaSize)

	p := mustAlloc(t, h, 1)
	*(*byte)(p) = 0x99
	for size := uintptr(2); size <= 2048; size *= 2 {
		var err error
		p, err = h.Realloc(p, size)
		require.NoError(t, err)
		require.Equal(t, byte(0x99), *(*byte)(p))
	}
	require.Equal(t, uintptr(2048), UsableSize(p))
	checkLedger(t, h, a)
}
