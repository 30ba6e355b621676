package malloc

import (
	"unsafe"

	"github.com/joshuapare/maralloc/internal/sizes"
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// headerPad rounds the header up so payloads keep sizes.Alignment.
// The raw fields occupy three words: size, link and the padded free flag.
const headerPad = (sizes.Alignment - (3*ptrSize)%sizes.Alignment) % sizes.Alignment

// block is the header written at the start of every region carved from the
// heap. The payload begins immediately after it.
//
// Headers live outside the Go heap, so the forward link is kept as a byte
// offset from the block itself rather than as a Go pointer.
type block struct {
	size uintptr // payload bytes as requested when the block was created
	link uintptr // offset to the next block in creation order, 0 for none
	free bool
	_    [headerPad]byte
}

// headerSize is the byte distance between a block and its payload.
const headerSize = unsafe.Sizeof(block{})

var _ [0]struct{} = [headerSize % sizes.Alignment]struct{}{}

// blockOf recovers the header of the block owning payload p.
func blockOf(p unsafe.Pointer) *block {
	return (*block)(unsafe.Add(p, -int(headerSize)))
}

// payloadOf returns the first payload byte of b.
func payloadOf(b *block) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(b), headerSize)
}

// next returns the block after b in creation order, or nil.
func (b *block) next() *block {
	if b.link == 0 {
		return nil
	}
	return (*block)(unsafe.Add(unsafe.Pointer(b), b.link))
}

// setNext links n after b. Blocks only ever link to higher addresses.
func (b *block) setNext(n *block) {
	if n == nil {
		b.link = 0
		return
	}
	b.link = uintptr(unsafe.Pointer(n)) - uintptr(unsafe.Pointer(b))
}

// spanFor returns the heap bytes a block with the given payload size occupies,
// or ok = false when the span is not representable.
func spanFor(size uintptr) (uintptr, bool) {
	aligned, ok := sizes.AlignOverflowSafe(size)
	if !ok {
		return 0, false
	}
	return sizes.AddOverflowSafe(headerSize, aligned)
}

// span returns the heap bytes b occupies, header included.
func (b *block) span() uintptr {
	return headerSize + sizes.Align(b.size)
}

// end returns the address just past b's payload.
func (b *block) end() unsafe.Pointer {
	return unsafe.Add(payloadOf(b), sizes.Align(b.size))
}

// bytes returns b's payload as a byte slice of its recorded size.
func (b *block) bytes() []byte {
	return unsafe.Slice((*byte)(payloadOf(b)), b.size)
}
