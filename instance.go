package privreg

import "sync/atomic"

// Block is a fixed-length array of opaque pointer slots. Slots are
// atomic.Pointer[byte] rather than raw unsafe.Pointer fields: Go has no
// safe "plain store" a concurrent reader may race with the way the
// original C source does, so the nearest race-detector-clean translation
// of "plain, non-torn, unordered pointer store" is an atomic cell with no
// extra ordering requirement beyond indivisibility (see DESIGN.md, Open
// Question 4).
type Block [BlockSize]atomic.Pointer[byte]

// blockSlot decomposes a non-negative pid into the block and slot index
// that address it.
func blockSlot(pid int64, blockSize int) (blockIdx, slotIdx int) {
	bs := int64(blockSize)
	return int(pid / bs), int(pid % bs)
}

// instance is one of the two parallel generations the registry keeps: an
// ordered sequence of block references plus its length. Indexing by
// blockIdx < len yields the owning block; blockIdx >= len means "not yet
// allocated at this generation."
type instance struct {
	blocks []*Block
	len    int
}

// growTo returns a new instance of the given length, sharing the prefix of
// block references with the receiver and filling the new suffix with
// freshly allocated blocks. The receiver is left untouched: callers publish
// the new instance via an atomic index swap, never by mutating one in
// place (spec §4.4, steps 3-6).
func (in instance) growTo(newLen int, alloc Allocator) instance {
	if newLen < in.len {
		// I5: length is monotone per generation; never shrink.
		newLen = in.len
	}
	blocks := make([]*Block, newLen)
	copy(blocks, in.blocks)
	if newLen > in.len {
		suffix := alloc.NewBlockVector(newLen - in.len)
		copy(blocks[in.len:], suffix)
	}
	return instance{blocks: blocks, len: newLen}
}
