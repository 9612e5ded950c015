package privreg

import (
	"runtime"
	"sync"
)

// Allocator supplies zero-filled backing storage for blocks and instance
// vectors. The registry relies on every slot of a newly allocated block
// being nil (spec: "zeroed bulk allocation... no failure path beyond
// process abort"). The default allocator relies on the fact
// that Go's make already zero-fills, so there is no manual zeroing loop to
// write or get wrong.
type Allocator interface {
	// NewBlock returns a single fresh, zero-filled block.
	NewBlock() *Block
	// NewBlockVector returns a slice of n fresh, zero-filled blocks.
	NewBlockVector(n int) []*Block
}

type defaultAllocator struct{}

func (defaultAllocator) NewBlock() *Block {
	return &Block{}
}

func (defaultAllocator) NewBlockVector(n int) []*Block {
	blocks := make([]*Block, n)
	for i := range blocks {
		blocks[i] = &Block{}
	}
	return blocks
}

// Mutex is the blocking, non-recursive exclusion primitive writers serialize
// on (spec's "sync aux"). *sync.Mutex already satisfies this interface.
type Mutex interface {
	Lock()
	Unlock()
}

// Yielder cooperatively deschedules the calling goroutine, used by a writer
// spinning on reader quiescence. The default wraps runtime.Gosched.
type Yielder interface {
	Yield()
}

type goschedYielder struct{}

func (goschedYielder) Yield() { runtime.Gosched() }

// verify the stdlib defaults satisfy the capability interfaces at compile
// time, the same way a caller supplying its own host-runtime capabilities
// would want a compile error rather than a panic on mismatch.
var (
	_ Allocator = defaultAllocator{}
	_ Mutex     = (*sync.Mutex)(nil)
	_ Yielder   = goschedYielder{}
)
