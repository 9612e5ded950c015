package privreg

import (
	"sync"
	"sync/atomic"
)

// Registry is the concurrent pid -> pointer mapping described in doc.go. A
// zero Registry is not valid; construct one with New. The package-level
// functions (Init, Publish, Get, Clear, Capacity) operate on a single
// process-wide singleton, matching spec §6's External Interfaces table;
// New exists alongside it so tests (and hosts that want more than one
// independent registry) are not forced through the singleton.
type Registry struct {
	blockSize int
	alloc     Allocator
	mu        Mutex
	yield     Yielder

	currentIdx atomic.Int32
	instances  [2]atomic.Pointer[instance]
	roster     roster
}

// Option configures a Registry constructed via New.
type Option func(*Registry)

// WithBlockSize overrides the number of pointer slots per block. Spec §6:
// "implementations may expose it as a build parameter but must not change
// it at runtime after init" — so this is only settable at construction.
// The package-level singleton always uses BlockSize and ignores this
// option.
func WithBlockSize(n int) Option {
	return func(reg *Registry) {
		if n <= 0 {
			panic("privreg: block size must be positive")
		}
		reg.blockSize = n
	}
}

// WithAllocator overrides the Allocator capability.
func WithAllocator(a Allocator) Option {
	return func(reg *Registry) { reg.alloc = a }
}

// WithMutex overrides the writer-exclusion Mutex capability.
func WithMutex(m Mutex) Option {
	return func(reg *Registry) { reg.mu = m }
}

// WithYielder overrides the cooperative-yield capability used during the
// writer's quiescence wait.
func WithYielder(y Yielder) Option {
	return func(reg *Registry) { reg.yield = y }
}

// New constructs an independent Registry. Instance 0 starts with a single
// fresh block; instance 1 starts empty (nil blocks, len 0) until the first
// grow, per spec §4.5's init() and §9's first open question — both slots
// are initialized defensively so that referencing instance 1 before a grow
// is safe (it simply has len == 0, so every blockIdx looks "not yet
// allocated").
func New(opts ...Option) *Registry {
	reg := &Registry{
		blockSize: BlockSize,
		alloc:     defaultAllocator{},
		mu:        &sync.Mutex{},
		yield:     goschedYielder{},
	}
	for _, opt := range opts {
		opt(reg)
	}

	first := instance{blocks: []*Block{reg.alloc.NewBlock()}, len: 1}
	reg.instances[0].Store(&first)
	reg.instances[1].Store(&instance{})
	reg.currentIdx.Store(0)

	return reg
}

// Publish stores ptr at pid, growing the registry if pid's block does not
// yet exist. Concurrent publishes to the same pid are permitted; the last
// store wins (spec: "the runtime guarantees at most one active publisher
// per pid", so this is never actually contended in practice, only
// tolerated).
func (reg *Registry) Publish(pid int64, ptr *byte) {
	debugAssert(pid >= 0, "pid must be non-negative")

	for {
		idx, node := reg.acquireRead()
		cur := reg.instances[idx].Load()
		blockIdx, slotIdx := blockSlot(pid, reg.blockSize)

		if blockIdx >= cur.len {
			reg.releaseRead(node)
			reg.growTo(blockIdx + 1)
			continue
		}

		cur.blocks[blockIdx][slotIdx].Store(ptr)
		reg.releaseRead(node)
		return
	}
}

// Get returns the pointer currently stored at pid, or nil if pid has never
// been published (or was last Cleared).
func (reg *Registry) Get(pid int64) *byte {
	debugAssert(pid >= 0, "pid must be non-negative")

	idx, node := reg.acquireRead()
	defer reg.releaseRead(node)

	cur := reg.instances[idx].Load()
	blockIdx, slotIdx := blockSlot(pid, reg.blockSize)
	if blockIdx >= cur.len {
		return nil
	}
	return cur.blocks[blockIdx][slotIdx].Load()
}

// Clear overwrites pid's slot with nil. Clearing an unpublished pid is a
// no-op store of nil; no referent memory is reclaimed.
func (reg *Registry) Clear(pid int64) {
	debugAssert(pid >= 0, "pid must be non-negative")

	idx, node := reg.acquireRead()
	defer reg.releaseRead(node)

	cur := reg.instances[idx].Load()
	blockIdx, slotIdx := blockSlot(pid, reg.blockSize)
	if blockIdx >= cur.len {
		return
	}
	cur.blocks[blockIdx][slotIdx].Store(nil)
}

// Capacity returns len*blockSize of the current instance: an upper bound on
// the number of pids the registry could currently hold, used only for leak
// detection by the host.
func (reg *Registry) Capacity() int64 {
	idx, node := reg.acquireRead()
	defer reg.releaseRead(node)

	cur := reg.instances[idx].Load()
	return int64(cur.len) * int64(reg.blockSize)
}

// Stats is a read-only diagnostic snapshot beyond the bare capacity query,
// useful to a host's leak reporter (spec §1 puts leak reporting itself out
// of scope, but not the numbers a reporter would need). Unlike the five
// spec §6 operations, Stats is a method only on *Registry, not mirrored by
// a package-level singleton function, to keep the global surface exactly
// as spec §6 specifies it.
type Stats struct {
	CurrentInstance int32
	Len             int
	Capacity        int64
}

// Stats returns a snapshot of the current instance's bookkeeping.
func (reg *Registry) Stats() Stats {
	idx, node := reg.acquireRead()
	defer reg.releaseRead(node)

	cur := reg.instances[idx].Load()
	return Stats{
		CurrentInstance: idx,
		Len:             cur.len,
		Capacity:        int64(cur.len) * int64(reg.blockSize),
	}
}

// --- package-level singleton, matching spec §6's External Interfaces table ---

var singleton atomic.Pointer[Registry]

// Init performs one-time process initialization of the package-level
// registry singleton. Calling Init more than once replaces the singleton
// wholesale (there is no spec-mandated behavior for re-Init; the host
// runtime calls this exactly once per process per spec §1/§6).
func Init() {
	singleton.Store(New())
}

func instanceOrPanic() *Registry {
	reg := singleton.Load()
	if reg == nil {
		panic("privreg: Init must be called before use")
	}
	return reg
}

// Publish stores ptr at pid in the package-level singleton.
func Publish(pid int64, ptr *byte) { instanceOrPanic().Publish(pid, ptr) }

// Get returns the pointer currently stored at pid in the package-level
// singleton.
func Get(pid int64) *byte { return instanceOrPanic().Get(pid) }

// Clear overwrites pid's slot with nil in the package-level singleton.
func Clear(pid int64) { instanceOrPanic().Clear(pid) }

// Capacity returns the package-level singleton's current capacity.
func Capacity() int64 { return instanceOrPanic().Capacity() }
