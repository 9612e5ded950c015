package privreg

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// statusIdle is the sentinel status value meaning "not reading."
const statusIdle int32 = -1

// readerNode is one entry in the TLS roster: a per-goroutine status word
// plus the intrusive list link. Nodes are never removed once allocated.
// reclaimOrCreate re-claims, via compare-and-swap, a node whose inUse is
// false; nothing in this package sets inUse back to false, so a node stays
// bound to the goroutine that first took it.
type readerNode struct {
	inUse  atomic.Bool
	status atomic.Int32
	next   atomic.Pointer[readerNode]
}

// roster is the enumerable set of readerNodes a writer walks during
// quiescence. The list head is updated by compare-and-swap; new nodes are
// spliced at the head.
type roster struct {
	head atomic.Pointer[readerNode]

	// local is the stand-in for a native thread-local key: Go exposes no
	// such mechanism, so the roster binds nodes to the identity of the
	// calling goroutine instead (see goroutineID below). The roster's
	// linked list remains the structure a writer enumerates; this map is
	// only the fast get/set half of the capability.
	local sync.Map // map[int64]*readerNode
}

// ensureLocal returns the calling goroutine's readerNode, creating or
// reclaiming one on first use and caching the association for subsequent
// calls from the same goroutine.
func (r *roster) ensureLocal() *readerNode {
	gid := goroutineID()
	if v, ok := r.local.Load(gid); ok {
		return v.(*readerNode)
	}

	node := r.reclaimOrCreate()
	// Another call on the same goroutine could race this one only if the
	// caller nests read sections across goroutines sharing a gid, which
	// cannot happen; LoadOrStore is still used so a goroutine that somehow
	// calls ensureLocal twice before the first Store lands reuses one node.
	actual, _ := r.local.LoadOrStore(gid, node)
	return actual.(*readerNode)
}

// reclaimOrCreate implements spec §4.2's reclaim-then-create algorithm:
// walk the roster for a node with inUse == false and CAS it to true; if
// none is found, allocate a fresh node and splice it at the list head.
func (r *roster) reclaimOrCreate() *readerNode {
	for n := r.head.Load(); n != nil; n = n.next.Load() {
		if !n.inUse.Load() {
			if n.inUse.CompareAndSwap(false, true) {
				n.status.Store(statusIdle)
				return n
			}
		}
	}

	node := &readerNode{}
	node.inUse.Store(true)
	node.status.Store(statusIdle)

	for {
		head := r.head.Load()
		node.next.Store(head)
		if r.head.CompareAndSwap(head, node) {
			return node
		}
	}
}

// forEach calls fn for every node currently in the roster, including ones
// that have since been reclaimed by another goroutine (the writer only
// cares about the status value it observes, not who currently owns the
// node).
func (r *roster) forEach(fn func(*readerNode)) {
	for n := r.head.Load(); n != nil; n = n.next.Load() {
		fn(n)
	}
}

// goroutineID returns an identifier unique to the calling goroutine, used
// only to key the get/set half of the TLS capability above. It is grounded
// on the portable, unsafe-free half of
// monkeydluffy772-racedetector/internal/race/api/goid_generic.go: parse the
// goroutine ID out of the first line of runtime.Stack's output rather than
// reaching for the assembly/unsafe fast path that file also offers, since
// that path depends on undocumented, Go-version-pinned struct layout that
// has no place in a library meant to outlive any one Go release.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGoroutineID(buf[:n])
}

// parseGoroutineID extracts the numeric ID from a line of the form
// "goroutine 123 [running]:...".
func parseGoroutineID(buf []byte) int64 {
	const prefix = "goroutine "
	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}

	var id int64
	for _, c := range buf[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
