package privreg

// acquireRead implements spec §4.4's read critical section: publish intent
// by storing the currently-named instance index into the calling
// goroutine's status word, then reread the index to make sure a writer
// hasn't swapped and started waiting for quiescence in between. Either the
// old or the new index is an acceptable outcome of a concurrent swap — the
// writer's quiescence scan will see whichever one we settled on and treat
// it as "not yet freeable."
func (reg *Registry) acquireRead() (idx int32, node *readerNode) {
	node = reg.roster.ensureLocal()
	for {
		idx = reg.currentIdx.Load()
		node.status.Store(idx)
		if reg.currentIdx.Load() == idx {
			return idx, node
		}
	}
}

// releaseRead ends the calling goroutine's read critical section. Per spec
// §9's second open question, nested read critical sections on one goroutine
// are not supported; releaseRead unconditionally resets status to idle.
func (reg *Registry) releaseRead(node *readerNode) {
	debugAssert(node.status.Load() != statusIdle, "releaseRead: no read critical section in progress")
	node.status.Store(statusIdle)
}

// growTo executes spec §4.4's write critical section, growing the registry
// so that the current instance has at least minBlocks blocks. It is safe
// to call concurrently: a writer that finds another writer already grew
// past the requested length releases the mutex and returns immediately,
// leaving the caller (Publish) to retry its read.
func (reg *Registry) growTo(minBlocks int) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	oldIdx := reg.currentIdx.Load()
	old := reg.instances[oldIdx].Load()
	if old.len >= minBlocks {
		// another writer already grew past what we need while we were
		// waiting for the mutex.
		return
	}

	newIdx := 1 - oldIdx
	grown := old.growTo(minBlocks, reg.alloc)
	reg.instances[newIdx].Store(&grown)

	// the index swap is the sole linearization point: new readers see the
	// grown instance immediately after this store.
	reg.currentIdx.Store(newIdx)

	reg.awaitQuiescence(oldIdx)

	// the old instance's block-reference vector is simply dropped here;
	// the blocks it referenced are shared with the new instance's prefix
	// and remain live. See DESIGN.md Open Question 5 for why there is no
	// explicit Free call.
}

// awaitQuiescence spins, yielding between polls, until every roster node's
// status has moved off oldIdx — i.e. no goroutine is still mid-read against
// the instance generation about to be orphaned.
func (reg *Registry) awaitQuiescence(oldIdx int32) {
	reg.roster.forEach(func(n *readerNode) {
		for n.status.Load() == oldIdx {
			reg.yield.Yield()
		}
	})
}
