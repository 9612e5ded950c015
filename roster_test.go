package privreg

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureLocalStableWithinGoroutine(t *testing.T) {
	var r roster
	first := r.ensureLocal()
	second := r.ensureLocal()
	assert.Same(t, first, second, "repeated calls from the same goroutine must return the same node")
}

func TestEnsureLocalDistinctAcrossGoroutines(t *testing.T) {
	var r roster
	const n = 16

	nodes := make([]*readerNode, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			nodes[i] = r.ensureLocal()
		}()
	}
	wg.Wait()

	seen := make(map[*readerNode]bool)
	for _, node := range nodes {
		require.NotNil(t, node)
		seen[node] = true
	}
	assert.Len(t, seen, n, "each concurrent goroutine must receive its own node")
}

func TestReclaimReusesFreedNode(t *testing.T) {
	var r roster
	node := r.reclaimOrCreate()
	node.inUse.Store(false)

	reclaimed := r.reclaimOrCreate()
	assert.Same(t, node, reclaimed, "a freed node must be reclaimed before a new one is allocated")
}

func TestForEachVisitsAllNodesIncludingReclaimed(t *testing.T) {
	var r roster
	a := r.reclaimOrCreate()
	b := r.reclaimOrCreate()
	a.inUse.Store(false)

	visited := map[*readerNode]bool{}
	r.forEach(func(n *readerNode) { visited[n] = true })

	assert.True(t, visited[a])
	assert.True(t, visited[b])
}

func TestParseGoroutineID(t *testing.T) {
	assert.Equal(t, int64(123), parseGoroutineID([]byte("goroutine 123 [running]:\n")))
	assert.Equal(t, int64(0), parseGoroutineID([]byte("not a goroutine line")))
	assert.Equal(t, int64(0), parseGoroutineID([]byte("short")))
}

func TestGoroutineIDDiffersAcrossGoroutines(t *testing.T) {
	ids := make(chan int64, 2)
	go func() { ids <- goroutineID() }()
	go func() { ids <- goroutineID() }()
	a, b := <-ids, <-ids
	assert.NotEqual(t, a, b)
}
