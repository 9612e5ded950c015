//go:build !privreg_debug

package privreg

// debugAssert is a no-op in production builds. Build with -tags privreg_debug
// to enable the checks in assert_debug.go (spec §7: "Out-of-range pids...
// are a programmer error: behavior is undefined — implementations should
// assert in debug builds").
func debugAssert(cond bool, msg string) {}
