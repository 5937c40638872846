package asyncscope

import (
	"fmt"
	"runtime"
)

// goid extracts the calling goroutine's numeric id from its stack trace
// header ("goroutine 123 [running]:"). There is no public API for this;
// parsing runtime.Stack's own output is the standard workaround. Unlike
// rnkv-axy-go's debug-only goid (gated behind a build tag and a no-op in
// release builds), checkThread below is load-bearing behavior the spec
// requires at all times, so this runs unconditionally.
func goid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	_, _ = fmt.Sscanf(string(buf[:n]), "goroutine %d ", &id)
	return id
}
