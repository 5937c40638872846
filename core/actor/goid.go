package actor

import (
	"fmt"
	"runtime"
)

// goid extracts the calling goroutine's numeric id from its stack trace
// header ("goroutine 123 [running]:"). There is no public API for this;
// parsing runtime.Stack's own output is the standard workaround, grounded
// in rnkv-axy-go's assert_debug.go and reused unconditionally here, the
// same as core/asyncscope.goid: spec §3.1/§4.1.1's owner-thread checks on
// Behavior, OnSignal and Spawn are load-bearing behavior, not a debug aid.
func goid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	_, _ = fmt.Sscanf(string(buf[:n]), "goroutine %d ", &id)
	return id
}
