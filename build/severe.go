package build

import (
	"fmt"
	"log"
)

// Severe is called on internal invariant violations that should never
// happen. In a DEBUG build it panics immediately so the failure surfaces at
// the call site instead of corrupting state silently; in a release build it
// only logs, since a single malformed caller should not take an entire
// server process down.
func Severe(v ...interface{}) {
	msg := fmt.Sprint(v...)
	if DEBUG {
		panic(msg)
	}
	log.Println("SEVERE:", msg)
}
