package loader

import (
	"fmt"
	"runtime/debug"
)

// fault is a panic recovered at the module boundary.
type fault struct {
	value any
	stack []byte
}

func (f *fault) Error() string {
	return fmt.Sprintf("panic: %v", f.value)
}

// contain runs fn and converts a panic into a *fault. Errors returned by fn
// travel through its closure, contain only reports faults.
//
// Go runtime fatal errors (out of memory, concurrent map writes) are not
// panics and still terminate the process.
func contain(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &fault{value: r, stack: debug.Stack()}
		}
	}()

	fn()
	return nil
}
