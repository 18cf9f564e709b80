package concurrency

import (
	"log/slog"
	"runtime/debug"
	"sync"
)

// Go runs fn in a goroutine tracked by wg. A panic in fn is logged with
// its stack and does not take the process down.
func Go(wg *sync.WaitGroup, name string, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Panic recovered", "routine", name, "panic", r, "stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}
