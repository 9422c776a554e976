package testutil

import (
	"sync"
	"sync/atomic"
)

// ConcurrentResult counts outcomes of parallel test operations.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
}

// RunConcurrent starts n goroutines running fn, releases them together and
// waits for all of them.
func RunConcurrent(n int, fn func(idx int) error) ConcurrentResult {
	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		successes atomic.Int32
		errs      atomic.Int32
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if err := fn(i); err != nil {
				errs.Add(1)
				return
			}
			successes.Add(1)
		}()
	}
	close(start)
	wg.Wait()
	return ConcurrentResult{Successes: successes.Load(), Errors: errs.Load()}
}
