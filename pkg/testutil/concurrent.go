package testutil

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrDenied lets concurrent test bodies report a deliberate denial, such as
// a throttled request, separately from unexpected failures.
var ErrDenied = errors.New("denied")

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes int32
	Denied    int32
	Errors    int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Denied + r.Errors
}

// RunConcurrent runs fn in goroutines parallel goroutines, released together,
// and classifies each outcome.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, denied, errs atomic.Int32
	start := make(chan struct{})

	for i := range goroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrDenied):
				denied.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}

	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Denied:    denied.Load(),
		Errors:    errs.Load(),
	}
}
