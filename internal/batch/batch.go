// Package batch runs one API call per id on a fixed number of workers and
// returns the outcomes in input order.
package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Result is the outcome for one id.
type Result[T any] struct {
	ID    string
	Value T
	Err   error
}

// Run calls fn for every id using at most concurrency workers. Work not yet
// started when ctx is cancelled reports ctx.Err().
func Run[T any](ctx context.Context, ids []string, concurrency int, fn func(ctx context.Context, id string) (T, error)) []Result[T] {
	results := make([]Result[T], len(ids))
	if len(ids) == 0 {
		return results
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > len(ids) {
		concurrency = len(ids)
	}

	permits := make(chan int)
	go func() {
		defer close(permits)
		for i := range ids {
			select {
			case permits <- i:
			case <-ctx.Done():
				for ; i < len(ids); i++ {
					results[i] = Result[T]{ID: ids[i], Err: ctx.Err()}
				}
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for w := 0; w < concurrency; w++ {
		go func() {
			defer wg.Done()
			for i := range permits {
				value, err := fn(ctx, ids[i])
				results[i] = Result[T]{ID: ids[i], Value: value, Err: err}
			}
		}()
	}
	wg.Wait()
	return results
}

// Values returns the successful values in input order.
func Values[T any](results []Result[T]) []T {
	out := make([]T, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Value)
		}
	}
	return out
}

// Error lists the ids whose calls failed.
type Error struct {
	Failed []string
	Errs   []error
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Failed))
	for i, id := range e.Failed {
		parts[i] = fmt.Sprintf("%s: %v", id, e.Errs[i])
	}
	return fmt.Sprintf("%d of the requested ids failed: %s", len(e.Failed), strings.Join(parts, "; "))
}

func (e *Error) Unwrap() []error {
	return e.Errs
}

// Err returns nil when every call succeeded. A single failure is wrapped
// with its id; several are returned as *Error.
func Err[T any](results []Result[T]) error {
	batchErr := &Error{}
	for _, r := range results {
		if r.Err != nil {
			batchErr.Failed = append(batchErr.Failed, r.ID)
			batchErr.Errs = append(batchErr.Errs, r.Err)
		}
	}
	switch len(batchErr.Errs) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%s: %w", batchErr.Failed[0], batchErr.Errs[0])
	default:
		return batchErr
	}
}
