// Package workers runs a slice of tasks on a fixed pool of goroutines and
// collects every outcome, successful or not.
package workers

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("daoradar.workers")

// Result is the settled outcome of one item. Exactly one of Value or Err is meaningful.
type Result[R any] struct {
	Value R
	Err   error
}

func (r Result[R]) OK() bool { return r.Err == nil }

// Task processes one item.
type Task[T, R any] func(ctx context.Context, item T) (R, error)

// Run applies task to every item using at most concurrency goroutines.
// Workers pull the next unprocessed index, so one slow item does not hold
// back a whole batch. Results are in input order. A failing or panicking
// task only fails its own slot; items not yet started when ctx is done
// fail with ctx.Err().
func Run[T, R any](ctx context.Context, items []T, task Task[T, R], concurrency int) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for w := 0; w < concurrency; w++ {
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= len(items) {
					return
				}
				if err := ctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i] = runOne(ctx, i, items[i], task)
			}
		}()
	}
	wg.Wait()
	return results
}

func runOne[T, R any](ctx context.Context, i int, item T, task Task[T, R]) (res Result[R]) {
	defer func() {
		if p := recover(); p != nil {
			logger.Errorf("task %d panicked: %v", i, p)
			res = Result[R]{Err: errors.Errorf("task %d panicked: %v", i, p)}
		}
	}()
	v, err := task(ctx, item)
	if err != nil {
		return Result[R]{Err: err}
	}
	return Result[R]{Value: v}
}

// Values returns the successful values in input order, dropping failures.
func Values[R any](results []Result[R]) []R {
	out := make([]R, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Value)
		}
	}
	return out
}
