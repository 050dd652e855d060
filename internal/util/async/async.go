package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Task is a named unit of work.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel starts every task, waits for all of them and returns the
// error of the first failed task in slice order.
func RunParallel(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = task.Func(ctx)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("%s: %w", tasks[i].Name, err)
		}
	}
	return nil
}

// Result is the outcome of one Map item.
type Result[R any] struct {
	Value R
	Err   error
}

// Map calls fn once per item, each in its own goroutine, and returns the
// results in item order once every call has returned.
func Map[T, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := fn(ctx, item)
			results[i] = Result[R]{Value: v, Err: err}
		}()
	}
	wg.Wait()
	return results
}

// Collect splits results into the successful values and the joined errors.
func Collect[R any](results []Result[R]) ([]R, error) {
	values := make([]R, 0, len(results))
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		values = append(values, r.Value)
	}
	return values, errors.Join(errs...)
}
