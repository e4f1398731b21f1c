// Package pipeline runs independent stages concurrently and joins them.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// PanicError reports a task that panicked instead of returning.
type PanicError struct {
	Task  string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.Task, e.Value)
}

// FanOut runs tasks on up to workers goroutines and waits for all of them.
// The returned slice is index-aligned with tasks; nil means success.
func FanOut(ctx context.Context, workers int, tasks []Task) []error {
	if len(tasks) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers < 1 {
			workers = 1
		}
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	jobs := make(chan int)
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = run(ctx, tasks[i])
			}
		}()
	}

	for i := range tasks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return errs
}

func run(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Task: t.Name, Value: r}
		}
	}()
	if t.Run == nil {
		return nil
	}
	return t.Run(ctx)
}
