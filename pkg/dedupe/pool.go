package dedupe

import (
	"context"
	"sync"
)

// runPool calls fn for every item on at most workers goroutines. Dispatch
// stops once ctx is done, but items already handed to a worker always run to
// completion. It returns after every dispatched item has finished.
func runPool[T any](ctx context.Context, items []T, workers int, fn func(T)) error {
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	workerSem := make(chan struct{}, workers)

	for _, item := range items {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case workerSem <- struct{}{}:
		}

		// select picks randomly when both are ready
		if err := ctx.Err(); err != nil {
			<-workerSem
			wg.Wait()
			return err
		}

		wg.Add(1)
		go func(item T) {
			defer func() {
				<-workerSem
				wg.Done()
			}()

			fn(item)
		}(item)
	}

	wg.Wait()
	return nil
}
