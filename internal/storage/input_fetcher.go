package storage

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/seismetry/seismetry/pkg/types"
)

// InputFetcher pulls the three input datasets out of object storage in
// parallel. A run needs all of them, so any missing or failed object
// fails the whole fetch.
type InputFetcher struct {
	storage     ObjectStorage
	concurrency int
}

// NewInputFetcher creates a fetcher with the given parallelism.
func NewInputFetcher(storage ObjectStorage, concurrency int) *InputFetcher {
	if concurrency <= 0 {
		concurrency = 3
	}
	return &InputFetcher{
		storage:     storage,
		concurrency: concurrency,
	}
}

// FetchAll downloads every dataset in keys concurrently and returns the
// raw bytes per dataset. The first error aborts the fetch.
func (f *InputFetcher) FetchAll(ctx context.Context, keys map[types.DatasetKind]string) (map[types.DatasetKind][]byte, error) {
	for kind := range keys {
		if !kind.Valid() {
			return nil, fmt.Errorf("storage: %w: %q", types.ErrUnknownDataset, kind)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(f.concurrency))
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	out := make(map[types.DatasetKind][]byte, len(keys))

	for kind, key := range keys {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(kind types.DatasetKind, key string) {
			defer wg.Done()
			defer sem.Release(1)

			data, err := f.storage.GetBytes(ctx, key)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("storage: fetch %s (%s): %w", kind, key, err)
					cancel()
				}
				return
			}
			out[kind] = data
		}(kind, key)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
