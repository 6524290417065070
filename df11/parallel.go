package df11

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ParallelConfig configures how decode partitions are scheduled.
type ParallelConfig struct {
	// NumWorkers is the number of concurrent workers. 0 means
	// runtime.GOMAXPROCS(0).
	NumWorkers int

	// GrainSize is the minimum partitions per worker before
	// parallelization. If the partition count is below
	// GrainSize*NumWorkers the decode runs sequentially.
	GrainSize int
}

// DefaultParallelConfig returns the default parallel configuration.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		NumWorkers: 0, // Use all available CPUs
		GrainSize:  1,
	}
}

var (
	parallelConfig   = DefaultParallelConfig()
	parallelConfigMu sync.RWMutex
)

// SetParallelConfig sets the global parallel configuration.
func SetParallelConfig(config ParallelConfig) {
	parallelConfigMu.Lock()
	defer parallelConfigMu.Unlock()
	parallelConfig = config
}

// GetParallelConfig returns the current parallel configuration.
func GetParallelConfig() ParallelConfig {
	parallelConfigMu.RLock()
	defer parallelConfigMu.RUnlock()
	return parallelConfig
}

func effectiveWorkers(config ParallelConfig) int {
	if config.NumWorkers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return config.NumWorkers
}

// parallelFor runs fn(p) for p in [0, n). Partitions are independent, so no
// ordering is guaranteed across them; within one call of fn execution is
// strictly sequential. The first error cancels the remaining partitions and
// is returned.
func parallelFor(ctx context.Context, n int, fn func(p int) error) error {
	config := GetParallelConfig()
	workers := effectiveWorkers(config)

	// Run sequentially if not worth parallelizing
	if n <= config.GrainSize*workers || workers == 1 {
		for p := 0; p < n; p++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(p); err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for p := 0; p < n; p++ {
		p := p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(p)
		})
	}

	return g.Wait()
}
