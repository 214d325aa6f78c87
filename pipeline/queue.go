package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hansbug/fiscai/chunker"
)

// chunkQueue fans chunk jobs out to a bounded worker pool and funnels
// results back. Completion order is unconstrained; the assembler restores
// the deterministic page/chunk ordering at the join barrier.
type chunkQueue struct {
	process func(ctx context.Context, c chunker.Chunk) chunkResult
	logger  *slog.Logger
	workers int

	ch      chan chunker.Chunk
	results chan chunkResult
	wg      sync.WaitGroup
	once    sync.Once
}

type queueOption func(*chunkQueue)

func withWorkers(n int) queueOption {
	return func(q *chunkQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func withQueueSize(n int) queueOption {
	return func(q *chunkQueue) {
		if n > 0 {
			q.ch = make(chan chunker.Chunk, n)
		}
	}
}

func newChunkQueue(process func(ctx context.Context, c chunker.Chunk) chunkResult, logger *slog.Logger, opts ...queueOption) *chunkQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &chunkQueue{
		process: process,
		logger:  logger,
		workers: 4,
		ch:      make(chan chunker.Chunk, 64),
		results: make(chan chunkResult, 64),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// start launches the workers. Each chunk runs independently: one chunk's
// failure or degradation never cancels its siblings. Only ctx cancellation
// (fatal schema failure upstream, caller abort) stops in-flight work.
func (q *chunkQueue) start(ctx context.Context) {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("pipeline.worker.started", "worker_id", workerID)
				for c := range q.ch {
					if ctx.Err() != nil {
						q.results <- chunkResult{pageIndex: c.PageIndex, chunkIndex: c.Index, err: ctx.Err()}
						continue
					}
					q.results <- q.process(ctx, c)
				}
				q.logger.Debug("pipeline.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// run dispatches all chunks, waits for the pool to drain, and returns every
// result. This is the pipeline's single join barrier.
func (q *chunkQueue) run(ctx context.Context, chunks []chunker.Chunk) []chunkResult {
	q.start(ctx)

	go func() {
		for _, c := range chunks {
			q.ch <- c
		}
		close(q.ch)
	}()

	go func() {
		q.wg.Wait()
		close(q.results)
	}()

	out := make([]chunkResult, 0, len(chunks))
	for r := range q.results {
		out = append(out, r)
	}
	return out
}
