package scan

import (
	"container/heap"
	"context"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/semaphore"
)

// lane holds one file's chunks. Chunks of a lane run strictly in order.
type lane struct {
	seq     int // dispatch position
	file    SourceFile
	chunks  []Chunk
	large   bool
	results []chunkResult
}

// chunkResult is what one task produced. Stored in its lane slot by the
// coordinator only.
type chunkResult struct {
	findings []Finding
	fallback bool
	cached   bool
	attempts int
	llmMs    int64
	failure  *ChunkFailure
}

type task struct {
	lane  *lane
	chunk int
}

type outcome struct {
	task   task
	result chunkResult
	fatal  error
}

// taskQueue orders ready tasks: large files first, then dispatch order, then
// chunk index.
type taskQueue []task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.lane.large != b.lane.large {
		return a.lane.large
	}
	if a.lane.seq != b.lane.seq {
		return a.lane.seq < b.lane.seq
	}
	return a.chunk < b.chunk
}

func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *taskQueue) Push(x any) { *q = append(*q, x.(task)) }

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	*q = old[:n-1]
	return t
}

// scheduler runs tasks with at most concurrency in flight across the whole
// run. It is driven by a single coordinator goroutine; workers only execute
// run and report back on a buffered channel.
type scheduler struct {
	concurrency int
	logger      hclog.Logger
	run         func(ctx context.Context, t task) outcome
}

// Run executes every chunk of every lane and fills lane.results. It returns
// the first fatal task error or the context error; in either case no new
// tasks are started and in-flight tasks are allowed to finish.
func (s *scheduler) Run(ctx context.Context, lanes []*lane) error {
	total := 0
	ready := &taskQueue{}
	for _, l := range lanes {
		l.results = make([]chunkResult, len(l.chunks))
		total += len(l.chunks)
		if len(l.chunks) > 0 {
			heap.Push(ready, task{lane: l, chunk: 0})
		}
	}
	if total == 0 {
		return nil
	}

	limit := s.concurrency
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(int64(limit))
	done := make(chan outcome, total)

	var (
		inflight int
		stopErr  error
	)
	handle := func(o outcome) {
		inflight--
		o.task.lane.results[o.task.chunk] = o.result
		if o.fatal != nil {
			if stopErr == nil {
				stopErr = o.fatal
				s.logger.Error("fatal error, stopping dispatch", "file", o.task.lane.file.Path, "error", o.fatal)
			}
			return
		}
		if next := o.task.chunk + 1; next < len(o.task.lane.chunks) {
			heap.Push(ready, task{lane: o.task.lane, chunk: next})
		}
	}
	drain := func() {
		for {
			select {
			case o := <-done:
				handle(o)
			default:
				return
			}
		}
	}

	for {
		drain()
		if stopErr == nil && ctx.Err() != nil {
			stopErr = ctx.Err()
		}
		if stopErr != nil || ready.Len() == 0 {
			if inflight == 0 {
				break
			}
			handle(<-done)
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			continue
		}
		drain()
		if stopErr != nil || ctx.Err() != nil {
			sem.Release(1)
			continue
		}

		t := heap.Pop(ready).(task)
		inflight++
		s.logger.Trace("dispatch", "file", t.lane.file.Path, "chunk", t.chunk+1, "inflight", inflight)
		go func(t task) {
			defer sem.Release(1)
			done <- s.run(ctx, t)
		}(t)
	}
	return stopErr
}
