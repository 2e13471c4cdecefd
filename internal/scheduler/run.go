package scheduler

import (
	"context"
	"sync"

	"github.com/elba-lang/elba/internal/cache"
	"github.com/elba-lang/elba/internal/graph"
)

// Run executes jobs to completion: a fixed-size worker pool dispatches each
// round's frontier in parallel, then the driver drains that round's results
// before computing the next frontier: no parent is scheduled until every
// child's Binary has been recorded.
//
// externalOutput, when non-nil, directs the root job's (node 0) output to a
// caller-owned directory instead of a cache tmp/ area — used for a local
// project build, where the root's artifacts are not meant to be promoted
// into the shared build/ cache.
func Run(ctx context.Context, bctx *BuildContext, jobs *graph.Graph[*Job], externalOutput *cache.OutputLayout) error {
	n := jobs.Len()
	fresh := make([]bool, n)
	dispatched := make([]bool, n)
	for i := 0; i < n; i++ {
		if jobs.Node(i).Fresh() {
			fresh[i] = true
			dispatched[i] = true
		}
	}

	for {
		frontier := computeFrontier(jobs, fresh, dispatched)
		if len(frontier) == 0 {
			break
		}
		for _, i := range frontier {
			dispatched[i] = true
		}

		results := dispatchRound(ctx, bctx, jobs, frontier, externalOutput)
		for _, r := range results {
			if r.Err != nil {
				return r.Err
			}
			job := jobs.Node(r.Index)
			if r.Binary != nil {
				job.Work = Work{Kind: WorkFresh, Hash: job.Work.Hash, Binary: r.Binary}
			} else {
				job.Work = Work{Kind: WorkNone, Hash: job.Work.Hash}
			}
			fresh[r.Index] = true
		}
	}
	return nil
}

// computeFrontier returns the dirty, not-yet-dispatched jobs all of whose
// children are Fresh — on the first call, these are the dirty leaves plus
// any dirty job whose children were all Fresh from the build cache.
func computeFrontier(jobs *graph.Graph[*Job], fresh, dispatched []bool) []int {
	var out []int
	for i := 0; i < jobs.Len(); i++ {
		if dispatched[i] {
			continue
		}
		ready := true
		for _, c := range jobs.Children(i) {
			if !fresh[c] {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, i)
		}
	}
	return out
}

// jobResult is one worker's outcome, fed into the round's result queue.
type jobResult struct {
	Index  int
	Binary *cache.Binary
	Err    error
}

// dispatchRound runs every job index in frontier concurrently, bounded by
// bctx.Threads, and returns once all have completed — the sequential join
// point between scheduler rounds.
func dispatchRound(ctx context.Context, bctx *BuildContext, jobs *graph.Graph[*Job], frontier []int, externalOutput *cache.OutputLayout) []jobResult {
	sem := make(chan struct{}, maxInt(bctx.Threads, 1))
	results := make([]jobResult, len(frontier))
	var wg sync.WaitGroup
	for idx, i := range frontier {
		wg.Add(1)
		sem <- struct{}{}
		go func(slot, i int) {
			defer wg.Done()
			defer func() { <-sem }()
			job := jobs.Node(i)
			var out *cache.OutputLayout
			if i == 0 && externalOutput != nil {
				out = externalOutput
			}
			bin, err := runJob(ctx, bctx, jobs, i, job, out)
			results[slot] = jobResult{Index: i, Binary: bin, Err: err}
		}(idx, i)
	}
	wg.Wait()
	return results
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
