package pipeline

import (
	"io"
	"runtime"

	"github.com/grokdata/featselect/errors"
	"github.com/grokdata/featselect/workerpool"
)

// EngineOptions control how a pipeline is run.
type EngineOptions struct {
	// NumWorkers is the number of concurrent workers that records are partitioned across. It is purely a
	// performance hint: since aggregation is associative and commutative, the results do not depend on it.
	NumWorkers int
	// Logger, if set, receives the end-of-run per-feed summary: record counts and per-reason
	// recoverable error counts.
	Logger io.Writer
}

// DefaultEngineOptions ...
var DefaultEngineOptions = EngineOptions{
	NumWorkers: runtime.NumCPU(),
}

// Engine runs a pipeline: it partitions the records emitted by each source across a set of workers, each of
// which maintains its own clones of the dependent feeds, then merges the per-worker aggregator states at the
// aggregation barrier once all records have been processed.
type Engine struct {
	pipe Pipeline
	opts EngineOptions
}

// NewEngine validates the pipeline and returns an engine that can run it.
func NewEngine(pipe Pipeline, opts EngineOptions) (*Engine, error) {
	if err := pipe.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid pipeline %s", pipe.Name)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = runtime.NumCPU()
	}

	return &Engine{
		pipe: pipe,
		opts: opts,
	}, nil
}

// Run the pipeline until all sources are exhausted and return the final aggregated Sample for each
// Aggregator, keyed by the (original) Aggregators of the pipeline.
func (e *Engine) Run() (map[Aggregator]Sample, error) {
	run, err := e.pipe.CloneForRun()
	if err != nil {
		return nil, errors.Wrapf(err, "error cloning pipeline %s for run", e.pipe.Name)
	}

	stats := newRunStats()

	workers := make([]worker, e.opts.NumWorkers)
	for i := range workers {
		workers[i], err = newWorker(run, stats)
		if err != nil {
			return nil, errors.Wrapf(err, "error cloning pipeline %s for worker", e.pipe.Name)
		}
	}

	for _, src := range run.Sources {
		if err := e.runSource(src, workers); err != nil {
			return nil, errors.Wrapf(err, "error running source %s", src.Name())
		}
	}

	res := make(map[Aggregator]Sample)

	for _, agg := range run.Aggregators() {
		clones := make([]Aggregator, 0, len(workers))
		for _, w := range workers {
			clones = append(clones, w.ClonedAggregator(agg))
		}

		s, err := agg.AggregateLocal(clones)
		if err != nil {
			return nil, errors.Wrapf(err, "error aggregating %s", agg.Name())
		}

		if err := agg.Finalize(); err != nil {
			return nil, errors.Wrapf(err, "error finalizing %s", agg.Name())
		}

		res[run.CloneToOrig[agg].(Aggregator)] = s
	}

	if e.opts.Logger != nil {
		stats.WriteSummary(e.opts.Logger, e.pipe.AllFeeds())
	}

	return res, nil
}

// runSource drains src, fanning its records out to the workers. SourceOut is only ever called from the
// reader goroutine, so sources need not be thread-safe.
func (e *Engine) runSource(src Source, workers []worker) error {
	records := make(chan Record, 4*len(workers))

	go func() {
		defer close(records)
		for {
			rec := src.SourceOut()
			if rec.Key == "" && rec.Value == nil {
				return
			}
			records <- rec
		}
	}()

	pool := workerpool.New(len(workers))
	defer pool.Stop()

	jobs := make([]workerpool.Job, 0, len(workers))
	for _, w := range workers {
		w := w
		jobs = append(jobs, func() error {
			for rec := range records {
				w.Run(src, rec)
			}
			return nil
		})
	}

	pool.Add(jobs)
	return pool.Wait()
}
