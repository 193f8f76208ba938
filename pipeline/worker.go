package pipeline

import (
	"log"
)

// worker maintains clones of the dependent feeds in a pipeline, which lets it run the pipeline concurrently with other
// workers.
type worker struct {
	clone PipeClone

	// runToOrig maps the run-level feeds (the worker clone's originals) back to the feeds of the
	// pipeline as declared, so that stats are keyed consistently across workers and runs.
	runToOrig map[Feed]Feed

	stats *runStats
}

func newWorker(run PipeClone, stats *runStats) (worker, error) {
	newClone, err := run.CloneForWorker()
	if err != nil {
		return worker{}, err
	}

	return worker{
		clone:     newClone,
		runToOrig: run.CloneToOrig,
		stats:     stats,
	}, nil
}

// Run the pipeline for the given record originating from the given source.
func (w worker) Run(s Source, rec Record) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic for source: %s, key: %v", s.Name(), rec.Key)
			panic(r)
		}
	}()

	for _, dep := range w.clone.Dependents[s] {
		w.runDependent(s, rec, dep, rec.Value)
	}
}

// ClonedAggregator for the given original one
func (w worker) ClonedAggregator(agg Aggregator) Aggregator {
	return w.clone.OrigToClone[agg].(Aggregator)
}

// orig resolves a worker-clone feed to the declared feed it was cloned from.
func (w worker) orig(f Feed) Feed {
	run, ok := w.clone.CloneToOrig[f]
	if !ok {
		return f
	}
	if orig, ok := w.runToOrig[run]; ok {
		return orig
	}
	return run
}

func (w worker) runDependent(s Source, rec Record, d Dependent, in Sample) {
	w.stats.IncrFeedIn(w.orig(d))

	d.In(in)

	if d, ok := d.(Transform); ok {
		for {
			sample := d.TransformOut()
			if ks, ok := sample.(Keyed); ok {
				if se, ok := ks.Sample.(sampleError); ok {
					w.stats.AddFeedError(w.orig(d), s.Name(), rec.Key, se)
					continue
				}
			}

			if se, ok := sample.(sampleError); ok {
				w.stats.AddFeedError(w.orig(d), s.Name(), rec.Key, se)
			} else if sample == nil {
				return
			} else {
				w.stats.IncrFeedOut(w.orig(d))

				for _, dep := range w.clone.Dependents[d] {
					w.runDependent(s, rec, dep, sample)
				}
			}
		}
	}
}
