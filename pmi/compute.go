package pmi

import (
	"log"
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/grokdata/featselect/errors"
	"github.com/grokdata/featselect/pipeline"
	"github.com/grokdata/featselect/pipeline/aggregator"
	"github.com/grokdata/featselect/pipeline/dependent"
	"github.com/grokdata/featselect/pipeline/sample"
	"github.com/grokdata/featselect/pipeline/source"
	"github.com/grokdata/featselect/pipeline/transform"
)

// Computer selects, for each word, a small set of statistically associated features from the
// sparse entity-feature matrix, then shrinks the matrix to the union of the selected features.
type Computer struct {
	opts Options
}

// NewComputer validates the options and returns a Computer.
func NewComputer(opts Options) (*Computer, error) {
	opts, err := opts.WithDefaults()
	if err != nil {
		return nil, err
	}
	return &Computer{opts: opts}, nil
}

// Results summarizes a completed run.
type Results struct {
	Entities         int
	Words            int
	RetainedFeatures int
	AllowedFeatures  int
	// Failures is the number of words whose selection failed and got the sentinel feature.
	// Approximate: see selector.FailureCount.
	Failures int64
}

// SelectFeatures runs the five-stage pipeline: load word bags, aggregate marginal counts,
// aggregate joint counts, select features per word, and rewrite the matrix restricted to the
// globally selected features. It writes the word->features table to wordFeaturesPath and the
// filtered matrix to filteredMatrixPath.
func (c *Computer) SelectFeatures(assocPath, matrixPath, wordFeaturesPath, filteredMatrixPath string) (Results, error) {
	start := time.Now()

	bags, err := LoadWordBags(assocPath, c.opts.MaxWordCount)
	if err != nil {
		return Results{}, errors.Wrapf(err, "error loading word bags from %s", assocPath)
	}
	log.Printf("loaded word bags for %s entities in %v", humanize.Comma(int64(len(bags))), time.Since(start))

	eopts := pipeline.DefaultEngineOptions
	eopts.Logger = log.Writer()
	if c.opts.Partitions > 0 {
		eopts.NumWorkers = c.opts.Partitions
	}

	featureCounts, wordCounts, err := c.marginalCounts(matrixPath, bags, eopts)
	if err != nil {
		return Results{}, err
	}
	log.Printf("retained %s features, %s words", humanize.Comma(int64(len(featureCounts))), humanize.Comma(int64(len(wordCounts))))

	joint, err := c.jointCounts(matrixPath, bags, featureCounts, eopts)
	if err != nil {
		return Results{}, err
	}
	log.Printf("aggregated %s (word, feature) pairs", humanize.Comma(int64(len(joint))))

	selections, failures, err := c.selectWords(wordCounts, featureCounts, joint, eopts)
	if err != nil {
		return Results{}, err
	}
	if failures > 0 {
		log.Printf("feature selection failed for %d words (approximate count); sentinel %q assigned", failures, FailureFeature)
	}

	allowed := allowedFeatures(selections, c.opts.DefaultFeatures())
	log.Printf("selected features for %s words, %s features allowed globally", humanize.Comma(int64(len(selections))), humanize.Comma(int64(len(allowed))))

	rows, err := c.filterMatrix(matrixPath, allowed, eopts)
	if err != nil {
		return Results{}, err
	}

	if err := writeWordFeatures(wordFeaturesPath, selections); err != nil {
		return Results{}, errors.Wrapf(err, "error writing word features to %s", wordFeaturesPath)
	}
	if err := writeFilteredMatrix(filteredMatrixPath, rows); err != nil {
		return Results{}, errors.Wrapf(err, "error writing filtered matrix to %s", filteredMatrixPath)
	}

	log.Printf("done in %v", time.Since(start))

	return Results{
		Entities:         len(bags),
		Words:            len(selections),
		RetainedFeatures: len(featureCounts),
		AllowedFeatures:  len(allowed),
		Failures:         failures,
	}, nil
}

// marginalCounts is the first pass over the matrix: per-feature and per-word weights, aggregated
// key-wise across workers, with hub rows excluded. The feature table is thresholded before it is
// returned.
func (c *Computer) marginalCounts(matrixPath string, bags WordBags, eopts pipeline.EngineOptions) (featureCounts, wordCounts sample.Counts, err error) {
	src := newMatrixSource("matrix", matrixPath)
	hub := c.newHubFilter()

	featAgg := aggregator.NewSumAggregator("feature-counts",
		func() sample.Addable { return make(sample.Counts) }, featureCountsIn(bags))
	wordAgg := aggregator.NewSumAggregator("word-counts",
		func() sample.Addable { return make(sample.Counts) }, wordCountsIn(bags))

	pm := make(pipeline.ParentMap)
	pm.Chain(src, hub)
	pm.FanOut(hub, featAgg, wordAgg)

	res, err := c.run(pipeline.Pipeline{
		Name:    "pmi-marginal-counts",
		Parents: pm,
		Sources: []pipeline.Source{src},
	}, eopts, src)
	if err != nil {
		return nil, nil, err
	}

	featureCounts = retainFeatures(res[featAgg].(sample.Counts), c.opts.MinFeatureCount)
	wordCounts = res[wordAgg].(sample.Counts)
	return featureCounts, wordCounts, nil
}

// jointCounts is the second pass: (word, feature) weights restricted to retained features.
func (c *Computer) jointCounts(matrixPath string, bags WordBags, retained sample.Counts, eopts pipeline.EngineOptions) (PairCounts, error) {
	src := newMatrixSource("matrix", matrixPath)
	hub := c.newHubFilter()

	jointAgg := aggregator.NewSumAggregator("joint-counts",
		func() sample.Addable { return make(PairCounts) }, jointCountsIn(bags, retained))

	pm := make(pipeline.ParentMap)
	pm.Chain(src, hub, jointAgg)

	res, err := c.run(pipeline.Pipeline{
		Name:    "pmi-joint-counts",
		Parents: pm,
		Sources: []pipeline.Source{src},
	}, eopts, src)
	if err != nil {
		return nil, err
	}

	return res[jointAgg].(PairCounts), nil
}

// selectWords scores and selects features for every word in the joint table.
func (c *Computer) selectWords(wordCounts, featureCounts sample.Counts, joint PairCounts, eopts pipeline.EngineOptions) (map[string]Selection, int64, error) {
	sel := newSelector(c.opts, wordCounts, featureCounts, joint)

	words := sel.Words()
	var pos int
	src := source.Func("words", func() pipeline.Record {
		if pos >= len(words) {
			return pipeline.Record{}
		}
		w := words[pos]
		pos++
		return pipeline.Record{Key: w, Value: sample.String(w)}
	})

	selectT := transform.NewOneInOneOut("select-features", func(s pipeline.Sample) pipeline.Sample {
		return sel.SelectFor(string(s.(sample.String)))
	})

	var m sync.Mutex
	selections := make(map[string]Selection, len(words))
	collect := dependent.NewFromFunc("collect-selections", func(s pipeline.Sample) {
		selection := s.(Selection)
		m.Lock()
		defer m.Unlock()
		selections[selection.Word] = selection
	})

	pm := make(pipeline.ParentMap)
	pm.Chain(src, selectT, collect)

	if _, err := c.run(pipeline.Pipeline{
		Name:    "pmi-select",
		Parents: pm,
		Sources: []pipeline.Source{src},
	}, eopts, nil); err != nil {
		return nil, 0, err
	}

	return selections, sel.FailureCount(), nil
}

// filterMatrix is the final pass: it rescans the raw matrix (hub rows included) and restricts
// every row to the allowed set plus the bias feature.
func (c *Computer) filterMatrix(matrixPath string, allowed map[string]struct{}, eopts pipeline.EngineOptions) (FilteredRows, error) {
	src := newMatrixSource("matrix", matrixPath)

	rowsAgg := aggregator.NewSumAggregator("filtered-rows",
		func() sample.Addable { return make(FilteredRows) }, filterRowIn(allowed))

	pm := make(pipeline.ParentMap)
	pm.Chain(src, rowsAgg)

	res, err := c.run(pipeline.Pipeline{
		Name:    "pmi-filter-matrix",
		Parents: pm,
		Sources: []pipeline.Source{src},
	}, eopts, src)
	if err != nil {
		return nil, err
	}

	return res[rowsAgg].(FilteredRows), nil
}

// newHubFilter skips rows at or above the distinct-feature ceiling. Skips are reported as
// per-reason feed errors, so they show up in each stage's run summary.
func (c *Computer) newHubFilter() pipeline.Transform {
	return transform.NewOneInOneOut("hub-filter", func(s pipeline.Sample) pipeline.Sample {
		if s.(Row).DistinctFeatureCount() >= c.opts.MaxFeatureCount {
			return pipeline.NewError("too many distinct features")
		}
		return s
	})
}

// run executes a pipeline stage. If src is a matrix source, its scan error is checked after the
// run: a truncated scan would silently corrupt the statistics, so it fails the whole job.
func (c *Computer) run(pipe pipeline.Pipeline, eopts pipeline.EngineOptions, src *matrixSource) (map[pipeline.Aggregator]pipeline.Sample, error) {
	stageStart := time.Now()

	engine, err := pipeline.NewEngine(pipe, eopts)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating engine for %s", pipe.Name)
	}

	res, err := engine.Run()
	if err != nil {
		return nil, errors.Wrapf(err, "error running %s", pipe.Name)
	}

	if src != nil {
		if err := src.Err(); err != nil {
			return nil, errors.Wrapf(err, "error scanning matrix during %s", pipe.Name)
		}
	}

	log.Printf("%s finished in %v", pipe.Name, time.Since(stageStart))
	return res, nil
}
