package aggregator

import (
	"testing"

	"github.com/grokdata/featselect/pipeline"
	"github.com/grokdata/featselect/pipeline/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countsIn(s pipeline.Sample) sample.Addable {
	return s.(sample.Counts)
}

func newCounts() sample.Addable {
	return make(sample.Counts)
}

// runWorkers simulates an engine run: a per-run ForShard instance, one clone per worker, samples
// partitioned across the workers, then a merge at the aggregation barrier.
func runWorkers(t *testing.T, agg pipeline.Aggregator, parts ...[]sample.Counts) pipeline.Sample {
	t.Helper()

	run, err := agg.ForShard(0, 1)
	require.NoError(t, err)

	clones := make([]pipeline.Aggregator, 0, len(parts))
	for _, part := range parts {
		clone := run.Clone().(pipeline.Aggregator)
		for _, s := range part {
			clone.In(s)
		}
		clones = append(clones, clone)
	}

	res, err := run.AggregateLocal(clones)
	require.NoError(t, err)
	require.NoError(t, run.Finalize())
	return res
}

func TestSumAggregator(t *testing.T) {
	agg := NewSumAggregator("counts", newCounts, countsIn)

	res := runWorkers(t, agg,
		[]sample.Counts{{"a": 1}, {"b": 2}},
		[]sample.Counts{{"a": 3}})

	assert.Equal(t, sample.Counts{"a": 4, "b": 2}, res)
}

func TestSharedSumAggregator(t *testing.T) {
	agg := NewSharedSumAggregator("counts", newCounts, countsIn)

	// all workers share one accumulator; the merge result is the same either way
	res := runWorkers(t, agg,
		[]sample.Counts{{"a": 1}, {"b": 2}},
		[]sample.Counts{{"a": 3}})

	assert.Equal(t, sample.Counts{"a": 4, "b": 2}, res)
}

func TestSumAggregatorSkipsNil(t *testing.T) {
	in := func(s pipeline.Sample) sample.Addable {
		c := s.(sample.Counts)
		if len(c) == 0 {
			return nil
		}
		return c
	}
	agg := NewSumAggregator("counts", newCounts, in)

	res := runWorkers(t, agg, []sample.Counts{{"a": 1}, {}})
	assert.Equal(t, sample.Counts{"a": 1}, res)
}
