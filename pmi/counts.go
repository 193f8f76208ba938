package pmi

import (
	"github.com/grokdata/featselect/pipeline"
	"github.com/grokdata/featselect/pipeline/sample"
)

// WordFeature keys the joint count table.
type WordFeature struct {
	Word    string
	Feature string
}

// PairCounts accumulates float64 weights by (word, feature) pair.
type PairCounts map[WordFeature]float64

// SampleTag implements pipeline.Sample
func (PairCounts) SampleTag() {}

// Add implements sample.Addable by key-wise summation.
func (p PairCounts) Add(other sample.Addable) sample.Addable {
	for k, v := range other.(PairCounts) {
		p[k] += v
	}
	return p
}

// featureCountsIn returns the per-row contribution to the feature count table: every feature
// occurrence in the row is weighted by the row's total word-occurrence count. Rows whose entity is
// unknown have an empty bag and contribute nothing.
func featureCountsIn(bags WordBags) func(pipeline.Sample) sample.Addable {
	return func(s pipeline.Sample) sample.Addable {
		row := s.(Row)

		total := bags[row.Entity].Total()
		if total == 0 {
			return nil
		}

		counts := make(sample.Counts, len(row.Features))
		for _, f := range row.Features {
			counts[f] += total
		}
		return counts
	}
}

// wordCountsIn returns the per-row contribution to the word count table: each word's occurrence
// count in the row, weighted by the row's distinct feature count.
func wordCountsIn(bags WordBags) func(pipeline.Sample) sample.Addable {
	return func(s pipeline.Sample) sample.Addable {
		row := s.(Row)

		bag := bags[row.Entity]
		if len(bag) == 0 {
			return nil
		}

		distinct := float64(row.DistinctFeatureCount())
		if distinct == 0 {
			return nil
		}

		counts := make(sample.Counts, len(bag))
		for w, c := range bag {
			counts[w] += c * distinct
		}
		return counts
	}
}

// jointCountsIn returns the per-row contribution to the joint (word, feature) table, restricted to
// features that survived the retention filter.
func jointCountsIn(bags WordBags, retained sample.Counts) func(pipeline.Sample) sample.Addable {
	return func(s pipeline.Sample) sample.Addable {
		row := s.(Row)

		bag := bags[row.Entity]
		if len(bag) == 0 {
			return nil
		}

		joint := make(PairCounts)
		for _, f := range row.Features {
			if _, ok := retained[f]; !ok {
				continue
			}
			for w, c := range bag {
				joint[WordFeature{Word: w, Feature: f}] += c
			}
		}
		if len(joint) == 0 {
			return nil
		}
		return joint
	}
}

// retainFeatures keeps only features whose weight is strictly greater than minFeatureCount. A
// feature at exactly the threshold is dropped.
func retainFeatures(counts sample.Counts, minFeatureCount int) sample.Counts {
	retained := make(sample.Counts)
	for f, w := range counts {
		if w > float64(minFeatureCount) {
			retained[f] = w
		}
	}
	return retained
}
