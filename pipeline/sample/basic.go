package sample

import (
	"github.com/grokdata/featselect/pipeline"
)

// Addable is a Sample that can be merged associatively and commutatively with another sample of the same
// type, e.g. by key-wise summation. Aggregation built on Addables is independent of how records were
// partitioned across workers.
type Addable interface {
	pipeline.Sample
	Add(Addable) Addable
}

// String wraps a string
type String string

// SampleTag ...
func (String) SampleTag() {}

// Counts accumulates float64 weights by string key.
type Counts map[string]float64

// SampleTag implements pipeline.Sample
func (Counts) SampleTag() {}

// Add implements Addable by key-wise summation.
func (c Counts) Add(other Addable) Addable {
	for k, v := range other.(Counts) {
		c[k] += v
	}
	return c
}
