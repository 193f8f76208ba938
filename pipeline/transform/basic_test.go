package transform

import (
	"testing"

	"github.com/grokdata/featselect/pipeline"
	"github.com/stretchr/testify/assert"
)

type intSample int

func (intSample) SampleTag() {}

func drain(t pipeline.Transform) []pipeline.Sample {
	var out []pipeline.Sample
	for {
		s := t.TransformOut()
		if s == nil {
			return out
		}
		out = append(out, s)
	}
}

func TestOneInOneOut(t *testing.T) {
	double := NewOneInOneOut("double", func(s pipeline.Sample) pipeline.Sample {
		return intSample(2 * s.(intSample))
	})

	double.In(intSample(3))
	assert.Equal(t, []pipeline.Sample{intSample(6)}, drain(double))

	// a fresh clone carries no state from its original
	clone := double.Clone().(pipeline.Transform)
	assert.Empty(t, drain(clone))

	clone.In(intSample(5))
	assert.Equal(t, []pipeline.Sample{intSample(10)}, drain(clone))
}

func TestMap(t *testing.T) {
	repeat := NewMap("repeat", func(s pipeline.Sample) []pipeline.Sample {
		return []pipeline.Sample{s, s}
	})

	repeat.In(intSample(7))
	assert.Equal(t, []pipeline.Sample{intSample(7), intSample(7)}, drain(repeat))

	// In resets the output position
	repeat.In(intSample(1))
	repeat.In(intSample(2))
	assert.Equal(t, []pipeline.Sample{intSample(2), intSample(2)}, drain(repeat))
}

func TestFilter(t *testing.T) {
	evens := NewFilter("evens", func(s pipeline.Sample) bool {
		return s.(intSample)%2 == 0
	})

	evens.In(intSample(1))
	assert.Empty(t, drain(evens))

	evens.In(intSample(2))
	assert.Equal(t, []pipeline.Sample{intSample(2)}, drain(evens))
}
