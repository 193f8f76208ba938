package pmi

import (
	"testing"

	"github.com/grokdata/featselect/pipeline/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBags = WordBags{
	"e1": {"cat": 1, "dog": 2},
}

func TestFeatureCountsIn(t *testing.T) {
	in := featureCountsIn(testBags)

	// every feature occurrence is weighted by the row's total word-occurrence count
	got := in(Row{Entity: "e1", Features: []string{"fur", "fur", "claws"}})
	assert.Equal(t, sample.Counts{"fur": 6, "claws": 3}, got)

	// unknown entities have empty bags and contribute nothing
	assert.Nil(t, in(Row{Entity: "unknown", Features: []string{"fur"}}))
}

func TestWordCountsIn(t *testing.T) {
	in := wordCountsIn(testBags)

	// weights are occurrence count x distinct feature count
	got := in(Row{Entity: "e1", Features: []string{"fur", "fur", "claws"}})
	assert.Equal(t, sample.Counts{"cat": 2, "dog": 4}, got)

	assert.Nil(t, in(Row{Entity: "unknown", Features: []string{"fur"}}))
	assert.Nil(t, in(Row{Entity: "e1"}))
}

func TestJointCountsIn(t *testing.T) {
	retained := sample.Counts{"fur": 10}
	in := jointCountsIn(testBags, retained)

	got := in(Row{Entity: "e1", Features: []string{"fur", "claws"}})
	require.NotNil(t, got)
	assert.Equal(t, PairCounts{
		{Word: "cat", Feature: "fur"}: 1,
		{Word: "dog", Feature: "fur"}: 2,
	}, got)

	// nothing retained means no contribution at all
	assert.Nil(t, in(Row{Entity: "e1", Features: []string{"claws"}}))
}

func TestRetainFeatures_StrictBoundary(t *testing.T) {
	retained := retainFeatures(sample.Counts{"a": 2, "b": 2.5, "c": 1}, 2)

	// weight exactly at the threshold is excluded
	assert.Equal(t, sample.Counts{"b": 2.5}, retained)
}

func TestPairCountsAdd(t *testing.T) {
	a := PairCounts{{Word: "cat", Feature: "fur"}: 1}
	b := PairCounts{
		{Word: "cat", Feature: "fur"}:  2,
		{Word: "dog", Feature: "bark"}: 1,
	}

	merged := a.Add(b).(PairCounts)
	assert.Equal(t, PairCounts{
		{Word: "cat", Feature: "fur"}:  3,
		{Word: "dog", Feature: "bark"}: 1,
	}, merged)
}
