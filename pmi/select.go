package pmi

import (
	"sort"
	"sync/atomic"

	"github.com/grokdata/featselect/errors"
	"github.com/grokdata/featselect/pipeline/sample"
)

// ScoredFeature is a feature together with its PMI score for some word.
type ScoredFeature struct {
	Feature string
	Score   float64
}

// Selection is the bounded feature set chosen for a word.
type Selection struct {
	Word     string
	Features []ScoredFeature
}

// SampleTag implements pipeline.Sample
func (Selection) SampleTag() {}

// selector scores (word, feature) pairs and picks a bounded feature set per word. All of its
// tables are read-only after construction, so per-word selection can run on any number of workers
// concurrently; the failure counter is the only mutable state and is updated atomically.
type selector struct {
	opts          Options
	wordCounts    sample.Counts
	featureCounts sample.Counts
	jointByWord   map[string]map[string]float64

	failures int64
}

func newSelector(opts Options, wordCounts, featureCounts sample.Counts, joint PairCounts) *selector {
	byWord := make(map[string]map[string]float64)
	for wf, w := range joint {
		m := byWord[wf.Word]
		if m == nil {
			m = make(map[string]float64)
			byWord[wf.Word] = m
		}
		m[wf.Feature] = w
	}

	return &selector{
		opts:          opts,
		wordCounts:    wordCounts,
		featureCounts: featureCounts,
		jointByWord:   byWord,
	}
}

// Words returns every word present in the joint table, sorted.
func (s *selector) Words() []string {
	words := make([]string, 0, len(s.jointByWord))
	for w := range s.jointByWord {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// FailureCount returns the number of words whose selection failed. The value is a diagnostic
// lower bound, not an exact count: a retried partition may count the same word twice.
func (s *selector) FailureCount() int64 {
	return atomic.LoadInt64(&s.failures)
}

// SelectFor selects features for one word. An isolated failure must not abort the whole job: it is
// recovered here, counted, and the word is assigned a single zero-score sentinel feature.
func (s *selector) SelectFor(word string) Selection {
	sel, err := s.selectFor(word)
	if err != nil {
		atomic.AddInt64(&s.failures, 1)
		return Selection{
			Word:     word,
			Features: []ScoredFeature{{Feature: FailureFeature, Score: 0}},
		}
	}
	return sel
}

func (s *selector) selectFor(word string) (sel Selection, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic selecting features for %q: %v", word, r)
		}
	}()

	wordWeight := s.wordCounts[word]
	if wordWeight == 0 {
		return Selection{}, errors.Errorf("no word weight for %q", word)
	}

	// group the word's features by exact score value
	groups := make(map[float64][]string)
	for f, joint := range s.jointByWord[word] {
		score := s.score(joint, wordWeight, s.featureCounts[f])
		groups[score] = append(groups[score], f)
	}

	scores := make([]float64, 0, len(groups))
	for score := range groups {
		scores = append(scores, score)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	if len(scores) > s.opts.FeaturesPerWord {
		scores = scores[:s.opts.FeaturesPerWord]
	}

	seen := make(map[string]struct{})
	add := func(f string, score float64) {
		if _, ok := seen[f]; ok {
			return
		}
		seen[f] = struct{}{}
		sel.Features = append(sel.Features, ScoredFeature{Feature: f, Score: score})
	}

	for _, score := range scores {
		if score > 0 {
			add(representative(groups[score]), score)
		}
		// defaults ride along once per retained group; dedup makes the repeats harmless
		for _, f := range s.opts.DefaultFeatures() {
			add(f, score)
		}
	}

	// words with no groups at all still carry the defaults
	for _, f := range s.opts.DefaultFeatures() {
		add(f, 0)
	}

	sel.Word = word
	return sel, nil
}

// score is the PMI-like association between a word and a feature. A feature whose global weight
// failed the retention filter is scored as evidence-free even if it appears in the joint table.
func (s *selector) score(joint, wordWeight, featureWeight float64) float64 {
	if featureWeight <= float64(s.opts.MinFeatureCount) {
		return 0
	}
	if s.opts.UseSquaredPMI {
		return joint * joint / (wordWeight * featureWeight)
	}
	return joint / (wordWeight * featureWeight)
}

// representative picks one feature from a score-tied group: the shortest string, breaking
// remaining ties lexicographically. The order is total, so the choice does not depend on
// encounter order under parallel execution.
func representative(feats []string) string {
	best := feats[0]
	for _, f := range feats[1:] {
		if len(f) < len(best) || (len(f) == len(best) && f < best) {
			best = f
		}
	}
	return best
}
