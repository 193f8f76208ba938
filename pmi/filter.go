package pmi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grokdata/featselect/errors"
	"github.com/grokdata/featselect/fileutil"
	"github.com/grokdata/featselect/pipeline"
	"github.com/grokdata/featselect/pipeline/sample"
)

// allowedFeatures computes the global allowed-feature set: the union of every word's PMI-selected
// representatives. Default features are excluded (the filter pass appends the bias feature
// unconditionally anyway, so including them here would be redundant), as is the failure sentinel,
// which is a marker rather than a matrix feature.
func allowedFeatures(selections map[string]Selection, defaults []string) map[string]struct{} {
	skip := map[string]struct{}{FailureFeature: {}}
	for _, f := range defaults {
		skip[f] = struct{}{}
	}

	allowed := make(map[string]struct{})
	for _, sel := range selections {
		for _, sf := range sel.Features {
			if _, ok := skip[sf.Feature]; ok {
				continue
			}
			allowed[sf.Feature] = struct{}{}
		}
	}
	return allowed
}

// FilteredRows maps an entity id to its filtered feature list.
type FilteredRows map[string][]string

// SampleTag implements pipeline.Sample
func (FilteredRows) SampleTag() {}

// Add implements sample.Addable. Duplicate entity ids union their features.
func (r FilteredRows) Add(other sample.Addable) sample.Addable {
	for entity, feats := range other.(FilteredRows) {
		if existing, ok := r[entity]; ok {
			r[entity] = unionFeatures(existing, feats)
		} else {
			r[entity] = feats
		}
	}
	return r
}

func unionFeatures(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	for _, f := range a {
		seen[f] = struct{}{}
	}
	for _, f := range b {
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			a = append(a, f)
		}
	}
	return a
}

// filterRowIn restricts a row's features to the allowed set and appends the bias feature
// unconditionally. Every row is rewritten, including the hub rows that were excluded from
// aggregation: their entities still need a (possibly minimal) row in the output.
func filterRowIn(allowed map[string]struct{}) func(pipeline.Sample) sample.Addable {
	return func(s pipeline.Sample) sample.Addable {
		row := s.(Row)

		var feats []string
		for _, f := range row.Features {
			if _, ok := allowed[f]; ok {
				feats = append(feats, f)
			}
		}
		feats = append(feats, BiasFeature)

		return FilteredRows{row.Entity: feats}
	}
}

// writeWordFeatures writes the word -> selected features table, one tab-separated line per word.
// Words are written in sorted order so the file content is deterministic.
func writeWordFeatures(path string, selections map[string]Selection) error {
	w, err := fileutil.NewBufferedWriter(path)
	if err != nil {
		return err
	}

	words := make([]string, 0, len(selections))
	for word := range selections {
		words = append(words, word)
	}
	sort.Strings(words)

	for _, word := range words {
		fields := []string{word}
		for _, sf := range selections[word].Features {
			fields = append(fields, sf.Feature)
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, "\t")); err != nil {
			w.Close()
			return errors.Wrapf(err, "error writing %s", path)
		}
	}

	return w.Close()
}

// writeFilteredMatrix writes the filtered matrix in the input format, one line per entity in
// sorted entity order.
func writeFilteredMatrix(path string, rows FilteredRows) error {
	w, err := fileutil.NewBufferedWriter(path)
	if err != nil {
		return err
	}

	entities := make([]string, 0, len(rows))
	for entity := range rows {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	for _, entity := range entities {
		line := entity + "\t" + strings.Join(rows[entity], featureDelimiter)
		if _, err := fmt.Fprintln(w, line); err != nil {
			w.Close()
			return errors.Wrapf(err, "error writing %s", path)
		}
	}

	return w.Close()
}
