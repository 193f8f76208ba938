package pmi

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runPipeline runs the full five-stage pipeline on the given inputs and returns the parsed
// word -> features table and entity -> features filtered matrix.
func runPipeline(t *testing.T, opts Options, assoc, matrix string) (map[string][]string, map[string][]string, Results) {
	t.Helper()

	dir, err := ioutil.TempDir("", "pmi-compute")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	assocPath := writeTempFile(t, dir, "assoc.tsv", assoc)
	matrixPath := writeTempFile(t, dir, "matrix.tsv", matrix)
	wordFeatPath := filepath.Join(dir, "word_features.tsv")
	filteredPath := filepath.Join(dir, "filtered_matrix.tsv")

	computer, err := NewComputer(opts)
	require.NoError(t, err)

	res, err := computer.SelectFeatures(assocPath, matrixPath, wordFeatPath, filteredPath)
	require.NoError(t, err)

	return readTable(t, wordFeatPath, "\t"), readTable(t, filteredPath, featureDelimiter), res
}

// readTable parses a tab-keyed output file into key -> fields. For the filtered matrix the
// remainder of each line is split on the feature delimiter instead of tabs.
func readTable(t *testing.T, path, delim string) map[string][]string {
	t.Helper()

	buf, err := ioutil.ReadFile(path)
	require.NoError(t, err)

	table := make(map[string][]string)
	for _, line := range strings.Split(strings.TrimRight(string(buf), "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		require.Len(t, fields, 2, line)
		if delim == "\t" {
			table[fields[0]] = strings.Split(fields[1], "\t")
		} else {
			table[fields[0]] = strings.Split(fields[1], delim)
		}
	}
	return table
}

func scenarioOptions() Options {
	return Options{
		Mode:            ModeEntity,
		MaxWordCount:    10,
		MaxFeatureCount: 10,
		MinFeatureCount: 0,
		FeaturesPerWord: 2,
	}
}

const (
	scenarioAssoc  = "e1 e2\t\"cat\" \"dog\"\n"
	scenarioMatrix = "e1\tclaws -#- fur\ne2\tfur -#- bark\n"
)

func TestSelectFeatures_SharedFeatureWins(t *testing.T) {
	words, rows, res := runPipeline(t, scenarioOptions(), scenarioAssoc, scenarioMatrix)

	// fur is shared between both entities, so it is the selected representative for both words
	assert.Equal(t, []string{"fur", BiasFeature}, words["cat"])
	assert.Equal(t, []string{"fur", BiasFeature}, words["dog"])

	assert.Equal(t, []string{"fur", BiasFeature}, rows["e1"])
	assert.Equal(t, []string{"fur", BiasFeature}, rows["e2"])

	assert.Equal(t, 2, res.Words)
	assert.EqualValues(t, 0, res.Failures)
}

func TestSelectFeatures_SquaredPMIScoresSharedHigher(t *testing.T) {
	opts := scenarioOptions()
	opts.UseSquaredPMI = true

	words, rows, _ := runPipeline(t, opts, scenarioAssoc, scenarioMatrix)

	// under squared PMI the shared feature strictly outranks the per-entity ones, which form a
	// second, tied group: bark represents it (shortest-then-lexicographic)
	assert.Equal(t, []string{"fur", BiasFeature, "bark"}, words["cat"])
	assert.Equal(t, []string{"fur", BiasFeature, "bark"}, words["dog"])

	assert.Equal(t, []string{"fur", BiasFeature}, rows["e1"])
	assert.ElementsMatch(t, []string{"fur", "bark", BiasFeature}, rows["e2"])
}

func TestSelectFeatures_HubRowExcludedButRewritten(t *testing.T) {
	opts := scenarioOptions()
	opts.MaxFeatureCount = 50

	var hubFeatures []string
	for i := 0; i < 2000; i++ {
		hubFeatures = append(hubFeatures, fmt.Sprintf("hub-feature-%04d", i))
	}
	matrix := scenarioMatrix + "e3\t" + strings.Join(hubFeatures, featureDelimiter) + "\n"
	assoc := scenarioAssoc + "e3\t\"owl\"\n"

	words, rows, _ := runPipeline(t, opts, assoc, matrix)

	// the hub row contributes to no aggregate table: its word is never PMI-scored...
	_, found := words["owl"]
	assert.False(t, found)
	for _, feats := range words {
		for _, f := range feats {
			assert.NotContains(t, f, "hub-feature-")
		}
	}

	// ...but its entity still gets a minimal row in the output
	assert.Equal(t, []string{BiasFeature}, rows["e3"])
}

func TestSelectFeatures_WordHubSuppression(t *testing.T) {
	opts := scenarioOptions()
	opts.MaxWordCount = 2

	// e3's total word-occurrence count is 3 > 2, so none of its words may be scored
	assoc := scenarioAssoc + "e3\t\"owl\" \"owl\" \"hoot\"\n"
	matrix := scenarioMatrix + "e3\tfeathers\n"

	words, rows, _ := runPipeline(t, opts, assoc, matrix)

	_, found := words["owl"]
	assert.False(t, found)
	_, found = words["hoot"]
	assert.False(t, found)

	// the row survives filtering regardless
	assert.Equal(t, []string{BiasFeature}, rows["e3"])
}

func TestSelectFeatures_RetentionBoundaryIsStrict(t *testing.T) {
	opts := scenarioOptions()
	opts.MinFeatureCount = 2

	// f2's global weight lands exactly on the threshold (e1's bag totals 2), f3's is 3
	assoc := "e1\t\"cat\" \"cat\"\ne2\t\"dog\" \"pup\" \"rex\"\n"
	matrix := "e1\tf2\ne2\tf3\n"

	words, rows, _ := runPipeline(t, opts, assoc, matrix)

	// cat's only feature was dropped at the boundary, so cat never reaches the joint table
	_, found := words["cat"]
	assert.False(t, found)
	assert.Equal(t, []string{"f3", BiasFeature}, words["dog"])

	assert.Equal(t, []string{BiasFeature}, rows["e1"])
	assert.Equal(t, []string{"f3", BiasFeature}, rows["e2"])
}

func TestSelectFeatures_UnknownEntityRowStillRewritten(t *testing.T) {
	matrix := scenarioMatrix + "e9\tfur -#- scales\n"

	words, rows, _ := runPipeline(t, scenarioOptions(), scenarioAssoc, matrix)

	// e9 has no word bag, so it adds no weight anywhere; scales is never selected
	for _, feats := range words {
		assert.NotContains(t, feats, "scales")
	}

	// fur was selected through e1/e2, so e9's row keeps it
	assert.Equal(t, []string{"fur", BiasFeature}, rows["e9"])
}

func TestSelectFeatures_OutputIndependentOfPartitions(t *testing.T) {
	var prevWords, prevRows map[string][]string
	for i, partitions := range []int{1, 4} {
		opts := scenarioOptions()
		opts.Partitions = partitions

		words, rows, _ := runPipeline(t, opts, scenarioAssoc, scenarioMatrix)
		if i > 0 {
			assert.Equal(t, prevWords, words)
			assert.Equal(t, prevRows, rows)
		}
		prevWords, prevRows = words, rows
	}
}

func TestSelectFeatures_FeatureBudget(t *testing.T) {
	// five features with distinct weights for a single word; only 2 groups survive
	assoc := "e1\t\"cat\"\n"
	var lines []string
	for i := 1; i <= 5; i++ {
		feats := make([]string, 0, i)
		for j := 0; j < i; j++ {
			feats = append(feats, fmt.Sprintf("f%d", i))
		}
		lines = append(lines, fmt.Sprintf("e1\t%s", strings.Join(feats, featureDelimiter)))
	}

	words, _, _ := runPipeline(t, scenarioOptions(), assoc, strings.Join(lines, "\n")+"\n")

	feats := words["cat"]
	var nonDefault int
	for _, f := range feats {
		if f != BiasFeature {
			nonDefault++
		}
	}
	assert.True(t, nonDefault <= 2, "at most featuresPerWord non-default groups, got %v", feats)
	assert.Contains(t, feats, BiasFeature)
}

func TestSelectFeatures_LogsStageSummaries(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	// e3's row is at the distinct-feature ceiling, so the count stages skip it with a reason
	var hubFeatures []string
	for i := 0; i < 10; i++ {
		hubFeatures = append(hubFeatures, fmt.Sprintf("f%d", i))
	}
	matrix := scenarioMatrix + "e3\t" + strings.Join(hubFeatures, featureDelimiter) + "\n"
	runPipeline(t, scenarioOptions(), scenarioAssoc, matrix)

	out := buf.String()
	assert.Contains(t, out, "feed hub-filter: in=3 out=2")
	assert.Contains(t, out, "feed hub-filter: 1 errors: too many distinct features")
	assert.Contains(t, out, "feed feature-counts: in=2")
}

func TestAllowedFeatures_ExcludesDefaultsAndSentinel(t *testing.T) {
	allowed := allowedFeatures(map[string]Selection{
		"cat": {Word: "cat", Features: []ScoredFeature{{Feature: "fur", Score: 1}, {Feature: BiasFeature}}},
		"dog": {Word: "dog", Features: []ScoredFeature{{Feature: FailureFeature}}},
	}, []string{BiasFeature})

	assert.Equal(t, map[string]struct{}{"fur": {}}, allowed)
}
