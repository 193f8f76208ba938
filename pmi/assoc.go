package pmi

import (
	"bufio"
	"strings"

	"github.com/grokdata/featselect/errors"
	"github.com/grokdata/featselect/fileutil"
)

// WordBag is a multiset of words with occurrence counts.
type WordBag map[string]float64

// Total returns the total word-occurrence count of the bag.
func (b WordBag) Total() float64 {
	var t float64
	for _, c := range b {
		t += c
	}
	return t
}

// WordBags maps an entity id to its word bag. It is built once by LoadWordBags and read-only
// afterwards; the pipeline workers share it without locking.
type WordBags map[string]WordBag

// LoadWordBags builds the entity -> word bag table from the association file. Each line groups one
// or more co-referenced entity ids (space-separated, field 0) with the quoted word tokens naming
// the group (field 1); every entity id on the line receives every word token. Entities whose total
// word-occurrence count exceeds maxWordCount are dropped entirely: a handful of hub entities would
// otherwise dominate both the statistics and the aggregation cost.
//
// Malformed lines fail the whole load: this table is foundational and must be correct before any
// aggregation proceeds.
func LoadWordBags(path string, maxWordCount int) (WordBags, error) {
	f, err := fileutil.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bags := make(WordBags)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(nil, maxLineBytes)

	var line int
	for scanner.Scan() {
		line++

		fields := strings.SplitN(scanner.Text(), "\t", 3)
		if len(fields) != 2 {
			return nil, errors.Errorf("%s:%d: expected 2 tab-separated fields, got %d", path, line, len(fields))
		}

		mids := strings.Fields(fields[0])
		if len(mids) == 0 {
			return nil, errors.Errorf("%s:%d: no entity ids", path, line)
		}

		words, err := parseQuotedTokens(fields[1])
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, line)
		}
		if len(words) == 0 {
			return nil, errors.Errorf("%s:%d: no word tokens", path, line)
		}

		for _, mid := range mids {
			bag := bags[mid]
			if bag == nil {
				bag = make(WordBag)
				bags[mid] = bag
			}
			for _, w := range words {
				bag[w]++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "error reading %s", path)
	}

	// hub suppression: violating entities are removed outright, not down-weighted
	for mid, bag := range bags {
		if bag.Total() > float64(maxWordCount) {
			delete(bags, mid)
		}
	}

	return bags, nil
}

// parseQuotedTokens parses a space-separated sequence of double-quoted tokens, e.g.
// `"cat" "sea dog"`. Quoted tokens may contain spaces.
func parseQuotedTokens(s string) ([]string, error) {
	var tokens []string

	rest := strings.TrimSpace(s)
	for rest != "" {
		if rest[0] != '"' {
			return nil, errors.Errorf("expected opening quote at %q", rest)
		}
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			return nil, errors.Errorf("unterminated quote at %q", rest)
		}
		tokens = append(tokens, rest[1:1+end])
		rest = strings.TrimSpace(rest[2+end:])
	}

	return tokens, nil
}
