package pipeline

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// runStats tracks per-feed record counts and per-reason recoverable errors for a single engine run.
// The error counts are diagnostic only; they never affect the outcome of the run.
type runStats struct {
	m sync.Mutex

	feedIn  map[Feed]int64
	feedOut map[Feed]int64
	// feed -> error reason -> count
	errs map[Feed]map[string]int64
}

func newRunStats() *runStats {
	return &runStats{
		feedIn:  make(map[Feed]int64),
		feedOut: make(map[Feed]int64),
		errs:    make(map[Feed]map[string]int64),
	}
}

// IncrFeedIn records a sample entering the given (original) feed.
func (r *runStats) IncrFeedIn(f Feed) {
	r.m.Lock()
	defer r.m.Unlock()
	r.feedIn[f]++
}

// IncrFeedOut records a sample emitted by the given (original) feed.
func (r *runStats) IncrFeedOut(f Feed) {
	r.m.Lock()
	defer r.m.Unlock()
	r.feedOut[f]++
}

// AddFeedError records a recoverable error emitted by the given (original) feed, keyed by its reason.
func (r *runStats) AddFeedError(f Feed, sourceName string, recordKey string, err error) {
	r.m.Lock()
	defer r.m.Unlock()

	byReason := r.errs[f]
	if byReason == nil {
		byReason = make(map[string]int64)
		r.errs[f] = byReason
	}

	reason := err.Error()
	if se, ok := err.(sampleError); ok {
		reason = se.Reason
	}
	byReason[reason]++
}

// ErrorCount returns the total number of recoverable errors recorded for the given feed.
func (r *runStats) ErrorCount(f Feed) int64 {
	r.m.Lock()
	defer r.m.Unlock()

	var n int64
	for _, c := range r.errs[f] {
		n += c
	}
	return n
}

// WriteSummary logs per-feed counts and error reasons in feed-name order.
func (r *runStats) WriteSummary(w io.Writer, feeds []Feed) {
	r.m.Lock()
	defer r.m.Unlock()

	for _, f := range feeds {
		in, out := r.feedIn[f], r.feedOut[f]
		if in == 0 && out == 0 && len(r.errs[f]) == 0 {
			continue
		}
		fmt.Fprintf(w, "feed %s: in=%d out=%d\n", f.Name(), in, out)

		var reasons []string
		for reason := range r.errs[f] {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(w, "feed %s: %d errors: %s\n", f.Name(), r.errs[f][reason], reason)
		}
	}
}
