package source

import (
	"github.com/grokdata/featselect/pipeline"
)

// Func wraps a function that emits records as a source. f is called from a single goroutine per run, but a
// fresh run reuses the same f, so f should be resumable only if the pipeline is run more than once.
func Func(name string, f func() pipeline.Record) pipeline.Source {
	return &funcSource{
		name: name,
		f:    f,
	}
}

type funcSource struct {
	name string
	f    func() pipeline.Record
}

// ForShard ...
func (f *funcSource) ForShard(shard int, total int) (pipeline.Source, error) {
	return f, nil
}

// Name ...
func (f *funcSource) Name() string {
	return f.name
}

// SourceOut ...
func (f *funcSource) SourceOut() pipeline.Record {
	return f.f()
}
