package pipeline

// The pipeline is composed of a dependency graph of Feeds. A Feed may be one of the following:
// * Source - creates records for analysis. Each record contains a key as well as an associated Sample.
// * Dependent - takes in Samples returned by Sources or other Feeds. Special cases of Dependents are:
//   * Transform - takes in Samples as input and emits Sample(s) for output to other Feeds
//   * Aggregator - takes in Samples whose results are aggregated after the pipeline runs. Once the engine
//     finishes running, it returns one final aggregated Sample for each Aggregator in the pipeline.

// Each Dependent should have exactly one parent defined in the pipeline (see ParentMap), whose output is
// used as input for the feed in question. Sources do not have any parents as they are expected to generate the
// source data.

// Note that none of the methods need to be thread-safe, but for a given Feed, multiple clones of it must be able to
// work concurrently without interference.

// A Feed describes any entity that emits and/or processes incoming data. A data pipeline is composed of a dependency
// graph of Feeds.
type Feed interface {
	// Name of the feed.
	Name() string
}

// Source describes a Feed that emits records for analysis.
type Source interface {
	Feed
	// ForShard should return a Source that is applicable to the same dataset. It is called once per engine run,
	// so the returned Source does not need to work concurrently with another returnee of ForShard. The engine
	// serializes calls to SourceOut, so SourceOut itself need not be thread-safe.
	ForShard(shard int, totalShards int) (Source, error)
	// SourceOut will be repeatedly called until an empty Record struct is returned.
	SourceOut() Record
}

// Record contains a sample emitted by a Source along with some extra metadata.
type Record struct {
	// An optional string that should uniquely identify the record within the dataset.
	Key string
	// The sample for the given key
	Value Sample
}

// Dependent is used to describe Feeds that take in data produced by other feeds.
// Only cloned Dependents (see Clone()) are expected to input any data.
type Dependent interface {
	Feed
	// Clone should create a new Dependent that has the same behavior.
	Clone() Dependent
	In(Sample)
}

// Transform describes a Dependent that transforms samples. For every sample received from the parent, In is called
// once, followed by calls to TransformOut until TransformOut returns nil.
// Only cloned Transforms are expected to input or output any data.
type Transform interface {
	Dependent
	TransformOut() Sample
}

// Aggregator describes a Dependent that aggregates results from the per-worker clones of itself once the
// engine has finished running. A final Sample is returned for each Aggregator in the pipeline.
type Aggregator interface {
	Dependent
	// ForShard returns an Aggregator with the same behavior, but relevant to the current run. This will only be
	// called once per engine run, and thus the Aggregator returned does not need to work concurrently with
	// another returnee of ForShard.
	ForShard(shard int, totalShards int) (Aggregator, error)
	// AggregateLocal is called on the parent (un-cloned) Aggregator after the pipeline finishes, with the
	// arguments being its per-worker clones. It brings the aggregation to its final state and returns the
	// resulting Sample. Since merging happens at this explicit barrier, the aggregation must be associative and
	// commutative for the result to be independent of worker count and scheduling order.
	AggregateLocal(clones []Aggregator) (Sample, error)
	// Finalize is called once aggregation has finished and we have the final result; this can perform any
	// out-of-band operations as needed.
	Finalize() error
}
