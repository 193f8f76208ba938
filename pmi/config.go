package pmi

import (
	"github.com/grokdata/featselect/errors"
)

// Canonical mode identifiers. The matrix is keyed either by single entities or by canonicalized
// entity pairs; the mode decides the retention default and the default feature set.
const (
	ModeEntity     = "entity"
	ModeEntityPair = "entity-pair"
)

const (
	// BiasFeature is appended to every selection and every filtered matrix row unconditionally.
	BiasFeature = "bias"
	// ConnectedFeature marks direct connectivity between the entities of a pair; it is a default
	// feature in entity-pair mode only.
	ConnectedFeature = "connected"
	// FailureFeature is the sentinel assigned to a word whose selection failed.
	FailureFeature = "pmi_failed"
)

// featureDelimiter separates feature tokens within a matrix row.
const featureDelimiter = " -#- "

// Mode-dependent retention defaults: entity-pair features are far sparser than entity features.
const (
	defaultMinFeatureCountEntity     = 2000
	defaultMinFeatureCountEntityPair = 100
)

// Options configure the feature selection pipeline.
type Options struct {
	// Mode is ModeEntity or ModeEntityPair.
	Mode string
	// MaxWordCount drops entities whose total word-occurrence count exceeds it (hub suppression on
	// the word side).
	MaxWordCount int
	// MaxFeatureCount drops rows with at least this many distinct features from aggregation (hub
	// suppression on the feature side). Such rows are still rewritten by the filter pass.
	MaxFeatureCount int
	// MinFeatureCount is the retention threshold: only features whose accumulated weight is
	// strictly greater than it are kept. Negative means the mode default.
	MinFeatureCount int
	// FeaturesPerWord bounds the number of score groups selected per word.
	FeaturesPerWord int
	// UseSquaredPMI scores joint²/(word×feature) instead of joint/(word×feature).
	UseSquaredPMI bool
	// Partitions is the number of concurrent workers records are partitioned across. Purely a
	// performance hint; it does not change output content.
	Partitions int
}

// DefaultOptions ...
var DefaultOptions = Options{
	Mode:            ModeEntity,
	MaxWordCount:    1000,
	MaxFeatureCount: 5000,
	MinFeatureCount: -1,
	FeaturesPerWord: 100,
}

// WithDefaults fills in mode-dependent defaults and validates the options.
func (o Options) WithDefaults() (Options, error) {
	if o.Mode == "" {
		o.Mode = ModeEntity
	}

	switch o.Mode {
	case ModeEntity:
		if o.MinFeatureCount < 0 {
			o.MinFeatureCount = defaultMinFeatureCountEntity
		}
	case ModeEntityPair:
		if o.MinFeatureCount < 0 {
			o.MinFeatureCount = defaultMinFeatureCountEntityPair
		}
	default:
		return o, errors.Errorf("unrecognized mode %q (must be %q or %q)", o.Mode, ModeEntity, ModeEntityPair)
	}

	if o.MaxWordCount <= 0 {
		return o, errors.Errorf("max word count must be positive, got %d", o.MaxWordCount)
	}
	if o.MaxFeatureCount <= 0 {
		return o, errors.Errorf("max feature count must be positive, got %d", o.MaxFeatureCount)
	}
	if o.FeaturesPerWord <= 0 {
		return o, errors.Errorf("features per word must be positive, got %d", o.FeaturesPerWord)
	}

	return o, nil
}

// DefaultFeatures for the mode. These are unioned into every word's selection regardless of
// statistical evidence.
func (o Options) DefaultFeatures() []string {
	if o.Mode == ModeEntityPair {
		return []string{BiasFeature, ConnectedFeature}
	}
	return []string{BiasFeature}
}
