package pipeline

import (
	"fmt"
)

// PipeClone maintains a partial copy of a Pipeline, in which some Feeds may be clones of their originals.
// It maintains a bidirectional mapping so that the original Feeds can be retrieved given their clones and vice versa.
type PipeClone struct {
	Sources    []Source
	Parents    ParentMap
	Dependents DependentMap

	OrigToClone map[Feed]Feed
	CloneToOrig map[Feed]Feed
}

// CloneForRun returns a pipeline that is applicable to a single engine run: Sources and Aggregators are
// re-created via ForShard so that a Pipeline value can be run more than once.
func (p Pipeline) CloneForRun() (PipeClone, error) {
	return clonePipe(p.Sources, p.Parents, func(f Feed) (Feed, error) {
		switch f := f.(type) {
		case Source:
			c, err := f.ForShard(0, 1)
			if err != nil {
				return nil, err
			}
			if c == nil {
				return nil, fmt.Errorf("nil clone returned")
			}
			return c, nil
		case Aggregator:
			c, err := f.ForShard(0, 1)
			if err != nil {
				return nil, err
			}
			if c == nil {
				return nil, fmt.Errorf("nil clone returned")
			}
			return c, nil
		default:
			return f, nil
		}
	})
}

// CloneForWorker returns a pipeline that is applicable to a specific worker.
func (p PipeClone) CloneForWorker() (PipeClone, error) {
	return clonePipe(p.Sources, p.Parents, func(f Feed) (Feed, error) {
		switch f := f.(type) {
		case Dependent:
			clone := f.Clone()
			if clone == nil {
				return nil, fmt.Errorf("nil clone returned")
			}
			if _, ok := f.(Transform); ok {
				if _, ok := clone.(Transform); !ok {
					return nil, fmt.Errorf("clone of Transform is not a Transform")
				}
			}
			if _, ok := f.(Aggregator); ok {
				if _, ok := clone.(Aggregator); !ok {
					return nil, fmt.Errorf("clone of Aggregator is not an Aggregator")
				}
			}
			return clone, nil
		default:
			return f, nil
		}
	})
}

// Aggregators returns all the (possibly cloned) aggregators in the clone
func (p PipeClone) Aggregators() []Aggregator {
	var aggs []Aggregator

	for feed := range p.Parents {
		if s, ok := feed.(Aggregator); ok {
			aggs = append(aggs, s)
		}
	}

	return aggs
}

func clonePipe(sources []Source, parents ParentMap, cloneFn func(Feed) (Feed, error)) (PipeClone, error) {
	origToClone := make(map[Feed]Feed)
	cloneToOrig := make(map[Feed]Feed)

	newSources := make([]Source, 0, len(sources))

	for _, source := range sources {
		c, err := cloneFn(source)
		if err != nil {
			return PipeClone{}, fmt.Errorf("could not clone source %v: %v", source, err)
		}
		newSrc := c.(Source)

		newSources = append(newSources, newSrc)
		origToClone[source] = newSrc
		cloneToOrig[newSrc] = source
	}

	for dep := range parents {
		c, err := cloneFn(dep)
		if err != nil {
			return PipeClone{}, fmt.Errorf("could not clone dependent %v: %v", dep, err)
		}
		newDep := c.(Dependent)

		origToClone[dep] = newDep
		cloneToOrig[newDep] = dep
	}

	newParents := make(ParentMap, len(parents))

	for dep, parent := range parents {
		newFeed, found := origToClone[dep]
		if !found {
			newFeed = dep
		}
		newDep := newFeed.(Dependent)

		newParent, found := origToClone[parent]
		if !found {
			newParent = parent
		}
		newParents[newDep] = newParent
	}

	newDependents := NewDependentMap(newParents)

	return PipeClone{
		Sources:     newSources,
		Parents:     newParents,
		Dependents:  newDependents,
		OrigToClone: origToClone,
		CloneToOrig: cloneToOrig,
	}, nil
}
