package pmi

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/grokdata/featselect/errors"
	"github.com/grokdata/featselect/fileutil"
	"github.com/grokdata/featselect/pipeline"
)

// matrix rows can list tens of thousands of features
const maxLineBytes = 64 * 1024 * 1024

// Row is one line of the sparse feature matrix: an entity id and its feature tokens. Duplicate
// features are permitted; each occurrence is a separate observation.
type Row struct {
	Entity   string
	Features []string
}

// SampleTag implements pipeline.Sample
func (Row) SampleTag() {}

// DistinctFeatureCount returns the number of distinct features in the row.
func (r Row) DistinctFeatureCount() int {
	seen := make(map[string]struct{}, len(r.Features))
	for _, f := range r.Features {
		seen[f] = struct{}{}
	}
	return len(seen)
}

// parseRow parses a matrix line: field 0 is the entity id (entity-pair ids are canonicalized
// upstream with commas replaced by spaces), optional field 1 holds the feature tokens. A missing
// feature field means an empty feature list.
func parseRow(line string) (Row, error) {
	fields := strings.SplitN(line, "\t", 3)
	if len(fields) > 2 {
		return Row{}, errors.Errorf("expected at most 2 tab-separated fields, got %d", len(fields))
	}

	entity := fields[0]
	if entity == "" {
		return Row{}, errors.Errorf("empty entity id")
	}

	row := Row{Entity: entity}
	if len(fields) == 2 && fields[1] != "" {
		row.Features = strings.Split(fields[1], featureDelimiter)
	}
	return row, nil
}

// matrixSource streams Rows from the matrix file. Each engine run re-opens the file, so the same
// source can drive multiple passes (the count passes and the later filter pass rescan the raw
// matrix independently). A parse failure is fatal: it stops the stream and is surfaced via Err.
type matrixSource struct {
	name string
	path string

	f    io.ReadCloser
	scan *bufio.Scanner
	line int
	err  error
}

func newMatrixSource(name, path string) *matrixSource {
	return &matrixSource{
		name: name,
		path: path,
	}
}

// Name implements pipeline.Source
func (m *matrixSource) Name() string {
	return m.name
}

// ForShard implements pipeline.Source
func (m *matrixSource) ForShard(shard, totalShards int) (pipeline.Source, error) {
	if m.f != nil {
		m.f.Close()
	}

	f, err := fileutil.NewReader(m.path)
	if err != nil {
		return nil, err
	}

	m.f = f
	m.scan = bufio.NewScanner(f)
	m.scan.Buffer(nil, maxLineBytes)
	m.line = 0
	m.err = nil
	return m, nil
}

// SourceOut implements pipeline.Source
func (m *matrixSource) SourceOut() pipeline.Record {
	if m.scan == nil || m.err != nil {
		return pipeline.Record{}
	}

	if !m.scan.Scan() {
		m.err = errors.WrapfOrNil(m.scan.Err(), "error reading %s", m.path)
		m.close()
		return pipeline.Record{}
	}
	m.line++

	row, err := parseRow(m.scan.Text())
	if err != nil {
		m.err = errors.Wrapf(err, "%s:%d", m.path, m.line)
		m.close()
		return pipeline.Record{}
	}

	return pipeline.Record{
		Key:   strconv.Itoa(m.line),
		Value: row,
	}
}

// Err reports the input-format or IO error that stopped the stream, if any. It must be checked
// after every engine run that uses this source: downstream statistics would be silently wrong on a
// truncated scan.
func (m *matrixSource) Err() error {
	return m.err
}

func (m *matrixSource) close() {
	if m.f != nil {
		m.f.Close()
		m.f = nil
		m.scan = nil
	}
}
