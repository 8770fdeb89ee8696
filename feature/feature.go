// Package feature implements the Feature strategy objects and the
// ValueBuffer attribute record: how each named OSM attribute (Access,
// MaxSpeed, Grade, Width, Lanes, Name, ...) is parsed out of a tag map,
// sized, and (de)serialised on the binary layer.
package feature

import (
	"osmscout/fileio"
	"osmscout/types"
)

// TagMap is the flattened OSM tag view feature parsers consult.
type TagMap map[string]string

// ErrorReporter receives diagnostics about malformed tag values encountered
// while parsing a feature.
type ErrorReporter interface {
	ReportTag(osmRef string, tagKey, tagValue, message string)
}

// NopReporter discards all reports; useful for tests and tools that do not
// need tag diagnostics.
type NopReporter struct{}

func (NopReporter) ReportTag(string, string, string, string) {}

// Value is the binary-serialisable payload a Feature produces. Label
// exposes named, human-readable projections of the value.
type Value interface {
	Write(w *fileio.Writer) error
	Read(s *fileio.Scanner) error
	Label(name string) (string, bool)
}

// Feature is a named strategy object bound into a TypeInfo via
// types.TypeInfo.AddFeature. ValueSize is the byte count the feature adds
// to a TypeInfo's value-buffer layout (AddFeature sums it into
// ValueBufferSize). It does not bound what Value.Write emits: string and
// charging-station features report 0 yet write data, and lane values write
// variable-length turn lists after their fixed bytes.
type Feature interface {
	Name() string
	ValueSize() int
	Labels() []string
	AllocateValue() Value
	Parse(reporter ErrorReporter, osmRef string, tags TagMap) (Value, bool)
}

var _ types.FeatureDescriptor = Feature(nil)

// baseFeature centralises the Name/ValueSize/Labels boilerplate every
// concrete feature below embeds.
type baseFeature struct {
	name      string
	valueSize int
	labels    []string
}

func (b baseFeature) Name() string      { return b.name }
func (b baseFeature) ValueSize() int     { return b.valueSize }
func (b baseFeature) Labels() []string   { return b.labels }
