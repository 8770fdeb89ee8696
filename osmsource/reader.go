// Package osmsource reads raw OSM input files (PBF, with XML as a fallback)
// and fans parsed nodes/ways/relations out to registered handlers in a
// single streaming pass, exactly the shape the import pipeline needs to
// build raw stores before the multipolygon resolver and object stores run.
// XML fallback goes through paulmach/osm/osmxml, since input files may
// come in either encoding.
package osmsource

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
)

// DataHandler receives OSM primitives during a Read pass. Implementations
// must not mutate what they are given. Calls arrive in this order: Init,
// then all nodes, then all ways, then all relations, then Done.
type DataHandler interface {
	Name() string
	Init() error
	HandleNode(node *osm.Node) error
	HandleWay(way *osm.Way) error
	HandleRelation(relation *osm.Relation) error
	Done() error
}

// scanner is the common surface of osmpbf.Scanner and osmxml.Scanner.
type scanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

// Reader streams a single OSM input file to a set of handlers.
type Reader struct {
	sawFirstWay      bool
	sawFirstRelation bool
}

func NewReader() *Reader {
	return &Reader{}
}

// Read opens filename, dispatching by extension (".osm"/".xml" → XML,
// anything else → PBF), and drives handlers over its contents.
func (r *Reader) Read(filename string, handlers ...DataHandler) error {
	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "osmsource: unable to open %s", filename)
	}
	defer f.Close()

	var sc scanner
	if strings.HasSuffix(filename, ".osm") || strings.HasSuffix(filename, ".xml") {
		sc = osmxml.New(context.Background(), f)
	} else {
		sc = osmpbf.New(context.Background(), f, 1)
	}

	sigolo.Debugf("osmsource: start processing %s", filename)
	start := time.Now()

	for _, h := range handlers {
		if err := h.Init(); err != nil {
			return errors.Wrapf(err, "osmsource: init handler %s failed", h.Name())
		}
	}

	sigolo.Debug("osmsource: processing nodes (1/3)")
	for sc.Scan() {
		switch obj := sc.Object().(type) {
		case *osm.Node:
			for _, h := range handlers {
				if err := h.HandleNode(obj); err != nil {
					return errors.Wrapf(err, "osmsource: handler %s failed on node %d", h.Name(), obj.ID)
				}
			}
		case *osm.Way:
			if !r.sawFirstWay {
				sigolo.Debug("osmsource: processing ways (2/3)")
				r.sawFirstWay = true
			}
			for _, h := range handlers {
				if err := h.HandleWay(obj); err != nil {
					return errors.Wrapf(err, "osmsource: handler %s failed on way %d", h.Name(), obj.ID)
				}
			}
		case *osm.Relation:
			if !r.sawFirstRelation {
				sigolo.Debug("osmsource: processing relations (3/3)")
				r.sawFirstRelation = true
			}
			for _, h := range handlers {
				if err := h.HandleRelation(obj); err != nil {
					return errors.Wrapf(err, "osmsource: handler %s failed on relation %d", h.Name(), obj.ID)
				}
			}
		}
	}

	if err := sc.Err(); err != nil {
		return errors.Wrapf(err, "osmsource: scan failure in %s", filename)
	}

	for _, h := range handlers {
		if err := h.Done(); err != nil {
			return errors.Wrapf(err, "osmsource: done handler %s failed", h.Name())
		}
	}

	if err := sc.Close(); err != nil {
		return errors.Wrap(err, "osmsource: closing scanner failed")
	}

	sigolo.Infof("osmsource: finished %s in %s", filename, time.Since(start))
	return nil
}

// TagMap is the flattened representation feature parsers and the
// multipolygon resolver operate on; paulmach/osm.Tags is a slice, but
// lookups are frequent enough in type/feature evaluation to warrant a map.
type TagMap map[string]string

func TagsToMap(tags osm.Tags) TagMap {
	m := make(TagMap, len(tags))
	for _, t := range tags {
		m[t.Key] = t.Value
	}
	return m
}
