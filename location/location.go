// Package location implements the read-only admin-region/location/address/
// POI hierarchy: visiting the region tree, visiting locations within
// a region, visiting addresses within a location, reverse lookup from an
// object ref to its location tuple, and a token-based fuzzy search ranked
// into {none, candidate, match} quality bins.
// The admin-region spatial index is backed by rtreego rather than the
// regular-grid areaindex.Index, since admin polygons nest and overlap in
// a way an R-tree answers more directly than a fixed quadtree bitmap.
package location

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhconnelly/rtreego"
	"github.com/pkg/errors"

	"osmscout/common"
	"osmscout/fileio"
	"osmscout/objects"
)

// Quality classifies how well a search token matched a candidate.
type Quality int

const (
	QualityNone Quality = iota
	QualityCandidate
	QualityMatch
)

func (q Quality) String() string {
	switch q {
	case QualityMatch:
		return "match"
	case QualityCandidate:
		return "candidate"
	default:
		return "none"
	}
}

// AdminRegion is one node of the administrative-polygon tree: a country,
// state, county, city, or similar nested boundary.
type AdminRegion struct {
	Ref     objects.FileRef
	Name    string
	Aliases []string // secondary names / capital-node aliases
	Box     common.GeoBox
	Level   *int8 // admin_level when the boundary carried one

	Parent   *AdminRegion
	Children []*AdminRegion

	Locations []*Location
	POIs      []*POI
}

// Location is a street (or equivalent) indexed within an AdminRegion.
type Location struct {
	Region    *AdminRegion
	Name      string
	Objects   []objects.FileRef // the ways/areas composing the street
	Addresses []*Address
}

// Address is a single numbered address along a Location.
type Address struct {
	Location *Location
	Number   string
	Ref      objects.FileRef
	Coord    common.GeoCoord
}

// POI is a point of interest indexed directly within an AdminRegion
// (not tied to a specific street).
type POI struct {
	Region *AdminRegion
	Name   string
	Ref    objects.FileRef
	Coord  common.GeoCoord
}

// regionSpatial adapts *AdminRegion to rtreego.Spatial so the region index
// can run bounding-box intersection queries.
type regionSpatial struct {
	region *AdminRegion
}

func (s regionSpatial) Bounds() rtreego.Rect {
	min := s.region.Box.MinCoord
	max := s.region.Box.MaxCoord
	width := max.Lon - min.Lon
	height := max.Lat - min.Lat
	if width <= 0 {
		width = 1e-9
	}
	if height <= 0 {
		height = 1e-9
	}
	rect, _ := rtreego.NewRect(rtreego.Point{min.Lon, min.Lat}, []float64{width, height})
	return rect
}

// Index is the in-memory, read-only location hierarchy for one opened
// database. Build it once via NewIndex/AddRegion during import, or
// load it back with LoadFromDataFile at query time.
type Index struct {
	roots  []*AdminRegion
	rtree  *rtreego.Rtree
	byRef  map[objects.FileRef]*AdminRegion
	objRef map[objects.FileRef]refTuple // object ref -> owning location tuple, for ReverseLookup
}

type refTuple struct {
	region   *AdminRegion
	location *Location
	address  *Address
	poi      *POI
}

func NewIndex() *Index {
	return &Index{
		rtree:  rtreego.NewTree(2, 5, 20),
		byRef:  map[objects.FileRef]*AdminRegion{},
		objRef: map[objects.FileRef]refTuple{},
	}
}

// AddRegion inserts region into the tree, nesting it under the smallest
// already-added region whose box contains it (if any), and indexes it
// spatially. Containment is resolved at add time for region only: regions
// already in the index are not re-parented, so a containing region must be
// added before the regions it contains.
func (idx *Index) AddRegion(region *AdminRegion) {
	var parent *AdminRegion
	for _, candidate := range idx.allRegions() {
		if candidate == region || !boxContains(candidate.Box, region.Box) {
			continue
		}
		if parent == nil || boxContains(parent.Box, candidate.Box) {
			parent = candidate
		}
	}

	region.Parent = parent
	if parent != nil {
		parent.Children = append(parent.Children, region)
	} else {
		idx.roots = append(idx.roots, region)
	}

	idx.byRef[region.Ref] = region
	idx.rtree.Insert(regionSpatial{region})
	idx.objRef[region.Ref] = refTuple{region: region}
}

func boxContains(outer, inner common.GeoBox) bool {
	return outer.MinCoord.Lat <= inner.MinCoord.Lat && outer.MinCoord.Lon <= inner.MinCoord.Lon &&
		outer.MaxCoord.Lat >= inner.MaxCoord.Lat && outer.MaxCoord.Lon >= inner.MaxCoord.Lon
}

func (idx *Index) allRegions() []*AdminRegion {
	all := make([]*AdminRegion, 0, len(idx.byRef))
	for _, r := range idx.byRef {
		all = append(all, r)
	}
	return all
}

// AddLocation attaches loc to region and indexes its traversing objects for
// reverse lookup.
func (idx *Index) AddLocation(region *AdminRegion, loc *Location) {
	loc.Region = region
	region.Locations = append(region.Locations, loc)
	for _, ref := range loc.Objects {
		idx.objRef[ref] = refTuple{region: region, location: loc}
	}
}

// AddAddress attaches addr to loc and indexes it for reverse lookup.
func (idx *Index) AddAddress(loc *Location, addr *Address) {
	addr.Location = loc
	loc.Addresses = append(loc.Addresses, addr)
	idx.objRef[addr.Ref] = refTuple{region: loc.Region, location: loc, address: addr}
}

// AddPOI attaches poi to region and indexes it for reverse lookup.
func (idx *Index) AddPOI(region *AdminRegion, poi *POI) {
	poi.Region = region
	region.POIs = append(region.POIs, poi)
	idx.objRef[poi.Ref] = refTuple{region: region, poi: poi}
}

// VisitRegions walks the region tree depth-first in pre-order, calling fn
// on every region reachable from the roots. Returning false from fn stops the walk early.
func (idx *Index) VisitRegions(fn func(*AdminRegion) bool) {
	var walk func(*AdminRegion) bool
	walk = func(r *AdminRegion) bool {
		if !fn(r) {
			return false
		}
		for _, c := range r.Children {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	for _, root := range idx.roots {
		if !walk(root) {
			return
		}
	}
}

// RegionsAt returns every region whose bounding box contains coord, ordered
// from the smallest (most specific) to the largest.
func (idx *Index) RegionsAt(coord common.GeoCoord) []*AdminRegion {
	point := rtreego.Point{coord.Lon, coord.Lat}
	rect, _ := rtreego.NewRect(point, []float64{1e-9, 1e-9})
	var matches []*AdminRegion
	for _, sp := range idx.rtree.SearchIntersect(rect) {
		region := sp.(regionSpatial).region
		if region.Box.Contains(coord) {
			matches = append(matches, region)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Level != nil && b.Level != nil && *a.Level != *b.Level {
			return *a.Level > *b.Level
		}
		return boxArea(a.Box) < boxArea(b.Box)
	})
	return matches
}

func boxArea(b common.GeoBox) float64 {
	return (b.MaxCoord.Lat - b.MinCoord.Lat) * (b.MaxCoord.Lon - b.MinCoord.Lon)
}

// ReverseLookup finds which region/location/address/POI tuple ref belongs
// to.
func (idx *Index) ReverseLookup(ref objects.FileRef) (region *AdminRegion, loc *Location, addr *Address, poi *POI, ok bool) {
	t, found := idx.objRef[ref]
	if !found {
		return nil, nil, nil, nil, false
	}
	return t.region, t.location, t.address, t.poi, true
}

// SearchResult is one ranked hit from Search.
type SearchResult struct {
	Region         *AdminRegion
	RegionQuality  Quality
	Location       *Location
	LocationQuality Quality
	POI            *POI
	POIQuality     Quality
	Address        *Address
	AddressQuality Quality
}

func (r SearchResult) score() int {
	return int(r.RegionQuality) + int(r.LocationQuality)*2 + int(r.POIQuality)*2 + int(r.AddressQuality)*3
}

// Search performs a token-based, case-insensitive partial-match query
// across the hierarchy,
// accepting admin-region aliases. Results are ranked best-first.
func (idx *Index) Search(tokens []string) []SearchResult {
	if len(tokens) == 0 {
		return nil
	}
	normalized := make([]string, len(tokens))
	for i, t := range tokens {
		normalized[i] = strings.ToLower(strings.TrimSpace(t))
	}

	var results []SearchResult
	idx.VisitRegions(func(r *AdminRegion) bool {
		rq := matchQuality(r.Name, r.Aliases, normalized)
		if rq != QualityNone {
			results = append(results, SearchResult{Region: r, RegionQuality: rq})
		}
		for _, loc := range r.Locations {
			lq := matchQuality(loc.Name, nil, normalized)
			if lq != QualityNone {
				results = append(results, SearchResult{Region: r, RegionQuality: QualityCandidate, Location: loc, LocationQuality: lq})
			}
			for _, addr := range loc.Addresses {
				if matchesToken(addr.Number, normalized) {
					results = append(results, SearchResult{
						Region: r, RegionQuality: QualityCandidate,
						Location: loc, LocationQuality: QualityCandidate,
						Address: addr, AddressQuality: QualityMatch,
					})
				}
			}
		}
		for _, poi := range r.POIs {
			pq := matchQuality(poi.Name, nil, normalized)
			if pq != QualityNone {
				results = append(results, SearchResult{Region: r, RegionQuality: QualityCandidate, POI: poi, POIQuality: pq})
			}
		}
		return true
	})

	sort.SliceStable(results, func(i, j int) bool { return results[i].score() > results[j].score() })
	return results
}

// matchQuality reports QualityMatch if every token exactly names name or an
// alias, QualityCandidate if every token is at least a substring of name or
// an alias, or QualityNone if some token matches nothing.
func matchQuality(name string, aliases []string, tokens []string) Quality {
	lowerName := strings.ToLower(name)
	candidates := append([]string{lowerName}, lowerAll(aliases)...)

	allExact := true
	allSubstring := true
	for _, tok := range tokens {
		exact, substring := false, false
		for _, c := range candidates {
			if c == tok {
				exact = true
			}
			if strings.Contains(c, tok) {
				substring = true
			}
		}
		if !exact {
			allExact = false
		}
		if !substring {
			allSubstring = false
		}
	}
	switch {
	case allExact:
		return QualityMatch
	case allSubstring:
		return QualityCandidate
	default:
		return QualityNone
	}
}

func matchesToken(value string, tokens []string) bool {
	lower := strings.ToLower(value)
	for _, tok := range tokens {
		if lower == tok {
			return true
		}
	}
	return false
}

func lowerAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}

// StoreToDataFile writes the region/location/address/POI tree to
// location.idx and locationaddr.dat. The rtree itself is
// not serialized; LoadFromDataFile rebuilds it from the region boxes.
func (idx *Index) StoreToDataFile(dir string) error {
	idxWriter := &fileio.Writer{}
	if err := idxWriter.Open(filepath.Join(dir, "location.idx")); err != nil {
		return errors.Wrap(err, "location: opening location.idx")
	}

	addrWriter := &fileio.Writer{}
	if err := addrWriter.Open(filepath.Join(dir, "locationaddr.dat")); err != nil {
		return errors.Wrap(err, "location: opening locationaddr.dat")
	}

	roots := idx.roots
	if err := idxWriter.WriteUvarint(uint64(len(roots))); err != nil {
		return err
	}
	for _, root := range roots {
		if err := writeRegion(idxWriter, addrWriter, root); err != nil {
			return err
		}
	}

	if err := idxWriter.Close(); err != nil {
		return err
	}
	return addrWriter.Close()
}

func writeRegion(w, addrW *fileio.Writer, r *AdminRegion) error {
	if err := w.WriteFileOffset(r.Ref.Offset, 5); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(r.Ref.Kind)); err != nil {
		return err
	}
	if err := w.WriteString(r.Name); err != nil {
		return err
	}
	if err := w.WriteUvarint(uint64(len(r.Aliases))); err != nil {
		return err
	}
	for _, a := range r.Aliases {
		if err := w.WriteString(a); err != nil {
			return err
		}
	}
	if err := writeBox(w, r.Box); err != nil {
		return err
	}

	if err := w.WriteUvarint(uint64(len(r.Locations))); err != nil {
		return err
	}
	for _, loc := range r.Locations {
		if err := w.WriteString(loc.Name); err != nil {
			return err
		}
		if err := w.WriteUvarint(uint64(len(loc.Objects))); err != nil {
			return err
		}
		for _, ref := range loc.Objects {
			if err := w.WriteFileOffset(ref.Offset, 5); err != nil {
				return err
			}
			if err := w.WriteUint8(uint8(ref.Kind)); err != nil {
				return err
			}
		}
		if err := addrW.WriteUvarint(uint64(len(loc.Addresses))); err != nil {
			return err
		}
		for _, addr := range loc.Addresses {
			if err := addrW.WriteString(addr.Number); err != nil {
				return err
			}
			if err := addrW.WriteFileOffset(addr.Ref.Offset, 5); err != nil {
				return err
			}
			if err := addrW.WriteUint8(uint8(addr.Ref.Kind)); err != nil {
				return err
			}
			if err := addrW.WriteCoord(addr.Coord); err != nil {
				return err
			}
		}
	}

	if err := w.WriteUvarint(uint64(len(r.POIs))); err != nil {
		return err
	}
	for _, poi := range r.POIs {
		if err := w.WriteString(poi.Name); err != nil {
			return err
		}
		if err := w.WriteFileOffset(poi.Ref.Offset, 5); err != nil {
			return err
		}
		if err := w.WriteUint8(uint8(poi.Ref.Kind)); err != nil {
			return err
		}
		if err := w.WriteCoord(poi.Coord); err != nil {
			return err
		}
	}

	if err := w.WriteUvarint(uint64(len(r.Children))); err != nil {
		return err
	}
	for _, child := range r.Children {
		if err := writeRegion(w, addrW, child); err != nil {
			return err
		}
	}
	return nil
}

func writeBox(w *fileio.Writer, box common.GeoBox) error {
	if err := w.WriteCoord(box.MinCoord); err != nil {
		return err
	}
	return w.WriteCoord(box.MaxCoord)
}

// LoadFromDataFile reads location.idx/locationaddr.dat back into a fresh,
// query-ready Index.
func LoadFromDataFile(dir string) (*Index, error) {
	idxScanner := &fileio.Scanner{}
	if err := idxScanner.Open(filepath.Join(dir, "location.idx"), fileio.Sequential, false); err != nil {
		return nil, errors.Wrap(err, "location: opening location.idx")
	}
	defer idxScanner.Close()

	addrScanner := &fileio.Scanner{}
	if err := addrScanner.Open(filepath.Join(dir, "locationaddr.dat"), fileio.Sequential, false); err != nil {
		return nil, errors.Wrap(err, "location: opening locationaddr.dat")
	}
	defer addrScanner.Close()

	idx := NewIndex()

	rootCount, err := idxScanner.ReadUvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < rootCount; i++ {
		root, err := readRegion(idxScanner, addrScanner, nil)
		if err != nil {
			return nil, err
		}
		attachRegion(idx, root)
	}
	return idx, nil
}

// attachRegion registers a region (and recursively its whole subtree,
// locations, addresses and POIs) loaded from disk without re-deriving
// parent/child containment, which the file layout already encodes.
func attachRegion(idx *Index, r *AdminRegion) {
	idx.byRef[r.Ref] = r
	idx.rtree.Insert(regionSpatial{r})
	idx.objRef[r.Ref] = refTuple{region: r}
	if r.Parent == nil {
		idx.roots = append(idx.roots, r)
	}
	for _, loc := range r.Locations {
		for _, ref := range loc.Objects {
			idx.objRef[ref] = refTuple{region: r, location: loc}
		}
		for _, addr := range loc.Addresses {
			idx.objRef[addr.Ref] = refTuple{region: r, location: loc, address: addr}
		}
	}
	for _, poi := range r.POIs {
		idx.objRef[poi.Ref] = refTuple{region: r, poi: poi}
	}
	for _, child := range r.Children {
		attachRegion(idx, child)
	}
}

func readRegion(s, addrS *fileio.Scanner, parent *AdminRegion) (*AdminRegion, error) {
	offset, err := s.ReadFileOffset(5)
	if err != nil {
		return nil, err
	}
	kind, err := s.ReadUint8()
	if err != nil {
		return nil, err
	}
	name, err := s.ReadString()
	if err != nil {
		return nil, err
	}
	aliasCount, err := s.ReadUvarint()
	if err != nil {
		return nil, err
	}
	aliases := make([]string, aliasCount)
	for i := range aliases {
		aliases[i], err = s.ReadString()
		if err != nil {
			return nil, err
		}
	}
	box, err := readBox(s)
	if err != nil {
		return nil, err
	}

	r := &AdminRegion{
		Ref:     objects.FileRef{Offset: offset, Kind: objects.Kind(kind)},
		Name:    name,
		Aliases: aliases,
		Box:     box,
		Parent:  parent,
	}

	locCount, err := s.ReadUvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < locCount; i++ {
		loc, err := readLocation(s, addrS, r)
		if err != nil {
			return nil, err
		}
		r.Locations = append(r.Locations, loc)
	}

	poiCount, err := s.ReadUvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < poiCount; i++ {
		poi, err := readPOI(s, r)
		if err != nil {
			return nil, err
		}
		r.POIs = append(r.POIs, poi)
	}

	childCount, err := s.ReadUvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < childCount; i++ {
		child, err := readRegion(s, addrS, r)
		if err != nil {
			return nil, err
		}
		r.Children = append(r.Children, child)
	}

	return r, nil
}

func readLocation(s, addrS *fileio.Scanner, region *AdminRegion) (*Location, error) {
	name, err := s.ReadString()
	if err != nil {
		return nil, err
	}
	objCount, err := s.ReadUvarint()
	if err != nil {
		return nil, err
	}
	loc := &Location{Region: region, Name: name, Objects: make([]objects.FileRef, objCount)}
	for i := range loc.Objects {
		offset, err := s.ReadFileOffset(5)
		if err != nil {
			return nil, err
		}
		kind, err := s.ReadUint8()
		if err != nil {
			return nil, err
		}
		loc.Objects[i] = objects.FileRef{Offset: offset, Kind: objects.Kind(kind)}
	}

	addrCount, err := addrS.ReadUvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < addrCount; i++ {
		number, err := addrS.ReadString()
		if err != nil {
			return nil, err
		}
		offset, err := addrS.ReadFileOffset(5)
		if err != nil {
			return nil, err
		}
		kind, err := addrS.ReadUint8()
		if err != nil {
			return nil, err
		}
		coord, err := addrS.ReadCoord()
		if err != nil {
			return nil, err
		}
		loc.Addresses = append(loc.Addresses, &Address{
			Location: loc,
			Number:   number,
			Ref:      objects.FileRef{Offset: offset, Kind: objects.Kind(kind)},
			Coord:    coord,
		})
	}

	return loc, nil
}

func readPOI(s *fileio.Scanner, region *AdminRegion) (*POI, error) {
	name, err := s.ReadString()
	if err != nil {
		return nil, err
	}
	offset, err := s.ReadFileOffset(5)
	if err != nil {
		return nil, err
	}
	kind, err := s.ReadUint8()
	if err != nil {
		return nil, err
	}
	coord, err := s.ReadCoord()
	if err != nil {
		return nil, err
	}
	return &POI{
		Region: region,
		Name:   name,
		Ref:    objects.FileRef{Offset: offset, Kind: objects.Kind(kind)},
		Coord:  coord,
	}, nil
}

func readBox(s *fileio.Scanner) (common.GeoBox, error) {
	min, err := s.ReadCoord()
	if err != nil {
		return common.GeoBox{}, err
	}
	max, err := s.ReadCoord()
	if err != nil {
		return common.GeoBox{}, err
	}
	return common.GeoBox{MinCoord: min, MaxCoord: max}, nil
}
