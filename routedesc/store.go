package routedesc

import (
	"github.com/pkg/errors"

	"osmscout/feature"
	"osmscout/objects"
)

// ObjectFeatures adapts objects.WayReader/objects.AreaReader into a
// FeatureSource, the same way router.ObjectStores adapts them into a
// GeometrySource/ObjectTypeSource pair: the node/way/area record already
// carries its ValueBuffer, this just dispatches on FileRef.Kind.
type ObjectFeatures struct {
	Ways  *objects.WayReader
	Areas *objects.AreaReader
}

func (f *ObjectFeatures) Buffer(ref objects.FileRef) (*feature.ValueBuffer, error) {
	switch ref.Kind {
	case objects.KindWay:
		way, err := f.Ways.ReadAt(ref.Offset)
		if err != nil {
			return nil, errors.Wrap(err, "routedesc: loading way features")
		}
		return way.Buffer, nil
	case objects.KindArea:
		if f.Areas == nil {
			return nil, errors.Errorf("routedesc: no area reader configured")
		}
		area, err := f.Areas.ReadAt(ref.Offset)
		if err != nil {
			return nil, errors.Wrap(err, "routedesc: loading area features")
		}
		return area.Buffer, nil
	default:
		return nil, errors.Errorf("routedesc: object kind %v has no feature buffer", ref.Kind)
	}
}
