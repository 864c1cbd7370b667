package proj4_coordinate_converter

import (
	"fmt"
	"math"
	"sync"

	vec3 "github.com/flywave/go3d/float64/vec3"
	proj "github.com/xeonx/proj4"

	"github.com/terrascene/mesh_tiler/internal/converters"
	"github.com/terrascene/mesh_tiler/internal/geometry"
)

const wgs84Srid = 4326

// Built-in proj4 definitions for the SRIDs the tiler meets in practice.
// Additional codes can be registered with RegisterSrid.
var defaultProjections = map[int]string{
	4326: "+proj=longlat +datum=WGS84 +no_defs",
	4978: "+proj=geocent +datum=WGS84 +units=m +no_defs",
	3857: "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +wktext +no_defs",
	3395: "+proj=merc +lon_0=0 +k=1 +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs",
}

type proj4CoordinateConverter struct {
	definitions map[int]string
	projections map[int]*proj.Proj
	sync.Mutex
}

func NewProj4CoordinateConverter() converters.CoordinateConverter {
	defs := make(map[int]string, len(defaultProjections))
	for srid, def := range defaultProjections {
		defs[srid] = def
	}
	return &proj4CoordinateConverter{
		definitions: defs,
		projections: make(map[int]*proj.Proj),
	}
}

// RegisterSrid adds or replaces the proj4 definition for an EPSG code.
func (cc *proj4CoordinateConverter) RegisterSrid(srid int, definition string) {
	cc.Lock()
	defer cc.Unlock()
	cc.definitions[srid] = definition
	delete(cc.projections, srid)
}

func (cc *proj4CoordinateConverter) ConvertCoordinateSrid(sourceSrid int, targetSrid int, coord vec3.T) (vec3.T, error) {
	if sourceSrid == targetSrid {
		return coord, nil
	}

	src, err := cc.initProjection(sourceSrid)
	if err != nil {
		return coord, err
	}
	dst, err := cc.initProjection(targetSrid)
	if err != nil {
		return coord, err
	}

	return executeConversion(&coord, src, dst)
}

func (cc *proj4CoordinateConverter) ConvertBoundingBoxToWGS84Region(bbox *geometry.AABB, sourceSrid int) ([6]float64, error) {
	var region [6]float64

	min, err := cc.ConvertCoordinateSrid(sourceSrid, wgs84Srid, bbox.Min)
	if err != nil {
		return region, err
	}
	max, err := cc.ConvertCoordinateSrid(sourceSrid, wgs84Srid, bbox.Max)
	if err != nil {
		return region, err
	}

	region = [6]float64{
		degToRad(min[0]),
		degToRad(min[1]),
		degToRad(max[0]),
		degToRad(max[1]),
		bbox.Min[2],
		bbox.Max[2],
	}
	return region, nil
}

func (cc *proj4CoordinateConverter) Cleanup() {
	cc.Lock()
	defer cc.Unlock()
	for srid, projection := range cc.projections {
		projection.Close()
		delete(cc.projections, srid)
	}
}

func (cc *proj4CoordinateConverter) initProjection(srid int) (*proj.Proj, error) {
	cc.Lock()
	defer cc.Unlock()

	if projection, ok := cc.projections[srid]; ok {
		return projection, nil
	}
	definition, ok := cc.definitions[srid]
	if !ok {
		return nil, fmt.Errorf("no proj4 definition registered for EPSG:%d", srid)
	}
	projection, err := proj.InitPlus(definition)
	if err != nil {
		return nil, fmt.Errorf("init EPSG:%d: %w", srid, err)
	}
	cc.projections[srid] = projection
	return projection, nil
}

func executeConversion(coord *vec3.T, src, dst *proj.Proj) (vec3.T, error) {
	x := []float64{coord[0]}
	y := []float64{coord[1]}
	z := []float64{coord[2]}

	if src.IsLatLong() {
		x[0] = degToRad(x[0])
		y[0] = degToRad(y[0])
	}

	if err := proj.TransformRaw(src, dst, x, y, z); err != nil {
		return *coord, fmt.Errorf("transform coordinate: %w", err)
	}

	if dst.IsLatLong() {
		x[0] = radToDeg(x[0])
		y[0] = radToDeg(y[0])
	}
	return vec3.T{x[0], y[0], z[0]}, nil
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func radToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
