package converters

import (
	vec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/terrascene/mesh_tiler/internal/geometry"
)

type CoordinateConverter interface {
	ConvertCoordinateSrid(sourceSrid int, targetSrid int, coord vec3.T) (vec3.T, error)
	// ConvertBoundingBoxToWGS84Region converts the X/Y footprint of the box to
	// a 3D Tiles region: [west, south, east, north, minHeight, maxHeight],
	// angles in radians.
	ConvertBoundingBoxToWGS84Region(bbox *geometry.AABB, sourceSrid int) ([6]float64, error)
	Cleanup()
}
