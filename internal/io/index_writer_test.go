package io

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	vec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"

	"github.com/terrascene/mesh_tiler/internal/converters"
	"github.com/terrascene/mesh_tiler/internal/geometry"
	"github.com/terrascene/mesh_tiler/internal/lod"
	"github.com/terrascene/mesh_tiler/internal/spatial"
	"github.com/terrascene/mesh_tiler/internal/tiler"
)

func sampleTree() *lod.TileNode {
	leafBounds := geometry.NewAABB(0, 5, 0, 5, 0, 10)
	return &lod.TileNode{
		Bounds:         geometry.NewAABB(0, 10, 0, 10, 0, 10),
		GeometricError: 8,
		Refine:         tiler.RefineModeReplace,
		Children: []*lod.TileNode{{
			Bounds:         leafBounds,
			GeometricError: 2,
			Refine:         tiler.RefineModeReplace,
			Content: &lod.ContentRef{
				Level:   0,
				Address: spatial.RootAddress.Child(0),
				URI:     "lod0/0/content.glb",
				Bounds:  leafBounds,
			},
		}},
	}
}

func TestStandardIndexWriter(t *testing.T) {
	dir := t.TempDir()
	writer := NewStandardIndexWriter(dir, nil)
	opts := tiler.DefaultTilerOptions()

	require.NoError(t, writer.Write(sampleTree(), opts))

	data, err := os.ReadFile(filepath.Join(dir, "tileset.json"))
	require.NoError(t, err)

	var tileset Tileset
	require.NoError(t, json.Unmarshal(data, &tileset))
	require.Equal(t, "1.1", tileset.Asset.Version)
	require.Equal(t, 8.0, tileset.GeometricError)
	require.Equal(t, "REPLACE", tileset.Root.Refine)
	require.Len(t, tileset.Root.BoundingVolume.Box, 12)
	require.Empty(t, tileset.Root.BoundingVolume.Region)
	require.Nil(t, tileset.Root.Content)

	require.Len(t, tileset.Root.Children, 1)
	child := tileset.Root.Children[0]
	require.Equal(t, 2.0, child.GeometricError)
	require.NotNil(t, child.Content)
	require.Equal(t, "lod0/0/content.glb", child.Content.Uri)
	// Box layout: center then three half axes.
	require.Equal(t, []float64{2.5, 2.5, 5, 2.5, 0, 0, 0, 2.5, 0, 0, 0, 5}, child.BoundingVolume.Box)
}

type fakeRegionConverter struct{}

func (fakeRegionConverter) ConvertCoordinateSrid(sourceSrid, targetSrid int, coord vec3.T) (vec3.T, error) {
	return coord, nil
}

func (fakeRegionConverter) ConvertBoundingBoxToWGS84Region(bbox *geometry.AABB, sourceSrid int) ([6]float64, error) {
	return [6]float64{-math.Pi / 4, -math.Pi / 4, math.Pi / 4, math.Pi / 4, bbox.Min[2], bbox.Max[2]}, nil
}

func (fakeRegionConverter) Cleanup() {}

var _ converters.CoordinateConverter = fakeRegionConverter{}

func TestStandardIndexWriterRegion(t *testing.T) {
	dir := t.TempDir()
	writer := NewStandardIndexWriter(dir, fakeRegionConverter{})
	opts := tiler.DefaultTilerOptions()
	opts.Srid = 3857

	require.NoError(t, writer.Write(sampleTree(), opts))

	data, err := os.ReadFile(filepath.Join(dir, "tileset.json"))
	require.NoError(t, err)

	var tileset Tileset
	require.NoError(t, json.Unmarshal(data, &tileset))
	require.Len(t, tileset.Root.BoundingVolume.Region, 6)
	require.Empty(t, tileset.Root.BoundingVolume.Box)
	require.Equal(t, 10.0, tileset.Root.BoundingVolume.Region[5])
}
