package pkg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"

	"github.com/terrascene/mesh_tiler/internal/io"
	"github.com/terrascene/mesh_tiler/internal/tiler"
)

func writeTileset(t *testing.T, dir string, tileset *io.Tileset) {
	t.Helper()
	data, err := json.Marshal(tileset)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tileset.json"), data, 0666))
}

func verifyDir(t *testing.T, dir string) error {
	t.Helper()
	opts := tiler.DefaultTilerOptions()
	opts.Input = dir
	return NewTilerVerify().RunTiler(opts)
}

func baseTileset(contentURI string) *io.Tileset {
	return &io.Tileset{
		Asset:          io.Asset{Version: "1.1"},
		GeometricError: 8,
		Root: io.Tile{
			BoundingVolume: io.BoundingVolume{Box: []float64{0, 0, 0, 5, 0, 0, 0, 5, 0, 0, 0, 5}},
			GeometricError: 8,
			Refine:         "REPLACE",
			Children: []io.Tile{{
				BoundingVolume: io.BoundingVolume{Box: []float64{0, 0, 0, 2, 0, 0, 0, 2, 0, 0, 0, 2}},
				GeometricError: 2,
				Refine:         "REPLACE",
				Content:        &io.Content{Uri: contentURI},
			}},
		},
	}
}

func TestVerifyAcceptsValidTileset(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "content.glb"), []byte("glTF fake"), 0666))
	writeTileset(t, dir, baseTileset("content.glb"))
	require.NoError(t, verifyDir(t, dir))
}

func TestVerifyRejectsMissingContent(t *testing.T) {
	dir := t.TempDir()
	writeTileset(t, dir, baseTileset("absent.glb"))
	require.Error(t, verifyDir(t, dir))
}

func TestVerifyRejectsGrowingGeometricError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "content.glb"), []byte("glTF fake"), 0666))

	tileset := baseTileset("content.glb")
	tileset.Root.Children[0].GeometricError = 99
	writeTileset(t, dir, tileset)
	require.Error(t, verifyDir(t, dir))
}

func TestVerifyRejectsEscapingBounds(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "content.glb"), []byte("glTF fake"), 0666))

	tileset := baseTileset("content.glb")
	// Child box sticks far out of the parent along X.
	tileset.Root.Children[0].BoundingVolume.Box[0] = 50
	writeTileset(t, dir, tileset)
	require.Error(t, verifyDir(t, dir))
}

func TestVerifyRejectsMissingIndex(t *testing.T) {
	require.Error(t, verifyDir(t, t.TempDir()))
}

func TestVolumeContainsRegion(t *testing.T) {
	// west, south, east, north, minHeight, maxHeight
	parent := io.BoundingVolume{Region: []float64{0, 0, 1, 1, 0, 10}}

	t.Run("strictly inside child", func(t *testing.T) {
		child := io.BoundingVolume{Region: []float64{0.2, 0.2, 0.8, 0.8, 0, 10}}
		require.True(t, volumeContains(parent, child))
	})

	t.Run("child past the east edge", func(t *testing.T) {
		child := io.BoundingVolume{Region: []float64{0.2, 0.2, 1.5, 0.8, 0, 10}}
		require.False(t, volumeContains(parent, child))
	})

	t.Run("child past the west edge", func(t *testing.T) {
		child := io.BoundingVolume{Region: []float64{-0.5, 0.2, 0.8, 0.8, 0, 10}}
		require.False(t, volumeContains(parent, child))
	})

	t.Run("child past the north edge", func(t *testing.T) {
		child := io.BoundingVolume{Region: []float64{0.2, 0.2, 0.8, 1.5, 0, 10}}
		require.False(t, volumeContains(parent, child))
	})

	t.Run("child above the height range", func(t *testing.T) {
		child := io.BoundingVolume{Region: []float64{0.2, 0.2, 0.8, 0.8, 0, 20}}
		require.False(t, volumeContains(parent, child))
	})

	t.Run("mixed volume kinds pass", func(t *testing.T) {
		boxChild := io.BoundingVolume{Box: []float64{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1}}
		require.True(t, volumeContains(parent, boxChild))
	})
}
