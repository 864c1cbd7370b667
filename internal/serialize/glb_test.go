package serialize

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	vec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/stretchr/testify/require"

	"github.com/terrascene/mesh_tiler/internal/geometry"
	"github.com/terrascene/mesh_tiler/internal/mesh"
	"github.com/terrascene/mesh_tiler/internal/spatial"
)

func leafCell(t *testing.T, level, maxDepth int) *spatial.Cell {
	t.Helper()
	m := &mesh.Mesh{
		Positions: []vec3.T{{1, 1, 1}, {2, 1, 1}, {1, 2, 1}},
		Submeshes: []mesh.Submesh{{Indexes: []int{0, 1, 2}}},
		Materials: []mesh.Material{{Name: "stone", Color: [3]byte{128, 128, 128}}},
	}
	m.RecomputeNormals()

	cells, err := spatial.NewSplitter(spatial.SplitterOptions{}).
		Split(context.Background(), m, geometry.NewAABB(0, 10, 0, 10, 0, 10), level, maxDepth)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	return cells[0]
}

func TestGlbSerializerEmit(t *testing.T) {
	t.Run("writes a binary gltf under the level path", func(t *testing.T) {
		dir := t.TempDir()
		cell := leafCell(t, 0, 0)

		contentRef, byteSize, err := NewGlbSerializer().Emit(cell, dir)
		require.NoError(t, err)
		require.Equal(t, "lod0/root/content.glb", contentRef)

		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(contentRef)))
		require.NoError(t, err)
		require.Equal(t, int64(len(data)), byteSize)
		// GLB magic plus version 2.
		require.GreaterOrEqual(t, len(data), 12)
		require.Equal(t, []byte("glTF"), data[:4])
		require.Equal(t, byte(2), data[4])
		require.Zero(t, len(data)%4)
		// The header's total length field covers the whole file, no bytes
		// dangle past the container.
		require.EqualValues(t, len(data), binary.LittleEndian.Uint32(data[8:12]))
	})

	t.Run("address digits become nested folders", func(t *testing.T) {
		dir := t.TempDir()
		cell := leafCell(t, 2, 2)
		require.Equal(t, 2, cell.Address.Depth())

		contentRef, _, err := NewGlbSerializer().Emit(cell, dir)
		require.NoError(t, err)
		require.Equal(t, "lod2/"+cell.Address.Path()+"/content.glb", contentRef)
		_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(contentRef)))
		require.NoError(t, err)
	})
}

func TestBuildDocument(t *testing.T) {
	cell := leafCell(t, 0, 0)
	m := cell.ExtractMesh()

	doc, err := buildDocument(m)
	require.NoError(t, err)
	require.Equal(t, "2.0", doc.Asset.Version)
	require.Len(t, doc.Meshes, 1)
	require.Len(t, doc.Meshes[0].Primitives, 1)
	require.Len(t, doc.Materials, 1)
	require.Equal(t, "stone", doc.Materials[0].Name)

	prim := doc.Meshes[0].Primitives[0]
	require.Contains(t, prim.Attributes, "POSITION")
	require.Contains(t, prim.Attributes, "NORMAL")
	require.NotNil(t, prim.Indices)

	pos := doc.Accessors[prim.Attributes["POSITION"]]
	require.Equal(t, []float32{1, 1, 1}, pos.Min)
	require.Equal(t, []float32{2, 2, 1}, pos.Max)
	require.EqualValues(t, 3, pos.Count)

	require.NotZero(t, doc.Buffers[0].ByteLength)
	require.Len(t, doc.Buffers[0].Data, int(doc.Buffers[0].ByteLength))
}

func TestBuildDocumentEmptyMesh(t *testing.T) {
	_, err := buildDocument(&mesh.Mesh{
		Positions: []vec3.T{{0, 0, 0}},
		Submeshes: []mesh.Submesh{{}},
	})
	require.Error(t, err)
}
