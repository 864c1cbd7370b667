package mesh

import (
	"testing"

	vec2 "github.com/flywave/go3d/float64/vec2"
	vec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/stretchr/testify/require"
)

func squareMesh() *Mesh {
	return &Mesh{
		Positions: []vec3.T{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Submeshes: []Submesh{{Indexes: []int{0, 1, 2, 0, 2, 3}}},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid mesh", func(t *testing.T) {
		require.NoError(t, squareMesh().Validate())
	})

	t.Run("empty mesh", func(t *testing.T) {
		require.NoError(t, (&Mesh{}).Validate())
	})

	t.Run("normal array length mismatch", func(t *testing.T) {
		m := squareMesh()
		m.Normals = []vec3.T{{0, 0, 1}}
		require.Error(t, m.Validate())
	})

	t.Run("uv channel length mismatch", func(t *testing.T) {
		m := squareMesh()
		m.UVs = [][]vec2.T{{{0, 0}}}
		require.Error(t, m.Validate())
	})

	t.Run("index count not a triangle multiple", func(t *testing.T) {
		m := squareMesh()
		m.Submeshes[0].Indexes = []int{0, 1}
		require.Error(t, m.Validate())
	})

	t.Run("index out of range", func(t *testing.T) {
		m := squareMesh()
		m.Submeshes[0].Indexes[0] = 4
		require.Error(t, m.Validate())
	})

	t.Run("material index out of range", func(t *testing.T) {
		m := squareMesh()
		m.Materials = []Material{{Name: "a"}}
		m.Submeshes[0].MaterialIndex = 1
		require.Error(t, m.Validate())
	})
}

func TestCounts(t *testing.T) {
	m := squareMesh()
	require.Equal(t, 2, m.TriangleCount())
	require.Equal(t, 4, m.VertexCount())
	require.False(t, m.HasUV())

	m.UVs = [][]vec2.T{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}
	require.True(t, m.HasUV())
}

func TestComputeBounds(t *testing.T) {
	m := squareMesh()
	bounds := m.ComputeBounds()
	require.Equal(t, vec3.T{0, 0, 0}, bounds.Min)
	require.Equal(t, vec3.T{1, 1, 0}, bounds.Max)

	empty := (&Mesh{}).ComputeBounds()
	require.True(t, empty.IsEmpty())
}

func TestRecomputeNormals(t *testing.T) {
	m := squareMesh()
	m.RecomputeNormals()
	require.Len(t, m.Normals, 4)
	for _, n := range m.Normals {
		require.InDelta(t, 0, n[0], 1e-12)
		require.InDelta(t, 0, n[1], 1e-12)
		require.InDelta(t, 1, n[2], 1e-12)
	}
}

func TestUsedMaterialIndexes(t *testing.T) {
	submeshes := []Submesh{
		{MaterialIndex: 3, Indexes: []int{0, 1, 2}},
		{MaterialIndex: 1, Indexes: []int{0, 1, 2}},
		{MaterialIndex: 3, Indexes: []int{0, 2, 1}},
		{MaterialIndex: 7, Indexes: nil}, // empty submeshes do not count
	}
	require.Equal(t, []int{1, 3}, UsedMaterialIndexes(submeshes))
	require.Empty(t, UsedMaterialIndexes(nil))
}
