package lod

import (
	"context"
	"testing"

	vec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/stretchr/testify/require"

	"github.com/terrascene/mesh_tiler/internal/geometry"
	"github.com/terrascene/mesh_tiler/internal/mesh"
	"github.com/terrascene/mesh_tiler/internal/tiler"
)

// flatGrid returns an (n x n quads) mesh in the z=0 plane spanning [0,n]^2.
func flatGrid(n int) *mesh.Mesh {
	m := &mesh.Mesh{}
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			m.Positions = append(m.Positions, vec3.T{float64(x), float64(y), 0})
		}
	}
	sub := mesh.Submesh{}
	stride := n + 1
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i0 := y*stride + x
			sub.Indexes = append(sub.Indexes, i0, i0+1, i0+stride+1, i0, i0+stride+1, i0+stride)
		}
	}
	m.Submeshes = []mesh.Submesh{sub}
	return m
}

func TestNewBuilder(t *testing.T) {
	_, err := NewBuilder(BuilderOptions{LodLevels: 0})
	require.Error(t, err)

	_, err = NewBuilder(BuilderOptions{LodLevels: 1, MaxSplitDepth: -1})
	require.Error(t, err)

	b, err := NewBuilder(BuilderOptions{LodLevels: 2, MaxSplitDepth: 1})
	require.NoError(t, err)
	require.NotNil(t, b)
}

func TestPlanLevels(t *testing.T) {
	b, err := NewBuilder(BuilderOptions{LodLevels: 3, MaxSplitDepth: 2})
	require.NoError(t, err)

	plans := b.PlanLevels(300)
	require.Len(t, plans, 3)

	require.InDelta(t, 2.0/3.0, plans[0].Quality, 1e-9)
	require.InDelta(t, 1.0/3.0, plans[1].Quality, 1e-9)
	// The raw formula yields zero for the last level; it is floored instead.
	require.InDelta(t, 0.05, plans[2].Quality, 1e-9)

	require.Equal(t, 200, plans[0].TargetTriangles)
	require.Equal(t, 100, plans[1].TargetTriangles)
	require.Equal(t, 15, plans[2].TargetTriangles)

	// Finest level splits deepest, each coarser level one less.
	require.Equal(t, 2, plans[0].SplitDepth)
	require.Equal(t, 1, plans[1].SplitDepth)
	require.Equal(t, 0, plans[2].SplitDepth)
}

func TestPlanLevelsTargetFloor(t *testing.T) {
	b, err := NewBuilder(BuilderOptions{LodLevels: 4})
	require.NoError(t, err)
	for _, plan := range b.PlanLevels(2) {
		require.GreaterOrEqual(t, plan.TargetTriangles, 1)
	}
}

func TestGeometricError(t *testing.T) {
	b, err := NewBuilder(BuilderOptions{LodLevels: 3, GeometricErrorBase: 2})
	require.NoError(t, err)

	require.InDelta(t, 2, b.LevelGeometricError(0), 1e-9)
	require.InDelta(t, 4, b.LevelGeometricError(1), 1e-9)
	require.InDelta(t, 8, b.LevelGeometricError(2), 1e-9)
	// The content-less root carries one more doubling than the coarsest
	// level, so a traversal always refines past it into real content.
	require.InDelta(t, 2*b.LevelGeometricError(2), b.RootGeometricError(), 1e-9)
	require.InDelta(t, 16, b.RootGeometricError(), 1e-9)
}

func TestBuildLevels(t *testing.T) {
	m := flatGrid(4)
	bounds := m.ComputeBounds()

	for _, parallel := range []bool{false, true} {
		b, err := NewBuilder(BuilderOptions{LodLevels: 2, MaxSplitDepth: 1})
		require.NoError(t, err)

		levels := b.BuildLevels(context.Background(), m, bounds, parallel)
		require.Len(t, levels, 2, "parallel=%v", parallel)

		for _, level := range levels {
			require.NotNil(t, level.Mesh)
			require.NotEmpty(t, level.Cells)
			require.LessOrEqual(t, level.Mesh.TriangleCount(), 32)
			for _, cell := range level.Cells {
				require.Equal(t, level.Index, cell.Level)
				require.LessOrEqual(t, cell.Address.Depth(), level.SplitDepth)
			}
		}
	}
}

func TestBuildLevelsHitsPlannedTargets(t *testing.T) {
	m := flatGrid(10)
	require.Equal(t, 200, m.TriangleCount())
	bounds := m.ComputeBounds()

	b, err := NewBuilder(BuilderOptions{LodLevels: 3, MaxSplitDepth: 1})
	require.NoError(t, err)

	plans := b.PlanLevels(m.TriangleCount())
	levels := b.BuildLevels(context.Background(), m, bounds, false)
	require.Len(t, levels, 3)

	// The collapse sweep stops as soon as the live count reaches the target,
	// so a level lands on its planned budget give or take one collapse. On a
	// flat grid every collapse is near zero error, so no level stalls early.
	require.InDelta(t, plans[0].TargetTriangles, levels[0].Mesh.TriangleCount(), 2)
	require.InDelta(t, plans[1].TargetTriangles, levels[1].Mesh.TriangleCount(), 2)
	require.Less(t, levels[1].Mesh.TriangleCount(), levels[0].Mesh.TriangleCount())
	require.Less(t, levels[2].Mesh.TriangleCount(), levels[1].Mesh.TriangleCount())
	// A collapse removes at most two triangles, so the coarsest level never
	// drops more than that below its floor.
	require.GreaterOrEqual(t, levels[2].Mesh.TriangleCount(), plans[2].TargetTriangles-2)
}

func TestBuildLevelCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, err := NewBuilder(BuilderOptions{LodLevels: 1})
	require.NoError(t, err)

	m := flatGrid(2)
	_, err = b.BuildLevel(ctx, m, m.ComputeBounds(), LevelPlan{TargetTriangles: 8})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildTree(t *testing.T) {
	m := flatGrid(4)
	bounds := m.ComputeBounds()

	b, err := NewBuilder(BuilderOptions{LodLevels: 2, MaxSplitDepth: 1, GeometricErrorBase: 1})
	require.NoError(t, err)

	levels := b.BuildLevels(context.Background(), m, bounds, false)
	require.Len(t, levels, 2)

	content := map[CellKey]*ContentRef{}
	for _, level := range levels {
		for _, cell := range level.Cells {
			key := CellKey{Level: level.Index, Address: cell.Address}
			content[key] = &ContentRef{
				Level:   level.Index,
				Address: cell.Address,
				URI:     "lod" + cell.Address.String(),
				Bounds:  cell.Bounds,
			}
		}
	}

	root := b.BuildTree(levels, bounds, content)
	require.Equal(t, b.RootGeometricError(), root.GeometricError)
	require.Nil(t, root.Content)
	require.Equal(t, len(content)+1, root.NodeCount())

	root.Walk(func(node, parent *TileNode) {
		require.Equal(t, tiler.RefineModeReplace, node.Refine)
		if parent != nil {
			require.LessOrEqual(t, node.GeometricError, parent.GeometricError)
			if parent.Content != nil && node.Content != nil {
				// A child one level finer extends its parent's address by
				// exactly one quadrant choice.
				require.True(t, node.Content.Address.HasPrefix(parent.Content.Address))
				require.Equal(t, parent.Content.Address.Depth()+1, node.Content.Address.Depth())
			}
		}
	})
}

func TestBuildTreeSkipsMissingContent(t *testing.T) {
	m := flatGrid(4)
	bounds := m.ComputeBounds()

	b, err := NewBuilder(BuilderOptions{LodLevels: 1, MaxSplitDepth: 1})
	require.NoError(t, err)

	levels := b.BuildLevels(context.Background(), m, bounds, false)
	require.Len(t, levels, 1)
	require.NotEmpty(t, levels[0].Cells)

	// Only one cell got serialized; the others must not become nodes.
	first := levels[0].Cells[0]
	content := map[CellKey]*ContentRef{
		{Level: 0, Address: first.Address}: {Level: 0, Address: first.Address, URI: "only"},
	}

	root := b.BuildTree(levels, bounds, content)
	require.Equal(t, 2, root.NodeCount())
	require.Len(t, root.Children, 1)
	require.Equal(t, "only", root.Children[0].Content.URI)

	emptyRoot := b.BuildTree(levels, bounds, map[CellKey]*ContentRef{})
	require.Equal(t, 1, emptyRoot.NodeCount())
}

func TestBuildLevelsSkipsFailedLevel(t *testing.T) {
	// A mesh with a broken attribute array fails simplifier initialization
	// for every level; the builder returns no levels instead of failing.
	m := flatGrid(2)
	m.Normals = []vec3.T{{0, 0, 1}}

	b, err := NewBuilder(BuilderOptions{LodLevels: 2})
	require.NoError(t, err)

	levels := b.BuildLevels(context.Background(), m, geometry.NewAABB(0, 2, 0, 2, 0, 0), false)
	require.Empty(t, levels)
}
