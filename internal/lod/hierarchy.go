package lod

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/golang/glog"

	"github.com/terrascene/mesh_tiler/internal/decimation"
	"github.com/terrascene/mesh_tiler/internal/geometry"
	"github.com/terrascene/mesh_tiler/internal/mesh"
	"github.com/terrascene/mesh_tiler/internal/spatial"
	"github.com/terrascene/mesh_tiler/internal/tiler"
)

// minQuality floors the per-level quality so the coarsest level keeps a
// renderable, non-empty mesh. The raw formula 1-(i+1)/lodLevels drives the
// last level to zero triangles, which no viewer can use.
const minQuality = 0.05

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	LodLevels          int
	MaxSplitDepth      int
	GeometricErrorBase float64
	Simplifier         decimation.Options
	Splitter           spatial.SplitterOptions
}

// LevelPlan describes one LOD level before any work happens.
type LevelPlan struct {
	Index           int
	Quality         float64
	TargetTriangles int
	SplitDepth      int
}

// Level is one finished LOD level: its simplified mesh and spatial cells.
// Level 0 is closest to full fidelity, the final level the coarsest. Each
// level owns its own spatial tree.
type Level struct {
	LevelPlan
	Mesh  *mesh.Mesh
	Cells []*spatial.Cell
}

// Builder runs the simplifier at several quality levels, splits each level
// spatially and assembles the tile tree.
type Builder struct {
	opts BuilderOptions
}

// NewBuilder validates the options and builds a Builder.
func NewBuilder(opts BuilderOptions) (*Builder, error) {
	if opts.LodLevels < 1 {
		return nil, fmt.Errorf("lod builder: lodLevels must be >= 1, got %d", opts.LodLevels)
	}
	if opts.MaxSplitDepth < 0 {
		return nil, fmt.Errorf("lod builder: maxSplitDepth must be >= 0, got %d", opts.MaxSplitDepth)
	}
	if opts.GeometricErrorBase <= 0 {
		opts.GeometricErrorBase = 1.0
	}
	return &Builder{opts: opts}, nil
}

// PlanLevels derives the per-level quality targets. Quality is floored so the
// coarsest level never degenerates to an empty mesh, and coarser levels use
// shallower split depths so that a finer level's cell addresses extend the
// coarser level's by exactly one quadrant choice.
func (b *Builder) PlanLevels(originalTriangleCount int) []LevelPlan {
	plans := make([]LevelPlan, b.opts.LodLevels)
	for i := range plans {
		quality := 1 - float64(i+1)/float64(b.opts.LodLevels)
		if quality < minQuality {
			quality = minQuality
		}
		target := int(math.Round(quality * float64(originalTriangleCount)))
		if target < 1 {
			target = 1
		}
		depth := b.opts.MaxSplitDepth - i
		if depth < 0 {
			depth = 0
		}
		plans[i] = LevelPlan{
			Index:           i,
			Quality:         quality,
			TargetTriangles: target,
			SplitDepth:      depth,
		}
	}
	return plans
}

// BuildLevel decimates the source mesh to the plan's target and splits the
// result spatially. The source mesh is only read; every level owns its own
// simplifier and splitter instance.
func (b *Builder) BuildLevel(ctx context.Context, source *mesh.Mesh, bounds geometry.AABB, plan LevelPlan) (*Level, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	simplifier := decimation.NewSimplifier(b.opts.Simplifier)
	if err := simplifier.Initialize(source); err != nil {
		return nil, fmt.Errorf("level %d: %w", plan.Index, err)
	}
	if err := simplifier.Decimate(plan.TargetTriangles); err != nil {
		return nil, fmt.Errorf("level %d: %w", plan.Index, err)
	}
	simplified := simplifier.ToMesh()

	splitter := spatial.NewSplitter(b.opts.Splitter)
	cells, err := splitter.Split(ctx, simplified, bounds, plan.Index, plan.SplitDepth)
	if err != nil {
		return nil, fmt.Errorf("level %d: %w", plan.Index, err)
	}

	return &Level{LevelPlan: plan, Mesh: simplified, Cells: cells}, nil
}

// BuildLevels runs every planned level, concurrently when parallel is set.
// A level that fails is skipped with a warning; the hierarchy is still built
// from the remaining levels. On cancellation the completed levels are
// returned.
func (b *Builder) BuildLevels(ctx context.Context, source *mesh.Mesh, bounds geometry.AABB, parallel bool) []*Level {
	plans := b.PlanLevels(source.TriangleCount())
	results := make([]*Level, len(plans))
	errs := make([]error, len(plans))

	if parallel {
		var wg sync.WaitGroup
		for i := range plans {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = b.BuildLevel(ctx, source, bounds, plans[i])
			}(i)
		}
		wg.Wait()
	} else {
		for i := range plans {
			results[i], errs[i] = b.BuildLevel(ctx, source, bounds, plans[i])
		}
	}

	levels := make([]*Level, 0, len(plans))
	for i := range plans {
		if errs[i] != nil {
			glog.Warningf("lod level %d skipped: %v", plans[i].Index, errs[i])
			continue
		}
		levels = append(levels, results[i])
	}
	return levels
}

// LevelGeometricError returns the error assigned to every node of a LOD
// level: baseThreshold * 2^levelIndex, so the finest level carries the base
// threshold and each coarser level doubles it.
func (b *Builder) LevelGeometricError(levelIndex int) float64 {
	return b.opts.GeometricErrorBase * math.Pow(2, float64(levelIndex))
}

// RootGeometricError returns baseThreshold * 2^lodLevels, the maximum of the
// tree.
func (b *Builder) RootGeometricError() float64 {
	return b.opts.GeometricErrorBase * math.Pow(2, float64(b.opts.LodLevels))
}

// BuildTree assembles the refinement hierarchy from the finished levels.
// Cells are linked parent to child between adjacent LOD levels when the finer
// cell's quadrant address extends the coarser cell's address by one choice;
// cells with no such parent attach to the root grouping node. Only cells with
// an entry in content become tile nodes: a cell whose serialization failed is
// excluded, never fatal.
func (b *Builder) BuildTree(levels []*Level, modelBounds geometry.AABB, content map[CellKey]*ContentRef) *TileNode {
	root := &TileNode{
		Bounds:         modelBounds,
		GeometricError: b.RootGeometricError(),
		Refine:         tiler.RefineModeReplace,
	}

	// Coarsest level first so parents exist before their children.
	byLevel := make(map[int]map[spatial.QuadrantAddress]*TileNode)
	for i := len(levels) - 1; i >= 0; i-- {
		level := levels[i]
		nodes := make(map[spatial.QuadrantAddress]*TileNode)
		byLevel[level.Index] = nodes

		for _, cell := range level.Cells {
			ref, ok := content[CellKey{Level: level.Index, Address: cell.Address}]
			if !ok {
				continue
			}

			node := &TileNode{
				Bounds:         cell.Bounds,
				GeometricError: b.LevelGeometricError(level.Index),
				Refine:         tiler.RefineModeReplace,
				Content:        ref,
			}
			nodes[cell.Address] = node

			parent := b.findParent(levels, byLevel, i, cell)
			if parent == nil {
				parent = root
			}
			parent.Children = append(parent.Children, node)
		}
	}
	return root
}

// findParent looks for a node of the next coarser built level whose address
// is the immediate prefix of the cell's address.
func (b *Builder) findParent(levels []*Level, byLevel map[int]map[spatial.QuadrantAddress]*TileNode, levelPos int, cell *spatial.Cell) *TileNode {
	if levelPos+1 >= len(levels) {
		return nil
	}
	coarser := byLevel[levels[levelPos+1].Index]
	if coarser == nil || cell.Address.Depth() == 0 {
		return nil
	}

	// Drop the last quadrant choice to get the would-be parent address.
	parentAddr := spatial.RootAddress
	for d := 0; d < cell.Address.Depth()-1; d++ {
		parentAddr = parentAddr.Child(cell.Address.At(d))
	}
	if node, ok := coarser[parentAddr]; ok && cell.Address.HasPrefix(parentAddr) {
		return node
	}
	return nil
}
