package spatial

import (
	"context"
	"sort"
	"sync"

	vec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/terrascene/mesh_tiler/internal/geometry"
	"github.com/terrascene/mesh_tiler/internal/mesh"
)

// SplitterOptions configures a Splitter.
type SplitterOptions struct {
	// EnableParallel fans the recursion out into one goroutine per non-empty
	// quadrant. Sibling quadrants only read the shared triangle table, so no
	// locking is needed; results are joined before the parent returns.
	EnableParallel bool
}

// Splitter recursively partitions a mesh into axis aligned spatial cells by
// quartering the bounding box along the X and Y midpoints. The Z extent is
// inherited unchanged at every depth. Triangle membership uses the exact
// separating axis test and a triangle spanning a cell boundary is retained by
// every cell it touches; duplication across boundaries is intentional, a
// triangle is never lost.
type Splitter struct {
	opts SplitterOptions
}

// NewSplitter builds a Splitter.
func NewSplitter(opts SplitterOptions) *Splitter {
	return &Splitter{opts: opts}
}

type triRec struct {
	idx      [3]int
	p        [3]vec3.T
	material int
}

type splitRun struct {
	source   *mesh.Mesh
	tris     []triRec
	level    int
	maxDepth int
	parallel bool
}

// Split partitions the mesh into the leaf cells of a quadtree of the given
// depth. Cells that end up with no triangles are dropped, which is not an
// error. The level tag is carried into every produced cell.
func (s *Splitter) Split(ctx context.Context, m *mesh.Mesh, bounds geometry.AABB, level, maxDepth int) ([]*Cell, error) {
	tris := flattenTriangles(m)

	run := &splitRun{
		source:   m,
		tris:     tris,
		level:    level,
		maxDepth: maxDepth,
		parallel: s.opts.EnableParallel,
	}

	ids := make([]int, len(tris))
	for i := range ids {
		ids[i] = i
	}

	return run.recurse(ctx, ids, bounds, RootAddress)
}

func flattenTriangles(m *mesh.Mesh) []triRec {
	var tris []triRec
	for _, sub := range m.Submeshes {
		for i := 0; i+2 < len(sub.Indexes); i += 3 {
			tris = append(tris, triRec{
				idx: [3]int{sub.Indexes[i], sub.Indexes[i+1], sub.Indexes[i+2]},
				p: [3]vec3.T{
					m.Positions[sub.Indexes[i]],
					m.Positions[sub.Indexes[i+1]],
					m.Positions[sub.Indexes[i+2]],
				},
				material: sub.MaterialIndex,
			})
		}
	}
	return tris
}

func (r *splitRun) recurse(ctx context.Context, ids []int, bounds geometry.AABB, addr QuadrantAddress) ([]*Cell, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if addr.Depth() >= r.maxDepth {
		return []*Cell{r.makeLeaf(ids, bounds, addr)}, nil
	}

	center := bounds.Center()
	var childIDs [4][]int
	var childBounds [4]geometry.AABB
	for q := 0; q < 4; q++ {
		box := bounds
		if q&1 == 0 {
			box.Max[0] = center[0]
		} else {
			box.Min[0] = center[0]
		}
		if q&2 == 0 {
			box.Max[1] = center[1]
		} else {
			box.Min[1] = center[1]
		}
		childBounds[q] = box

		c := box.Center()
		h := box.HalfExtents()
		for _, id := range ids {
			t := &r.tris[id]
			if TriangleIntersectsBox(&t.p[0], &t.p[1], &t.p[2], &c, &h) {
				childIDs[q] = append(childIDs[q], id)
			}
		}
	}

	var results [4][]*Cell
	var errs [4]error

	if r.parallel {
		var wg sync.WaitGroup
		for q := 0; q < 4; q++ {
			if len(childIDs[q]) == 0 {
				continue
			}
			wg.Add(1)
			go func(q int) {
				defer wg.Done()
				results[q], errs[q] = r.recurse(ctx, childIDs[q], childBounds[q], addr.Child(q))
			}(q)
		}
		wg.Wait()
	} else {
		for q := 0; q < 4; q++ {
			if len(childIDs[q]) == 0 {
				continue
			}
			results[q], errs[q] = r.recurse(ctx, childIDs[q], childBounds[q], addr.Child(q))
		}
	}

	var cells []*Cell
	for q := 0; q < 4; q++ {
		if errs[q] != nil {
			return nil, errs[q]
		}
		cells = append(cells, results[q]...)
	}
	return cells, nil
}

func (r *splitRun) makeLeaf(ids []int, bounds geometry.AABB, addr QuadrantAddress) *Cell {
	seen := map[int]bool{}
	var used []int
	for _, id := range ids {
		mi := r.tris[id].material
		if !seen[mi] {
			seen[mi] = true
			used = append(used, mi)
		}
	}
	sort.Ints(used)

	return &Cell{
		Address:         addr,
		Depth:           addr.Depth(),
		Level:           r.level,
		Bounds:          bounds,
		TriangleIDs:     ids,
		MaterialIndexes: used,
		source:          r.source,
		tris:            r.tris,
	}
}
