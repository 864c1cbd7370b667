package spatial

import (
	"strconv"

	vec2 "github.com/flywave/go3d/float64/vec2"

	"github.com/terrascene/mesh_tiler/internal/geometry"
	"github.com/terrascene/mesh_tiler/internal/mesh"
)

// QuadrantAddress identifies a cell's position in the tiling tree as the
// sequence of 2-bit X/Y quadrant choices taken at each recursion depth.
// Choice k occupies bits 2k..2k+1, so a prefix check is a mask compare.
type QuadrantAddress struct {
	bits   uint64
	length int
}

// RootAddress is the empty address of an unsplit region.
var RootAddress = QuadrantAddress{}

// Child returns the address extended by one quadrant choice (0..3, bit 0 set
// for the upper X half, bit 1 for the upper Y half).
func (a QuadrantAddress) Child(quadrant int) QuadrantAddress {
	return QuadrantAddress{
		bits:   a.bits | uint64(quadrant&3)<<(2*a.length),
		length: a.length + 1,
	}
}

// Depth returns the number of recorded subdivision choices.
func (a QuadrantAddress) Depth() int {
	return a.length
}

// HasPrefix reports whether parent's choices are a prefix of a's.
func (a QuadrantAddress) HasPrefix(parent QuadrantAddress) bool {
	if parent.length > a.length {
		return false
	}
	mask := uint64(1)<<(2*parent.length) - 1
	return a.bits&mask == parent.bits
}

// At returns the quadrant choice taken at the given depth.
func (a QuadrantAddress) At(depth int) int {
	return int(a.bits>>(2*depth)) & 3
}

// String renders the address as quadrant digits, root first, or "root" for
// the empty address.
func (a QuadrantAddress) String() string {
	if a.length == 0 {
		return "root"
	}
	out := make([]byte, 0, a.length)
	for i := 0; i < a.length; i++ {
		out = append(out, byte('0'+a.At(i)))
	}
	return string(out)
}

// Path renders the address as a nested directory path, one digit per level.
func (a QuadrantAddress) Path() string {
	if a.length == 0 {
		return "root"
	}
	var out string
	for i := 0; i < a.length; i++ {
		if i > 0 {
			out += "/"
		}
		out += strconv.Itoa(a.At(i))
	}
	return out
}

// Cell is one leaf of a spatial split: an immutable triangle subset of the
// source mesh together with the materials those triangles actually use.
type Cell struct {
	Address         QuadrantAddress
	Depth           int
	Level           int
	Bounds          geometry.AABB
	TriangleIDs     []int
	MaterialIndexes []int

	source *mesh.Mesh
	tris   []triRec
}

// TriangleCount returns the number of triangles retained by the cell.
func (c *Cell) TriangleCount() int {
	return len(c.TriangleIDs)
}

// ExtractMesh materializes the cell content as a standalone mesh with
// contiguous indices, grouped by the cell's used materials.
func (c *Cell) ExtractMesh() *mesh.Mesh {
	out := &mesh.Mesh{}

	materialToSubmesh := make(map[int]int)
	for _, mi := range c.MaterialIndexes {
		materialToSubmesh[mi] = len(out.Submeshes)
		out.Submeshes = append(out.Submeshes, mesh.Submesh{MaterialIndex: len(out.Materials)})
		if mi < len(c.source.Materials) {
			out.Materials = append(out.Materials, c.source.Materials[mi])
		} else {
			out.Materials = append(out.Materials, mesh.Material{})
		}
	}

	hasNormals := len(c.source.Normals) > 0
	hasUV := c.source.HasUV()
	if hasUV {
		out.UVs = [][]vec2.T{nil}
	}

	remap := make(map[int]int)
	emit := func(src int) int {
		if idx, ok := remap[src]; ok {
			return idx
		}
		idx := len(out.Positions)
		remap[src] = idx
		out.Positions = append(out.Positions, c.source.Positions[src])
		if hasNormals {
			out.Normals = append(out.Normals, c.source.Normals[src])
		}
		if hasUV {
			out.UVs[0] = append(out.UVs[0], c.source.UVs[0][src])
		}
		return idx
	}

	for _, id := range c.TriangleIDs {
		tr := &c.tris[id]
		si := materialToSubmesh[tr.material]
		sub := &out.Submeshes[si]
		sub.Indexes = append(sub.Indexes,
			emit(tr.idx[0]), emit(tr.idx[1]), emit(tr.idx[2]))
	}
	return out
}
