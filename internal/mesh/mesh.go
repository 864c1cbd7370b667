package mesh

import (
	"fmt"

	vec2 "github.com/flywave/go3d/float64/vec2"
	vec3 "github.com/flywave/go3d/float64/vec3"
	vec4 "github.com/flywave/go3d/float64/vec4"

	"github.com/terrascene/mesh_tiler/internal/geometry"
)

// BoneWeight binds a vertex to up to four bones.
type BoneWeight struct {
	BoneIndexes [4]int32
	Weights     [4]float64
}

// Submesh groups the triangles that share one material. Indexes is a flat
// list of vertex index triples.
type Submesh struct {
	MaterialIndex int
	Indexes       []int
}

// Mesh is the generic in-memory triangle mesh shared across the pipeline.
// Positions is the only mandatory array; every attribute array present must
// be parallel to it.
type Mesh struct {
	Positions   []vec3.T
	Normals     []vec3.T
	Tangents    []vec4.T
	UVs         [][]vec2.T // indexed UV channels, channel 0 is the primary one
	Colors      []vec4.T
	BoneWeights []BoneWeight

	Submeshes []Submesh
	Materials []Material
}

// Validate checks the structural invariants of the mesh. Attribute arrays,
// when present, must match the vertex count and every triangle index must
// reference a live vertex. Violations are invalid-argument failures raised
// here, before any processing starts.
func (m *Mesh) Validate() error {
	vertexCount := len(m.Positions)

	checkLen := func(name string, n int) error {
		if n != 0 && n != vertexCount {
			return fmt.Errorf("mesh attribute array %s has length %d, expected %d", name, n, vertexCount)
		}
		return nil
	}

	if err := checkLen("normals", len(m.Normals)); err != nil {
		return err
	}
	if err := checkLen("tangents", len(m.Tangents)); err != nil {
		return err
	}
	if err := checkLen("colors", len(m.Colors)); err != nil {
		return err
	}
	if err := checkLen("boneWeights", len(m.BoneWeights)); err != nil {
		return err
	}
	for channel, uv := range m.UVs {
		if err := checkLen(fmt.Sprintf("uv%d", channel), len(uv)); err != nil {
			return err
		}
	}

	for si, sub := range m.Submeshes {
		if len(sub.Indexes)%3 != 0 {
			return fmt.Errorf("submesh %d index count %d is not a multiple of 3", si, len(sub.Indexes))
		}
		if sub.MaterialIndex < 0 || (len(m.Materials) > 0 && sub.MaterialIndex >= len(m.Materials)) {
			return fmt.Errorf("submesh %d references material %d of %d", si, sub.MaterialIndex, len(m.Materials))
		}
		for _, idx := range sub.Indexes {
			if idx < 0 || idx >= vertexCount {
				return fmt.Errorf("submesh %d references vertex %d of %d", si, idx, vertexCount)
			}
		}
	}

	return nil
}

// TriangleCount returns the total triangle count across all submeshes.
func (m *Mesh) TriangleCount() int {
	count := 0
	for _, sub := range m.Submeshes {
		count += len(sub.Indexes) / 3
	}
	return count
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// HasUV reports whether the primary UV channel is populated.
func (m *Mesh) HasUV() bool {
	return len(m.UVs) > 0 && len(m.UVs[0]) == len(m.Positions)
}

// ComputeBounds returns the bounding box of all vertex positions. A mesh with
// no vertices yields an empty box.
func (m *Mesh) ComputeBounds() geometry.AABB {
	box := geometry.EmptyAABB()
	for i := range m.Positions {
		box.Extend(&m.Positions[i])
	}
	return box
}

// RecomputeNormals rebuilds the per-vertex normal array from area weighted
// face normals.
func (m *Mesh) RecomputeNormals() {
	normals := make([]vec3.T, len(m.Positions))
	for _, sub := range m.Submeshes {
		for i := 0; i+2 < len(sub.Indexes); i += 3 {
			i0, i1, i2 := sub.Indexes[i], sub.Indexes[i+1], sub.Indexes[i+2]
			e1 := vec3.Sub(&m.Positions[i1], &m.Positions[i0])
			e2 := vec3.Sub(&m.Positions[i2], &m.Positions[i0])
			n := vec3.Cross(&e1, &e2)
			if n.Length() == 0 {
				continue
			}
			normals[i0].Add(&n)
			normals[i1].Add(&n)
			normals[i2].Add(&n)
		}
	}
	for i := range normals {
		if normals[i].Length() > 0 {
			normals[i].Normalize()
		}
	}
	m.Normals = normals
}
