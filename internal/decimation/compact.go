package decimation

import (
	vec2 "github.com/flywave/go3d/float64/vec2"
	vec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/terrascene/mesh_tiler/internal/mesh"
)

type cornerKey struct {
	v int
	a int
}

// ToMesh exports the compacted decimation result. Tombstoned triangles are
// dropped, unreferenced vertices disappear and every surviving index is
// contiguous. Corners whose geometry index diverged from their attribute
// index are emitted as split output vertices that take the collapsed position
// and the original attribute data.
func (s *Simplifier) ToMesh() *mesh.Mesh {
	s.compactTriangles()

	out := &mesh.Mesh{
		Materials: append([]mesh.Material(nil), s.materials...),
		Submeshes: make([]mesh.Submesh, s.submeshCount),
	}
	for si := range out.Submeshes {
		out.Submeshes[si].MaterialIndex = s.submeshMats[si]
	}

	hasNormals := len(s.normals) > 0
	hasTangents := len(s.tangents) > 0
	hasColors := len(s.colors) > 0
	hasBones := len(s.boneWeights) > 0
	if len(s.uvs) > 0 {
		out.UVs = make([][]vec2.T, len(s.uvs))
	}

	remap := make(map[cornerKey]int)
	emit := func(v, a int) int {
		key := cornerKey{v: v, a: a}
		if idx, ok := remap[key]; ok {
			return idx
		}
		idx := len(out.Positions)
		remap[key] = idx
		out.Positions = append(out.Positions, s.vertices[v].p)
		if hasNormals {
			out.Normals = append(out.Normals, s.normals[a])
		}
		if hasTangents {
			out.Tangents = append(out.Tangents, s.tangents[a])
		}
		if hasColors {
			out.Colors = append(out.Colors, s.colors[a])
		}
		if hasBones {
			out.BoneWeights = append(out.BoneWeights, s.boneWeights[a])
		}
		for c := range s.uvs {
			if len(s.uvs[c]) > 0 {
				out.UVs[c] = append(out.UVs[c], s.uvs[c][a])
			}
		}
		return idx
	}

	for i := range s.triangles {
		t := &s.triangles[i]
		sub := &out.Submeshes[t.submesh]
		for j := 0; j < 3; j++ {
			sub.Indexes = append(sub.Indexes, emit(t.v[j], t.a[j]))
		}
	}

	if out.Positions == nil {
		out.Positions = []vec3.T{}
	}
	return out
}
