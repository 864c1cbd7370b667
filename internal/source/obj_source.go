package source

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	vec2 "github.com/flywave/go3d/float64/vec2"
	vec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/terrascene/mesh_tiler/internal/mesh"
)

// ObjModelSource reads Wavefront OBJ files. Faces with more than three
// corners are fan triangulated, usemtl statements open a submesh per
// material name and mtllib statements only contribute the material names,
// the library file itself is not resolved.
type ObjModelSource struct{}

func NewObjModelSource() *ObjModelSource {
	return &ObjModelSource{}
}

type objCorner struct {
	pos, uv, norm int
}

func (s *ObjModelSource) Load(path string) (*mesh.Mesh, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer file.Close()

	var (
		positions []vec3.T
		uvs       []vec2.T
		normals   []vec3.T
	)
	out := &mesh.Mesh{}
	materialIndexes := map[string]int{}
	submeshIndexes := map[int]int{}
	currentMaterial := -1

	// OBJ corners index position, uv and normal independently; the output
	// mesh keeps parallel arrays, so each distinct triple becomes a vertex.
	corners := map[objCorner]int{}
	emit := func(c objCorner) (int, error) {
		if idx, ok := corners[c]; ok {
			return idx, nil
		}
		if c.pos < 0 || c.pos >= len(positions) {
			return 0, fmt.Errorf("face references vertex %d of %d", c.pos+1, len(positions))
		}
		idx := len(out.Positions)
		corners[c] = idx
		out.Positions = append(out.Positions, positions[c.pos])
		if len(uvs) > 0 {
			if len(out.UVs) == 0 {
				out.UVs = [][]vec2.T{nil}
			}
			uv := vec2.T{}
			if c.uv >= 0 && c.uv < len(uvs) {
				uv = uvs[c.uv]
			}
			out.UVs[0] = append(out.UVs[0], uv)
		}
		if len(normals) > 0 {
			n := vec3.T{}
			if c.norm >= 0 && c.norm < len(normals) {
				n = normals[c.norm]
			}
			out.Normals = append(out.Normals, n)
		}
		return idx, nil
	}

	materialOf := func(name string) int {
		if idx, ok := materialIndexes[name]; ok {
			return idx
		}
		idx := len(out.Materials)
		materialIndexes[name] = idx
		out.Materials = append(out.Materials, mesh.Material{Name: name, Color: [3]byte{255, 255, 255}})
		return idx
	}

	submeshOf := func(material int) *mesh.Submesh {
		if idx, ok := submeshIndexes[material]; ok {
			return &out.Submeshes[idx]
		}
		idx := len(out.Submeshes)
		submeshIndexes[material] = idx
		out.Submeshes = append(out.Submeshes, mesh.Submesh{MaterialIndex: material})
		return &out.Submeshes[idx]
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			p, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNumber, err)
			}
			positions = append(positions, p)
		case "vn":
			n, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNumber, err)
			}
			normals = append(normals, n)
		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("%s:%d: vt needs 2 components", path, lineNumber)
			}
			u, errU := strconv.ParseFloat(fields[1], 64)
			v, errV := strconv.ParseFloat(fields[2], 64)
			if errU != nil || errV != nil {
				return nil, fmt.Errorf("%s:%d: malformed texture coordinate", path, lineNumber)
			}
			uvs = append(uvs, vec2.T{u, v})
		case "usemtl":
			if len(fields) > 1 {
				currentMaterial = materialOf(fields[1])
			}
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s:%d: face needs at least 3 corners", path, lineNumber)
			}
			if currentMaterial < 0 {
				currentMaterial = materialOf("default")
			}
			face := make([]int, 0, len(fields)-1)
			for _, spec := range fields[1:] {
				corner, err := parseCorner(spec, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %w", path, lineNumber, err)
				}
				idx, err := emit(corner)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %w", path, lineNumber, err)
				}
				face = append(face, idx)
			}
			sub := submeshOf(currentMaterial)
			for i := 2; i < len(face); i++ {
				sub.Indexes = append(sub.Indexes, face[0], face[i-1], face[i])
			}
		}
		// mtllib, o, g and s statements carry no geometry and are skipped.
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read model file %s: %w", path, err)
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("model file %s: %w", path, err)
	}
	return out, nil
}

func parseVec3(fields []string) (vec3.T, error) {
	if len(fields) < 3 {
		return vec3.T{}, fmt.Errorf("vertex needs 3 components")
	}
	var out vec3.T
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return vec3.T{}, fmt.Errorf("malformed vertex component %q", fields[i])
		}
		out[i] = v
	}
	return out, nil
}

// parseCorner resolves one v/vt/vn face corner. OBJ indices start at 1 and
// may be negative, counting back from the end of the respective array.
func parseCorner(spec string, positionCount, uvCount, normalCount int) (objCorner, error) {
	parts := strings.Split(spec, "/")
	corner := objCorner{pos: -1, uv: -1, norm: -1}

	resolve := func(raw string, count int) (int, error) {
		if raw == "" {
			return -1, nil
		}
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("malformed face index %q", raw)
		}
		if idx < 0 {
			return count + idx, nil
		}
		return idx - 1, nil
	}

	var err error
	if corner.pos, err = resolve(parts[0], positionCount); err != nil {
		return corner, err
	}
	if len(parts) > 1 {
		if corner.uv, err = resolve(parts[1], uvCount); err != nil {
			return corner, err
		}
	}
	if len(parts) > 2 {
		if corner.norm, err = resolve(parts[2], normalCount); err != nil {
			return corner, err
		}
	}
	if corner.pos < 0 {
		return corner, fmt.Errorf("face corner %q has no vertex index", spec)
	}
	return corner, nil
}
