package serialize

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"

	"github.com/terrascene/mesh_tiler/internal/mesh"
	"github.com/terrascene/mesh_tiler/internal/spatial"
	"github.com/terrascene/mesh_tiler/tools"
)

const (
	gltfVersion     = "2.0"
	contentFileName = "content.glb"
)

// GlbSerializer writes the content of one leaf cell as a binary glTF file
// under <basePath>/lod<level>/<address path>/content.glb.
type GlbSerializer struct{}

func NewGlbSerializer() *GlbSerializer {
	return &GlbSerializer{}
}

func (s *GlbSerializer) Emit(cell *spatial.Cell, basePath string) (string, int64, error) {
	m := cell.ExtractMesh()
	if m.VertexCount() == 0 || m.TriangleCount() == 0 {
		return "", 0, fmt.Errorf("cell %s carries no triangles", cell.Address.String())
	}

	doc, err := buildDocument(m)
	if err != nil {
		return "", 0, fmt.Errorf("build glTF document for cell %s: %w", cell.Address.String(), err)
	}
	data, err := encodeBinary(doc)
	if err != nil {
		return "", 0, fmt.Errorf("encode cell %s: %w", cell.Address.String(), err)
	}

	rel := filepath.Join(fmt.Sprintf("lod%d", cell.Level), cell.Address.Path(), contentFileName)
	full := filepath.Join(basePath, rel)
	if err := tools.CreateDirectoryIfDoesNotExist(filepath.Dir(full)); err != nil {
		return "", 0, err
	}
	if err := os.WriteFile(full, data, 0666); err != nil {
		return "", 0, err
	}
	return filepath.ToSlash(rel), int64(len(data)), nil
}

// buildDocument packs the mesh into a single-buffer glTF document with one
// node and one primitive per submesh.
func buildDocument(m *mesh.Mesh) (*gltf.Document, error) {
	doc := &gltf.Document{}
	doc.Asset.Version = gltfVersion
	sceneIndex := uint32(0)
	doc.Scene = &sceneIndex
	doc.Scenes = append(doc.Scenes, &gltf.Scene{Nodes: []uint32{0}})
	meshIndex := uint32(0)
	doc.Nodes = append(doc.Nodes, &gltf.Node{Mesh: &meshIndex})
	doc.Buffers = append(doc.Buffers, &gltf.Buffer{})

	hasNormals := len(m.Normals) == len(m.Positions) && len(m.Positions) > 0
	hasUV := m.HasUV()

	buf := bytes.NewBuffer(nil)

	// Index data for all submeshes shares one buffer view, each submesh gets
	// its own accessor window into it.
	indexView := uint32(len(doc.BufferViews))
	indexStart := buf.Len()
	for _, sub := range m.Submeshes {
		for _, idx := range sub.Indexes {
			binary.Write(buf, binary.LittleEndian, uint32(idx))
		}
	}
	doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: uint32(indexStart),
		ByteLength: uint32(buf.Len() - indexStart),
		Target:     gltf.TargetElementArrayBuffer,
	})

	positionView := uint32(len(doc.BufferViews))
	positionStart := buf.Len()
	min := [3]float32{float32(m.Positions[0][0]), float32(m.Positions[0][1]), float32(m.Positions[0][2])}
	max := min
	for i := range m.Positions {
		p := [3]float32{float32(m.Positions[i][0]), float32(m.Positions[i][1]), float32(m.Positions[i][2])}
		for c := 0; c < 3; c++ {
			if p[c] < min[c] {
				min[c] = p[c]
			}
			if p[c] > max[c] {
				max[c] = p[c]
			}
		}
		binary.Write(buf, binary.LittleEndian, p)
	}
	doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: uint32(positionStart),
		ByteLength: uint32(buf.Len() - positionStart),
		Target:     gltf.TargetArrayBuffer,
	})

	var normalView uint32
	if hasNormals {
		normalView = uint32(len(doc.BufferViews))
		normalStart := buf.Len()
		for i := range m.Normals {
			binary.Write(buf, binary.LittleEndian,
				[3]float32{float32(m.Normals[i][0]), float32(m.Normals[i][1]), float32(m.Normals[i][2])})
		}
		doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
			Buffer:     0,
			ByteOffset: uint32(normalStart),
			ByteLength: uint32(buf.Len() - normalStart),
			Target:     gltf.TargetArrayBuffer,
		})
	}

	var uvView uint32
	if hasUV {
		uvView = uint32(len(doc.BufferViews))
		uvStart := buf.Len()
		for i := range m.UVs[0] {
			binary.Write(buf, binary.LittleEndian,
				[2]float32{float32(m.UVs[0][i][0]), float32(m.UVs[0][i][1])})
		}
		doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
			Buffer:     0,
			ByteOffset: uint32(uvStart),
			ByteLength: uint32(buf.Len() - uvStart),
			Target:     gltf.TargetArrayBuffer,
		})
	}

	doc.Buffers[0].ByteLength = uint32(buf.Len())
	doc.Buffers[0].Data = buf.Bytes()

	positionAccessor := uint32(len(doc.Accessors))
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    &positionView,
		ComponentType: gltf.ComponentFloat,
		Type:          gltf.AccessorVec3,
		Count:         uint32(len(m.Positions)),
		Min:           []float32{min[0], min[1], min[2]},
		Max:           []float32{max[0], max[1], max[2]},
	})
	var normalAccessor uint32
	if hasNormals {
		normalAccessor = uint32(len(doc.Accessors))
		doc.Accessors = append(doc.Accessors, &gltf.Accessor{
			BufferView:    &normalView,
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec3,
			Count:         uint32(len(m.Normals)),
		})
	}
	var uvAccessor uint32
	if hasUV {
		uvAccessor = uint32(len(doc.Accessors))
		doc.Accessors = append(doc.Accessors, &gltf.Accessor{
			BufferView:    &uvView,
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec2,
			Count:         uint32(len(m.UVs[0])),
		})
	}

	for i := range m.Materials {
		doc.Materials = append(doc.Materials, materialOf(&m.Materials[i]))
	}

	out := &gltf.Mesh{}
	indexOffset := uint32(0)
	for _, sub := range m.Submeshes {
		if len(sub.Indexes) == 0 {
			continue
		}
		indexAccessor := uint32(len(doc.Accessors))
		doc.Accessors = append(doc.Accessors, &gltf.Accessor{
			BufferView:    &indexView,
			ByteOffset:    indexOffset * 4,
			ComponentType: gltf.ComponentUint,
			Type:          gltf.AccessorScalar,
			Count:         uint32(len(sub.Indexes)),
		})
		indexOffset += uint32(len(sub.Indexes))

		prim := &gltf.Primitive{
			Mode:       gltf.PrimitiveTriangles,
			Indices:    &indexAccessor,
			Attributes: gltf.Attribute{"POSITION": positionAccessor},
		}
		if hasNormals {
			prim.Attributes["NORMAL"] = normalAccessor
		}
		if hasUV {
			prim.Attributes["TEXCOORD_0"] = uvAccessor
		}
		if sub.MaterialIndex < len(doc.Materials) {
			materialIndex := uint32(sub.MaterialIndex)
			prim.Material = &materialIndex
		}
		out.Primitives = append(out.Primitives, prim)
	}
	if len(out.Primitives) == 0 {
		return nil, fmt.Errorf("mesh has no non-empty submesh")
	}
	doc.Meshes = append(doc.Meshes, out)
	return doc, nil
}

func materialOf(mt *mesh.Material) *gltf.Material {
	color := &[4]float32{
		float32(mt.Color[0]) / 255,
		float32(mt.Color[1]) / 255,
		float32(mt.Color[2]) / 255,
		1 - float32(mt.Transparency),
	}
	out := &gltf.Material{
		Name:        mt.Name,
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: color,
		},
	}
	if mt.Transparency > 0 {
		out.AlphaMode = gltf.AlphaBlend
	}
	return out
}

// encodeBinary writes the document as GLB. The encoder aligns its own
// chunks, so the container length in the header stays authoritative.
func encodeBinary(doc *gltf.Document) ([]byte, error) {
	w := bytes.NewBuffer(nil)
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
