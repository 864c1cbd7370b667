package source

import (
	"github.com/terrascene/mesh_tiler/internal/mesh"
)

// ModelSource loads the input model of one pipeline run. A source pointing
// at an empty model returns an empty mesh, not an error; failures are
// reserved for unreadable or malformed input.
type ModelSource interface {
	Load(path string) (*mesh.Mesh, error)
}

// MemorySource serves a mesh already held in memory, ignoring the path.
// The pipeline tests and embedding callers use it in place of file input.
type MemorySource struct {
	Mesh *mesh.Mesh
	Err  error
}

func (s *MemorySource) Load(string) (*mesh.Mesh, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Mesh == nil {
		return &mesh.Mesh{}, nil
	}
	return s.Mesh, nil
}
