package io

import (
	"github.com/terrascene/mesh_tiler/internal/geometry"
	"github.com/terrascene/mesh_tiler/internal/spatial"
)

// Serializer emits the tile content of one leaf cell. One call per cell;
// a failed call excludes that cell from the hierarchy but never aborts the
// pipeline.
type Serializer interface {
	// Emit writes the cell content under basePath and returns the content
	// reference relative to the tileset root plus the written byte size.
	Emit(cell *spatial.Cell, basePath string) (contentRef string, byteSize int64, err error)
}

// WorkUnit carries the data needed to serialize a single cell.
type WorkUnit struct {
	Cell     *spatial.Cell
	BasePath string
}

// CellResult records one successfully serialized cell.
type CellResult struct {
	Level      int
	Address    spatial.QuadrantAddress
	ContentRef string
	ByteSize   int64
	Bounds     geometry.AABB
}
