package io

import (
	"fmt"
	"os"
	"path"

	"github.com/segmentio/encoding/json"

	"github.com/terrascene/mesh_tiler/internal/converters"
	"github.com/terrascene/mesh_tiler/internal/lod"
	"github.com/terrascene/mesh_tiler/internal/tiler"
	"github.com/terrascene/mesh_tiler/tools"
)

const tilesetFileName = "tileset.json"

// IndexWriter receives the fully assembled tile hierarchy once, after all
// cell content exists.
type IndexWriter interface {
	Write(root *lod.TileNode, opts *tiler.TilerOptions) error
}

// StandardIndexWriter writes the hierarchy as a tileset.json at the output
// root. When a source SRID is configured and a coordinate converter is
// available, bounding volumes are emitted as WGS84 regions; otherwise as
// local boxes.
type StandardIndexWriter struct {
	basePath  string
	converter converters.CoordinateConverter
}

func NewStandardIndexWriter(basePath string, converter converters.CoordinateConverter) *StandardIndexWriter {
	return &StandardIndexWriter{basePath: basePath, converter: converter}
}

func (w *StandardIndexWriter) Write(root *lod.TileNode, opts *tiler.TilerOptions) error {
	rootTile, err := w.buildTile(root, opts)
	if err != nil {
		return err
	}

	tileset := Tileset{
		Asset:          Asset{Version: "1.1"},
		GeometricError: root.GeometricError,
		Root:           *rootTile,
	}

	data, err := json.MarshalIndent(tileset, "", "\t")
	if err != nil {
		return fmt.Errorf("marshal tileset: %w", err)
	}

	if err := tools.CreateDirectoryIfDoesNotExist(w.basePath); err != nil {
		return err
	}
	file := path.Join(w.basePath, tilesetFileName)
	if err := os.WriteFile(file, data, 0666); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	return nil
}

func (w *StandardIndexWriter) buildTile(node *lod.TileNode, opts *tiler.TilerOptions) (*Tile, error) {
	volume, err := w.boundingVolume(node, opts)
	if err != nil {
		return nil, err
	}

	tile := &Tile{
		BoundingVolume: volume,
		GeometricError: node.GeometricError,
		Refine:         node.Refine.String(),
	}
	if node.Content != nil {
		tile.Content = &Content{Uri: node.Content.URI}
	}

	for _, child := range node.Children {
		childTile, err := w.buildTile(child, opts)
		if err != nil {
			return nil, err
		}
		tile.Children = append(tile.Children, *childTile)
	}
	return tile, nil
}

func (w *StandardIndexWriter) boundingVolume(node *lod.TileNode, opts *tiler.TilerOptions) (BoundingVolume, error) {
	if opts.Srid != 0 && w.converter != nil {
		region, err := w.converter.ConvertBoundingBoxToWGS84Region(&node.Bounds, opts.Srid)
		if err != nil {
			return BoundingVolume{}, fmt.Errorf("bounding volume region: %w", err)
		}
		return BoundingVolume{Region: region[:]}, nil
	}

	box := node.Bounds.BoxVolume()
	return BoundingVolume{Box: box[:]}, nil
}
