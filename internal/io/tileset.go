package io

// 3D Tiles tileset.json document model.

type Tileset struct {
	Asset          Asset   `json:"asset"`
	GeometricError float64 `json:"geometricError"`
	Root           Tile    `json:"root"`
}

type Asset struct {
	Version string `json:"version"`
}

// BoundingVolume holds either a 12-value box (center plus three half-extent
// axes) or a 6-value WGS84 region.
type BoundingVolume struct {
	Box    []float64 `json:"box,omitempty"`
	Region []float64 `json:"region,omitempty"`
}

type Content struct {
	Uri string `json:"uri"`
}

type Tile struct {
	BoundingVolume BoundingVolume `json:"boundingVolume"`
	GeometricError float64        `json:"geometricError"`
	Refine         string         `json:"refine,omitempty"`
	Content        *Content       `json:"content,omitempty"`
	Children       []Tile         `json:"children,omitempty"`
}
