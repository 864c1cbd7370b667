package lod

import (
	"github.com/terrascene/mesh_tiler/internal/geometry"
	"github.com/terrascene/mesh_tiler/internal/spatial"
	"github.com/terrascene/mesh_tiler/internal/tiler"
)

// ContentRef points at the serialized content of one spatial cell.
type ContentRef struct {
	Level    int
	Address  spatial.QuadrantAddress
	URI      string
	ByteSize int64
	Bounds   geometry.AABB
}

// CellKey identifies a cell across LOD levels.
type CellKey struct {
	Level   int
	Address spatial.QuadrantAddress
}

// TileNode is one node of the refinement hierarchy. A node without content is
// a pure grouping node. Children always carry a geometric error less than or
// equal to their parent's, and refinement is always REPLACE: a viewer swaps
// parent content for child content, never blends them.
type TileNode struct {
	Bounds         geometry.AABB
	GeometricError float64
	Refine         tiler.RefineMode
	Content        *ContentRef
	Children       []*TileNode
}

// Walk visits the node and all descendants depth first.
func (n *TileNode) Walk(visit func(node *TileNode, parent *TileNode)) {
	var rec func(node, parent *TileNode)
	rec = func(node, parent *TileNode) {
		visit(node, parent)
		for _, child := range node.Children {
			rec(child, node)
		}
	}
	rec(n, nil)
}

// NodeCount returns the number of nodes in the subtree including n.
func (n *TileNode) NodeCount() int {
	count := 0
	n.Walk(func(*TileNode, *TileNode) { count++ })
	return count
}
