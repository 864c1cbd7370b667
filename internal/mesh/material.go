package mesh

// Material carries the subset of material data that survives into tiles:
// a stable name, a base color and an optional texture reference. Richer
// material models are flattened to this before tiling.
type Material struct {
	Name         string  `json:"name"`
	Color        [3]byte `json:"color"`
	Transparency float64 `json:"transparency,omitempty"`
	Texture      string  `json:"texture,omitempty"`
}

// UsedMaterialIndexes returns the sorted, de-duplicated set of material
// indexes actually referenced by the given submeshes. Leaf tiles embed only
// this subset rather than the full palette.
func UsedMaterialIndexes(submeshes []Submesh) []int {
	seen := map[int]bool{}
	var used []int
	for _, sub := range submeshes {
		if len(sub.Indexes) == 0 || seen[sub.MaterialIndex] {
			continue
		}
		seen[sub.MaterialIndex] = true
		used = append(used, sub.MaterialIndex)
	}
	for i := 1; i < len(used); i++ {
		for j := i; j > 0 && used[j] < used[j-1]; j-- {
			used[j], used[j-1] = used[j-1], used[j]
		}
	}
	return used
}
