package decimation

import (
	"fmt"
	"math"
	"sort"

	vec2 "github.com/flywave/go3d/float64/vec2"
	vec3 "github.com/flywave/go3d/float64/vec3"
	vec4 "github.com/flywave/go3d/float64/vec4"

	"github.com/terrascene/mesh_tiler/internal/mesh"
)

const (
	// thresholdBase scales the per-iteration error threshold curve
	// thresholdBase * (iteration+3)^aggressiveness.
	thresholdBase = 1e-9

	// losslessThreshold admits only effectively zero error collapses.
	losslessThreshold = 1e-9

	// maxLosslessIterationCount bounds the lossless loop when the mesh keeps
	// yielding zero error edges.
	maxLosslessIterationCount = 9999

	// foldoverNormalThreshold is the minimum cosine between a surviving
	// triangle's old and recomputed normal for a collapse to be accepted.
	foldoverNormalThreshold = 0.2

	// colinearEdgeThreshold rejects collapses that leave two surviving edge
	// directions nearly colinear.
	colinearEdgeThreshold = 0.999

	// linkScanWindow bounds the neighbor scan of the smart border link pass.
	linkScanWindow = 64

	uvEqualEpsilon = 1e-9
)

// ProgressFunc is invoked synchronously once per decimation iteration.
type ProgressFunc func(iteration, currentTriangles, targetTriangles int)

// Options configures a Simplifier.
type Options struct {
	PreserveBorders    bool
	PreserveSeams      bool
	PreserveFoldovers  bool
	MaxVertexCount     int // 0 = unlimited
	Aggressiveness     float64
	MaxIterationCount  int
	EnableSmartLink    bool
	VertexLinkDistance float64
	Progress           ProgressFunc
}

// DefaultOptions returns the recognized defaults.
func DefaultOptions() Options {
	return Options{
		Aggressiveness:     7.0,
		MaxIterationCount:  100,
		VertexLinkDistance: 1e-8,
	}
}

type vertexRec struct {
	p        vec3.T
	q        symmetricMatrix
	refStart int
	refCount int
	border   bool
	seam     bool
	foldover bool
}

type triangleRec struct {
	v       [3]int // geometry indexes
	a       [3]int // attribute indexes, may diverge from v after welds/collapses
	submesh int
	err     [4]float64 // per edge error plus minimum
	n       vec3.T
	deleted bool
	dirty   bool
}

type refRec struct {
	tri    int
	corner int
}

// Simplifier reduces a triangle mesh by iterative quadric error edge
// collapse. The vertex, triangle and reference tables are contiguous buffers
// addressed by integer handles; deleted and dirty flags are run-local
// tombstones fully resolved by the compaction in ToMesh.
type Simplifier struct {
	opts Options

	vertices  []vertexRec
	triangles []triangleRec
	refs      []refRec

	normals     []vec3.T
	tangents    []vec4.T
	uvs         [][]vec2.T
	colors      []vec4.T
	boneWeights []mesh.BoneWeight

	materials    []mesh.Material
	submeshCount int
	submeshMats  []int

	remainingVertices int
	deletedTriangles  int
	initialized       bool
}

// NewSimplifier builds a Simplifier with the given options, applying defaults
// for unset numeric fields.
func NewSimplifier(opts Options) *Simplifier {
	if opts.Aggressiveness <= 0 {
		opts.Aggressiveness = 7.0
	}
	if opts.MaxIterationCount <= 0 {
		opts.MaxIterationCount = 100
	}
	if opts.VertexLinkDistance <= 0 {
		opts.VertexLinkDistance = 1e-8
	}
	return &Simplifier{opts: opts}
}

// Initialize loads the mesh into the internal vertex/triangle/reference
// tables. The mesh is validated first; attribute array mismatches are
// rejected here.
func (s *Simplifier) Initialize(m *mesh.Mesh) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("initialize simplifier: %w", err)
	}

	s.vertices = make([]vertexRec, len(m.Positions))
	for i := range m.Positions {
		s.vertices[i].p = m.Positions[i]
	}

	s.normals = append([]vec3.T(nil), m.Normals...)
	s.tangents = append([]vec4.T(nil), m.Tangents...)
	s.colors = append([]vec4.T(nil), m.Colors...)
	s.boneWeights = append([]mesh.BoneWeight(nil), m.BoneWeights...)
	s.uvs = make([][]vec2.T, len(m.UVs))
	for c := range m.UVs {
		s.uvs[c] = append([]vec2.T(nil), m.UVs[c]...)
	}

	s.materials = append([]mesh.Material(nil), m.Materials...)
	s.submeshCount = len(m.Submeshes)
	s.submeshMats = make([]int, len(m.Submeshes))

	s.triangles = s.triangles[:0]
	for si, sub := range m.Submeshes {
		s.submeshMats[si] = sub.MaterialIndex
		for i := 0; i+2 < len(sub.Indexes); i += 3 {
			v := [3]int{sub.Indexes[i], sub.Indexes[i+1], sub.Indexes[i+2]}
			s.triangles = append(s.triangles, triangleRec{v: v, a: v, submesh: si})
		}
	}

	s.refs = s.refs[:0]
	s.remainingVertices = len(s.vertices)
	s.deletedTriangles = 0
	s.initialized = true
	return nil
}

// TriangleCount returns the current live triangle count.
func (s *Simplifier) TriangleCount() int {
	return len(s.triangles) - s.deletedTriangles
}

// RemainingVertices returns the current live vertex count.
func (s *Simplifier) RemainingVertices() int {
	return s.remainingVertices
}

// Decimate collapses edges until the live triangle count drops to
// targetTriangleCount, the iteration budget runs out, or the configured
// vertex floor is reached.
func (s *Simplifier) Decimate(targetTriangleCount int) error {
	if targetTriangleCount < 0 {
		return fmt.Errorf("decimate: negative target triangle count %d", targetTriangleCount)
	}
	if !s.initialized {
		return fmt.Errorf("decimate: simplifier not initialized")
	}

	for iteration := 0; iteration < s.opts.MaxIterationCount; iteration++ {
		if s.TriangleCount() <= targetTriangleCount {
			break
		}
		if s.opts.MaxVertexCount > 0 && s.remainingVertices < s.opts.MaxVertexCount {
			break
		}

		if iteration%5 == 0 {
			s.updateMesh(iteration)
		}
		for i := range s.triangles {
			s.triangles[i].dirty = false
		}

		// The threshold grows slowly for early iterations and sharply for
		// late ones, so cheap collapses happen first.
		threshold := thresholdBase * math.Pow(float64(iteration+3), s.opts.Aggressiveness)

		if s.opts.Progress != nil {
			s.opts.Progress(iteration, s.TriangleCount(), targetTriangleCount)
		}

		s.collapseEdges(threshold, targetTriangleCount)
	}
	return nil
}

// DecimateLossless repeatedly removes zero error edges until none remain.
func (s *Simplifier) DecimateLossless() error {
	if !s.initialized {
		return fmt.Errorf("decimate lossless: simplifier not initialized")
	}

	for iteration := 0; iteration < maxLosslessIterationCount; iteration++ {
		s.updateMesh(iteration)
		for i := range s.triangles {
			s.triangles[i].dirty = false
		}

		before := s.deletedTriangles
		s.collapseEdges(losslessThreshold, 0)
		if s.deletedTriangles == before {
			break
		}
	}
	return nil
}

// collapseEdges runs one collapse sweep over all candidate triangles.
func (s *Simplifier) collapseEdges(threshold float64, targetTriangleCount int) {
	var deleted0, deleted1 []bool

	for ti := range s.triangles {
		t := &s.triangles[ti]
		if t.err[3] > threshold || t.deleted || t.dirty {
			continue
		}

		for j := 0; j < 3; j++ {
			if t.err[j] >= threshold {
				continue
			}
			i0 := t.v[j]
			i1 := t.v[(j+1)%3]
			v0 := &s.vertices[i0]
			v1 := &s.vertices[i1]

			// Never collapse across a boundary classification mismatch.
			if v0.border != v1.border || v0.seam != v1.seam || v0.foldover != v1.foldover {
				continue
			}
			if s.opts.PreserveBorders && (v0.border || v1.border) {
				continue
			}
			if s.opts.PreserveSeams && (v0.seam || v1.seam) {
				continue
			}
			if s.opts.PreserveFoldovers && (v0.foldover || v1.foldover) {
				continue
			}

			_, p := s.calculateError(i0, i1)

			deleted0 = resizeBools(deleted0, v0.refCount)
			deleted1 = resizeBools(deleted1, v1.refCount)

			if s.flipped(&p, i1, v0, deleted0) {
				continue
			}
			if s.flipped(&p, i0, v1, deleted1) {
				continue
			}

			v0.p = p
			q1 := v1.q
			v0.q.add(&q1)

			refStart := len(s.refs)
			s.updateTriangles(i0, v0, deleted0)
			s.updateTriangles(i0, v1, deleted1)
			refCount := len(s.refs) - refStart

			if refCount <= v0.refCount {
				// Reuse the old window instead of growing the table.
				copy(s.refs[v0.refStart:], s.refs[refStart:refStart+refCount])
				s.refs = s.refs[:refStart]
			} else {
				v0.refStart = refStart
			}
			v0.refCount = refCount
			s.remainingVertices--
			break
		}

		if s.TriangleCount() <= targetTriangleCount {
			break
		}
		if s.opts.MaxVertexCount > 0 && s.remainingVertices < s.opts.MaxVertexCount {
			break
		}
	}
}

// calculateError returns the collapse error of the edge (i0, i1) and the
// error minimizing position. A singular combined quadric or a border edge
// falls back to the best of the two endpoints and the midpoint, ties favoring
// the midpoint.
func (s *Simplifier) calculateError(i0, i1 int) (float64, vec3.T) {
	v0 := &s.vertices[i0]
	v1 := &s.vertices[i1]
	q := v0.q.added(&v1.q)
	border := v0.border && v1.border

	det := q.det(0, 1, 2, 1, 4, 5, 2, 5, 7)
	if det != 0 && !border {
		p := vec3.T{
			-1 / det * q.det(1, 2, 3, 4, 5, 6, 5, 7, 8),
			1 / det * q.det(0, 2, 3, 1, 5, 6, 2, 7, 8),
			-1 / det * q.det(0, 1, 3, 1, 4, 6, 2, 5, 8),
		}
		return q.vertexError(&p), p
	}

	p1 := v0.p
	p2 := v1.p
	p3 := vec3.T{(p1[0] + p2[0]) / 2, (p1[1] + p2[1]) / 2, (p1[2] + p2[2]) / 2}
	e1 := q.vertexError(&p1)
	e2 := q.vertexError(&p2)
	e3 := q.vertexError(&p3)
	err := math.Min(e1, math.Min(e2, e3))
	p := p1
	if e2 == err {
		p = p2
	}
	if e3 == err {
		p = p3
	}
	return err, p
}

// flipped checks every triangle around v (other than the ones collapsing
// away, which it records in deleted) against the candidate position p. It
// reports true when the collapse would flip a surviving triangle beyond the
// fold-over threshold or leave two of its edges nearly colinear.
func (s *Simplifier) flipped(p *vec3.T, removed int, v *vertexRec, deleted []bool) bool {
	for k := 0; k < v.refCount; k++ {
		r := s.refs[v.refStart+k]
		t := &s.triangles[r.tri]
		if t.deleted {
			continue
		}

		id1 := t.v[(r.corner+1)%3]
		id2 := t.v[(r.corner+2)%3]
		if id1 == removed || id2 == removed {
			deleted[k] = true
			continue
		}
		deleted[k] = false

		d1 := vec3.Sub(&s.vertices[id1].p, p)
		if d1.Length() > 0 {
			d1.Normalize()
		}
		d2 := vec3.Sub(&s.vertices[id2].p, p)
		if d2.Length() > 0 {
			d2.Normalize()
		}
		if math.Abs(vec3.Dot(&d1, &d2)) > colinearEdgeThreshold {
			return true
		}

		n := vec3.Cross(&d1, &d2)
		if n.Length() > 0 {
			n.Normalize()
		}
		if vec3.Dot(&n, &t.n) < foldoverNormalThreshold {
			return true
		}
	}
	return false
}

// updateTriangles re-links the surviving triangles of v to i0, tombstones the
// collapsed ones and refreshes cached edge errors.
func (s *Simplifier) updateTriangles(i0 int, v *vertexRec, deleted []bool) {
	for k := 0; k < v.refCount; k++ {
		r := s.refs[v.refStart+k]
		t := &s.triangles[r.tri]
		if t.deleted {
			continue
		}
		if deleted[k] {
			t.deleted = true
			s.deletedTriangles++
			continue
		}

		t.v[r.corner] = i0
		t.dirty = true
		t.err[0], _ = s.calculateError(t.v[0], t.v[1])
		t.err[1], _ = s.calculateError(t.v[1], t.v[2])
		t.err[2], _ = s.calculateError(t.v[2], t.v[0])
		t.err[3] = math.Min(t.err[0], math.Min(t.err[1], t.err[2]))
		s.refs = append(s.refs, r)
	}
}

// updateMesh rebuilds the reference table and the boundary classification.
// On the first iteration it also seeds the plane quadrics and the cached
// per-edge errors; later invocations first compact tombstoned triangles.
func (s *Simplifier) updateMesh(iteration int) {
	if iteration > 0 {
		s.compactTriangles()
	}

	s.rebuildReferences()
	s.classifyBoundary()

	if iteration == 0 {
		if s.opts.EnableSmartLink {
			if s.linkBorderVertices() > 0 {
				s.rebuildReferences()
				s.classifyBoundary()
			}
		}
		s.initQuadrics()
	}
}

func (s *Simplifier) rebuildReferences() {
	for i := range s.vertices {
		s.vertices[i].refStart = 0
		s.vertices[i].refCount = 0
	}
	for i := range s.triangles {
		t := &s.triangles[i]
		if t.deleted {
			continue
		}
		for j := 0; j < 3; j++ {
			s.vertices[t.v[j]].refCount++
		}
	}

	start := 0
	for i := range s.vertices {
		s.vertices[i].refStart = start
		start += s.vertices[i].refCount
		s.vertices[i].refCount = 0
	}

	s.refs = resizeRefs(s.refs, start)
	for i := range s.triangles {
		t := &s.triangles[i]
		if t.deleted {
			continue
		}
		for j := 0; j < 3; j++ {
			v := &s.vertices[t.v[j]]
			s.refs[v.refStart+v.refCount] = refRec{tri: i, corner: j}
			v.refCount++
		}
	}
}

// classifyBoundary marks every vertex that sits on an edge used by exactly
// one triangle as a border vertex. Seam and foldover flags assigned by the
// link pass are preserved.
func (s *Simplifier) classifyBoundary() {
	for i := range s.vertices {
		s.vertices[i].border = false
	}

	var ids []int
	var counts []int
	for i := range s.vertices {
		v := &s.vertices[i]
		if v.refCount == 0 {
			continue
		}
		ids = ids[:0]
		counts = counts[:0]

		for k := 0; k < v.refCount; k++ {
			t := &s.triangles[s.refs[v.refStart+k].tri]
			for j := 0; j < 3; j++ {
				id := t.v[j]
				found := false
				for c := range ids {
					if ids[c] == id {
						counts[c]++
						found = true
						break
					}
				}
				if !found {
					ids = append(ids, id)
					counts = append(counts, 1)
				}
			}
		}

		for c := range ids {
			if counts[c] == 1 {
				s.vertices[ids[c]].border = true
			}
		}
	}
}

// linkBorderVertices welds coincident but index-distinct border vertices,
// common where disjoint submeshes touch. Welded pairs with matching primary
// UV become foldover vertices, the rest become seams. Returns the number of
// merges performed.
func (s *Simplifier) linkBorderVertices() int {
	borderIDs := make([]int, 0)
	for i := range s.vertices {
		if s.vertices[i].border {
			borderIDs = append(borderIDs, i)
		}
	}
	// One dimensional ordering keeps the pair scan to a bounded window.
	sort.Slice(borderIDs, func(a, b int) bool {
		return s.vertices[borderIDs[a]].p[0] < s.vertices[borderIDs[b]].p[0]
	})

	maxDist := s.opts.VertexLinkDistance
	maxDistSqr := maxDist * maxDist
	merged := make([]bool, len(borderIDs))
	mergeTarget := make(map[int]int)

	merges := 0
	for a := 0; a < len(borderIDs); a++ {
		if merged[a] {
			continue
		}
		ia := borderIDs[a]
		pa := s.vertices[ia].p

		for b, window := a+1, 0; b < len(borderIDs) && window < linkScanWindow; b, window = b+1, window+1 {
			if merged[b] {
				continue
			}
			ib := borderIDs[b]
			pb := s.vertices[ib].p
			if pb[0]-pa[0] > maxDist {
				break
			}
			d := vec3.Sub(&pb, &pa)
			if d.LengthSqr() > maxDistSqr {
				continue
			}

			foldover := s.uvEqual(ia, ib)
			s.vertices[ia].seam = s.vertices[ia].seam || !foldover
			s.vertices[ia].foldover = s.vertices[ia].foldover || foldover
			mergeTarget[ib] = ia
			merged[b] = true
			s.remainingVertices--
			merges++
		}
	}

	if merges == 0 {
		return 0
	}

	// Re-point the geometry index of every affected triangle corner; the
	// attribute index keeps referencing the original vertex data.
	for i := range s.triangles {
		t := &s.triangles[i]
		if t.deleted {
			continue
		}
		for j := 0; j < 3; j++ {
			if target, ok := mergeTarget[t.v[j]]; ok {
				t.v[j] = target
			}
		}
	}
	return merges
}

func (s *Simplifier) uvEqual(a, b int) bool {
	if len(s.uvs) == 0 || len(s.uvs[0]) == 0 {
		return true
	}
	ua := s.uvs[0][a]
	ub := s.uvs[0][b]
	return math.Abs(ua[0]-ub[0]) <= uvEqualEpsilon && math.Abs(ua[1]-ub[1]) <= uvEqualEpsilon
}

// initQuadrics accumulates every triangle's plane quadric at its three
// vertices and seeds the cached per-edge collapse errors.
func (s *Simplifier) initQuadrics() {
	for i := range s.vertices {
		s.vertices[i].q = symmetricMatrix{}
	}

	for i := range s.triangles {
		t := &s.triangles[i]
		if t.deleted {
			continue
		}
		p0 := &s.vertices[t.v[0]].p
		p1 := &s.vertices[t.v[1]].p
		p2 := &s.vertices[t.v[2]].p
		e1 := vec3.Sub(p1, p0)
		e2 := vec3.Sub(p2, p0)
		n := vec3.Cross(&e1, &e2)
		if n.Length() > 0 {
			n.Normalize()
		}
		t.n = n

		d := -vec3.Dot(&n, p0)
		q := planeQuadric(n[0], n[1], n[2], d)
		for j := 0; j < 3; j++ {
			s.vertices[t.v[j]].q.add(&q)
		}
	}

	for i := range s.triangles {
		t := &s.triangles[i]
		if t.deleted {
			continue
		}
		t.err[0], _ = s.calculateError(t.v[0], t.v[1])
		t.err[1], _ = s.calculateError(t.v[1], t.v[2])
		t.err[2], _ = s.calculateError(t.v[2], t.v[0])
		t.err[3] = math.Min(t.err[0], math.Min(t.err[1], t.err[2]))
	}
}

func (s *Simplifier) compactTriangles() {
	live := s.triangles[:0]
	for i := range s.triangles {
		if !s.triangles[i].deleted {
			live = append(live, s.triangles[i])
		}
	}
	s.triangles = live
	s.deletedTriangles = 0
}

func resizeBools(b []bool, n int) []bool {
	if cap(b) < n {
		return make([]bool, n)
	}
	return b[:n]
}

func resizeRefs(r []refRec, n int) []refRec {
	if cap(r) < n {
		return make([]refRec, n)
	}
	return r[:n]
}
