package geometry

import (
	"math"
	"testing"

	vec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/stretchr/testify/require"
)

func TestEmptyAABB(t *testing.T) {
	box := EmptyAABB()
	require.True(t, box.IsEmpty())

	p := vec3.T{1, 2, 3}
	box.Extend(&p)
	require.False(t, box.IsEmpty())
	require.Equal(t, p, box.Min)
	require.Equal(t, p, box.Max)
}

func TestExtendAndUnion(t *testing.T) {
	box := EmptyAABB()
	for _, p := range []vec3.T{{1, 1, 1}, {-1, 2, 0}, {0, -3, 4}} {
		q := p
		box.Extend(&q)
	}
	require.Equal(t, vec3.T{-1, -3, 0}, box.Min)
	require.Equal(t, vec3.T{1, 2, 4}, box.Max)

	other := NewAABB(5, 6, 5, 6, 5, 6)
	union := box.Union(other)
	require.Equal(t, vec3.T{-1, -3, 0}, union.Min)
	require.Equal(t, vec3.T{6, 6, 6}, union.Max)
}

func TestCenterHalfExtentsDiagonal(t *testing.T) {
	box := NewAABB(0, 4, 0, 2, 0, 6)
	require.Equal(t, vec3.T{2, 1, 3}, box.Center())
	require.Equal(t, vec3.T{2, 1, 3}, box.HalfExtents())
	require.InDelta(t, math.Sqrt(16+4+36), box.Diagonal(), 1e-12)
}

func TestContains(t *testing.T) {
	box := NewAABB(0, 1, 0, 1, 0, 1)

	inside := vec3.T{0.5, 0.5, 0.5}
	onFace := vec3.T{1, 0.5, 0.5}
	outside := vec3.T{1.5, 0.5, 0.5}
	require.True(t, box.Contains(&inside))
	require.True(t, box.Contains(&onFace))
	require.False(t, box.Contains(&outside))

	smaller := NewAABB(0.2, 0.8, 0.2, 0.8, 0.2, 0.8)
	slightlyBigger := NewAABB(-1e-9, 1, 0, 1, 0, 1)
	require.True(t, box.ContainsBox(&smaller, 0))
	require.False(t, box.ContainsBox(&slightlyBigger, 0))
	require.True(t, box.ContainsBox(&slightlyBigger, 1e-6))
}

func TestBoxVolume(t *testing.T) {
	box := NewAABB(0, 4, -2, 2, 10, 30)
	volume := box.BoxVolume()

	require.Equal(t, [12]float64{
		2, 0, 20,
		2, 0, 0,
		0, 2, 0,
		0, 0, 10,
	}, volume)
}
