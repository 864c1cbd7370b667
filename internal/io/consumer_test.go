package io

import (
	"context"
	"errors"
	"sync"
	"testing"

	vec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/stretchr/testify/require"

	"github.com/terrascene/mesh_tiler/internal/geometry"
	"github.com/terrascene/mesh_tiler/internal/mesh"
	"github.com/terrascene/mesh_tiler/internal/spatial"
)

type recordingSerializer struct {
	mu     sync.Mutex
	emits  int
	failOn string
}

func (s *recordingSerializer) Emit(cell *spatial.Cell, basePath string) (string, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cell.Address.String() == s.failOn {
		return "", 0, errors.New("forced failure")
	}
	s.emits++
	return "lod0/" + cell.Address.Path() + "/content.glb", 42, nil
}

func splitCells(t *testing.T) []*spatial.Cell {
	t.Helper()
	m := &mesh.Mesh{
		Positions: []vec3.T{
			{1, 1, 0}, {2, 1, 0}, {1, 2, 0},
			{8, 8, 0}, {9, 8, 0}, {8, 9, 0},
		},
		Submeshes: []mesh.Submesh{{Indexes: []int{0, 1, 2, 3, 4, 5}}},
	}
	cells, err := spatial.NewSplitter(spatial.SplitterOptions{}).
		Split(context.Background(), m, geometry.NewAABB(0, 10, 0, 10, 0, 10), 0, 1)
	require.NoError(t, err)
	require.Len(t, cells, 2)
	return cells
}

func runProducerConsumer(ctx context.Context, serializer Serializer, cells []*spatial.Cell) []*CellResult {
	work := make(chan *WorkUnit, 4)
	results := make(chan *CellResult, len(cells))

	var wg sync.WaitGroup
	wg.Add(2)
	go NewStandardProducer("out").Produce(ctx, work, &wg, cells)
	go NewStandardConsumer(serializer).Consume(ctx, work, results, &wg)
	wg.Wait()
	close(results)

	var collected []*CellResult
	for r := range results {
		collected = append(collected, r)
	}
	return collected
}

func TestProduceConsume(t *testing.T) {
	cells := splitCells(t)
	serializer := &recordingSerializer{}

	results := runProducerConsumer(context.Background(), serializer, cells)
	require.Len(t, results, 2)
	require.Equal(t, 2, serializer.emits)

	for _, r := range results {
		require.Equal(t, 0, r.Level)
		require.Equal(t, int64(42), r.ByteSize)
		require.NotEmpty(t, r.ContentRef)
		require.False(t, r.Bounds.IsEmpty())
	}
}

func TestConsumeToleratesSerializerFailure(t *testing.T) {
	cells := splitCells(t)
	serializer := &recordingSerializer{failOn: cells[0].Address.String()}

	results := runProducerConsumer(context.Background(), serializer, cells)
	require.Len(t, results, 1)
	require.Equal(t, cells[1].Address, results[0].Address)
}

func TestProduceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cells := splitCells(t)
	serializer := &recordingSerializer{}
	results := runProducerConsumer(ctx, serializer, cells)
	require.Empty(t, results)
	require.Equal(t, 0, serializer.emits)
}
