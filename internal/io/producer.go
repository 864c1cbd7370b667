package io

import (
	"context"
	"sync"

	"github.com/terrascene/mesh_tiler/internal/spatial"
)

// StandardProducer submits one WorkUnit per leaf cell to a work channel.
type StandardProducer struct {
	basePath string
}

func NewStandardProducer(basePath string) *StandardProducer {
	return &StandardProducer{basePath: basePath}
}

// Produce submits all cells to the work channel, closes the channel and
// signals the wait group. Cancellation stops submission; already submitted
// cells are still drained by the consumers.
func (p *StandardProducer) Produce(ctx context.Context, work chan *WorkUnit, wg *sync.WaitGroup, cells []*spatial.Cell) {
	defer wg.Done()
	defer close(work)

	for _, cell := range cells {
		if ctx.Err() != nil {
			return
		}
		work <- &WorkUnit{
			Cell:     cell,
			BasePath: p.basePath,
		}
	}
}
