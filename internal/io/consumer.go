package io

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// StandardConsumer drains WorkUnits from a work channel, invoking the
// Serializer once per cell and reporting successes on the result channel.
// A serializer failure is logged and the cell excluded; it never aborts the
// sibling cells.
type StandardConsumer struct {
	serializer Serializer
}

func NewStandardConsumer(serializer Serializer) *StandardConsumer {
	return &StandardConsumer{serializer: serializer}
}

// Consume works until the work channel is closed or the context is
// cancelled.
func (c *StandardConsumer) Consume(ctx context.Context, work chan *WorkUnit, results chan *CellResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for unit := range work {
		if ctx.Err() != nil {
			// Drain without serializing so the producer never blocks.
			continue
		}

		contentRef, byteSize, err := c.serializer.Emit(unit.Cell, unit.BasePath)
		if err != nil {
			glog.Warningf("cell level=%d quadrant=%s excluded, serializer failed: %v",
				unit.Cell.Level, unit.Cell.Address, err)
			continue
		}

		results <- &CellResult{
			Level:      unit.Cell.Level,
			Address:    unit.Cell.Address,
			ContentRef: contentRef,
			ByteSize:   byteSize,
			Bounds:     unit.Cell.Bounds,
		}
	}
}
