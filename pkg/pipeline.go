package pkg

import (
	"context"
	"errors"
	"math"
	"path"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/terrascene/mesh_tiler/internal/io"
	"github.com/terrascene/mesh_tiler/internal/lod"
	"github.com/terrascene/mesh_tiler/internal/tiler"
	"github.com/terrascene/mesh_tiler/pkg/algorithm_manager"
	"github.com/terrascene/mesh_tiler/tools"
)

// RunStats summarizes one pipeline run. Cancelled runs report the work that
// finished before the cancellation checkpoint fired.
type RunStats struct {
	RunID          string        `json:"runId"`
	InputPath      string        `json:"inputPath"`
	TotalTriangles int           `json:"totalTriangles"`
	LevelCount     int           `json:"levelCount"`
	TotalCells     int           `json:"totalCells"`
	CellsPerLevel  map[int]int   `json:"cellsPerLevel"`
	Cancelled      bool          `json:"cancelled"`
	Duration       time.Duration `json:"duration"`
}

// TilePipeline runs one model through load, LOD building, per-cell
// serialization and tileset index writing. Stages are separated by
// cancellation checkpoints, and a failure confined to one LOD level or one
// cell never aborts the run.
type TilePipeline struct {
	manager algorithm_manager.AlgorithmManager
	opts    *tiler.TilerOptions
}

func NewTilePipeline(manager algorithm_manager.AlgorithmManager, opts *tiler.TilerOptions) (*TilePipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &TilePipeline{manager: manager, opts: opts}, nil
}

// Run processes the model at modelPath and writes the tileset under the
// configured output folder, or under subfolder when it is non-empty.
// Cancellation is not an error: the run stops at the next checkpoint and the
// stats describe the partial result.
func (p *TilePipeline) Run(ctx context.Context, modelPath string, subfolder string) (*RunStats, error) {
	stats := &RunStats{
		RunID:         uuid.NewString(),
		InputPath:     modelPath,
		CellsPerLevel: map[int]int{},
	}
	start := time.Now()
	defer func() { stats.Duration = time.Since(start) }()

	glog.Infof("run %s: processing %s", stats.RunID, modelPath)

	model, err := p.manager.GetModelSourceAlgorithm().Load(modelPath)
	if err != nil {
		return stats, err
	}
	if err := model.Validate(); err != nil {
		return stats, err
	}
	stats.TotalTriangles = model.TriangleCount()
	if stats.TotalTriangles == 0 {
		glog.Infof("run %s: model is empty, nothing to tile", stats.RunID)
		return stats, nil
	}
	if ctx.Err() != nil {
		stats.Cancelled = true
		return stats, nil
	}

	// An overall quality below 1 decimates the source once up front, so every
	// LOD level derives from the reduced mesh.
	if p.opts.TargetQuality < 1 {
		simplifier := p.manager.GetSimplifierAlgorithm()
		if err := simplifier.Initialize(model); err != nil {
			return stats, err
		}
		target := int(math.Round(p.opts.TargetQuality * float64(model.TriangleCount())))
		if target < 1 {
			target = 1
		}
		if err := simplifier.Decimate(target); err != nil {
			return stats, err
		}
		model = simplifier.ToMesh()
	}
	bounds := model.ComputeBounds()

	builder, err := p.manager.GetBuilderAlgorithm()
	if err != nil {
		return stats, err
	}
	levels := builder.BuildLevels(ctx, model, bounds, p.opts.EnableParallelSplit)
	stats.LevelCount = len(levels)
	if ctx.Err() != nil {
		stats.Cancelled = true
		return stats, nil
	}
	if len(levels) == 0 {
		return stats, errors.New("all lod levels failed, nothing to serialize")
	}

	basePath := p.opts.Output
	if subfolder != "" {
		basePath = path.Join(basePath, subfolder)
	}

	content := map[lod.CellKey]*lod.ContentRef{}
	for _, level := range levels {
		if ctx.Err() != nil {
			stats.Cancelled = true
			break
		}
		for _, result := range p.serializeLevel(ctx, level, basePath) {
			content[lod.CellKey{Level: result.Level, Address: result.Address}] = &lod.ContentRef{
				Level:    result.Level,
				Address:  result.Address,
				URI:      result.ContentRef,
				ByteSize: result.ByteSize,
				Bounds:   result.Bounds,
			}
			stats.TotalCells++
			stats.CellsPerLevel[result.Level]++
		}
	}

	if ctx.Err() != nil {
		stats.Cancelled = true
		return stats, nil
	}
	if len(content) == 0 {
		return stats, errors.New("no cell was serialized, tileset not written")
	}

	root := builder.BuildTree(levels, bounds, content)
	indexWriter := io.NewStandardIndexWriter(basePath, p.manager.GetCoordinateConverterAlgorithm())
	if err := indexWriter.Write(root, p.opts); err != nil {
		return stats, err
	}

	glog.Infof("run %s: done, %s", stats.RunID, tools.FmtJSONString(stats))
	return stats, nil
}

// serializeLevel fans the level's cells out over one consumer per CPU and
// collects the successfully written cells.
func (p *TilePipeline) serializeLevel(ctx context.Context, level *lod.Level, basePath string) []*io.CellResult {
	numConsumers := runtime.NumCPU()
	work := make(chan *io.WorkUnit, numConsumers*5)
	results := make(chan *io.CellResult, len(level.Cells))

	var wg sync.WaitGroup
	wg.Add(1)
	go io.NewStandardProducer(basePath).Produce(ctx, work, &wg, level.Cells)
	for i := 0; i < numConsumers; i++ {
		wg.Add(1)
		go io.NewStandardConsumer(p.manager.GetSerializerAlgorithm()).Consume(ctx, work, results, &wg)
	}
	wg.Wait()
	close(results)

	collected := make([]*io.CellResult, 0, len(level.Cells))
	for result := range results {
		collected = append(collected, result)
	}
	return collected
}

// ITiler drives the pipeline over the configured input files.
type ITiler interface {
	RunTiler(opts *tiler.TilerOptions) error
}

type Tiler struct {
	fileFinder       tools.FileFinder
	algorithmManager algorithm_manager.AlgorithmManager
}

func NewTiler(fileFinder tools.FileFinder, algorithmManager algorithm_manager.AlgorithmManager) ITiler {
	return &Tiler{
		fileFinder:       fileFinder,
		algorithmManager: algorithmManager,
	}
}

// RunTiler tiles every discovered model file. With several input files each
// tileset goes into a subfolder named after its model.
func (t *Tiler) RunTiler(opts *tiler.TilerOptions) error {
	modelFiles := t.fileFinder.GetModelFilesToProcess(opts)
	if len(modelFiles) == 0 {
		return errors.New("no model file found to process")
	}

	pipeline, err := NewTilePipeline(t.algorithmManager, opts)
	if err != nil {
		return err
	}
	defer func() {
		if converter := t.algorithmManager.GetCoordinateConverterAlgorithm(); converter != nil {
			converter.Cleanup()
		}
	}()

	for i, modelPath := range modelFiles {
		glog.Infof("processing file %d/%d: %s", i+1, len(modelFiles), modelPath)
		subfolder := ""
		if len(modelFiles) > 1 {
			subfolder = fileNameWithoutExtension(modelPath)
		}
		if _, err := pipeline.Run(context.Background(), modelPath, subfolder); err != nil {
			return err
		}
	}
	return nil
}

func fileNameWithoutExtension(filePath string) string {
	name := filepath.Base(filePath)
	return name[:len(name)-len(filepath.Ext(name))]
}
