package algorithm_manager

import (
	"github.com/terrascene/mesh_tiler/internal/converters"
	"github.com/terrascene/mesh_tiler/internal/converters/proj4_coordinate_converter"
	"github.com/terrascene/mesh_tiler/internal/decimation"
	"github.com/terrascene/mesh_tiler/internal/io"
	"github.com/terrascene/mesh_tiler/internal/lod"
	"github.com/terrascene/mesh_tiler/internal/serialize"
	"github.com/terrascene/mesh_tiler/internal/source"
	"github.com/terrascene/mesh_tiler/internal/spatial"
	"github.com/terrascene/mesh_tiler/internal/tiler"
)

// AlgorithmManager wires the pipeline collaborators from the tiler options.
type AlgorithmManager interface {
	GetModelSourceAlgorithm() source.ModelSource
	GetBuilderAlgorithm() (*lod.Builder, error)
	GetSimplifierAlgorithm() *decimation.Simplifier
	GetSerializerAlgorithm() io.Serializer
	GetCoordinateConverterAlgorithm() converters.CoordinateConverter
}

type standardAlgorithmManager struct {
	opts      *tiler.TilerOptions
	converter converters.CoordinateConverter
}

func NewAlgorithmManager(opts *tiler.TilerOptions) AlgorithmManager {
	manager := &standardAlgorithmManager{opts: opts}
	if opts.Srid != 0 {
		manager.converter = proj4_coordinate_converter.NewProj4CoordinateConverter()
	}
	return manager
}

func (m *standardAlgorithmManager) GetModelSourceAlgorithm() source.ModelSource {
	return source.NewObjModelSource()
}

func (m *standardAlgorithmManager) GetBuilderAlgorithm() (*lod.Builder, error) {
	return lod.NewBuilder(lod.BuilderOptions{
		LodLevels:          m.opts.LodLevels,
		MaxSplitDepth:      m.opts.MaxSplitDepth,
		GeometricErrorBase: m.opts.GeometricErrorBaseThreshold,
		Simplifier:         m.simplifierOptions(),
		Splitter: spatial.SplitterOptions{
			EnableParallel: m.opts.EnableParallelSplit,
		},
	})
}

func (m *standardAlgorithmManager) simplifierOptions() decimation.Options {
	simplifier := decimation.DefaultOptions()
	simplifier.PreserveBorders = m.opts.PreserveBoundary
	simplifier.PreserveSeams = m.opts.PreserveSeams
	simplifier.PreserveFoldovers = m.opts.PreserveFoldovers
	simplifier.MaxVertexCount = m.opts.MaxVertexCount
	simplifier.EnableSmartLink = m.opts.EnableSmartLink
	if m.opts.Aggressiveness > 0 {
		simplifier.Aggressiveness = m.opts.Aggressiveness
	}
	if m.opts.MaxIterations > 0 {
		simplifier.MaxIterationCount = m.opts.MaxIterations
	}
	if m.opts.VertexLinkDistance > 0 {
		simplifier.VertexLinkDistance = m.opts.VertexLinkDistance
	}
	return simplifier
}

// GetSimplifierAlgorithm returns a fresh simplifier for a standalone
// decimation pass; the LOD builder creates its own per-level instances.
func (m *standardAlgorithmManager) GetSimplifierAlgorithm() *decimation.Simplifier {
	return decimation.NewSimplifier(m.simplifierOptions())
}

func (m *standardAlgorithmManager) GetSerializerAlgorithm() io.Serializer {
	return serialize.NewGlbSerializer()
}

func (m *standardAlgorithmManager) GetCoordinateConverterAlgorithm() converters.CoordinateConverter {
	return m.converter
}
