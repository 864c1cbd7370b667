package tools

import (
	"flag"

	"github.com/golang/glog"

	"github.com/terrascene/mesh_tiler/internal/tiler"
)

const (
	CommandTile   = "tile"
	CommandVerify = "verify"
)

// FlagsForCommandTile holds the parsed command line of the tile subcommand.
type FlagsForCommandTile struct {
	Config  *string
	Help    *bool
	Version *bool

	Input              *string
	Output             *string
	Srid               *int
	TargetQuality      *float64
	PreserveBoundary   *bool
	PreserveSeams      *bool
	PreserveFoldovers  *bool
	MaxIterations      *int
	Aggressiveness     *float64
	MaxVertexCount     *int
	SmartLink          *bool
	VertexLinkDistance *float64
	LodLevels          *int
	MaxSplitDepth      *int
	GeometricErrorBase *float64
	ParallelSplit      *bool
	FolderProcessing   *bool
	Recursive          *bool
	RefineMode         *string

	flagSet *flag.FlagSet
}

// FlagsForCommandVerify holds the parsed command line of the verify
// subcommand.
type FlagsForCommandVerify struct {
	Input *string
	Help  *bool
}

func ParseFlagsForCommandTile(args []string) *FlagsForCommandTile {
	defaults := tiler.DefaultTilerOptions()
	fs := flag.NewFlagSet(CommandTile, flag.ExitOnError)

	flags := &FlagsForCommandTile{
		Config:  fs.String("config", "", "Optional YAML options file, overridden by explicit flags."),
		Help:    fs.Bool("help", false, "Displays this help."),
		Version: fs.Bool("version", false, "Displays the version of the tool."),

		Input:              fs.String("input", "", "Model file or folder to process."),
		Output:             fs.String("output", "", "Output tileset folder."),
		Srid:               fs.Int("srid", 0, "EPSG code of the model coordinates, 0 keeps the local frame."),
		TargetQuality:      fs.Float64("target-quality", defaults.TargetQuality, "Quality of LOD 0 relative to the source mesh, in (0,1]."),
		PreserveBoundary:   fs.Bool("preserve-boundary", false, "Forbid collapsing mesh border edges."),
		PreserveSeams:      fs.Bool("preserve-seams", false, "Forbid collapsing UV seam edges."),
		PreserveFoldovers:  fs.Bool("preserve-foldovers", false, "Forbid collapsing UV foldover edges."),
		MaxIterations:      fs.Int("max-iterations", defaults.MaxIterations, "Decimation iteration budget per LOD level."),
		Aggressiveness:     fs.Float64("aggressiveness", defaults.Aggressiveness, "Growth rate of the decimation error threshold."),
		MaxVertexCount:     fs.Int("max-vertex-count", 0, "Stop decimating below this vertex count, 0 = unlimited."),
		SmartLink:          fs.Bool("smart-link", false, "Weld coincident border vertices before decimating."),
		VertexLinkDistance: fs.Float64("vertex-link-distance", 0, "Maximum weld distance for smart linking."),
		LodLevels:          fs.Int("lod-levels", defaults.LodLevels, "Number of LOD levels to generate."),
		MaxSplitDepth:      fs.Int("max-split-depth", defaults.MaxSplitDepth, "Spatial quadtree depth of the finest LOD level."),
		GeometricErrorBase: fs.Float64("geometric-error-base", defaults.GeometricErrorBaseThreshold, "Geometric error of the finest LOD level."),
		ParallelSplit:      fs.Bool("parallel-split", defaults.EnableParallelSplit, "Fan the spatial split out per quadrant."),
		FolderProcessing:   fs.Bool("folder", false, "Process all model files in the input folder."),
		Recursive:          fs.Bool("recursive", false, "Recursive lookup of model files in subfolders."),
		RefineMode:         fs.String("refine-mode", defaults.RefineMode.String(), "Refine mode written into the tileset [REPLACE|ADD]."),

		flagSet: fs,
	}

	if err := fs.Parse(args); err != nil {
		glog.Fatal(err)
	}
	return flags
}

// ToTilerOptions resolves defaults, the optional config file and explicit
// flags, in that order of precedence.
func (f *FlagsForCommandTile) ToTilerOptions() (*tiler.TilerOptions, error) {
	opts := tiler.DefaultTilerOptions()
	opts.Command = CommandTile

	if *f.Config != "" {
		if err := tiler.LoadOptionsFile(*f.Config, opts); err != nil {
			return nil, err
		}
	}

	// Only explicitly set flags override the config file.
	f.flagSet.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "input":
			opts.Input = *f.Input
		case "output":
			opts.Output = *f.Output
		case "srid":
			opts.Srid = *f.Srid
		case "target-quality":
			opts.TargetQuality = *f.TargetQuality
		case "preserve-boundary":
			opts.PreserveBoundary = *f.PreserveBoundary
		case "preserve-seams":
			opts.PreserveSeams = *f.PreserveSeams
		case "preserve-foldovers":
			opts.PreserveFoldovers = *f.PreserveFoldovers
		case "max-iterations":
			opts.MaxIterations = *f.MaxIterations
		case "aggressiveness":
			opts.Aggressiveness = *f.Aggressiveness
		case "max-vertex-count":
			opts.MaxVertexCount = *f.MaxVertexCount
		case "smart-link":
			opts.EnableSmartLink = *f.SmartLink
		case "vertex-link-distance":
			opts.VertexLinkDistance = *f.VertexLinkDistance
		case "lod-levels":
			opts.LodLevels = *f.LodLevels
		case "max-split-depth":
			opts.MaxSplitDepth = *f.MaxSplitDepth
		case "geometric-error-base":
			opts.GeometricErrorBaseThreshold = *f.GeometricErrorBase
		case "parallel-split":
			opts.EnableParallelSplit = *f.ParallelSplit
		case "folder":
			opts.FolderProcessing = *f.FolderProcessing
		case "recursive":
			opts.Recursive = *f.Recursive
		case "refine-mode":
			opts.RefineMode = tiler.ParseRefineMode(*f.RefineMode)
		}
	})

	return opts, opts.Validate()
}

func ParseFlagsForCommandVerify(args []string) *FlagsForCommandVerify {
	fs := flag.NewFlagSet(CommandVerify, flag.ExitOnError)
	flags := &FlagsForCommandVerify{
		Input: fs.String("input", "", "Tileset folder to verify."),
		Help:  fs.Bool("help", false, "Displays this help."),
	}
	if err := fs.Parse(args); err != nil {
		glog.Fatal(err)
	}
	return flags
}
