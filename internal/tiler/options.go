package tiler

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type RefineMode string

const (
	RefineModeAdd     RefineMode = "ADD"
	RefineModeReplace RefineMode = "REPLACE"
)

func (e RefineMode) String() string {
	if e == RefineModeAdd {
		return "ADD"
	} else if e == RefineModeReplace {
		return "REPLACE"
	}
	return ""
}

func ParseRefineMode(value string) RefineMode {
	normalizedValue := strings.Trim(strings.ToUpper(value), " ")
	if normalizedValue == "ADD" {
		return RefineModeAdd
	} else if normalizedValue == "REPLACE" {
		return RefineModeReplace
	}
	return ""
}

// Contains the options needed for the tiling pipeline
type TilerOptions struct {
	Input  string `yaml:"input"`  // Input model file/folder
	Output string `yaml:"output"` // Output tileset folder
	Srid   int    `yaml:"srid"`   // EPSG code of the model coordinates, 0 = local frame

	TargetQuality      float64 `yaml:"targetQuality"`      // Quality of LOD 0 relative to the source mesh (0-1]
	PreserveBoundary   bool    `yaml:"preserveBoundary"`   // Forbid collapsing border edges
	PreserveSeams      bool    `yaml:"preserveSeams"`      // Forbid collapsing seam edges
	PreserveFoldovers  bool    `yaml:"preserveFoldovers"`  // Forbid collapsing foldover edges
	MaxIterations      int     `yaml:"maxIterations"`      // Decimation iteration budget
	Aggressiveness     float64 `yaml:"aggressiveness"`     // Growth rate of the per-iteration error threshold
	MaxVertexCount     int     `yaml:"maxVertexCount"`     // Vertex floor for decimation, 0 = unlimited
	EnableSmartLink    bool    `yaml:"enableSmartLink"`    // Weld coincident border vertices before decimating
	VertexLinkDistance float64 `yaml:"vertexLinkDistance"` // Maximum weld distance for smart linking

	LodLevels                   int     `yaml:"lodLevels"`                   // Number of LOD levels, >= 1
	MaxSplitDepth               int     `yaml:"maxSplitDepth"`               // Spatial quadtree depth, >= 0
	GeometricErrorBaseThreshold float64 `yaml:"geometricErrorBaseThreshold"` // Error of the finest LOD level
	EnableParallelSplit         bool    `yaml:"enableParallelSplit"`         // Fan split recursion out per quadrant

	FolderProcessing bool       `yaml:"folderProcessing"` // Process all model files in the input folder
	Recursive        bool       `yaml:"recursive"`        // Recursive lookup of model files in subfolders
	RefineMode       RefineMode `yaml:"refineMode"`       // Refine mode written into the tileset

	Command string `yaml:"-"`
}

// DefaultTilerOptions returns the recognized option defaults.
func DefaultTilerOptions() *TilerOptions {
	return &TilerOptions{
		TargetQuality:               1.0,
		MaxIterations:               100,
		Aggressiveness:              7.0,
		LodLevels:                   3,
		MaxSplitDepth:               2,
		GeometricErrorBaseThreshold: 1.0,
		EnableParallelSplit:         true,
		RefineMode:                  RefineModeReplace,
	}
}

// Validate rejects bad option combinations before any pipeline work starts.
func (opt *TilerOptions) Validate() error {
	if opt.TargetQuality <= 0 || opt.TargetQuality > 1 {
		return fmt.Errorf("targetQuality must be in (0, 1], got %v", opt.TargetQuality)
	}
	if opt.LodLevels < 1 {
		return fmt.Errorf("lodLevels must be >= 1, got %d", opt.LodLevels)
	}
	if opt.MaxSplitDepth < 0 {
		return fmt.Errorf("maxSplitDepth must be >= 0, got %d", opt.MaxSplitDepth)
	}
	if opt.MaxIterations <= 0 {
		return fmt.Errorf("maxIterations must be > 0, got %d", opt.MaxIterations)
	}
	if opt.MaxVertexCount < 0 {
		return fmt.Errorf("maxVertexCount must be >= 0, got %d", opt.MaxVertexCount)
	}
	if opt.RefineMode == "" {
		return fmt.Errorf("refineMode should be either ADD or REPLACE")
	}
	return nil
}

// LoadOptionsFile overlays the YAML file at path onto the given options.
func LoadOptionsFile(path string, opt *TilerOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read options file: %w", err)
	}
	if err := yaml.Unmarshal(data, opt); err != nil {
		return fmt.Errorf("parse options file %s: %w", path, err)
	}
	return nil
}

func (opt *TilerOptions) Copy() *TilerOptions {
	newOpt := *opt
	return &newOpt
}
