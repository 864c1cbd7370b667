package tools

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"

	"github.com/terrascene/mesh_tiler/internal/tiler"
)

const modelFileExtension = ".obj"

type FileFinder interface {
	GetModelFilesToProcess(opts *tiler.TilerOptions) []string
}

type StandardFileFinder struct{}

func NewStandardFileFinder() FileFinder {
	return &StandardFileFinder{}
}

func (f *StandardFileFinder) GetModelFilesToProcess(opts *tiler.TilerOptions) []string {
	// If folder processing is not enabled the model file is given by the
	// input flag directly, otherwise look for model files in the input
	// folder, eventually excluding nested folders if Recursive is disabled.
	if !opts.FolderProcessing {
		return []string{opts.Input}
	}

	return f.getModelFilesFromInputFolder(opts)
}

func (f *StandardFileFinder) getModelFilesFromInputFolder(opts *tiler.TilerOptions) []string {
	var modelFiles = make([]string, 0)

	baseInfo, _ := os.Stat(opts.Input)
	err := filepath.Walk(
		opts.Input,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() && !opts.Recursive && !os.SameFile(info, baseInfo) {
				return filepath.SkipDir
			}
			if strings.ToLower(filepath.Ext(info.Name())) == modelFileExtension {
				modelFiles = append(modelFiles, path)
			}
			return nil
		},
	)

	if err != nil {
		glog.Fatal(err)
	}

	return modelFiles
}
