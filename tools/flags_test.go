package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/terrascene/mesh_tiler/internal/tiler"
)

func TestParseFlagsForCommandTile(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		flags := ParseFlagsForCommandTile([]string{"-input", "in.obj", "-output", "out"})
		opts, err := flags.ToTilerOptions()
		require.NoError(t, err)
		require.Equal(t, "in.obj", opts.Input)
		require.Equal(t, "out", opts.Output)
		require.Equal(t, CommandTile, opts.Command)
		require.Equal(t, 3, opts.LodLevels)
		require.Equal(t, tiler.RefineModeReplace, opts.RefineMode)
	})

	t.Run("explicit flags", func(t *testing.T) {
		flags := ParseFlagsForCommandTile([]string{
			"-input", "in.obj", "-output", "out",
			"-lod-levels", "4", "-max-split-depth", "3",
			"-target-quality", "0.75", "-preserve-boundary",
			"-refine-mode", "add",
		})
		opts, err := flags.ToTilerOptions()
		require.NoError(t, err)
		require.Equal(t, 4, opts.LodLevels)
		require.Equal(t, 3, opts.MaxSplitDepth)
		require.Equal(t, 0.75, opts.TargetQuality)
		require.True(t, opts.PreserveBoundary)
		require.Equal(t, tiler.RefineModeAdd, opts.RefineMode)
	})

	t.Run("invalid combination is rejected", func(t *testing.T) {
		flags := ParseFlagsForCommandTile([]string{"-target-quality", "2"})
		_, err := flags.ToTilerOptions()
		require.Error(t, err)
	})

	t.Run("config file with flag override", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "tiler.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte(
			"input: from-config.obj\noutput: out\nlodLevels: 5\naggressiveness: 4\n"), 0666))

		flags := ParseFlagsForCommandTile([]string{
			"-config", configPath, "-lod-levels", "2",
		})
		opts, err := flags.ToTilerOptions()
		require.NoError(t, err)
		require.Equal(t, "from-config.obj", opts.Input)
		require.Equal(t, 4.0, opts.Aggressiveness)
		// Explicit flags beat the config file.
		require.Equal(t, 2, opts.LodLevels)
	})
}

func TestParseFlagsForCommandVerify(t *testing.T) {
	flags := ParseFlagsForCommandVerify([]string{"-input", "tileset-folder"})
	require.Equal(t, "tileset-folder", *flags.Input)
	require.False(t, *flags.Help)
}
