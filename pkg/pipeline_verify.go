package pkg

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/segmentio/encoding/json"
	"github.com/shopspring/decimal"

	"github.com/terrascene/mesh_tiler/internal/io"
	"github.com/terrascene/mesh_tiler/internal/tiler"
)

// boundsEpsilon absorbs the float rounding the index writer introduces when
// it serializes bounding volumes.
const boundsEpsilon = 1e-6

// TilerVerify re-reads a written tileset and checks its structural
// invariants: geometric errors never grow towards the leaves, child volumes
// stay inside their parent and every content reference resolves to a file.
type TilerVerify struct{}

func NewTilerVerify() ITiler {
	return &TilerVerify{}
}

func (v *TilerVerify) RunTiler(opts *tiler.TilerOptions) error {
	tilesetPath := filepath.Join(opts.Input, "tileset.json")
	glog.Infoln("> verifying tileset", tilesetPath)

	data, err := os.ReadFile(tilesetPath)
	if err != nil {
		return fmt.Errorf("read tileset index: %w", err)
	}
	var tileset io.Tileset
	if err := json.Unmarshal(data, &tileset); err != nil {
		return fmt.Errorf("parse tileset index: %w", err)
	}

	report := &verifyReport{}
	v.verifyTile(&tileset.Root, decimal.NewFromFloat(tileset.GeometricError), opts.Input, "root", report)

	glog.Infof("> verified %d tiles, %d contents, %d problems",
		report.tiles, report.contents, len(report.problems))
	if len(report.problems) > 0 {
		for _, problem := range report.problems {
			glog.Warningln(problem)
		}
		return fmt.Errorf("tileset verification found %d problems", len(report.problems))
	}
	return nil
}

type verifyReport struct {
	tiles    int
	contents int
	problems []string
}

func (r *verifyReport) addf(format string, args ...interface{}) {
	r.problems = append(r.problems, fmt.Sprintf(format, args...))
}

func (v *TilerVerify) verifyTile(tile *io.Tile, parentError decimal.Decimal, basePath, location string, report *verifyReport) {
	report.tiles++

	// Float comparison via decimal keeps equal errors equal even after the
	// JSON round trip.
	tileError := decimal.NewFromFloat(tile.GeometricError)
	if tileError.GreaterThan(parentError) {
		report.addf("%s: geometric error %s exceeds parent error %s",
			location, tileError.String(), parentError.String())
	}
	if tile.GeometricError < 0 {
		report.addf("%s: negative geometric error %v", location, tile.GeometricError)
	}

	if tile.Refine != "" && tiler.ParseRefineMode(string(tile.Refine)) == "" {
		report.addf("%s: unknown refine mode %q", location, tile.Refine)
	}

	if len(tile.BoundingVolume.Box) != 0 && len(tile.BoundingVolume.Box) != 12 {
		report.addf("%s: bounding box has %d values, expected 12", location, len(tile.BoundingVolume.Box))
	}
	if len(tile.BoundingVolume.Region) != 0 && len(tile.BoundingVolume.Region) != 6 {
		report.addf("%s: bounding region has %d values, expected 6", location, len(tile.BoundingVolume.Region))
	}

	if tile.Content != nil {
		report.contents++
		contentPath := filepath.Join(basePath, filepath.FromSlash(tile.Content.Uri))
		if info, err := os.Stat(contentPath); err != nil {
			report.addf("%s: content %s not readable: %v", location, tile.Content.Uri, err)
		} else if info.Size() == 0 {
			report.addf("%s: content %s is empty", location, tile.Content.Uri)
		}
	}

	for i := range tile.Children {
		child := &tile.Children[i]
		childLocation := path.Join(location, fmt.Sprintf("children[%d]", i))
		if !volumeContains(tile.BoundingVolume, child.BoundingVolume) {
			report.addf("%s: bounding volume not contained in parent", childLocation)
		}
		v.verifyTile(child, tileError, basePath, childLocation, report)
	}
}

// volumeContains checks axis aligned containment with an epsilon. Volumes of
// mixed kinds are not comparable and pass.
func volumeContains(parent, child io.BoundingVolume) bool {
	if len(parent.Box) == 12 && len(child.Box) == 12 {
		for axis := 0; axis < 3; axis++ {
			pMin, pMax := boxInterval(parent.Box, axis)
			cMin, cMax := boxInterval(child.Box, axis)
			if cMin < pMin-boundsEpsilon || cMax > pMax+boundsEpsilon {
				return false
			}
		}
		return true
	}
	if len(parent.Region) == 6 && len(child.Region) == 6 {
		// Region layout is west, south, east, north, minHeight, maxHeight.
		if child.Region[0] < parent.Region[0]-boundsEpsilon ||
			child.Region[1] < parent.Region[1]-boundsEpsilon ||
			child.Region[2] > parent.Region[2]+boundsEpsilon ||
			child.Region[3] > parent.Region[3]+boundsEpsilon {
			return false
		}
		if child.Region[4] < parent.Region[4]-boundsEpsilon ||
			child.Region[5] > parent.Region[5]+boundsEpsilon {
			return false
		}
		return true
	}
	return true
}

// boxInterval projects an axis aligned 3D Tiles box onto one axis. The box
// layout is center followed by three half axis vectors.
func boxInterval(box []float64, axis int) (float64, float64) {
	center := box[axis]
	extent := 0.0
	for h := 0; h < 3; h++ {
		v := box[3+3*h+axis]
		if v < 0 {
			v = -v
		}
		extent += v
	}
	return center - extent, center + extent
}
