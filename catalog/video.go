package catalog

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/anisan-cli/anistream/source"
	"github.com/samber/lo"
)

const gib = 1 << 30

var videoExtensions = []string{".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv"}

// PickVideoFile returns the first file of manifest with a known video
// extension, with its quality inferred from size.
func PickVideoFile(manifest source.Manifest) (source.Video, error) {
	file, ok := lo.Find(manifest.Files, func(f source.File) bool {
		return lo.Contains(videoExtensions, strings.ToLower(filepath.Ext(f.Name)))
	})
	if !ok {
		return source.Video{}, fmt.Errorf("%w: %s", source.ErrNoPlayableFile, manifest.Ref)
	}

	return source.Video{
		FileID:    file.ID,
		Name:      file.Name,
		Size:      file.Size,
		Quality:   QualityFromSize(file.Size),
		Extension: strings.ToLower(filepath.Ext(file.Name)),
	}, nil
}

// QualityFromSize guesses a quality label from a file size in bytes.
func QualityFromSize(size int64) string {
	switch {
	case size > 20*gib:
		return "4K"
	case size > 8*gib:
		return "1080p"
	case size > 2*gib:
		return "720p"
	default:
		return "480p"
	}
}
