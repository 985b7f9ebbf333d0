package orchestrator

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/famomatic/bvdl/internal/types"
)

const maxNameRunes = 180

// SanitizeName makes s usable as a single path element on common
// filesystems. Reserved characters become underscores.
func SanitizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		case unicode.IsControl(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if runes := []rune(out); len(runes) > maxNameRunes {
		out = string(runes[:maxNameRunes])
	}
	out = strings.TrimRight(out, ". ")
	if out == "" {
		return "untitled"
	}
	return out
}

// VideoDir returns the directory holding every part of meta.
func VideoDir(outputDir string, meta *types.VideoMetadata) string {
	name := meta.Title
	if strings.TrimSpace(name) == "" {
		name = meta.BVID
	}
	return filepath.Join(outputDir, SanitizeName(name))
}

// PartOutputPath returns "<dir>/p<N> <part title>.mp4".
func PartOutputPath(dir string, part types.Part) string {
	name := fmt.Sprintf("p%d", part.Number)
	if t := strings.TrimSpace(part.Title); t != "" {
		name += " " + SanitizeName(t)
	}
	return filepath.Join(dir, name+".mp4")
}
