package hosting

import (
	"fmt"
	"io"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// ParsePatch sums a unified diff into file and line counts. Binary files
// count toward Files but contribute no line totals.
func ParsePatch(r io.Reader) (DiffStats, error) {
	files, _, err := gitdiff.Parse(r)
	if err != nil {
		return DiffStats{}, fmt.Errorf("parse patch: %w", err)
	}

	stats := DiffStats{Files: len(files)}
	for _, file := range files {
		for _, frag := range file.TextFragments {
			for _, line := range frag.Lines {
				switch line.Op {
				case gitdiff.OpAdd:
					stats.Additions++
				case gitdiff.OpDelete:
					stats.Deletions++
				}
			}
		}
	}
	return stats, nil
}
