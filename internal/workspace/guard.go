package workspace

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/sgmcp/sgmcp/internal/config"
	"github.com/sgmcp/sgmcp/internal/errs"
)

// Guard estimates the cost of a request before the engine runs. Unbounded
// recursive scans are the dominant cost driver, so the hard limit is the
// aggregate file count; oversized or unreadable entries only warn.
type Guard struct {
	MaxFiles    int
	MaxFileSize int64
	MaxDepth    int
}

// NewGuard builds a guard, substituting defaults for non-positive limits.
func NewGuard(maxFiles int, maxFileSize int64) *Guard {
	if maxFiles <= 0 {
		maxFiles = config.DefaultMaxFiles
	}
	if maxFileSize <= 0 {
		maxFileSize = config.DefaultMaxFileSize
	}
	return &Guard{MaxFiles: maxFiles, MaxFileSize: maxFileSize, MaxDepth: config.DefaultMaxPathDepth}
}

// CheckLimits walks every path, counting files across all of them. It
// returns a resource error when the total exceeds MaxFiles; everything
// else (oversized files, unreadable entries, hidden directories) degrades
// to warnings or silent skips so partial visibility never blocks an
// otherwise-valid request.
func (g *Guard) CheckLimits(paths []string) ([]string, error) {
	var warnings []string
	total := 0

	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("skipped unreadable entry %s: %v", path, err))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != root && isHiddenName(d.Name()) {
					return fs.SkipDir
				}
				if depthBelow(root, path) > g.MaxDepth {
					return fs.SkipDir
				}
				return nil
			}

			total++
			if total > g.MaxFiles {
				return errs.Newf(errs.KindResource, "request would scan more than %d files", g.MaxFiles).
					WithHint("Narrow the paths or add exclude globs.")
			}

			if info, ierr := d.Info(); ierr == nil && info.Size() > g.MaxFileSize {
				warnings = append(warnings, fmt.Sprintf(
					"%s is %d bytes (over the %d byte ceiling); the engine may be slow on it",
					path, info.Size(), g.MaxFileSize))
			}
			return nil
		})
		if err != nil {
			if _, ok := err.(*errs.Error); ok { //nolint:errorlint // walk returns our error directly
				return warnings, err
			}
			warnings = append(warnings, fmt.Sprintf("walk of %s aborted: %v", root, err))
		}
	}

	return warnings, nil
}

// isHiddenName reports dotfile-style hidden names, keeping "." and ".."
// out of consideration.
func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// depthBelow counts path separators between a walk root and a descendant.
func depthBelow(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
