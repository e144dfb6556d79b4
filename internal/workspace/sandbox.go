// Package workspace enforces the project boundary for every request: root
// detection, path sandboxing, resource ceilings, and pre-apply backups.
//
// The sandbox is built once at startup and shared read-only between
// concurrent requests. All functions here are pure over filesystem existence
// checks — a failed stat is a rejection, never a panic.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sgmcp/sgmcp/internal/config"
	"github.com/sgmcp/sgmcp/internal/errs"
)

// Root indicators, strongest first. A directory qualifies as the project
// root when it contains any tier-1 or tier-2 indicator AND shows a
// recognizable source layout. Weak signals like README.md never qualify
// on their own.
var (
	tier1Indicators = []string{
		".git", ".hg", ".svn",
		"go.mod", "package.json", "Cargo.toml", "pyproject.toml",
		"pom.xml", "build.gradle", "Gemfile", "composer.json",
	}
	tier2Indicators = []string{
		"Makefile", "CMakeLists.txt", "setup.py", "requirements.txt",
		"tsconfig.json", "deno.json", "mix.exs",
	}

	// sourceDirNames are conventional source directory names that mark a
	// directory as containing code rather than, say, a home directory that
	// happens to hold a stray Makefile.
	sourceDirNames = []string{"src", "lib", "app", "cmd", "internal", "pkg", "source", "tests", "test"}

	// sourceExtensions recognize loose source files at the candidate root.
	sourceExtensions = []string{
		".go", ".js", ".jsx", ".ts", ".tsx", ".py", ".rs", ".java", ".kt",
		".c", ".h", ".cc", ".cpp", ".hpp", ".cs", ".rb", ".php", ".swift",
		".scala", ".ex", ".exs", ".lua", ".zig",
	}
)

// DetectRoot finds the sandbox root. An explicit root is canonicalized and
// used as-is; otherwise the walk starts at the working directory and climbs
// a bounded number of ancestors looking for an indicator + source layout.
// When nothing qualifies, the working directory is the root.
func DetectRoot(explicit string) (string, error) {
	if explicit != "" {
		resolved, err := canonicalize(explicit)
		if err != nil {
			return "", fmt.Errorf("resolving explicit root %s: %w", explicit, err)
		}
		info, err := os.Stat(resolved)
		if err != nil || !info.IsDir() {
			return "", fmt.Errorf("explicit root %s is not a directory", explicit)
		}
		return resolved, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	cwd, err = canonicalize(cwd)
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return DetectRootFrom(cwd, config.DefaultAncestorHops), nil
}

// DetectRootFrom runs the ancestor walk from a given start directory. Split
// out from DetectRoot so tests can exercise the walk against fixture trees
// without changing the process working directory.
func DetectRootFrom(start string, maxHops int) string {
	current := start
	for hop := 0; hop <= maxHops; hop++ {
		if hasIndicator(current) && hasSourceLayout(current) {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return start
}

func hasIndicator(dir string) bool {
	for _, name := range tier1Indicators {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	for _, name := range tier2Indicators {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func hasSourceLayout(dir string) bool {
	for _, name := range sourceDirNames {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && info.IsDir() {
			return true
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, known := range sourceExtensions {
			if ext == known {
				return true
			}
		}
	}
	return false
}

// Sandbox decides whether candidate paths lie inside the detected root and
// outside every blocked system path. It is immutable after construction.
type Sandbox struct {
	root     string
	blocked  []string
	maxDepth int
}

// DefaultBlockedPaths returns the fixed set of OS credential and system
// directories no request may touch, relative to the current user's home.
// The list is a plain value so tests can substitute a fixture list.
func DefaultBlockedPaths() []string {
	paths := []string{
		"/etc", "/boot", "/bin", "/sbin", "/lib", "/lib64",
		"/usr/bin", "/usr/sbin", "/usr/lib",
		"/System", "/Library", // macOS
		`C:\Windows`, `C:\Program Files`,
	}
	if home, err := os.UserHomeDir(); err == nil {
		for _, sub := range []string{
			".ssh", ".gnupg", ".aws", ".azure", ".kube",
			filepath.Join(".config", "gcloud"),
			".bash_history", ".zsh_history",
		} {
			paths = append(paths, filepath.Join(home, sub))
		}
	}
	return paths
}

// NewSandbox builds a sandbox over a canonical root. Blocked paths are
// canonicalized once here; entries that do not exist are kept verbatim so
// the boundary still holds if they appear later.
func NewSandbox(root string, blocked []string, maxDepth int) (*Sandbox, error) {
	canonRoot, err := canonicalize(root)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing root %s: %w", root, err)
	}
	if maxDepth <= 0 {
		maxDepth = config.DefaultMaxPathDepth
	}

	canonBlocked := make([]string, 0, len(blocked))
	for _, b := range blocked {
		if c, err := canonicalize(b); err == nil {
			canonBlocked = append(canonBlocked, c)
		} else {
			canonBlocked = append(canonBlocked, filepath.Clean(b))
		}
	}

	return &Sandbox{root: canonRoot, blocked: canonBlocked, maxDepth: maxDepth}, nil
}

// Root returns the canonical sandbox root.
func (s *Sandbox) Root() string { return s.root }

// Validate resolves a candidate path against the root and rejects anything
// that escapes it, exceeds the depth bound, or touches a blocked path.
// It returns the canonical absolute path on success.
func (s *Sandbox) Validate(candidate string) (string, error) {
	if strings.TrimSpace(candidate) == "" {
		return "", errs.New(errs.KindValidation, "path must not be empty")
	}

	resolved := candidate
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(s.root, resolved)
	}
	resolved, err := canonicalize(resolved)
	if err != nil {
		return "", errs.Newf(errs.KindSecurity, "path %s cannot be resolved inside the workspace", candidate).
			WithHint("Only existing paths under the project root are allowed.")
	}

	rel, err := filepath.Rel(s.root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errs.Newf(errs.KindSecurity, "path %s escapes the workspace root %s", candidate, s.root).
			WithHint("Use paths inside the project, without .. traversal.")
	}

	if rel != "." {
		segments := strings.Split(rel, string(filepath.Separator))
		if len(segments) > s.maxDepth {
			return "", errs.Newf(errs.KindSecurity, "path %s is nested %d levels deep (max %d)", candidate, len(segments), s.maxDepth).
				WithHint("Target a shallower directory.")
		}
		for _, seg := range segments {
			if seg == ".git" || seg == ".hg" || seg == ".svn" {
				return "", errs.Newf(errs.KindSecurity, "path %s is inside version-control internals", candidate).
					WithHint("Version-control metadata is never scanned or modified.")
			}
		}
	}

	for _, b := range s.blocked {
		if resolved == b || strings.HasPrefix(resolved, b+string(filepath.Separator)) {
			return "", errs.Newf(errs.KindSecurity, "path %s is under the blocked system path %s", candidate, b).
				WithHint("System and credential directories are off limits.")
		}
	}

	if _, err := os.Lstat(resolved); err != nil {
		return "", errs.Newf(errs.KindValidation, "path %s does not exist in the workspace", candidate).
			WithHint("Check the spelling; paths are relative to the project root.")
	}

	return resolved, nil
}

// ResolvePaths validates every candidate in order, preserving order. An
// empty candidate list resolves to the root itself.
func (s *Sandbox) ResolvePaths(candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return []string{s.root}, nil
	}
	resolved := make([]string, 0, len(candidates))
	for _, c := range candidates {
		p, err := s.Validate(c)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, p)
	}
	return resolved, nil
}

// canonicalize makes a path absolute and resolves symlinks. For paths whose
// leaf does not exist, the nearest existing ancestor is resolved so a
// symlinked parent cannot smuggle a path out of the root.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	dir, base := filepath.Split(filepath.Clean(abs))
	parent, err := filepath.EvalSymlinks(filepath.Clean(dir))
	if err != nil {
		return "", err
	}
	return filepath.Join(parent, base), nil
}
