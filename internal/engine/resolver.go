package engine

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/sgmcp/sgmcp/internal/errs"
)

// engineNames are the binary names probed on PATH, preferred first.
var engineNames = []string{"ast-grep", "sg"}

// Resolver locates the engine executable. Resolution happens once per
// process lifetime and is cached; the sandbox never re-resolves mid-run.
type Resolver struct {
	// Override is an explicit executable path from configuration; it
	// wins over PATH and the managed directory when set.
	Override string

	once sync.Once
	path string
	err  error
}

// Resolve returns the absolute path of the engine executable, trying the
// configured override, then PATH, then the managed install directory.
func (r *Resolver) Resolve() (string, error) {
	r.once.Do(func() { r.path, r.err = r.resolve() })
	return r.path, r.err
}

func (r *Resolver) resolve() (string, error) {
	if r.Override != "" {
		info, err := os.Stat(r.Override)
		if err != nil || info.IsDir() {
			return "", errs.Newf(errs.KindBinary,
				"configured engine path %s is not an executable file", r.Override).
				WithHint("Fix SGMCP_BINARY or unset it to resolve from PATH.")
		}
		return filepath.Abs(r.Override)
	}

	for _, name := range engineNames {
		if path, err := exec.LookPath(name); err == nil {
			return filepath.Abs(path)
		}
	}

	managed := filepath.Join(ManagedDir(), exeName())
	if info, err := os.Stat(managed); err == nil && !info.IsDir() {
		return managed, nil
	}

	return "", errs.New(errs.KindBinary, "the ast-grep engine was not found").
		WithHint("Install it (https://ast-grep.github.io), run `sgmcp fetch`, or set SGMCP_BINARY.")
}

// ManagedDir is where `sgmcp fetch` installs the engine.
func ManagedDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".sgmcp", "bin")
	}
	return filepath.Join(home, ".sgmcp", "bin")
}

func exeName() string {
	if runtime.GOOS == "windows" {
		return "ast-grep.exe"
	}
	return "ast-grep"
}
