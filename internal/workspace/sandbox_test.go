package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sgmcp/sgmcp/internal/errs"
)

// setupProject builds a minimal project tree: a go.mod indicator plus a
// src/ directory with one source file.
func setupProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "src", "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	// t.TempDir may live under a symlinked parent (macOS /tmp); canonicalize
	// so relative-path assertions hold.
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return resolved
}

func newTestSandbox(t *testing.T, root string) *Sandbox {
	t.Helper()
	sb, err := NewSandbox(root, nil, 0)
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	return sb
}

// --- DetectRootFrom ---

func TestDetectRootFrom_FindsIndicatorInAncestor(t *testing.T) {
	root := setupProject(t)
	nested := filepath.Join(root, "src")

	if got := DetectRootFrom(nested, 12); got != root {
		t.Errorf("DetectRootFrom = %s, want %s", got, root)
	}
}

func TestDetectRootFrom_IndicatorWithoutSourceLayoutDoesNotQualify(t *testing.T) {
	dir := t.TempDir()
	// A Makefile alone, with no source files, must not make a root.
	if err := os.WriteFile(filepath.Join(dir, "Makefile"), []byte("all:\n"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	sub := filepath.Join(dir, "docs")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if got := DetectRootFrom(sub, 3); got != sub {
		t.Errorf("DetectRootFrom = %s, want fallback to start %s", got, sub)
	}
}

func TestDetectRoot_ExplicitOverrideWins(t *testing.T) {
	root := setupProject(t)

	got, err := DetectRoot(root)
	if err != nil {
		t.Fatalf("DetectRoot: %v", err)
	}
	if got != root {
		t.Errorf("DetectRoot = %s, want %s", got, root)
	}
}

func TestDetectRoot_ExplicitNonDirectoryFails(t *testing.T) {
	root := setupProject(t)

	if _, err := DetectRoot(filepath.Join(root, "go.mod")); err == nil {
		t.Error("DetectRoot should reject a file as explicit root")
	}
}

// --- Validate ---

func TestValidate_AcceptsRelativePathInsideRoot(t *testing.T) {
	root := setupProject(t)
	sb := newTestSandbox(t, root)

	got, err := sb.Validate("src/main.go")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := filepath.Join(root, "src", "main.go")
	if got != want {
		t.Errorf("resolved = %s, want %s", got, want)
	}
}

func TestValidate_AcceptsRootItself(t *testing.T) {
	root := setupProject(t)
	sb := newTestSandbox(t, root)

	if _, err := sb.Validate(root); err != nil {
		t.Errorf("Validate(root) = %v, want ok", err)
	}
}

func TestValidate_RejectsParentTraversal(t *testing.T) {
	root := setupProject(t)
	sb := newTestSandbox(t, root)

	cases := []string{
		"../../../etc",
		"..",
		"src/../../outside",
		filepath.Join(root, "..", "sibling"),
	}
	for _, candidate := range cases {
		t.Run(candidate, func(t *testing.T) {
			_, err := sb.Validate(candidate)
			if err == nil {
				t.Fatal("expected rejection")
			}
			var e *errs.Error
			if !errors.As(err, &e) || e.Kind != errs.KindSecurity {
				t.Errorf("kind = %v, want security", errs.KindOf(err))
			}
		})
	}
}

func TestValidate_RejectsTrailingSeparatorStyling(t *testing.T) {
	root := setupProject(t)
	sb := newTestSandbox(t, root)

	if _, err := sb.Validate("src/./../../etc/"); err == nil {
		t.Error("styled traversal should still be rejected")
	}
}

func TestValidate_RejectsBlockedPath(t *testing.T) {
	root := setupProject(t)
	blockedDir := filepath.Join(root, "secrets")
	if err := os.MkdirAll(filepath.Join(blockedDir, "keys"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	sb, err := NewSandbox(root, []string{blockedDir}, 0)
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}

	_, err = sb.Validate("secrets/keys")
	if errs.KindOf(err) != errs.KindSecurity {
		t.Errorf("blocked path: kind = %v, want security", errs.KindOf(err))
	}
}

func TestValidate_RejectsVCSInternals(t *testing.T) {
	root := setupProject(t)
	if err := os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	sb := newTestSandbox(t, root)

	_, err := sb.Validate(".git/objects")
	if errs.KindOf(err) != errs.KindSecurity {
		t.Errorf("kind = %v, want security", errs.KindOf(err))
	}
}

func TestValidate_RejectsMissingPath(t *testing.T) {
	root := setupProject(t)
	sb := newTestSandbox(t, root)

	_, err := sb.Validate("no/such/file.go")
	if errs.KindOf(err) != errs.KindValidation {
		t.Errorf("kind = %v, want validation", errs.KindOf(err))
	}
}

func TestValidate_RejectsOverDeepPath(t *testing.T) {
	root := setupProject(t)
	deep := root
	for i := 0; i < 12; i++ {
		deep = filepath.Join(deep, "d")
	}
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	sb := newTestSandbox(t, root)

	_, err := sb.Validate(deep)
	if errs.KindOf(err) != errs.KindSecurity {
		t.Errorf("kind = %v, want security", errs.KindOf(err))
	}
}

func TestValidate_SymlinkEscapeRejected(t *testing.T) {
	root := setupProject(t)
	outside := t.TempDir()
	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	sb := newTestSandbox(t, root)

	_, err := sb.Validate("escape")
	if errs.KindOf(err) != errs.KindSecurity {
		t.Errorf("kind = %v, want security", errs.KindOf(err))
	}
}

// --- ResolvePaths ---

func TestResolvePaths_EmptyDefaultsToRoot(t *testing.T) {
	root := setupProject(t)
	sb := newTestSandbox(t, root)

	got, err := sb.ResolvePaths(nil)
	if err != nil {
		t.Fatalf("ResolvePaths: %v", err)
	}
	if len(got) != 1 || got[0] != root {
		t.Errorf("ResolvePaths(nil) = %v, want [%s]", got, root)
	}
}

func TestResolvePaths_PreservesOrder(t *testing.T) {
	root := setupProject(t)
	sb := newTestSandbox(t, root)

	got, err := sb.ResolvePaths([]string{"src", "go.mod"})
	if err != nil {
		t.Fatalf("ResolvePaths: %v", err)
	}
	if len(got) != 2 || filepath.Base(got[0]) != "src" || filepath.Base(got[1]) != "go.mod" {
		t.Errorf("ResolvePaths order = %v", got)
	}
}

func TestResolvePaths_FailsFastOnFirstBadPath(t *testing.T) {
	root := setupProject(t)
	sb := newTestSandbox(t, root)

	_, err := sb.ResolvePaths([]string{"../outside", "src"})
	if err == nil {
		t.Fatal("expected rejection")
	}
}
