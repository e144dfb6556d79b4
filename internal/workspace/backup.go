package workspace

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// BackupFiles copies every file under the given targets into a timestamped
// directory under <root>/.sgmcp/backups/, preserving each file's path
// relative to the root. Directory targets are backed up recursively.
//
// Backup failures are reported as warnings and never block the caller:
// an apply the user asked for must not be held hostage by a full disk in
// the backup area. Concurrent applies may race on the timestamp; MkdirAll
// gives create-if-missing semantics, so the worst case is duplicate
// backups, never corruption.
func BackupFiles(root string, targets []string) (string, []string) {
	stamp := time.Now().Format("20060102-150405.000")
	backupRoot := filepath.Join(root, ".sgmcp", "backups", stamp)

	var warnings []string
	if err := os.MkdirAll(backupRoot, 0o755); err != nil {
		return "", []string{fmt.Sprintf("backup directory %s: %v", backupRoot, err)}
	}

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("backup skipped %s: %v", target, err))
			continue
		}
		if info.IsDir() {
			warnings = append(warnings, backupTree(root, backupRoot, target)...)
			continue
		}
		if w := backupOne(root, backupRoot, target); w != "" {
			warnings = append(warnings, w)
		}
	}

	return backupRoot, warnings
}

func backupTree(root, backupRoot, dir string) []string {
	var warnings []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("backup skipped %s: %v", path, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			// Never back up our own backup area.
			if d.Name() == ".sgmcp" {
				return fs.SkipDir
			}
			return nil
		}
		if w := backupOne(root, backupRoot, path); w != "" {
			warnings = append(warnings, w)
		}
		return nil
	})
	return warnings
}

func backupOne(root, backupRoot, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == ".." || filepath.IsAbs(rel) {
		// Outside the root; mirror under a flat name instead of escaping.
		rel = filepath.Base(file)
	}

	dest := filepath.Join(backupRoot, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Sprintf("backup of %s: %v", file, err)
	}
	if err := copyFile(file, dest); err != nil {
		return fmt.Sprintf("backup of %s: %v", file, err)
	}
	return ""
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
