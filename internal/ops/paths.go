package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hpungsan/parley/internal/config"
	"github.com/hpungsan/parley/internal/db"
	"github.com/hpungsan/parley/internal/errors"
)

// ExportExt is the only extension export and import accept.
const ExportExt = ".jsonl"

// Access says whether an export file is about to be read or written.
type Access int

const (
	ForRead Access = iota
	ForWrite
)

// ExportDir returns ~/.parley/exports, the directory default exports land in.
func ExportDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("resolve home directory: %w", err))
	}
	return filepath.Join(home, config.RepoDirName, db.ExportsDirName), nil
}

// ExportFileName names an export of one platform's calls taken at at,
// e.g. "google-meet-2026-03-02T150500.jsonl". An empty platform means every
// platform and yields "all-...".
func ExportFileName(platform string, at time.Time) string {
	return platformSlug(platform) + "-" + at.Format("2006-01-02T150405") + ExportExt
}

// platformSlug lowercases a platform tag and keeps only [a-z0-9]; every other
// run of characters becomes a single dash.
func platformSlug(platform string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(platform) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "all"
	}
	return slug
}

// pathPolicy decides where summary exports may be read from and written to.
//
// A file must sit directly inside one of roots (no subdirectories), so the
// only component that can be swapped for a symlink is the file itself, and
// that is opened with O_NOFOLLOW. unsafe lifts the roots rule only; symlinked
// files are refused either way.
type pathPolicy struct {
	roots  []string
	unsafe bool
}

func newPathPolicy(cfg *config.Config) (pathPolicy, error) {
	if cfg != nil && cfg.AllowUnsafePaths {
		return pathPolicy{unsafe: true}, nil
	}
	dir, err := ExportDir()
	if err != nil {
		return pathPolicy{}, err
	}
	candidates := []string{dir}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	var p pathPolicy
	for _, c := range candidates {
		root := filepath.Clean(c)
		// A root that is itself a symlink is trusted as configured; compare
		// against its target.
		if isSymlink(root) {
			target, err := filepath.EvalSymlinks(root)
			if err != nil {
				return pathPolicy{}, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve allowed path %s: %v", c, err))
			}
			root = target
		}
		if !slices.Contains(p.roots, root) {
			p.roots = append(p.roots, root)
		}
	}
	return p, nil
}

// check validates path for access and returns it cleaned and absolute.
func (p pathPolicy) check(path string, access Access) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.NewInvalidRequest("path is required")
	}
	if hasParentRef(path) {
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}
	if filepath.Ext(path) != ExportExt {
		return "", errors.NewInvalidRequest("path must have " + ExportExt + " extension")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if !p.unsafe {
		dir := filepath.Dir(abs)
		if !slices.Contains(p.roots, dir) {
			return "", errors.NewInvalidRequest(fmt.Sprintf(
				"export files must sit directly in one of %v", p.roots))
		}
		if isSymlink(dir) {
			return "", errors.NewInvalidRequest("export directory must not be a symlink")
		}
	}

	if access == ForRead {
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			return "", errors.NewFileNotFound(path)
		}
	}
	if isSymlink(abs) {
		return "", errors.NewInvalidRequest("export file must not be a symlink")
	}
	return abs, nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// hasParentRef reports whether any element of path, split on "/" or the OS
// separator, is "..".
func hasParentRef(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	}) {
		if part == ".." {
			return true
		}
	}
	return false
}
