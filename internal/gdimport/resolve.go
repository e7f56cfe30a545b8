// Package gdimport resolves import paths for the Module Importer: plain
// relative files, directory imports through their lib.spwn, and versioned
// library imports of the form "name@constraint", matched against the
// versions installed under a libraries/ directory with semver range
// checking.
package gdimport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	// LibrariesDir is the directory, resolved relative to the importing
	// file, that holds versioned library installs: libraries/<name>/<version>/.
	LibrariesDir = "libraries"

	// LibFile is the entry file of a directory import or a versioned
	// library install.
	LibFile = "lib.spwn"
)

// Resolve maps importPath to the file the importer should read, relative
// to the directory of currentPath. A path containing "@" names a versioned
// library: "mathx@^1.2" picks the highest install of mathx under
// libraries/ whose version satisfies the constraint. Any other path is
// joined as-is; if it names a directory, its lib.spwn is used.
func Resolve(currentPath, importPath string) (string, error) {
	dir := filepath.Dir(currentPath)

	if name, constraint, ok := strings.Cut(importPath, "@"); ok {
		return resolveVersioned(dir, name, constraint)
	}

	candidate := filepath.Join(dir, importPath)
	if st, err := os.Stat(candidate); err == nil && st.IsDir() {
		return filepath.Join(candidate, LibFile), nil
	}
	return candidate, nil
}

func resolveVersioned(dir, name, constraint string) (string, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return "", fmt.Errorf("invalid version constraint %q for library %s: %w", constraint, name, err)
	}

	libDir := filepath.Join(dir, LibrariesDir, name)
	entries, err := os.ReadDir(libDir)
	if err != nil {
		return "", fmt.Errorf("library %s is not installed under %s: %w", name, filepath.Join(dir, LibrariesDir), err)
	}

	var best *semver.Version
	var bestDir string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, err := semver.NewVersion(e.Name())
		if err != nil {
			// Not a version directory; skip rather than fail, so stray
			// files next to installs don't break resolution.
			continue
		}
		if !c.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestDir = e.Name()
		}
	}
	if best == nil {
		return "", fmt.Errorf("no installed version of library %s satisfies %q", name, constraint)
	}
	return filepath.Join(libDir, bestDir, LibFile), nil
}
