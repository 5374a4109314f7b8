// Package paths converts between work-tree paths on disk and the
// root-relative, slash-separated form stored in the fact database.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveRoot returns the absolute, symlink-free form of a repository root.
func ResolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// RelativeTo converts a path under root to the stored form.
// Paths outside root keep their "../" prefix; see IsWithinRepo.
func RelativeTo(path, root string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// CanonicalizePath resolves symlinks on both sides before RelativeTo.
// A path that does not exist yet is used as-is.
func CanonicalizePath(absolutePath, repoRoot string) (string, error) {
	resolved, err := evalIfExists(absolutePath)
	if err != nil {
		return "", err
	}
	rootResolved, err := evalIfExists(repoRoot)
	if err != nil {
		return "", err
	}
	return RelativeTo(resolved, rootResolved)
}

func evalIfExists(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return "", err
	}
	return resolved, nil
}

// IsWithinRepo checks if a path is within the repository root.
func IsWithinRepo(path, repoRoot string) bool {
	canonical, err := CanonicalizePath(path, repoRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts backslashes to forward slashes and drops a leading "./".
func NormalizePath(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimSuffix(p, "/")
}

// JoinRepoPath joins a repo root with a stored path.
func JoinRepoPath(repoRoot, canonicalPath string) string {
	parts := strings.Split(NormalizePath(canonicalPath), "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}
