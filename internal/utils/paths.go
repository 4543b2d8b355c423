package utils

import (
	"path/filepath"
	"strings"
)

// ResolvePath resolves path relative to a base directory. Absolute paths
// are returned unchanged.
func ResolvePath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// DisplayPath returns path relative to baseDir when path lives inside it,
// and the absolute path otherwise. The result always resolves from baseDir.
func DisplayPath(path, baseDir string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if baseDir == "" {
		return abs
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return abs
	}
	rel, err := filepath.Rel(absBase, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	return rel
}

// CleanupPaths replaces occurrences of projectDir in s with ".", so prompts
// show project-relative file names. An occurrence only counts when a path
// separator or the end of s follows it; /home/u/proj-old stays intact.
func CleanupPaths(s, projectDir string) string {
	projectDir = strings.TrimRight(projectDir, `/\`)
	if projectDir == "" || s == "" {
		return s
	}

	var sb strings.Builder
	for {
		i := strings.Index(s, projectDir)
		if i < 0 {
			sb.WriteString(s)
			return sb.String()
		}
		end := i + len(projectDir)
		sb.WriteString(s[:i])
		if end == len(s) || s[end] == '/' || s[end] == '\\' {
			sb.WriteString(".")
		} else {
			sb.WriteString(projectDir)
		}
		s = s[end:]
	}
}
