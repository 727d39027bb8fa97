// Package security guards filesystem paths and names derived from request
// input before they reach the disk.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateSavePath checks that path stays inside root. Symlinks are resolved
// along the existing portion of both paths, so a link placed inside the root
// cannot smuggle writes elsewhere. Components that do not exist yet are
// allowed because save directories are created on demand.
func ValidateSavePath(path, root string) error {
	canonPath, err := canonicalize(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	canonRoot, err := canonicalize(root)
	if err != nil {
		return fmt.Errorf("resolve save root %s: %w", root, err)
	}
	rel, err := filepath.Rel(canonRoot, canonPath)
	if err != nil {
		return fmt.Errorf("%s is outside the save root: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%s escapes the save root %s", path, root)
	}
	return nil
}

// canonicalize makes p absolute and resolves symlinks along its deepest
// existing ancestor, rejoining the components that do not exist yet.
func canonicalize(p string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	prefix := abs
	for {
		parent := filepath.Dir(prefix)
		if parent == prefix {
			// No ancestor exists; nothing to resolve.
			return abs, nil
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, err := filepath.Rel(parent, abs)
			if err != nil {
				return "", err
			}
			return filepath.Join(resolved, rel), nil
		}
		prefix = parent
	}
}

// SanitizeFilename makes a safe file name from an arbitrary string such as a
// plot title. Characters outside ASCII letters, digits, dot, underscore and
// dash become underscores, runs of underscores collapse to one, and the
// result is capped at 128 bytes. Empty input comes back as "unknown".
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
