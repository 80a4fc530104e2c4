package fs

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"exifrec-go/internal/exifrec"
)

// builtinIgnore is applied before any configured or per-root rule, so a
// root's .exifrecignore can still re-include one of these with "!".
var builtinIgnore = []string{
	IgnoreFileName,
	"*" + exifrec.RestoredSuffix,
	// AppleDouble resource forks carry the media extension.
	"._*",
	// Thumbnail caches of Synology and desktop file managers.
	"@eaDir/",
	".thumbnails/",
}

type ignoreRule struct {
	glob    string
	negate  bool
	dirOnly bool
	// anchored rules contain a '/' and match the whole relative path.
	anchored bool
}

func parseRule(line string) (ignoreRule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ignoreRule{}, false
	}
	var r ignoreRule
	if rest, ok := strings.CutPrefix(line, "!"); ok {
		r.negate, line = true, rest
	}
	if rest, ok := strings.CutSuffix(line, "/"); ok {
		r.dirOnly, line = true, rest
	}
	line = strings.TrimPrefix(line, "/")
	if line == "" {
		return ignoreRule{}, false
	}
	if _, err := path.Match(line, ""); err != nil {
		return ignoreRule{}, false
	}
	r.glob = line
	r.anchored = strings.Contains(line, "/")
	return r, true
}

func (r ignoreRule) matches(rel string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	subject := path.Base(rel)
	if r.anchored {
		subject = rel
	}
	ok, _ := path.Match(r.glob, subject)
	return ok
}

// IgnoreMatcher decides which entries under a scan root are skipped. Rules
// follow a small gitignore subset: a bare glob matches basenames at any
// depth, a glob with '/' matches the path relative to the root, a trailing
// '/' restricts a rule to directories and a leading '!' re-includes. The
// last matching rule decides.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher compiles the built-in rules followed by patterns.
// Blank lines, comments and malformed globs are dropped.
func NewIgnoreMatcher(patterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, p := range append(append([]string{}, builtinIgnore...), patterns...) {
		if r, ok := parseRule(p); ok {
			m.rules = append(m.rules, r)
		}
	}
	return m
}

// Match reports whether the entry at rel, relative to the scan root, is
// ignored.
func (m *IgnoreMatcher) Match(rel string, isDir bool) bool {
	if rel == "" || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	ignored := false
	for _, r := range m.rules {
		if r.matches(rel, isDir) {
			ignored = !r.negate
		}
	}
	return ignored
}

// ParseIgnoreFile returns the lines of an ignore file. A missing file has no
// rules.
func ParseIgnoreFile(name string) ([]string, error) {
	data, err := os.ReadFile(name)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(name), err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	var lines []string
	for line := range strings.Lines(text) {
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}
	return lines, nil
}
