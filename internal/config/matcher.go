package config

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher decides whether a workspace-relative path should enter the
// pipeline, per Config's Include/Exclude glob lists and optional gitignore
// patterns. Grounded on the teacher's config-driven indexing filter, but
// matched with bmatcuk/doublestar rather than the teacher's hand-rolled
// glob-to-regex translator.
type Matcher struct {
	include   []string
	exclude   []string
	gitignore *GitignoreParser
}

// NewMatcher builds a Matcher from cfg, loading root's .gitignore when
// cfg.Strictness.RespectGitignore is set.
func NewMatcher(cfg *Config, root string) *Matcher {
	m := &Matcher{include: cfg.Include, exclude: cfg.Exclude}
	if cfg.Strictness.RespectGitignore {
		gp := NewGitignoreParser()
		if err := gp.LoadGitignore(root); err == nil {
			m.gitignore = gp
		}
	}
	return m
}

// Included reports whether path (workspace-relative, forward-slashed or
// not) should be typechecked: it must match at least one Include pattern
// (or Include is empty, meaning "everything"), and no Exclude or gitignore
// pattern.
func (m *Matcher) Included(path string) bool {
	clean := filepath.ToSlash(path)

	if len(m.include) > 0 && !matchesAny(m.include, clean) {
		return false
	}
	if matchesAny(m.exclude, clean) {
		return false
	}
	if m.gitignore != nil && m.gitignore.ShouldIgnore(clean, false) {
		return false
	}
	return true
}

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}
