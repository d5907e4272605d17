// Package config also carries .gitignore parsing, grounded on the teacher's
// internal/config.GitignoreParser: the exclusion-pattern matcher Matcher
// consults, alongside the Exclude set, when Strictness.RespectGitignore is
// set. Matcher already routes Include/Exclude through
// bmatcuk/doublestar/v4 instead of a hand-rolled glob-to-regex translator;
// this file now does the same for gitignore patterns, so there is exactly
// one glob engine in this package rather than two.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// GitignoreParser handles parsing and matching .gitignore files.
type GitignoreParser struct {
	patterns []GitignorePattern
}

// GitignorePattern is one parsed .gitignore line, pre-converted to the
// doublestar glob(s) that implement it. glob matches the pattern itself
// (and, for an unanchored pattern, at any depth); dirGlob additionally
// matches everything beneath it and is only set for a directory pattern
// (one written with a trailing "/").
type GitignorePattern struct {
	Pattern   string
	Negate    bool
	Directory bool
	Absolute  bool

	glob    string
	dirGlob string
}

// NewGitignoreParser creates a new gitignore parser.
func NewGitignoreParser() *GitignoreParser {
	return &GitignoreParser{
		patterns: make([]GitignorePattern, 0),
	}
}

// LoadGitignore loads patterns from a .gitignore file.
func (gp *GitignoreParser) LoadGitignore(rootPath string) error {
	gitignorePath := filepath.Join(rootPath, ".gitignore")

	file, err := os.Open(gitignorePath)
	if err != nil {
		// .gitignore file doesn't exist, which is fine
		return nil
	}
	defer file.Close()

	return gp.scanAndParsePatterns(file)
}

// scanAndParsePatterns scans a file and parses each line as a pattern.
func (gp *GitignoreParser) scanAndParsePatterns(file *os.File) error {
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if gp.shouldSkipLine(line) {
			continue
		}

		gp.patterns = append(gp.patterns, gp.parsePattern(line))
	}

	return scanner.Err()
}

// shouldSkipLine checks if a line should be skipped (empty or comment).
func (gp *GitignoreParser) shouldSkipLine(line string) bool {
	return line == "" || strings.HasPrefix(line, "#")
}

// AddPattern adds a single pattern to the parser (for testing).
func (gp *GitignoreParser) AddPattern(line string) {
	gp.patterns = append(gp.patterns, gp.parsePattern(line))
}

// parsePattern parses a single gitignore pattern line into its doublestar
// glob form.
func (gp *GitignoreParser) parsePattern(line string) GitignorePattern {
	pattern := GitignorePattern{}
	line = gp.extractPatternModifiers(&pattern, line)
	pattern.Pattern = line
	pattern.glob, pattern.dirGlob = gp.toGlobs(pattern)
	return pattern
}

// extractPatternModifiers extracts and processes pattern modifiers (!, /, leading /).
// Returns the cleaned pattern string.
func (gp *GitignoreParser) extractPatternModifiers(pattern *GitignorePattern, line string) string {
	// Handle negation (!)
	if strings.HasPrefix(line, "!") {
		pattern.Negate = true
		line = line[1:]
	}

	// Handle directory-only patterns (ending with /)
	if strings.HasSuffix(line, "/") {
		pattern.Directory = true
		line = strings.TrimSuffix(line, "/")
	}

	// Handle absolute patterns (starting with /)
	if strings.HasPrefix(line, "/") {
		pattern.Absolute = true
		line = line[1:]
	}

	return line
}

// toGlobs turns a cleaned pattern into the doublestar glob(s) that
// implement gitignore's matching rules: unanchored patterns match at any
// depth ("**/" prefix), a directory pattern additionally matches everything
// it contains ("/**" suffix on a second glob).
func (gp *GitignoreParser) toGlobs(pattern GitignorePattern) (glob, dirGlob string) {
	p := pattern.Pattern
	if !pattern.Absolute {
		p = "**/" + p
	}
	glob = p
	if pattern.Directory {
		dirGlob = p + "/**"
	}
	return glob, dirGlob
}

// ShouldIgnore checks if a path should be ignored based on gitignore
// patterns. Later patterns take priority, matching git's own layering of
// negation over exclusion.
func (gp *GitignoreParser) ShouldIgnore(path string, isDir bool) bool {
	clean := filepath.ToSlash(path)

	ignored := false
	for _, pattern := range gp.patterns {
		if gp.matchesPattern(pattern, clean, isDir) {
			ignored = !pattern.Negate
		}
	}

	return ignored
}

// matchesPattern reports whether pattern matches path, either directly or
// (for a directory pattern) as one of its descendants.
func (gp *GitignoreParser) matchesPattern(pattern GitignorePattern, path string, isDir bool) bool {
	clean := filepath.ToSlash(path)
	if matchGlob(pattern.glob, clean) {
		return true
	}
	return pattern.dirGlob != "" && matchGlob(pattern.dirGlob, clean)
}

func matchGlob(glob, path string) bool {
	if glob == "" {
		return false
	}
	ok, err := doublestar.Match(glob, path)
	return err == nil && ok
}

// GetExclusionPatterns returns gitignore patterns rewritten as doublestar
// exclusion globs suitable for appending to Config.Exclude.
func (gp *GitignoreParser) GetExclusionPatterns() []string {
	var exclusions []string

	for _, pattern := range gp.patterns {
		if pattern.Negate {
			continue
		}
		if pattern.Directory {
			exclusions = append(exclusions, pattern.dirGlob)
		} else {
			exclusions = append(exclusions, pattern.glob)
		}
	}

	return exclusions
}
