// Package bugfix recognises bug-fix revisions from their commit messages.
package bugfix

import (
	"fmt"
	"regexp"

	"bugminer/internal/errors"
)

// DefaultPattern matches "Close #12", "closes #12", "Fix #12" and "FIXES #12".
// The first capture group is the bug identifier. The keyword is not anchored
// at a word boundary, so "hotfix #12" counts as a fix too.
const DefaultPattern = `(?i)(?:Close|Closes|Fix|Fixes)\s+#([0-9]+)`

var defaultClassifier = mustCompile(DefaultPattern)

// Classifier maps a commit message to an optional bug identifier.
type Classifier struct {
	patterns []*regexp.Regexp
}

// Default returns the classifier using DefaultPattern.
func Default() *Classifier {
	return defaultClassifier
}

// NewClassifier compiles the given patterns; with none it returns Default().
// Every pattern needs at least one capture group; the first group is the bug id.
func NewClassifier(patterns ...string) (*Classifier, error) {
	if len(patterns) == 0 {
		return Default(), nil
	}

	c := &Classifier{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.NewMinerError(errors.InvalidConfig,
				fmt.Sprintf("Invalid bug pattern %q", p), err, nil)
		}
		if re.NumSubexp() < 1 {
			return nil, errors.NewMinerError(errors.InvalidConfig,
				fmt.Sprintf("Bug pattern %q has no capture group", p), nil, nil)
		}
		c.patterns = append(c.patterns, re)
	}
	return c, nil
}

// Classify returns the bug identifier referenced by message, if any.
// Only the first match is used.
func (c *Classifier) Classify(message string) (string, bool) {
	for _, re := range c.patterns {
		m := re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		if id := m[1]; id != "" {
			return id, true
		}
	}
	return "", false
}

// Classify applies the default classifier.
func Classify(message string) (string, bool) {
	return defaultClassifier.Classify(message)
}

func mustCompile(pattern string) *Classifier {
	return &Classifier{patterns: []*regexp.Regexp{regexp.MustCompile(pattern)}}
}
