package decode

import (
	"regexp"
	"strings"

	"github.com/John-Robertt/submerge/internal/sub"
)

// Kind is the classification of a decoded payload.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindDocument
	KindURIList
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "yaml-document"
	case KindURIList:
		return "uri-list"
	default:
		return "unrecognized"
	}
}

const (
	manyLines        = 5
	uriLineThreshold = 0.2
)

// Inline document syntax that disqualifies a scheme-prefixed line.
var documentFragments = []string{"name:", "server:", "port:", "type:", ": {", "- {"}

var topLevelKeyRe = regexp.MustCompile(`(?m)^[A-Za-z0-9_-]+\s*:`)

// Classify decides how text should be parsed.
func Classify(text string) Kind {
	if IsURIList(text) {
		return KindURIList
	}
	if hasAny(text, documentMarkers) || topLevelKeyRe.MatchString(text) {
		return KindDocument
	}
	return KindUnrecognized
}

// IsURIList reports whether text is a newline list of connection URIs rather
// than a structured document that happens to mention one.
func IsURIList(text string) bool {
	if text == "" {
		return false
	}
	if strings.Contains(text, "proxies:") || strings.Contains(text, "rules:") {
		return false
	}

	var total, matched int
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		total++
		if _, ok := sub.SchemeOf(line); ok && !hasAny(line, documentFragments) {
			matched++
		}
	}

	switch {
	case total >= manyLines && float64(matched)/float64(total) > uriLineThreshold:
		return true
	case total < manyLines && matched > 0:
		return true
	case total == 1 && strings.Contains(text, "ss://") && len(text) > blobMinLen:
		return true
	}
	return false
}
