// Package region holds the region alias table and the heuristics that map
// node names, filter patterns and server addresses to a region label.
package region

import (
	"regexp"
	"strconv"
	"strings"
)

// Default is the label used when nothing else identifies a region.
const Default = "节点"

// Region is a canonical label plus the tokens that denote the same place.
type Region struct {
	Label   string
	Aliases []string
}

// Forms returns the label followed by every alias.
func (r Region) Forms() []string {
	out := make([]string, 0, len(r.Aliases)+1)
	out = append(out, r.Label)
	return append(out, r.Aliases...)
}

// Alternation renders the region as a regex group matching any of its forms.
func (r Region) Alternation() string {
	return "(" + strings.Join(r.Forms(), "|") + ")"
}

// All returns a copy of the table in lookup order.
func All() []Region {
	out := make([]Region, len(table))
	copy(out, table)
	return out
}

// Lookup finds the region whose label or alias equals token exactly.
func Lookup(token string) (Region, bool) {
	for _, r := range table {
		if r.Label == token {
			return r, true
		}
	}
	for _, r := range table {
		for _, a := range r.Aliases {
			if a == token {
				return r, true
			}
		}
	}
	return Region{}, false
}

var expandDelims = regexp.MustCompile(`[|()]`)

// Expand rewrites region references in a name pattern. A token (text between
// '|', '(' and ')') equal to a label or alias becomes the region's
// alternation; a token containing a label has that label replaced. Other
// tokens are kept verbatim, so aliases inside longer words are left alone.
func Expand(pattern string) string {
	if pattern == "" {
		return pattern
	}
	var b strings.Builder
	last := 0
	for _, loc := range expandDelims.FindAllStringIndex(pattern, -1) {
		b.WriteString(expandToken(pattern[last:loc[0]]))
		b.WriteString(pattern[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(expandToken(pattern[last:]))
	return b.String()
}

var (
	tokenPrefix = regexp.MustCompile(`^(?:\^|\\b)`)
	tokenSuffix = regexp.MustCompile(`(?:\$|\\b|(?:\.|\\[dDsSwW])(?:[*+?]|\{\d+(?:,\d*)?\})?\??)$`)
)

// tokenCore returns the bounds of tok with surrounding space, anchors and
// trailing wildcard atoms ("^hk", "hk.*", "hk\d+") removed.
func tokenCore(tok string) (start, end int) {
	end = len(strings.TrimRight(tok, " \t"))
	start = len(tok) - len(strings.TrimLeft(tok, " \t"))
	if start >= end {
		return start, start
	}
	for {
		loc := tokenPrefix.FindStringIndex(tok[start:end])
		if loc == nil || loc[1] == 0 {
			break
		}
		start += loc[1]
	}
	for start < end {
		loc := tokenSuffix.FindStringIndex(tok[start:end])
		if loc == nil || loc[0] == loc[1] {
			break
		}
		end = start + loc[0]
	}
	return start, end
}

func expandToken(tok string) string {
	start, end := tokenCore(tok)
	if start == end {
		return tok
	}
	if r, ok := Lookup(tok[start:end]); ok {
		return tok[:start] + r.Alternation() + tok[end:]
	}
	for _, r := range table {
		if strings.Contains(tok, r.Label) {
			return strings.ReplaceAll(tok, r.Label, r.Alternation())
		}
	}
	return tok
}

// Matches reports whether name contains any form of r, ignoring case.
func (r Region) Matches(name string) bool {
	lower := strings.ToLower(name)
	for _, f := range r.Forms() {
		if strings.Contains(lower, strings.ToLower(f)) {
			return true
		}
	}
	return false
}

// FromName returns the first region in table order with a form contained in
// name, ignoring case.
func FromName(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, r := range table {
		if r.Matches(name) {
			return r.Label, true
		}
	}
	return "", false
}

// FromServer guesses a region from a host name suffix or keyword, or from a
// few IPv4 blocks.
func FromServer(server string) (string, bool) {
	if server == "" {
		return "", false
	}
	if !IsIPv4(server) {
		for _, h := range serverHints {
			if strings.HasSuffix(server, h.suffix) {
				return h.label, true
			}
			for _, k := range h.keywords {
				if strings.Contains(server, k) {
					return h.label, true
				}
			}
		}
		return "", false
	}

	parts := strings.Split(server, ".")
	first, _ := strconv.Atoi(parts[0])
	second, _ := strconv.Atoi(parts[1])
	for _, blk := range ipBlocks {
		for _, f := range blk.first {
			if first == f && second >= blk.secondLow && second <= blk.secondHigh {
				return blk.label, true
			}
		}
	}
	return "", false
}

var nameSegmentSep = regexp.MustCompile(`[\s_\-+|:：]`)

// Infer assigns a region to a node: name aliases, then server heuristics, then
// the first segment of the name, then Default.
func Infer(name, server string) string {
	if r, ok := FromName(name); ok {
		return r
	}
	if r, ok := FromServer(server); ok {
		return r
	}
	if seg := nameSegmentSep.Split(name, 2)[0]; seg != "" {
		return seg
	}
	return Default
}
