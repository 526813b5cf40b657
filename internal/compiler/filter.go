package compiler

import (
	"log/slog"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/John-Robertt/submerge/internal/model"
	"github.com/John-Robertt/submerge/internal/region"
)

// Reserved server patterns that select an address class instead of a regex.
const (
	ServerDomain = "domain"
	ServerIP     = "ip"
)

const matchTimeout = 100 * time.Millisecond

// Criteria holds the user filters and the operator-forced filters. Empty
// strings mean "no filter".
type Criteria struct {
	Name   string
	Type   string
	Server string

	ForceName   string
	ForceType   string
	ForceServer string
}

// EffectiveName is the combined name pattern after region expansion.
func (c Criteria) EffectiveName() string {
	return combine(region.Expand(c.Name), region.Expand(c.ForceName))
}

type predicate func(string) bool

// Filter keeps the nodes that satisfy every configured dimension.
type Filter struct {
	name   predicate
	typ    predicate
	server predicate
}

// NewFilter compiles c. Invalid patterns are logged and match everything.
func NewFilter(c Criteria, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Filter{
		name: compilePattern("name", c.EffectiveName(), logger),
		typ:  compilePattern("type", combine(c.Type, c.ForceType), logger),
	}

	var server []predicate
	var regexes []string
	for _, p := range []string{c.Server, c.ForceServer} {
		switch p {
		case "":
		case ServerDomain:
			server = append(server, region.IsDomain)
		case ServerIP:
			server = append(server, region.IsIPv4)
		default:
			regexes = append(regexes, p)
		}
	}
	switch len(regexes) {
	case 1:
		server = append(server, compilePattern("server", regexes[0], logger))
	case 2:
		server = append(server, compilePattern("server", combine(regexes[0], regexes[1]), logger))
	}
	f.server = all(server)
	return f
}

// Apply returns the matching nodes in input order.
func (f *Filter) Apply(nodes []*model.Node) []*model.Node {
	out := make([]*model.Node, 0, len(nodes))
	for _, n := range nodes {
		if f.Match(n) {
			out = append(out, n)
		}
	}
	return out
}

// Match reports whether n passes the filter. A node with an empty value for a
// dimension is not tested on it.
func (f *Filter) Match(n *model.Node) bool {
	return test(f.name, n.Name()) && test(f.typ, n.Type()) && test(f.server, n.Server())
}

func test(p predicate, v string) bool {
	return p == nil || v == "" || p(v)
}

// combine joins two patterns with lookaheads anchored at the start so that
// each must match somewhere in the subject.
func combine(user, forced string) string {
	switch {
	case user == "":
		return forced
	case forced == "":
		return user
	default:
		return `^(?=[\s\S]*?(?:` + user + `))(?=[\s\S]*?(?:` + forced + `))`
	}
}

func compilePattern(dimension, pattern string, logger *slog.Logger) predicate {
	if pattern == "" {
		return nil
	}
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		logger.Warn("invalid filter pattern, matching everything",
			"dimension", dimension,
			"pattern", pattern,
			"err", err,
		)
		return nil
	}
	re.MatchTimeout = matchTimeout
	return func(s string) bool {
		ok, err := re.MatchString(s)
		if err != nil {
			logger.Debug("filter match failed, keeping node", "dimension", dimension, "err", err)
			return true
		}
		return ok
	}
}

func all(ps []predicate) predicate {
	switch len(ps) {
	case 0:
		return nil
	case 1:
		return ps[0]
	}
	return func(s string) bool {
		for _, p := range ps {
			if p != nil && !p(s) {
				return false
			}
		}
		return true
	}
}
