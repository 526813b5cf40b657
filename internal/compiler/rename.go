package compiler

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/John-Robertt/submerge/internal/model"
	"github.com/John-Robertt/submerge/internal/region"
)

// fallbackLabel names nodes when a name filter yields no conditions.
const fallbackLabel = "node"

var firstGroup = regexp.MustCompile(`\((.*?)\)`)

// Conditions turns a user name filter into the ordered region list used for
// naming. "a|b" yields one condition per token, otherwise the first
// parenthesised group is split, otherwise the whole filter is one literal.
// Tokens that name a known region resolve to it; others stay literal.
func Conditions(nameFilter string) []region.Region {
	var tokens []string
	switch {
	case strings.Contains(nameFilter, "|"):
		tokens = strings.Split(nameFilter, "|")
	case firstGroup.MatchString(nameFilter):
		inner := firstGroup.FindStringSubmatch(nameFilter)[1]
		tokens = strings.Split(inner, "|")
	default:
		tokens = []string{nameFilter}
	}

	var out []region.Region
	for _, tok := range tokens {
		tok = strings.Trim(strings.TrimSpace(tok), " ()^$")
		if tok == "" {
			continue
		}
		if r, ok := region.Lookup(tok); ok {
			out = append(out, r)
			continue
		}
		out = append(out, region.Region{Label: tok})
	}
	return out
}

// Rename rewrites every node name to "{Region}_{n}" with per-region counters
// starting at 1. With a name filter the nodes keep their order and take the
// first matching condition; without one the region is inferred and the list
// is sorted by region and type first. The returned slice may be reordered;
// the nodes are renamed in place.
func Rename(nodes []*model.Node, nameFilter string) []*model.Node {
	out := make([]*model.Node, len(nodes))
	copy(out, nodes)
	labels := make(map[*model.Node]string, len(out))

	if strings.TrimSpace(nameFilter) != "" {
		conds := Conditions(nameFilter)
		fallback := fallbackLabel
		if len(conds) > 0 {
			fallback = conds[0].Label
		}
		for _, n := range out {
			if n.Name() == "" {
				labels[n] = fallbackLabel
				continue
			}
			labels[n] = fallback
			for _, c := range conds {
				if c.Matches(n.Name()) {
					labels[n] = c.Label
					break
				}
			}
		}
	} else {
		for _, n := range out {
			labels[n] = region.Infer(n.Name(), n.Server())
		}
		col := collate.New(language.Und)
		sort.SliceStable(out, func(i, j int) bool {
			if c := col.CompareString(labels[out[i]], labels[out[j]]); c != 0 {
				return c < 0
			}
			return col.CompareString(out[i].Type(), out[j].Type()) < 0
		})
	}

	counters := make(map[string]int)
	for _, n := range out {
		label := labels[n]
		counters[label]++
		n.SetName(label + "_" + strconv.Itoa(counters[label]))
	}
	return out
}
