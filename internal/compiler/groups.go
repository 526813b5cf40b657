package compiler

import "github.com/John-Robertt/submerge/internal/model"

// Reconcile rewrites group members so that every entry is a surviving node,
// another group or a sentinel. The input groups are not modified.
func Reconcile(groups []*model.Group, survivors []string) []*model.Group {
	groupNames := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		groupNames[g.Name()] = struct{}{}
	}
	alive := make(map[string]struct{}, len(survivors))
	for _, s := range survivors {
		alive[s] = struct{}{}
	}
	special := func(m string) bool {
		if model.IsSentinel(m) {
			return true
		}
		_, ok := groupNames[m]
		return ok
	}

	out := make([]*model.Group, 0, len(groups))
	for _, g := range groups {
		g = g.Clone()
		out = append(out, g)

		if len(survivors) == 0 {
			g.SetMembers([]string{model.Direct})
			continue
		}
		members, ok := g.Members()
		if !ok {
			g.SetMembers(append([]string{model.Direct}, survivors...))
			continue
		}

		switch g.Type() {
		case "select":
			next := make([]string, 0, len(members)+len(survivors))
			seen := make(map[string]struct{}, cap(next))
			add := func(m string) {
				if _, dup := seen[m]; dup {
					return
				}
				seen[m] = struct{}{}
				next = append(next, m)
			}
			for _, m := range members {
				if special(m) {
					add(m)
				}
			}
			for _, s := range survivors {
				add(s)
			}
			g.SetMembers(next)
		case "url-test", "fallback", "load-balance":
			g.SetMembers(survivors)
		default:
			var next []string
			for _, m := range members {
				if _, ok := alive[m]; ok || special(m) {
					next = append(next, m)
				}
			}
			if len(next) == 0 {
				next = []string{model.Direct}
			}
			g.SetMembers(next)
		}
	}
	return out
}
