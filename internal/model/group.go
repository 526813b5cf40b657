package model

// Sentinel policy names that are always valid group members.
const (
	Direct = "DIRECT"
	Reject = "REJECT"
	Global = "GLOBAL"
)

// KeyMembers is the group field listing member names.
const KeyMembers = "proxies"

// Group is a named, ordered reference list (select / url-test / fallback / ...).
// Settings other than name, type and members are carried untouched.
type Group struct {
	Fields
}

func GroupFromFields(f *Fields) *Group {
	if f == nil {
		return &Group{}
	}
	return &Group{Fields: *f}
}

func (g *Group) Name() string { return g.Str(KeyName) }
func (g *Group) Type() string { return g.Str(KeyType) }

// Members returns the member names and whether the group declares a member list.
func (g *Group) Members() ([]string, bool) {
	v, ok := g.Get(KeyMembers)
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out, true
	case []any:
		out := make([]string, 0, len(t))
		for _, m := range t {
			out = append(out, Stringify(m))
		}
		return out, true
	case nil:
		return nil, true
	default:
		return []string{Stringify(t)}, true
	}
}

func (g *Group) SetMembers(members []string) {
	out := make([]string, len(members))
	copy(out, members)
	g.Set(KeyMembers, out)
}

func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	return &Group{Fields: *g.Fields.Clone()}
}

func IsSentinel(name string) bool {
	return name == Direct || name == Reject || name == Global
}
