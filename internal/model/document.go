package model

// Top-level document keys owned by the pipeline.
const (
	KeyProxies = "proxies"
	KeyGroups  = "proxy-groups"
)

// Document is a parsed configuration: arbitrary top-level settings plus the
// node list and optional group list.
//
// Settings keeps every top-level key in input order, including the proxies and
// proxy-groups slots, so the assembler can put the final lists back where the
// base document had them.
type Document struct {
	Settings  *Fields
	Nodes     []*Node
	Groups    []*Group
	HasGroups bool
}

func NewDocument() *Document {
	d := &Document{Settings: NewFields()}
	d.Settings.Set(KeyProxies, []any{})
	return d
}

func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Settings:  d.Settings.Clone(),
		Nodes:     CloneNodes(d.Nodes),
		HasGroups: d.HasGroups,
	}
	if d.Groups != nil {
		out.Groups = make([]*Group, len(d.Groups))
		for i, g := range d.Groups {
			out.Groups[i] = g.Clone()
		}
	}
	return out
}
