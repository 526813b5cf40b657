package model

// Node is one canonical proxy record: name, type, server and port plus any
// type-specific fields. The field names follow the Clash proxy schema.
type Node struct {
	Fields
}

const (
	KeyName   = "name"
	KeyType   = "type"
	KeyServer = "server"
	KeyPort   = "port"
)

func NewNode(typ string) *Node {
	n := &Node{}
	n.Set(KeyName, "")
	n.Set(KeyType, typ)
	return n
}

// NodeFromFields wraps f without copying it.
func NodeFromFields(f *Fields) *Node {
	if f == nil {
		return &Node{}
	}
	return &Node{Fields: *f}
}

func (n *Node) Name() string   { return n.Str(KeyName) }
func (n *Node) Type() string   { return n.Str(KeyType) }
func (n *Node) Server() string { return n.Str(KeyServer) }

func (n *Node) SetName(name string) { n.Set(KeyName, name) }

// Port returns the port when it is already an integer.
func (n *Node) Port() (int, bool) {
	v, ok := n.Get(KeyPort)
	if !ok {
		return 0, false
	}
	p, ok := v.(int)
	return p, ok
}

func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	return &Node{Fields: *n.Fields.Clone()}
}

func CloneNodes(in []*Node) []*Node {
	out := make([]*Node, len(in))
	for i, n := range in {
		out[i] = n.Clone()
	}
	return out
}

func NodeNames(in []*Node) []string {
	out := make([]string, len(in))
	for i, n := range in {
		out[i] = n.Name()
	}
	return out
}
