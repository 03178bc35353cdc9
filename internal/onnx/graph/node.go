// Package graph defines the abstract Graph capability the optimizer is
// built against (spec.md §6): a directed graph of typed operator Nodes
// connected by named Values, plus the handful of query/build/mutate
// primitives every handler needs. It owns no serialization format and no
// kernel execution — those are collaborators, provided elsewhere (see
// internal/onnx/ir for the concrete in-memory implementation used by this
// repo's tests and CLI).
package graph

// AttrKind identifies which field of Attribute holds the value.
type AttrKind int

const (
	AttrUndefined AttrKind = iota
	AttrInt
	AttrFloat
	AttrString
	AttrInts
	AttrFloats
	AttrStrings
	// AttrOpaque marks a TENSOR- or GRAPH-valued attribute (e.g. Constant's
	// value, If's then/else branches): no per-operator handler in this
	// optimizer ever inspects or rewrites one, so its contents are carried
	// in Blob and passed through unexamined.
	AttrOpaque
)

// Attribute is a single named, typed node attribute.
type Attribute struct {
	Name    string
	Kind    AttrKind
	I       int64
	F       float32
	S       string
	Ints    []int64
	Floats  []float32
	Strings []string
	// Blob carries an AttrOpaque attribute's payload, opaque to everything
	// but the concrete Graph implementation that produced it.
	Blob any
}

// Node is a single operation in the graph: {op_type, domain, attributes,
// inputs[], outputs[]}. An input slot of "" means an absent optional input.
// op_type/domain are opaque dispatch keys to the optimizer — it never
// interprets them beyond table lookup.
type Node struct {
	Name       string
	OpType     string
	Domain     string
	Inputs     []string
	Outputs    []string
	Attributes []Attribute
}

// GetAttrInt returns an INT attribute's value, or def if absent.
func (n *Node) GetAttrInt(name string, def int64) int64 {
	if a := n.findAttr(name); a != nil {
		return a.I
	}
	return def
}

// GetAttrInts returns an INTS attribute's value and whether it was present.
func (n *Node) GetAttrInts(name string) ([]int64, bool) {
	if a := n.findAttr(name); a != nil {
		return a.Ints, true
	}
	return nil, false
}

// GetAttrFloat returns a FLOAT attribute's value, or def if absent.
func (n *Node) GetAttrFloat(name string, def float32) float32 {
	if a := n.findAttr(name); a != nil {
		return a.F
	}
	return def
}

// GetAttrString returns a STRING attribute's value, or def if absent.
func (n *Node) GetAttrString(name string, def string) string {
	if a := n.findAttr(name); a != nil {
		return a.S
	}
	return def
}

// GetAttrIntOK returns an INT attribute's value and whether it was present,
// for callers that must distinguish "absent" from "present and zero"
// (e.g. Shape's optional start/end).
func (n *Node) GetAttrIntOK(name string) (int64, bool) {
	if a := n.findAttr(name); a != nil {
		return a.I, true
	}
	return 0, false
}

func (n *Node) findAttr(name string) *Attribute {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return &n.Attributes[i]
		}
	}
	return nil
}

// SetAttributeInt sets (or replaces) an INT attribute.
func (n *Node) SetAttributeInt(name string, v int64) {
	if a := n.findAttr(name); a != nil {
		a.Kind, a.I = AttrInt, v
		return
	}
	n.Attributes = append(n.Attributes, Attribute{Name: name, Kind: AttrInt, I: v})
}

// SetAttributeInts sets (or replaces) an INTS attribute.
func (n *Node) SetAttributeInts(name string, v []int64) {
	if a := n.findAttr(name); a != nil {
		a.Kind, a.Ints = AttrInts, v
		return
	}
	n.Attributes = append(n.Attributes, Attribute{Name: name, Kind: AttrInts, Ints: v})
}

// SetAttributeString sets (or replaces) a STRING attribute.
func (n *Node) SetAttributeString(name, v string) {
	if a := n.findAttr(name); a != nil {
		a.Kind, a.S = AttrString, v
		return
	}
	n.Attributes = append(n.Attributes, Attribute{Name: name, Kind: AttrString, S: v})
}

// ClearAttribute removes an attribute if present; a no-op otherwise.
func (n *Node) ClearAttribute(name string) {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			n.Attributes = append(n.Attributes[:i], n.Attributes[i+1:]...)
			return
		}
	}
}

// CopyAttributes replaces n's attributes with a copy of other's.
func (n *Node) CopyAttributes(other *Node) {
	n.Attributes = make([]Attribute, len(other.Attributes))
	copy(n.Attributes, other.Attributes)
}

// SetInput rewires input slot i to name value. Growing the slice is the
// caller's responsibility; SetInput never extends Inputs.
func (n *Node) SetInput(i int, value string) {
	n.Inputs[i] = value
}
