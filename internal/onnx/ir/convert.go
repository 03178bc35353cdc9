package ir

import (
	"fmt"

	onnxpb "github.com/born-ml/onnxtranspose/internal/onnx"
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
)

// NewFromModel adapts a parsed ONNX model into a live Graph the optimizer
// can run against.
func NewFromModel(model *onnxpb.ModelProto) (*Graph, error) {
	if model == nil || model.Graph == nil {
		return nil, fmt.Errorf("ir: model has no graph")
	}
	gp := model.Graph
	g := newGraph(gp.Name)
	g.meta = *model
	g.meta.Graph = nil

	for _, opset := range model.OpsetImport {
		g.opsets[opset.Domain] = opset.Version
	}
	if _, ok := g.opsets[""]; !ok {
		g.opsets[""] = 0
	}

	for _, vi := range gp.Inputs {
		g.graphInputs[vi.Name] = true
		g.inputOrder = append(g.inputOrder, vi.Name)
		g.valueInfo[vi.Name] = valueInfoFromProto(vi)
	}
	for _, vi := range gp.Outputs {
		g.graphOutputs[vi.Name] = true
		g.outputOrder = append(g.outputOrder, vi.Name)
		g.valueInfo[vi.Name] = valueInfoFromProto(vi)
	}
	for _, vi := range gp.ValueInfo {
		g.valueInfo[vi.Name] = valueInfoFromProto(vi)
	}

	for i := range gp.Initializers {
		tp := &gp.Initializers[i]
		t, err := tensorFromProto(tp)
		if err != nil {
			return nil, fmt.Errorf("ir: %w", err)
		}
		g.initializers[tp.Name] = t
		if _, ok := g.valueInfo[tp.Name]; !ok {
			g.valueInfo[tp.Name] = graph.ValueInfo{DType: t.dtype, Shape: shapeFromDims(t.dims)}
		}
	}

	g.nodes = make([]*graph.Node, len(gp.Nodes))
	for i := range gp.Nodes {
		g.nodes[i] = nodeFromProto(&gp.Nodes[i])
	}

	return g, nil
}

// Export serializes the current (possibly rewritten) graph back into a
// ModelProto, preserving the source model's non-graph fields.
func (g *Graph) Export() *onnxpb.ModelProto {
	gp := &onnxpb.GraphProto{Name: g.name}

	for _, name := range g.inputOrder {
		if !g.graphInputs[name] {
			continue
		}
		gp.Inputs = append(gp.Inputs, valueInfoToProto(name, g.valueInfo[name]))
	}
	for _, name := range g.outputOrder {
		if !g.graphOutputs[name] {
			continue
		}
		gp.Outputs = append(gp.Outputs, valueInfoToProto(name, g.valueInfo[name]))
	}

	for name, t := range g.initializers {
		gp.Initializers = append(gp.Initializers, tensorToProto(name, t))
	}

	for _, n := range g.nodes {
		gp.Nodes = append(gp.Nodes, nodeToProto(n))
	}

	for name, vi := range g.valueInfo {
		if g.graphInputs[name] || g.graphOutputs[name] {
			continue
		}
		if _, isConst := g.initializers[name]; isConst {
			continue
		}
		gp.ValueInfo = append(gp.ValueInfo, valueInfoToProto(name, vi))
	}

	model := g.meta
	model.Graph = gp
	for domain, version := range g.opsets {
		model.OpsetImport = append(model.OpsetImport, onnxpb.OperatorSetID{Domain: domain, Version: version})
	}
	return &model
}

func valueInfoFromProto(vi onnxpb.ValueInfoProto) graph.ValueInfo {
	if vi.Type == nil || vi.Type.TensorType == nil {
		return graph.ValueInfo{}
	}
	tt := vi.Type.TensorType
	out := graph.ValueInfo{DType: mapONNXDType(tt.ElemType)}
	if tt.Shape != nil {
		shape := make(perm.Shape, len(tt.Shape.Dims))
		for i, d := range tt.Shape.Dims {
			if d.DimParam != "" {
				shape[i] = perm.Symbol()
			} else {
				shape[i] = perm.Fixed(d.DimValue)
			}
		}
		out.Shape = shape
	}
	return out
}

func valueInfoToProto(name string, vi graph.ValueInfo) onnxpb.ValueInfoProto {
	tt := &onnxpb.TensorTypeProto{ElemType: mapGraphDType(vi.DType)}
	if vi.Shape != nil {
		dims := make([]onnxpb.DimensionProto, len(vi.Shape))
		for i, d := range vi.Shape {
			if d.Symbolic {
				dims[i] = onnxpb.DimensionProto{DimParam: "dim" + fmt.Sprint(i)}
			} else {
				dims[i] = onnxpb.DimensionProto{DimValue: d.Size}
			}
		}
		tt.Shape = &onnxpb.TensorShapeProto{Dims: dims}
	}
	return onnxpb.ValueInfoProto{Name: name, Type: &onnxpb.TypeProto{TensorType: tt}}
}

func nodeFromProto(np *onnxpb.NodeProto) *graph.Node {
	n := &graph.Node{
		Name:    np.Name,
		OpType:  np.OpType,
		Domain:  np.Domain,
		Inputs:  append([]string{}, np.Inputs...),
		Outputs: append([]string{}, np.Outputs...),
	}
	for _, a := range np.Attributes {
		n.Attributes = append(n.Attributes, attrFromProto(a))
	}
	return n
}

func nodeToProto(n *graph.Node) onnxpb.NodeProto {
	np := onnxpb.NodeProto{
		Name:    n.Name,
		OpType:  n.OpType,
		Domain:  n.Domain,
		Inputs:  n.Inputs,
		Outputs: n.Outputs,
	}
	for _, a := range n.Attributes {
		np.Attributes = append(np.Attributes, attrToProto(a))
	}
	return np
}

// attrFromProto converts everything the optimizer understands (scalar and
// list attributes) directly; TENSOR/GRAPH-valued attributes (Constant's
// value, If's branches, Loop's body) are carried opaquely in Blob since no
// handler in this package ever looks inside one.
func attrFromProto(a onnxpb.AttributeProto) graph.Attribute {
	switch a.Type {
	case onnxpb.AttributeProtoInt:
		return graph.Attribute{Name: a.Name, Kind: graph.AttrInt, I: a.I}
	case onnxpb.AttributeProtoFloat:
		return graph.Attribute{Name: a.Name, Kind: graph.AttrFloat, F: a.F}
	case onnxpb.AttributeProtoString:
		return graph.Attribute{Name: a.Name, Kind: graph.AttrString, S: string(a.S)}
	case onnxpb.AttributeProtoInts:
		return graph.Attribute{Name: a.Name, Kind: graph.AttrInts, Ints: append([]int64{}, a.Ints...)}
	case onnxpb.AttributeProtoFloats:
		return graph.Attribute{Name: a.Name, Kind: graph.AttrFloats, Floats: append([]float32{}, a.Floats...)}
	case onnxpb.AttributeProtoStrings:
		strs := make([]string, len(a.Strings))
		for i, s := range a.Strings {
			strs[i] = string(s)
		}
		return graph.Attribute{Name: a.Name, Kind: graph.AttrStrings, Strings: strs}
	default:
		blob := a
		return graph.Attribute{Name: a.Name, Kind: graph.AttrOpaque, Blob: &blob}
	}
}

func attrToProto(a graph.Attribute) onnxpb.AttributeProto {
	switch a.Kind {
	case graph.AttrInt:
		return onnxpb.AttributeProto{Name: a.Name, Type: onnxpb.AttributeProtoInt, I: a.I}
	case graph.AttrFloat:
		return onnxpb.AttributeProto{Name: a.Name, Type: onnxpb.AttributeProtoFloat, F: a.F}
	case graph.AttrString:
		return onnxpb.AttributeProto{Name: a.Name, Type: onnxpb.AttributeProtoString, S: []byte(a.S)}
	case graph.AttrInts:
		return onnxpb.AttributeProto{Name: a.Name, Type: onnxpb.AttributeProtoInts, Ints: a.Ints}
	case graph.AttrFloats:
		return onnxpb.AttributeProto{Name: a.Name, Type: onnxpb.AttributeProtoFloats, Floats: a.Floats}
	case graph.AttrStrings:
		strs := make([][]byte, len(a.Strings))
		for i, s := range a.Strings {
			strs[i] = []byte(s)
		}
		return onnxpb.AttributeProto{Name: a.Name, Type: onnxpb.AttributeProtoStrings, Strings: strs}
	case graph.AttrOpaque:
		if blob, ok := a.Blob.(*onnxpb.AttributeProto); ok {
			return *blob
		}
		return onnxpb.AttributeProto{Name: a.Name}
	default:
		return onnxpb.AttributeProto{Name: a.Name}
	}
}
