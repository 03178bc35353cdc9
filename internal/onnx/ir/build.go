package ir

import "github.com/born-ml/onnxtranspose/internal/onnx/graph"

// AddNode allocates a fresh node with numOutputs freshly named outputs,
// appended to the end of the live node list. New nodes always consume
// already-existing values, so appending keeps Nodes() usable as a
// topological order without a full re-sort.
func (g *Graph) AddNode(opType string, inputs []string, numOutputs int, domain string) *graph.Node {
	n := &graph.Node{
		OpType:  opType,
		Domain:  domain,
		Inputs:  append([]string{}, inputs...),
		Outputs: make([]string, numOutputs),
	}
	for i := range n.Outputs {
		n.Outputs[i] = freshName(opType)
	}
	g.nodes = append(g.nodes, n)
	return n
}

func (g *Graph) AddInitializerI64(shape []int64, data []int64) string {
	name := freshName("const")
	g.initializers[name] = newInt64Tensor(shape, data)
	g.valueInfo[name] = graph.ValueInfo{DType: graph.DTypeInt64, Shape: shapeFromDims(shape)}
	return name
}

func (g *Graph) AddInitializerI32(shape []int64, data []int32) string {
	name := freshName("const")
	g.initializers[name] = newInt32Tensor(shape, data)
	g.valueInfo[name] = graph.ValueInfo{DType: graph.DTypeInt32, Shape: shapeFromDims(shape)}
	return name
}

func (g *Graph) CopyValueInfo(src, dst string) {
	if vi, ok := g.valueInfo[src]; ok {
		g.valueInfo[dst] = vi
	}
}

func (g *Graph) SetValueInfo(value string, vi graph.ValueInfo) {
	g.valueInfo[value] = vi
}
