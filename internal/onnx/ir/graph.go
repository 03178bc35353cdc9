// Package ir is the concrete graph.Graph: it wraps a *onnx.ModelProto in
// memory, answering the optimizer's queries by scanning the live node list
// rather than maintaining incremental producer/consumer indexes. graph.Node
// values rewire their own Inputs/Outputs fields directly (SetInput, the
// rewrite package's primitives), so any cached index would go stale the
// moment a handler calls SetInput without routing back through Graph; a
// scan is always correct.
package ir

import (
	"fmt"

	onnxpb "github.com/born-ml/onnxtranspose/internal/onnx"
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
)

// Graph is the in-memory adapter from onnx.ModelProto to graph.Graph.
type Graph struct {
	name string

	nodes []*graph.Node

	initializers map[string]*tensor
	valueInfo    map[string]graph.ValueInfo

	// graphInputs/graphOutputs name values that are visible outside this
	// graph: graphInputs are never produced by a node, graphOutputs must
	// keep their name across rewrites (Consumers.Comprehensive is false
	// for them).
	graphInputs  map[string]bool
	graphOutputs map[string]bool

	opsets map[string]int64

	// inputOrder/outputOrder preserve the declared input/output sequence
	// for Export, since graphInputs/graphOutputs are unordered sets.
	inputOrder  []string
	outputOrder []string

	// meta carries the source model's non-graph fields (IR version,
	// producer, metadata props) through untouched so Export round-trips
	// them without the optimizer ever needing to know they exist.
	meta onnxpb.ModelProto
}

var _ graph.Graph = (*Graph)(nil)

func newGraph(name string) *Graph {
	return &Graph{
		name:         name,
		initializers: make(map[string]*tensor),
		valueInfo:    make(map[string]graph.ValueInfo),
		graphInputs:  make(map[string]bool),
		graphOutputs: make(map[string]bool),
		opsets:       make(map[string]int64),
	}
}

// Opset returns domain's imported opset version, or 0 if the model does
// not import that domain.
func (g *Graph) Opset(domain string) int {
	return int(g.opsets[domain])
}

// Nodes returns the live node list. Callers that need a stable snapshot
// across edits (the optimizer's driver) copy it themselves.
func (g *Graph) Nodes() []*graph.Node {
	return g.nodes
}

func (g *Graph) GetNodeProducing(value string) (*graph.Node, int, bool) {
	if value == "" {
		return nil, 0, false
	}
	for _, n := range g.nodes {
		for i, out := range n.Outputs {
			if out == value {
				return n, i, true
			}
		}
	}
	return nil, 0, false
}

func (g *Graph) GetValueConsumers(value string) graph.Consumers {
	var nodes []*graph.Node
	var idx []int
	for _, n := range g.nodes {
		for i, in := range n.Inputs {
			if in == value {
				nodes = append(nodes, n)
				idx = append(idx, i)
			}
		}
	}
	return graph.Consumers{
		Nodes:         nodes,
		InputIndex:    idx,
		Comprehensive: !g.graphOutputs[value],
	}
}

func (g *Graph) HasValueConsumers(value string) bool {
	if g.graphOutputs[value] {
		return true
	}
	for _, n := range g.nodes {
		for _, in := range n.Inputs {
			if in == value {
				return true
			}
		}
	}
	return false
}

func (g *Graph) GetConstant(value string) (graph.Tensor, bool) {
	t, ok := g.initializers[value]
	if !ok {
		return nil, false
	}
	return t, true
}

func (g *Graph) GetValueInfo(value string) (graph.ValueInfo, bool) {
	vi, ok := g.valueInfo[value]
	return vi, ok
}

func shapeFromDims(dims []int64) perm.Shape {
	out := make(perm.Shape, len(dims))
	for i, d := range dims {
		out[i] = perm.Fixed(d)
	}
	return out
}

func (g *Graph) findNodeIndex(n *graph.Node) (int, error) {
	for i, cur := range g.nodes {
		if cur == n {
			return i, nil
		}
	}
	return -1, fmt.Errorf("ir: node %q (%s) is not part of this graph", n.Name, n.OpType)
}
