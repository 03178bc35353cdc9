package onnx

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/ir"
)

// Options configures Optimize and ChangeLayout, mirroring the tunables
// OptimizerCtx exposes internally.
type Options struct {
	// AllowExtendedOps lets the optimizer dispatch into the com.microsoft
	// vendor domain (QLinear*, when the model imports it) and rewrite
	// MaxPool into com.microsoft NhwcMaxPool.
	AllowExtendedOps bool
	// SkipCostCheck disables the rank-based admissibility gate, pushing a
	// transpose whenever a handler exists for it. Mainly useful for tests
	// that want to force a specific rewrite regardless of cost. Only
	// Optimize honours it; ChangeLayout and its two wrappers always apply
	// the cost gate.
	SkipCostCheck bool
}

// DefaultOptions returns the zero-value Options: no extended-domain
// dispatch, cost check enabled.
func DefaultOptions() Options {
	return Options{}
}

func resolveOptions(opts []Options) Options {
	if len(opts) == 0 {
		return DefaultOptions()
	}
	return opts[0]
}

// Handle is a loaded ONNX model's live, in-memory graph: ready to be
// optimized in place and inspected. It replaces the teacher's inference
// Model interface — this package optimizes graphs, it does not run them.
type Handle struct {
	g *ir.Graph
}

// Graph exposes the underlying abstract graph.Graph, for callers that want
// to drive the optimizer package directly or write their own LayoutMap.
func (h *Handle) Graph() graph.Graph { return h.g }

// NodeCount returns the current number of nodes in the graph.
func (h *Handle) NodeCount() int { return len(h.g.Nodes()) }

// TransposeCount returns the current number of Transpose nodes in the
// graph — the metric the optimizer is built to shrink.
func (h *Handle) TransposeCount() int {
	n := 0
	for _, node := range h.g.Nodes() {
		if node.OpType == "Transpose" {
			n++
		}
	}
	return n
}
