package graph

import "github.com/born-ml/onnxtranspose/internal/onnx/perm"

// Consumers is the result of GetValueConsumers: the list of nodes (and
// which input slot) that reference a value, plus whether that list is known
// to be exhaustive. When Comprehensive is false the value may be referenced
// outside the optimizer's control (a graph output, say) and must be
// preserved by name across rewrites.
type Consumers struct {
	Nodes         []*Node
	InputIndex    []int // InputIndex[i] is the input slot of Nodes[i] that references the value
	Comprehensive bool
}

// Graph is the capability the optimizer consumes. It never touches a
// serialized model format; concrete graphs (e.g. internal/onnx/ir) satisfy
// this interface by wrapping whatever representation the caller owns.
type Graph interface {
	// Query

	// Opset returns the graph's opset version for the given domain ("" for
	// the default ai.onnx domain).
	Opset(domain string) int

	// Nodes returns every node in the graph in topological order. The
	// returned slice is a live view: edits to the graph are reflected in
	// subsequent calls, but a snapshot taken before editing is not
	// invalidated by later edits (see OptimizeImpl's driver loop).
	Nodes() []*Node

	// GetNodeProducing returns the node and output slot that produces
	// value, or ok=false if value is a graph input or an initializer.
	GetNodeProducing(value string) (node *Node, outputIndex int, ok bool)

	// GetValueConsumers returns every node input slot that references
	// value.
	GetValueConsumers(value string) Consumers

	// HasValueConsumers reports whether any node input references value or
	// value is a graph output.
	HasValueConsumers(value string) bool

	// GetConstant returns value's constant data if it names an
	// initializer, or ok=false otherwise.
	GetConstant(value string) (t Tensor, ok bool)

	// GetValueInfo returns value's dtype/shape metadata.
	GetValueInfo(value string) (vi ValueInfo, ok bool)

	// Build

	// AddNode allocates a fresh node with numOutputs freshly named outputs
	// and registers it in the graph. domain == "" selects the default
	// domain. The returned Node's Inputs are set to inputs; the caller
	// wires them further (e.g. by overwriting an input slot) before or
	// after other edits in the same handler.
	AddNode(opType string, inputs []string, numOutputs int, domain string) *Node

	// AddInitializerI64 creates a fresh int64 initializer with the given
	// shape and data, returning its value name.
	AddInitializerI64(shape []int64, data []int64) string

	// AddInitializerI32 creates a fresh int32 initializer with the given
	// shape and data, returning its value name.
	AddInitializerI32(shape []int64, data []int32) string

	// CopyValueInfo copies dst's ValueInfo from src verbatim.
	CopyValueInfo(src, dst string)

	// SetValueInfo sets value's ValueInfo directly (used when a rewrite
	// computes it rather than copying from an existing value).
	SetValueInfo(value string, vi ValueInfo)

	// Mutate

	// ReshapeInitializer mutates an initializer's declared shape in place.
	// The element count must be unchanged.
	ReshapeInitializer(name string, shape []int64) error

	// TransposeInitializer mutates an initializer's data and shape in
	// place under permutation p.
	TransposeInitializer(name string, p perm.Perm) error

	// RemoveNode deallocates a node that has become dead (no remaining
	// consumers of any of its outputs).
	RemoveNode(n *Node)

	// RemoveInitializer deallocates an initializer with no remaining value
	// consumers.
	RemoveInitializer(name string)

	// MoveOutput transfers the *name* of src.Outputs[i] to dst.Outputs[j]:
	// src.Outputs[i] is renamed to a fresh value, and every external
	// reference to the old name now resolves to dst's (j-th) output.
	MoveOutput(src *Node, i int, dst *Node, j int)
}

// OptimizerCtx is threaded through every handler call (spec.md §3).
type OptimizerCtx struct {
	Opset            int
	Graph            Graph
	AllowExtendedOps bool
	SkipCostCheck    bool

	// Pinned marks values that must never be renamed by MoveOutput, only
	// wrapped with a compensating op. Nil means nothing
	// is pinned beyond what Graph already reports via Consumers.Comprehensive.
	Pinned map[string]bool

	// SkipReasons, when non-nil, accumulates short diagnostic strings for
	// handlers that declined to push a transpose — purely informational,
	// never consulted by the algorithm itself (spec.md §7: no error is
	// ever propagated through the optimizer's control flow).
	SkipReasons *[]string
}

// IsPinned reports whether value must be preserved by name.
func (c *OptimizerCtx) IsPinned(value string) bool {
	return c.Pinned != nil && c.Pinned[value]
}

// Skip records a diagnostic reason a push did not happen, if the caller
// asked for diagnostics via SkipReasons.
func (c *OptimizerCtx) Skip(reason string) {
	if c.SkipReasons != nil {
		*c.SkipReasons = append(*c.SkipReasons, reason)
	}
}

// HandlerArgs is delivered to a handler once the driver has committed to
// attempting a push of TransposeNode through TargetNode.
type HandlerArgs struct {
	Ctx                *OptimizerCtx
	TransposeNode      *Node
	TargetNode         *Node
	Perm               perm.Perm
	PermInv            perm.Perm
	TransposibleInputs []int
}
