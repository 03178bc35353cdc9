// Package cost implements the rank-based cost heuristic (spec.md §4.4)
// that decides whether pushing a transpose through a node is profitable.
package cost

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
	"github.com/born-ml/onnxtranspose/internal/onnx/rewrite"
)

// unknownRank is the deliberately pessimistic rank estimate for a value
// whose shape is not known.
const unknownRank = 5

// Model bundles what the cost formulas need beyond the graph itself: the
// reverse-reachability set (which values a transpose can profitably sink
// into) and a predicate for whether a node has any push-friendly handler at
// all. Both are owned by the driver (internal/onnx/optimizer), which is the
// only package that knows about the operator dispatch table — Model keeps
// this package decoupled from it.
type Model struct {
	Ctx          *graph.OptimizerCtx
	Reachable    map[string]bool
	PushFriendly func(n *graph.Node) bool
}

// EstimateValueRank returns the number of shape dimensions not equal to 1,
// or unknownRank if value's shape is not known.
func (m *Model) EstimateValueRank(value string) int {
	vi, ok := m.Ctx.Graph.GetValueInfo(value)
	if !ok || !vi.KnownRank() {
		return unknownRank
	}
	rank := 0
	for _, d := range vi.Shape {
		if !d.IsOne() {
			rank++
		}
	}
	return rank
}

// EstimateTransposeValueCost estimates the cost of transposing value by
// permInv as part of a push (spec.md §4.4).
func (m *Model) EstimateTransposeValueCost(value string, permInv perm.Perm) int {
	if _, isConst := m.Ctx.Graph.GetConstant(value); isConst {
		return 0
	}
	rank := m.EstimateValueRank(value)

	producer, outIdx, ok := m.Ctx.Graph.GetNodeProducing(value)
	if !ok || outIdx != 0 || producer.OpType != "Transpose" {
		return rank
	}
	q, valid := rewrite.ReadPermAttr(producer)
	if !valid {
		return 0
	}
	willCancel := perm.Equal(perm.Invert(q), permInv)
	if willCancel && m.canLikelyRemoveTranspose(value) {
		return -rank
	}
	return 0
}

// canLikelyRemoveTranspose reports whether value's producing Transpose can
// likely be deleted outright: every one of its consumers (not just the one
// under consideration) is itself push-friendly, so none of them will be
// stranded needing a transpose that no longer exists.
func (m *Model) canLikelyRemoveTranspose(value string) bool {
	consumers := m.Ctx.Graph.GetValueConsumers(value)
	if !consumers.Comprehensive {
		return false
	}
	if len(consumers.Nodes) == 0 {
		return false
	}
	for _, n := range consumers.Nodes {
		if !m.PushFriendly(n) {
			return false
		}
	}
	return true
}

// EstimateTransposeInputsCost sums EstimateTransposeValueCost over the
// listed input indices of node.
func (m *Model) EstimateTransposeInputsCost(node *graph.Node, permInv perm.Perm, indices []int) int {
	total := 0
	for _, idx := range indices {
		v := node.Inputs[idx]
		if v == "" {
			continue
		}
		total += m.EstimateTransposeValueCost(v, permInv)
	}
	return total
}

// EstimateOutputsCost adds the maximum output rank of node when the
// handler will also transpose its outputs, unless the reverse-reachability
// set marks at least one output as eventually leading to a matching
// transpose (in which case the eventual cancellation is assumed free).
func (m *Model) EstimateOutputsCost(node *graph.Node, willTransposeOutputs bool) int {
	if !willTransposeOutputs {
		return 0
	}
	maxRank := 0
	for _, out := range node.Outputs {
		if m.Reachable[out] {
			return 0
		}
		if r := m.EstimateValueRank(out); r > maxRank {
			maxRank = r
		}
	}
	return maxRank
}

// IsAdmissible reports whether a total estimated cost makes a push
// profitable: the sum must be strictly negative.
func IsAdmissible(total int) bool {
	return total < 0
}
