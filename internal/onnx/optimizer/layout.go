package optimizer

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
)

// LayoutDirection selects which way ChangeLayout wraps a node.
type LayoutDirection int

const (
	// ChannelsLastToFirst wraps a channels-last op so it computes in
	// channels-first form.
	ChannelsLastToFirst LayoutDirection = iota
	// ChannelsFirstToLast is the reverse.
	ChannelsFirstToLast
)

// LayoutPolicy is the per-op policy ChangeLayout consults (spec.md §4.7):
// given a node, should its layout change, and if so under what new
// op_type/domain/rank.
type LayoutPolicy struct {
	ShouldChangeLayout bool
	NewOpType          string // empty means keep the existing op_type
	NewDomain          string
	Rank               int
}

// LayoutMap decides, per node, whether and how to change its layout.
type LayoutMap func(n *graph.Node) LayoutPolicy

// ChangeLayout wraps every node selected by layoutMap in a
// Transpose(perm_inv) -> op' -> Transpose(perm) sandwich (perm =
// ChannelsLastToFirst(rank) or its inverse, depending on direction), then
// runs Optimize to absorb the wrappers into their surroundings. It is the
// channel_last_to_first / channel_first_to_last entry point of spec.md §6.
func ChangeLayout(g graph.Graph, layoutMap LayoutMap, direction LayoutDirection, allowExtendedOps bool) bool {
	ctx := &graph.OptimizerCtx{
		Graph:            g,
		AllowExtendedOps: allowExtendedOps,
		Opset:            g.Opset(""),
	}

	changed := false
	for _, node := range snapshotNodes(g) {
		policy := layoutMap(node)
		if !policy.ShouldChangeLayout {
			continue
		}
		wrapNode(ctx, node, policy, direction)
		changed = true
	}

	if Optimize(g, allowExtendedOps) {
		changed = true
	}
	return changed
}

// ChannelFirstToLast is the convenience wrapper matching spec.md §6's
// channel_first_to_last(graph, map, allow_extended_ops) entry point.
func ChannelFirstToLast(g graph.Graph, layoutMap LayoutMap, allowExtendedOps bool) bool {
	return ChangeLayout(g, layoutMap, ChannelsFirstToLast, allowExtendedOps)
}

// ChannelLastToFirst is the convenience wrapper matching spec.md §6's
// channel_last_to_first(graph, map, allow_extended_ops) entry point.
func ChannelLastToFirst(g graph.Graph, layoutMap LayoutMap, allowExtendedOps bool) bool {
	return ChangeLayout(g, layoutMap, ChannelsLastToFirst, allowExtendedOps)
}

func wrapNode(ctx *graph.OptimizerCtx, node *graph.Node, policy LayoutPolicy, direction LayoutDirection) {
	g := ctx.Graph

	target := node
	if policy.NewOpType != "" {
		renamed := g.AddNode(policy.NewOpType, node.Inputs, len(node.Outputs), policy.NewDomain)
		renamed.CopyAttributes(node)
		for i := range node.Outputs {
			g.MoveOutput(node, i, renamed, i)
		}
		g.RemoveNode(node)
		target = renamed
	}

	p := perm.ChannelsLastToFirst(policy.Rank)
	pInv := perm.Invert(p)
	if direction == ChannelsLastToFirst {
		p, pInv = pInv, p
	}

	for i, in := range target.Inputs {
		if in == "" {
			continue
		}
		t := g.AddNode("Transpose", []string{in}, 1, "")
		t.SetAttributeInts("perm", permToInt64(pInv))
		if vi, ok := g.GetValueInfo(in); ok {
			g.SetValueInfo(t.Outputs[0], vi.Permuted(pInv))
		}
		target.SetInput(i, t.Outputs[0])
	}

	for i := range target.Outputs {
		old := target.Outputs[i]
		t := g.AddNode("Transpose", []string{""}, 1, "")
		t.SetAttributeInts("perm", permToInt64(p))
		g.MoveOutput(target, i, t, 0)
		t.SetInput(0, target.Outputs[i])
		if vi, ok := g.GetValueInfo(old); ok {
			g.SetValueInfo(target.Outputs[i], vi.Permuted(pInv))
			g.SetValueInfo(t.Outputs[0], vi)
		}
	}
}

func permToInt64(p perm.Perm) []int64 {
	out := make([]int64, len(p))
	for i, v := range p {
		out[i] = int64(v)
	}
	return out
}
