// Package optimizer implements the dispatcher-facing driver (spec.md
// §4.6): the reverse-reachability pass, the cost-gated ProcessTranspose,
// and the forward OptimizeImpl sweep that repeatedly pushes transposes
// until none can be pushed any further.
package optimizer

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/cost"
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/ops"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
	"github.com/born-ml/onnxtranspose/internal/onnx/rewrite"
)

// kMinSupportedOpset and kMaxSupportedOpset bound the opsets this
// optimizer will touch; outside this range it returns no change without
// examining the graph.
const (
	kMinSupportedOpset = 7
	kMaxSupportedOpset = 23
)

// defaultRegistry is built once at package init so every Optimize run
// (including the ones ChangeLayout makes) shares one dispatch table rather
// than rebuilding it.
var defaultRegistry = ops.NewRegistry()

// Optimize runs OptimizeImpl to a fixed point and reports whether any
// rewrite happened. It is the optimize(graph, allow_extended_ops) entry
// point of spec.md §6.
func Optimize(g graph.Graph, allowExtendedOps bool) bool {
	ctx := &graph.OptimizerCtx{
		Graph:            g,
		AllowExtendedOps: allowExtendedOps,
	}
	return optimizeImpl(ctx)
}

// OptimizeWithCtx runs with a caller-supplied OptimizerCtx (Opset is
// filled in from g if zero), for callers that need Pinned values or a
// SkipReasons sink.
func OptimizeWithCtx(ctx *graph.OptimizerCtx) bool {
	return optimizeImpl(ctx)
}

func optimizeImpl(ctx *graph.OptimizerCtx) bool {
	if ctx.Graph == nil {
		return false
	}
	if ctx.Opset == 0 {
		ctx.Opset = ctx.Graph.Opset("")
	}
	if ctx.Opset < kMinSupportedOpset || ctx.Opset > kMaxSupportedOpset {
		return false
	}

	changed := false
	for {
		if !runOnePass(ctx) {
			break
		}
		changed = true
	}
	return changed
}

// runOnePass performs one reverse-then-forward sweep (spec.md §4.6 steps
// 1-3) and reports whether it changed anything. OptimizeImpl calls this
// to a fixed point: a push can enable further pushes deeper in the graph
// that the same pass already walked past.
func runOnePass(ctx *graph.OptimizerCtx) bool {
	nodes := snapshotNodes(ctx.Graph)
	reachable := reverseReachability(ctx, nodes)

	model := &cost.Model{
		Ctx:       ctx,
		Reachable: reachable,
		PushFriendly: func(n *graph.Node) bool {
			return defaultRegistry.Supported(ctx, n)
		},
	}

	changed := false
nodeLoop:
	for _, node := range nodes {
		if len(node.Outputs) == 0 {
			continue
		}
		for {
			modifiedThisNode := false
			for _, v := range node.Inputs {
				if v == "" {
					continue
				}
				producer, outIdx, ok := ctx.Graph.GetNodeProducing(v)
				if !ok || outIdx != 0 || producer.OpType != "Transpose" {
					continue
				}
				p, valid := rewrite.ReadPermAttr(producer)
				if !valid {
					continue
				}
				firstOutput := node.Outputs[0]
				if processTranspose(ctx, model, producer, node, p) {
					changed = true
					modifiedThisNode = true
					// A handler (notably Transpose-on-Transpose cancellation)
					// may have removed node entirely and moved its external
					// name elsewhere. Once that's happened node is no longer
					// part of the graph and must not be rescanned.
					if owner, idx, ok := ctx.Graph.GetNodeProducing(firstOutput); !ok || owner != node || idx != 0 {
						continue nodeLoop
					}
					break // node.Inputs may have been rewritten; rescan from the top
				}
			}
			if !modifiedThisNode {
				break
			}
		}
	}
	return changed
}

// processTranspose implements ProcessTranspose (spec.md §4.6): apply the
// cost gate, then invoke the handler.
func processTranspose(ctx *graph.OptimizerCtx, model *cost.Model, transposeNode, targetNode *graph.Node, p perm.Perm) bool {
	entry, ok := defaultRegistry.Lookup(ctx, targetNode)
	if !ok {
		ctx.Skip("no handler for " + targetNode.OpType)
		return false
	}

	pInv := perm.Invert(p)
	indices := entry.TransposibleInputs(ctx, targetNode)

	if !entry.Exempt && !ctx.SkipCostCheck {
		total := model.EstimateTransposeInputsCost(targetNode, pInv, indices)
		total += model.EstimateOutputsCost(targetNode, entry.TransposesOutputs)
		if !cost.IsAdmissible(total) {
			ctx.Skip("push not admissible for " + targetNode.OpType)
			return false
		}
	}

	args := &graph.HandlerArgs{
		Ctx:                ctx,
		TransposeNode:      transposeNode,
		TargetNode:         targetNode,
		Perm:               p,
		PermInv:            pInv,
		TransposibleInputs: indices,
	}
	return entry.Handle(args)
}

// reverseReachability builds outputs_leading_to_transpose: the set of
// values from which a transpose is reachable through a chain of
// push-friendly nodes, walking nodes in reverse topological order.
func reverseReachability(ctx *graph.OptimizerCtx, nodes []*graph.Node) map[string]bool {
	reachable := make(map[string]bool)
	for _, n := range nodes {
		if n.OpType == "Transpose" {
			if _, valid := rewrite.ReadPermAttr(n); valid && len(n.Inputs) > 0 {
				reachable[n.Inputs[0]] = true
			}
		}
	}

	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		anyOutputReachable := false
		for _, out := range n.Outputs {
			if out != "" && reachable[out] {
				anyOutputReachable = true
				break
			}
		}
		if !anyOutputReachable {
			continue
		}
		entry, ok := defaultRegistry.Lookup(ctx, n)
		if !ok {
			continue
		}
		for _, idx := range entry.TransposibleInputs(ctx, n) {
			if idx < len(n.Inputs) && n.Inputs[idx] != "" {
				reachable[n.Inputs[idx]] = true
			}
		}
	}
	return reachable
}

func snapshotNodes(g graph.Graph) []*graph.Node {
	live := g.Nodes()
	out := make([]*graph.Node, len(live))
	copy(out, live)
	return out
}
