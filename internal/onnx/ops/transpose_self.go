package ops

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
	"github.com/born-ml/onnxtranspose/internal/onnx/rewrite"
)

func registerTransposeSelf(r *Registry) {
	r.addStandard("Transpose", Entry{
		Handle:             handleTransposeSelf,
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int { return nonEmptyInputs(n, []int{0}) },
		TransposesOutputs:  false,
		Exempt:             true,
	})
}

// handleTransposeSelf fuses or cancels two adjacent Transpose nodes.
// args.TransposeNode is the upstream Transpose (perm p1 == args.Perm);
// args.TargetNode is this Transpose (perm p2, read from its attribute).
func handleTransposeSelf(args *graph.HandlerArgs) bool {
	ctx := args.Ctx
	upstream := args.TransposeNode
	node := args.TargetNode
	p2, valid := rewrite.ReadPermAttr(node)
	if !valid {
		return false
	}

	if perm.Equal(args.PermInv, p2) {
		return cancelTransposes(ctx, upstream, node)
	}

	fused := perm.Compose(args.Perm, p2)
	node.SetAttributeInts("perm", intsToInt64(fused))
	node.SetInput(0, upstream.Inputs[0])
	rewrite.RemoveIfDead(ctx, upstream)
	return true
}

func cancelTransposes(ctx *graph.OptimizerCtx, upstream, node *graph.Node) bool {
	g := ctx.Graph
	out := node.Outputs[0]
	parentValue := upstream.Inputs[0]
	consumers := g.GetValueConsumers(out)
	if consumers.Comprehensive && !ctx.IsPinned(out) {
		rewrite.ReplaceValueReferences(consumers.Nodes, out, parentValue)
		g.RemoveNode(node)
		rewrite.RemoveIfDead(ctx, upstream)
		return true
	}

	// out is externally visible (a graph output, or pinned): its name must
	// survive. Rather than reach straight for an Identity, try to move it
	// onto upstream's parent node directly — only safe when every consumer
	// of the parent's output is known, so retargeting that output slot to
	// "out" doesn't strand anyone still referencing it by its old name.
	parentConsumers := g.GetValueConsumers(parentValue)
	parentNode, parentIdx, hasParent := g.GetNodeProducing(parentValue)
	if hasParent && parentConsumers.Comprehensive && !ctx.IsPinned(parentValue) {
		node.SetInput(0, "")
		rewrite.ReplaceValueReferences(parentConsumers.Nodes, parentValue, out)
		g.MoveOutput(node, 0, parentNode, parentIdx)
		g.RemoveNode(node)
		rewrite.RemoveIfDead(ctx, upstream)
		return true
	}

	// Worst case: the parent value is a graph input or initializer, has
	// consumers that are not all known, or is pinned, so its name cannot be
	// moved onto out either. Fall back to an Identity.
	identity := g.AddNode("Identity", []string{parentValue}, 1, "")
	g.MoveOutput(node, 0, identity, 0)
	g.RemoveNode(node)
	rewrite.RemoveIfDead(ctx, upstream)
	return true
}
