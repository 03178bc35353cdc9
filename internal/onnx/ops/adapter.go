package ops

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
	"github.com/born-ml/onnxtranspose/internal/onnx/rewrite"
)

// transposeInput pushes HandlerArgs.PermInv onto node.Inputs[i], the shape
// every handler below needs: the input is transposed by the inverse of the
// perm being pushed, so that once the node's outputs are re-wrapped in
// Perm the net effect on every other consumer is unchanged.
func transposeInput(args *graph.HandlerArgs, i int) {
	rewrite.TransposeInput(args.Ctx, args.TargetNode, i, args.PermInv, args.Perm)
}

func transposeOutputsOf(args *graph.HandlerArgs) {
	rewrite.TransposeOutputs(args.Ctx, args.TargetNode, args.Perm, args.PermInv)
}

func transposeOutputAt(args *graph.HandlerArgs, i int, p perm.Perm) {
	rewrite.TransposeOutput(args.Ctx, args.TargetNode, i, p, perm.Invert(p))
}

func rewriteNormalize(args *graph.HandlerArgs, indices []int) bool {
	return rewrite.NormalizeInputRanks(args.Ctx, args.TargetNode, len(args.Perm), indices)
}

func nodeAxes(ctx *graph.OptimizerCtx, n *graph.Node, inputIdx int) ([]int, bool) {
	return rewrite.NodeAxes(ctx, n, inputIdx)
}

func writeAxes(ctx *graph.OptimizerCtx, n *graph.Node, inputIdx int, axes []int) {
	rewrite.WriteAxes(ctx, n, inputIdx, axes)
}
