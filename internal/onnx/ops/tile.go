package ops

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/rewrite"
)

func registerTile(r *Registry) {
	r.addStandard("Tile", Entry{
		Handle:             handleTile,
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int { return nonEmptyInputs(n, []int{0}) },
		TransposesOutputs:  true,
	})
}

func handleTile(args *graph.HandlerArgs) bool {
	ctx, node := args.Ctx, args.TargetNode
	if len(node.Inputs) < 2 || node.Inputs[0] == "" || node.Inputs[1] == "" {
		return false
	}
	repeatsValue := node.Inputs[1]
	if t, isConst := ctx.Graph.GetConstant(repeatsValue); isConst {
		newRepeats := applyPermToInt64Data(t.AsInt64(), args.PermInv)
		node.SetInput(1, ctx.Graph.AddInitializerI64([]int64{int64(len(newRepeats))}, newRepeats))
		rewrite.RemoveInitializerIfDead(ctx, repeatsValue)
	} else {
		idxValue := ctx.Graph.AddInitializerI64([]int64{int64(len(args.PermInv))}, permToInt64(args.PermInv))
		gather := ctx.Graph.AddNode("Gather", []string{repeatsValue, idxValue}, 1, "")
		gather.SetAttributeInt("axis", 0)
		node.SetInput(1, gather.Outputs[0])
	}
	transposeInput(args, 0)
	transposeOutputsOf(args)
	return true
}
