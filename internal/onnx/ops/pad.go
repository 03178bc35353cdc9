package ops

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
	"github.com/born-ml/onnxtranspose/internal/onnx/rewrite"
)

func registerPad(r *Registry) {
	r.addStandard("Pad", Entry{
		Handle:             handlePad,
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int { return nonEmptyInputs(n, []int{0}) },
		TransposesOutputs:  true,
	})
}

func handlePad(args *graph.HandlerArgs) bool {
	ctx, node := args.Ctx, args.TargetNode
	if len(node.Inputs) == 0 || node.Inputs[0] == "" {
		return false
	}

	if ctx.Opset < 11 {
		pads, ok := node.GetAttrInts("pads")
		if !ok {
			return false
		}
		node.SetAttributeInts("pads", perm.PermutePads(pads, args.PermInv))
		transposeInput(args, 0)
		transposeOutputsOf(args)
		return true
	}

	if len(node.Inputs) < 2 || node.Inputs[1] == "" {
		return false
	}
	r := len(args.Perm)
	padsValue := node.Inputs[1]
	if t, isConst := ctx.Graph.GetConstant(padsValue); isConst {
		newPads := perm.PermutePads(t.AsInt64(), args.PermInv)
		node.SetInput(1, ctx.Graph.AddInitializerI64([]int64{int64(len(newPads))}, newPads))
		rewrite.RemoveInitializerIfDead(ctx, padsValue)
	} else {
		idx := make([]int, 2*r)
		for i := 0; i < r; i++ {
			idx[i] = args.PermInv[i]
			idx[r+i] = r + args.PermInv[i]
		}
		idxValue := ctx.Graph.AddInitializerI64([]int64{int64(len(idx))}, intsToInt64(idx))
		gather := ctx.Graph.AddNode("Gather", []string{padsValue, idxValue}, 1, "")
		gather.SetAttributeInt("axis", 0)
		node.SetInput(1, gather.Outputs[0])
	}
	transposeInput(args, 0)
	transposeOutputsOf(args)
	return true
}
