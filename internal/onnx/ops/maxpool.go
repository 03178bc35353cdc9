package ops

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
)

func registerMaxPool(r *Registry) {
	r.addStandard("MaxPool", Entry{
		Handle:             handleMaxPool,
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int { return nonEmptyInputs(n, []int{0}) },
		TransposesOutputs:  true,
		Exempt:             true,
	})
}

// handleMaxPool replaces MaxPool with the vendor NhwcMaxPool when extended
// ops are allowed, the optional indices output is absent, the output is
// 8-bit, and perm is exactly the channels-last<->first swap — conditions
// under which the NHWC kernel is strictly faster, so the push bypasses the
// cost gate.
func handleMaxPool(args *graph.HandlerArgs) bool {
	ctx, node := args.Ctx, args.TargetNode
	if !ctx.AllowExtendedOps {
		return false
	}
	if len(node.Outputs) > 1 && node.Outputs[1] != "" {
		return false
	}
	outVI, ok := ctx.Graph.GetValueInfo(node.Outputs[0])
	if !ok || (outVI.DType != graph.DTypeInt8 && outVI.DType != graph.DTypeUint8) {
		return false
	}
	vi, ok := ctx.Graph.GetValueInfo(node.Inputs[0])
	if !ok || !vi.KnownRank() {
		return false
	}
	if !perm.Equal(args.Perm, perm.ChannelsLastToFirst(vi.Rank())) {
		return false
	}

	newNode := ctx.Graph.AddNode("NhwcMaxPool", node.Inputs, len(node.Outputs), vendorDomain)
	newNode.CopyAttributes(node)
	newNode.ClearAttribute("storage_order")
	for i := range node.Outputs {
		ctx.Graph.MoveOutput(node, i, newNode, i)
	}
	ctx.Graph.RemoveNode(node)

	childArgs := *args
	childArgs.TargetNode = newNode
	transposeInput(&childArgs, 0)
	transposeOutputsOf(&childArgs)
	return true
}
