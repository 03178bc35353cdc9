package ops

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
)

func registerQuantized(r *Registry) {
	quantDequant := Entry{
		Handle:             handleQuantizeDequantize,
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int { return nonEmptyInputs(n, []int{0}) },
		TransposesOutputs:  true,
	}
	r.addStandard("QuantizeLinear", quantDequant)
	r.addStandard("DequantizeLinear", quantDequant)

	qlinearAddMul := Entry{
		Handle:             handleQLinearAddMul,
		TransposibleInputs: qlinearAddMulInputs,
		TransposesOutputs:  true,
	}
	r.addExtended("QLinearAdd", qlinearAddMul)
	r.addExtended("QLinearMul", qlinearAddMul)

	avgPool := Entry{
		Handle: handleQLinearAveragePool,
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int {
			return nonEmptyInputs(n, []int{0})
		},
		TransposesOutputs: true,
	}
	r.addExtended("QLinearAveragePool", avgPool)
	r.addExtended("QLinearGlobalAveragePool", avgPool)
}

// handleQuantizeDequantize renumbers the per-axis quantization axis only
// when the scale is non-scalar (per-tensor quantization is axis-free).
func handleQuantizeDequantize(args *graph.HandlerArgs) bool {
	ctx, node := args.Ctx, args.TargetNode
	if len(node.Inputs) == 0 || node.Inputs[0] == "" {
		return false
	}
	if len(node.Inputs) > 1 && node.Inputs[1] != "" && !isScalarValue(ctx, node.Inputs[1]) {
		r := len(args.Perm)
		axis := perm.NormalizeAxis(int(node.GetAttrInt("axis", 1)), r)
		node.SetAttributeInt("axis", int64(args.Perm[axis]))
	}
	transposeInput(args, 0)
	transposeOutputsOf(args)
	return true
}

func qlinearAddMulInputs(ctx *graph.OptimizerCtx, n *graph.Node) []int {
	var out []int
	for _, i := range []int{0, 3} {
		if i < len(n.Inputs) && n.Inputs[i] != "" && !isScalarValue(ctx, n.Inputs[i]) {
			out = append(out, i)
		}
	}
	return out
}

func handleQLinearAddMul(args *graph.HandlerArgs) bool {
	indices := qlinearAddMulInputs(args.Ctx, args.TargetNode)
	if len(indices) == 0 {
		return false
	}
	if !rewriteNormalize(args, indices) {
		return false
	}
	for _, i := range indices {
		transposeInput(args, i)
	}
	transposeOutputsOf(args)
	return true
}

// handleQLinearAveragePool only fires when perm exactly matches the
// channels-last<->first swap for the input's rank, flipping the
// channels_last attribute to compensate.
func handleQLinearAveragePool(args *graph.HandlerArgs) bool {
	ctx, node := args.Ctx, args.TargetNode
	if len(node.Inputs) == 0 || node.Inputs[0] == "" {
		return false
	}
	vi, ok := ctx.Graph.GetValueInfo(node.Inputs[0])
	if !ok || !vi.KnownRank() || vi.Rank() != len(args.Perm) {
		return false
	}
	clf := perm.ChannelsLastToFirst(vi.Rank())
	channelsLast := node.GetAttrInt("channels_last", 0) != 0
	expected := clf
	if channelsLast {
		expected = perm.Invert(clf)
	}
	if !perm.Equal(args.Perm, expected) {
		return false
	}
	node.SetAttributeInt("channels_last", boolToInt64(!channelsLast))
	transposeInput(args, 0)
	transposeOutputsOf(args)
	return true
}
