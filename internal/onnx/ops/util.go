package ops

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
)

// pushSelected transposes every non-empty input in indices by permInv,
// then (if transposeOutputs) wraps every output in permInv's inverse. This
// is the shared shape of the elementwise, single-input, and broadcast
// families once TransposibleInputs has already picked indices.
func pushSelected(args *graph.HandlerArgs, indices []int, normalizeRank, transposeOutputs bool) bool {
	node := args.TargetNode
	if len(indices) == 0 {
		return false
	}
	if normalizeRank && !rewriteNormalize(args, indices) {
		return false
	}
	for _, i := range indices {
		if node.Inputs[i] == "" {
			continue
		}
		transposeInput(args, i)
	}
	if transposeOutputs {
		transposeOutputsOf(args)
	}
	return true
}

func isScalarValue(ctx *graph.OptimizerCtx, value string) bool {
	if value == "" {
		return true
	}
	if t, ok := ctx.Graph.GetConstant(value); ok {
		return graph.IsScalarTensor(t.Shape())
	}
	if vi, ok := ctx.Graph.GetValueInfo(value); ok && vi.KnownRank() {
		return graph.IsScalarTensor(shapeToInt64(vi.Shape))
	}
	return false
}

func shapeToInt64(s perm.Shape) []int64 {
	out := make([]int64, len(s))
	for i, d := range s {
		if d.Symbolic {
			out[i] = -1
		} else {
			out[i] = d.Size
		}
	}
	return out
}

func intsToInt64(v []int) []int64 {
	out := make([]int64, len(v))
	for i, a := range v {
		out[i] = int64(a)
	}
	return out
}

func int64ToInts(v []int64) []int {
	out := make([]int, len(v))
	for i, a := range v {
		out[i] = int(a)
	}
	return out
}

func permToInt64(p perm.Perm) []int64 {
	return intsToInt64([]int(p))
}

func applyPermToInt64Data(data []int64, p perm.Perm) []int64 {
	out := make([]int64, len(p))
	for i := range p {
		out[i] = data[p[i]]
	}
	return out
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func nonEmptyInputs(n *graph.Node, indices []int) []int {
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < len(n.Inputs) && n.Inputs[i] != "" {
			out = append(out, i)
		}
	}
	return out
}
