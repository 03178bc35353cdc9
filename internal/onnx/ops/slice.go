package ops

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
	"github.com/born-ml/onnxtranspose/internal/onnx/rewrite"
)

func registerSlice(r *Registry) {
	r.addStandard("Slice", Entry{
		Handle: func(args *graph.HandlerArgs) bool {
			if args.Ctx.Opset >= 10 {
				return handleSlice(args)
			}
			return handleSliceLegacy(args)
		},
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int { return nonEmptyInputs(n, []int{0}) },
		TransposesOutputs:  true,
	})
}

// handleSliceLegacy implements the opset<10 attribute form: starts/ends
// (required) and axes (optional, defaulting positionally to 0..n-1). This
// is also the bug the spec flags as an open question: starts is read
// without first checking it is set, matching the behaviour being mirrored.
func handleSliceLegacy(args *graph.HandlerArgs) bool {
	node := args.TargetNode
	if len(node.Inputs) == 0 || node.Inputs[0] == "" {
		return false
	}
	starts, _ := node.GetAttrInts("starts")
	axesAttr, hasAxes := node.GetAttrInts("axes")
	var axes []int
	if hasAxes {
		axes = perm.NormalizeAxes(int64ToInts(axesAttr), len(args.Perm))
	} else {
		axes = make([]int, len(starts))
		for i := range axes {
			axes[i] = i
		}
	}
	newAxes := perm.AxesForTransposedInput(axes, args.Perm)
	node.SetAttributeInts("axes", intsToInt64(newAxes))
	transposeInput(args, 0)
	transposeOutputsOf(args)
	return true
}

// handleSlice implements the opset>=10 input form: axes may be an
// explicit int32/int64 input or, if absent, derived from starts's length.
func handleSlice(args *graph.HandlerArgs) bool {
	ctx, node := args.Ctx, args.TargetNode
	if len(node.Inputs) < 2 || node.Inputs[0] == "" {
		return false
	}

	var axes []int
	var dtype graph.DType = graph.DTypeInt64
	if len(node.Inputs) > 3 && node.Inputs[3] != "" {
		t, isConst := ctx.Graph.GetConstant(node.Inputs[3])
		if !isConst {
			return false
		}
		axes = perm.NormalizeAxes(int64ToInts(t.AsInt64()), len(args.Perm))
		dtype = t.DType()
	} else {
		startsT, isConst := ctx.Graph.GetConstant(node.Inputs[1])
		if !isConst {
			return false
		}
		n := len(startsT.AsInt64())
		axes = make([]int, n)
		for i := range axes {
			axes[i] = i
		}
	}

	newAxes := perm.AxesForTransposedInput(axes, args.Perm)
	var newValue string
	if dtype == graph.DTypeInt32 {
		data := make([]int32, len(newAxes))
		for i, a := range newAxes {
			data[i] = int32(a)
		}
		newValue = ctx.Graph.AddInitializerI32([]int64{int64(len(newAxes))}, data)
	} else {
		newValue = ctx.Graph.AddInitializerI64([]int64{int64(len(newAxes))}, intsToInt64(newAxes))
	}
	oldAxesValue := ""
	if len(node.Inputs) > 3 {
		oldAxesValue = node.Inputs[3]
	}
	for len(node.Inputs) <= 3 {
		node.Inputs = append(node.Inputs, "")
	}
	node.SetInput(3, newValue)
	rewrite.RemoveInitializerIfDead(ctx, oldAxesValue)

	transposeInput(args, 0)
	transposeOutputsOf(args)
	return true
}
