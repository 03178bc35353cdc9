package ops

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
	"github.com/born-ml/onnxtranspose/internal/onnx/rewrite"
)

var reductionOps = []string{
	"ReduceMax", "ReduceMean", "ReduceMin", "ReduceProd", "ReduceSumSquare",
	"ReduceL1", "ReduceL2", "ReduceLogSum", "ReduceLogSumExp",
}

func registerReductions(r *Registry) {
	entry := Entry{
		Handle:             handleReduction,
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int { return nonEmptyInputs(n, []int{0}) },
		TransposesOutputs:  true,
	}
	for _, op := range reductionOps {
		r.addStandard(op, entry)
	}

	// ReduceSum moved its axes from an attribute to an optional second
	// input at opset 13; the legacy attribute form reuses handleReduction.
	r.addStandard("ReduceSum", Entry{
		Handle: func(args *graph.HandlerArgs) bool {
			if args.Ctx.Opset >= 13 {
				return handleReduceSum13(args)
			}
			return handleReduction(args)
		},
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int { return nonEmptyInputs(n, []int{0}) },
		TransposesOutputs:  true,
	})
}

func handleReduction(args *graph.HandlerArgs) bool {
	node := args.TargetNode
	if len(node.Inputs) == 0 || node.Inputs[0] == "" {
		return false
	}
	keepdims := node.GetAttrInt("keepdims", 1) != 0
	axesAttr, has := node.GetAttrInts("axes")

	transposeInput(args, 0)

	if !has {
		if keepdims {
			transposeOutputsOf(args)
		}
		return true
	}

	axes := perm.NormalizeAxes(int64ToInts(axesAttr), len(args.Perm))
	newAxes := perm.SortedAxesForTransposedInput(axes, args.Perm)
	node.SetAttributeInts("axes", intsToInt64(newAxes))
	finishReductionOutput(args, newAxes, keepdims)
	return true
}

// handleReduceSum13 implements ReduceSum's opset>=13 axes-as-input form.
func handleReduceSum13(args *graph.HandlerArgs) bool {
	ctx, node := args.Ctx, args.TargetNode
	if len(node.Inputs) == 0 || node.Inputs[0] == "" {
		return false
	}
	keepdims := node.GetAttrInt("keepdims", 1) != 0
	noop := node.GetAttrInt("noop_with_empty_axes", 0) != 0
	hasAxesInput := len(node.Inputs) > 1 && node.Inputs[1] != ""

	if !hasAxesInput {
		transposeInput(args, 0)
		if noop || keepdims {
			transposeOutputsOf(args)
		}
		return true
	}

	t, isConst := ctx.Graph.GetConstant(node.Inputs[1])
	if !isConst {
		return false
	}
	axesData := t.AsInt64()
	transposeInput(args, 0)
	if len(axesData) == 0 {
		if noop || keepdims {
			transposeOutputsOf(args)
		}
		return true
	}

	axes := perm.NormalizeAxes(int64ToInts(axesData), len(args.Perm))
	newAxes := perm.SortedAxesForTransposedInput(axes, args.Perm)
	oldAxesValue := node.Inputs[1]
	newAxesValue := ctx.Graph.AddInitializerI64([]int64{int64(len(newAxes))}, intsToInt64(newAxes))
	node.SetInput(1, newAxesValue)
	rewrite.RemoveInitializerIfDead(ctx, oldAxesValue)
	finishReductionOutput(args, newAxes, keepdims)
	return true
}

func finishReductionOutput(args *graph.HandlerArgs, newAxes []int, keepdims bool) {
	if keepdims {
		transposeOutputsOf(args)
		return
	}
	outPerm := perm.SqueezePerm(newAxes, args.Perm)
	transposeOutputAt(args, 0, outPerm)
}

func registerSqueezeUnsqueeze(r *Registry) {
	r.addStandard("Squeeze", Entry{
		Handle:             handleSqueeze,
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int { return nonEmptyInputs(n, []int{0}) },
		TransposesOutputs:  true,
	})
	r.addStandard("Unsqueeze", Entry{
		Handle:             handleUnsqueeze,
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int { return nonEmptyInputs(n, []int{0}) },
		TransposesOutputs:  true,
	})
}

func handleSqueeze(args *graph.HandlerArgs) bool {
	ctx, node := args.Ctx, args.TargetNode
	axes, ok := nodeAxes(ctx, node, 1)
	if !ok {
		return false
	}
	axes = perm.NormalizeAxes(axes, len(args.Perm))
	newAxes := perm.SortedAxesForTransposedInput(axes, args.Perm)
	writeAxes(ctx, node, 1, newAxes)
	transposeInput(args, 0)
	outPerm := perm.SqueezePerm(newAxes, args.Perm)
	transposeOutputAt(args, 0, outPerm)
	return true
}

// handleUnsqueeze is also invoked (in spirit) from rewrite.UnsqueezeInput's
// push-through-Transpose case: both are built from perm.UnsqueezePerm, kept
// as separate call sites rather than literally shared code to avoid a
// package cycle (rewrite sits below ops).
func handleUnsqueeze(args *graph.HandlerArgs) bool {
	ctx, node := args.Ctx, args.TargetNode
	axes, ok := nodeAxes(ctx, node, 1)
	if !ok {
		return false
	}
	outPerm, err := perm.UnsqueezePerm(axes, args.Perm)
	if err != nil {
		return false
	}
	transposeInput(args, 0)
	transposeOutputAt(args, 0, outPerm)
	return true
}

func registerArgMinMax(r *Registry) {
	entry := Entry{
		Handle:             handleArgMinMax,
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int { return nonEmptyInputs(n, []int{0}) },
		TransposesOutputs:  true,
	}
	r.addStandard("ArgMin", entry)
	r.addStandard("ArgMax", entry)
}

func handleArgMinMax(args *graph.HandlerArgs) bool {
	node := args.TargetNode
	if len(node.Inputs) == 0 || node.Inputs[0] == "" {
		return false
	}
	r := len(args.Perm)
	axis := perm.NormalizeAxis(int(node.GetAttrInt("axis", 0)), r)
	keepdims := node.GetAttrInt("keepdims", 1) != 0
	newAxis := args.Perm[axis]
	node.SetAttributeInt("axis", int64(newAxis))
	transposeInput(args, 0)
	if keepdims {
		transposeOutputsOf(args)
		return true
	}
	outPerm := perm.SqueezePerm([]int{newAxis}, args.Perm)
	transposeOutputAt(args, 0, outPerm)
	return true
}
