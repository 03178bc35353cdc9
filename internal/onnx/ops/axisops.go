package ops

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
)

// axisDefault carries the per-op default for a required-or-defaulted
// "axis" attribute. Concat has no default (the attribute is mandatory);
// Split defaults to 0; the Softmax family defaults to -1 from opset 13.
type axisDefault struct {
	value    int64
	required bool
}

func pushAxisAttr(args *graph.HandlerArgs, dataInputs []int, def axisDefault) bool {
	node := args.TargetNode
	dataInputs = nonEmptyInputs(node, dataInputs)
	if len(dataInputs) == 0 {
		return false
	}
	r := len(args.Perm)
	raw, ok := node.GetAttrIntOK("axis")
	if !ok {
		if def.required {
			return false
		}
		raw = def.value
	}
	axis := perm.NormalizeAxis(int(raw), r)
	if axis < 0 || axis >= r {
		return false
	}
	for _, i := range dataInputs {
		transposeInput(args, i)
	}
	transposeOutputsOf(args)
	node.SetAttributeInt("axis", int64(args.Perm[axis]))
	return true
}

func registerAxisOps(r *Registry) {
	concat := Entry{
		Handle: func(args *graph.HandlerArgs) bool {
			return pushAxisAttr(args, allInputIndices(args.TargetNode), axisDefault{required: true})
		},
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int {
			return nonEmptyInputs(n, allInputIndices(n))
		},
		TransposesOutputs: true,
	}
	r.addStandard("Concat", concat)

	split := Entry{
		Handle: func(args *graph.HandlerArgs) bool {
			return pushAxisAttr(args, []int{0}, axisDefault{value: 0})
		},
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int {
			return nonEmptyInputs(n, []int{0})
		},
		TransposesOutputs: true,
	}
	r.addStandard("Split", split)

	softmaxFamilyModern := Entry{
		Handle: func(args *graph.HandlerArgs) bool {
			return pushAxisAttr(args, []int{0}, axisDefault{value: -1})
		},
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int {
			return nonEmptyInputs(n, []int{0})
		},
		TransposesOutputs: true,
	}
	// The Softmax family's behaviour depends on the graph's opset, which the
	// dispatcher does not encode in its key: register one entry per op whose
	// Handle branches on ctx.Opset at call time.
	softmaxFamily := Entry{
		Handle: func(args *graph.HandlerArgs) bool {
			if args.Ctx.Opset >= 13 {
				return softmaxFamilyModern.Handle(args)
			}
			return handleSoftmaxLegacy(args)
		},
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int { return nonEmptyInputs(n, []int{0}) },
		TransposesOutputs:  true,
	}
	for _, op := range []string{"Softmax", "Hardmax", "LogSoftmax"} {
		r.addStandard(op, softmaxFamily)
	}

	r.addExtended("QLinearConcat", Entry{
		Handle:             handleQLinearConcat,
		TransposibleInputs: qlinearConcatInputs,
		TransposesOutputs:  true,
	})
}

// handleSoftmaxLegacy implements the opset<13 2-D-coercion semantics: axis
// is a split point, not a per-axis index. A push is only legal if perm
// doesn't move any dimension across that split.
func handleSoftmaxLegacy(args *graph.HandlerArgs) bool {
	node := args.TargetNode
	if len(node.Inputs) == 0 || node.Inputs[0] == "" {
		return false
	}
	r := len(args.Perm)
	axis := perm.NormalizeAxis(int(node.GetAttrInt("axis", 1)), r)
	for i := 0; i < r; i++ {
		if (i < axis) != (args.Perm[i] < axis) {
			return false
		}
	}
	transposeInput(args, 0)
	transposeOutputsOf(args)
	return true
}

func qlinearConcatInputs(_ *graph.OptimizerCtx, n *graph.Node) []int {
	var out []int
	for i := 2; i < len(n.Inputs); i += 3 {
		if n.Inputs[i] != "" {
			out = append(out, i)
		}
	}
	return out
}

func handleQLinearConcat(args *graph.HandlerArgs) bool {
	return pushAxisAttr(args, qlinearConcatInputs(args.Ctx, args.TargetNode), axisDefault{required: true})
}

func allInputIndices(n *graph.Node) []int {
	out := make([]int, len(n.Inputs))
	for i := range out {
		out[i] = i
	}
	return out
}
