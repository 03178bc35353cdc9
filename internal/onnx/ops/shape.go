package ops

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
	"github.com/born-ml/onnxtranspose/internal/onnx/rewrite"
)

func registerShape(r *Registry) {
	r.addStandard("Shape", Entry{
		Handle:             handleShape,
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int { return nonEmptyInputs(n, []int{0}) },
		TransposesOutputs:  false,
	})
}

// handleShape replaces Shape(Transpose(x, perm)) with Gather(Shape(x),
// perm) along axis 0 — the output is already a 1-D vector, so unlike every
// other handler it is never wrapped in an output transpose.
func handleShape(args *graph.HandlerArgs) bool {
	ctx, node := args.Ctx, args.TargetNode
	g := ctx.Graph
	p := args.Perm
	r := len(p)
	x := args.TransposeNode.Inputs[0]
	if x == "" {
		return false
	}

	start, end, windowed := 0, r, false
	if v, ok := node.GetAttrIntOK("start"); ok {
		start, windowed = perm.NormalizeAxis(int(v), r), true
	}
	if v, ok := node.GetAttrIntOK("end"); ok {
		end, windowed = perm.NormalizeAxis(int(v), r), true
	}
	if start < 0 {
		start = 0
	}
	if end > r {
		end = r
	}
	if end < start {
		end = start
	}

	indices := []int(p)
	if windowed {
		indices = append([]int{}, p[start:end]...)
	}

	shapeNode := g.AddNode("Shape", []string{x}, 1, "")
	idxValue := g.AddInitializerI64([]int64{int64(len(indices))}, intsToInt64(indices))
	gatherNode := g.AddNode("Gather", []string{shapeNode.Outputs[0], idxValue}, 1, "")
	gatherNode.SetAttributeInt("axis", 0)
	g.SetValueInfo(gatherNode.Outputs[0], graph.ValueInfo{
		DType: graph.DTypeInt64,
		Shape: perm.Shape{perm.Fixed(int64(len(indices)))},
	})

	g.MoveOutput(node, 0, gatherNode, 0)
	rewrite.RemoveIfDead(ctx, node)
	rewrite.RemoveIfDead(ctx, args.TransposeNode)
	return true
}
