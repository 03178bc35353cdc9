package ops

import "github.com/born-ml/onnxtranspose/internal/onnx/graph"

var broadcastBinaryOps = []string{
	"Add", "Sub", "Mul", "Div", "Max", "Min", "And", "Or", "Xor", "Pow",
	"Where", "Equal", "Greater", "Less", "GreaterOrEqual", "LessOrEqual",
	"Mod", "BitwiseAnd", "BitwiseOr", "BitwiseXor",
}

func registerBroadcast(r *Registry) {
	entry := Entry{
		Handle: func(args *graph.HandlerArgs) bool {
			return pushSelected(args, args.TransposibleInputs, true, true)
		},
		TransposibleInputs: func(ctx *graph.OptimizerCtx, n *graph.Node) []int {
			var out []int
			for i, v := range n.Inputs {
				if v == "" || isScalarValue(ctx, v) {
					continue
				}
				out = append(out, i)
			}
			return out
		},
		TransposesOutputs: true,
	}
	for _, op := range broadcastBinaryOps {
		r.addStandard(op, entry)
	}
}
