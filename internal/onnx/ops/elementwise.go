package ops

import "github.com/born-ml/onnxtranspose/internal/onnx/graph"

var elementwiseUnaryOps = []string{
	"Cast", "Exp", "Log", "Relu", "Sigmoid", "Tanh", "Abs", "Neg", "Sin", "Cos",
	"Sqrt", "Identity", "Erf", "Softplus", "Elu", "LeakyRelu", "HardSigmoid",
	"Selu", "Celu", "Round", "Floor", "Ceil", "Reciprocal", "Not", "IsNaN",
	"IsInf",
}

var singleInputClipLikeOps = []string{"Clip", "CastLike"}

func registerElementwise(r *Registry) {
	entry := Entry{
		Handle: func(args *graph.HandlerArgs) bool {
			return pushSelected(args, args.TransposibleInputs, false, true)
		},
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int {
			return nonEmptyInputs(n, []int{0})
		},
		TransposesOutputs: true,
	}
	for _, op := range elementwiseUnaryOps {
		r.addStandard(op, entry)
	}

	clipLike := Entry{
		Handle: func(args *graph.HandlerArgs) bool {
			return pushSelected(args, []int{0}, false, true)
		},
		TransposibleInputs: func(_ *graph.OptimizerCtx, n *graph.Node) []int {
			if len(n.Inputs) == 0 || n.Inputs[0] == "" {
				return nil
			}
			return []int{0}
		},
		TransposesOutputs: true,
	}
	for _, op := range singleInputClipLikeOps {
		r.addStandard(op, clipLike)
	}
}
