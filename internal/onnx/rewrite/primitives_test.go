package rewrite_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	internalonnx "github.com/born-ml/onnxtranspose/internal/onnx"
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/ir"
	"github.com/born-ml/onnxtranspose/internal/onnx/rewrite"
)

func dims(d ...int64) *internalonnx.TypeProto {
	ds := make([]internalonnx.DimensionProto, len(d))
	for i, v := range d {
		ds[i] = internalonnx.DimensionProto{DimValue: v}
	}
	return &internalonnx.TypeProto{TensorType: &internalonnx.TensorTypeProto{
		ElemType: internalonnx.TensorProtoFloat,
		Shape:    &internalonnx.TensorShapeProto{Dims: ds},
	}}
}

func newCtx(t *testing.T, model *internalonnx.ModelProto) *graph.OptimizerCtx {
	t.Helper()
	g, err := ir.NewFromModel(model)
	require.NoError(t, err)
	return &graph.OptimizerCtx{Graph: g, Opset: int(model.OpsetImport[0].Version)}
}

func TestMakeTransposePermutesValueInfo(t *testing.T) {
	model := &internalonnx.ModelProto{
		OpsetImport: []internalonnx.OperatorSetID{{Version: 13}},
		Graph: &internalonnx.GraphProto{
			Inputs:  []internalonnx.ValueInfoProto{{Name: "x", Type: dims(1, 2, 3)}},
			Outputs: []internalonnx.ValueInfoProto{{Name: "x", Type: dims(1, 2, 3)}},
		},
	}
	ctx := newCtx(t, model)

	out := rewrite.MakeTranspose(ctx, "x", []int{0, 2, 1})
	require.NotEqual(t, "x", out)

	vi, ok := ctx.Graph.GetValueInfo(out)
	require.True(t, ok)
	require.Equal(t, []int64{1, 3, 2}, []int64{vi.Shape[0].Size, vi.Shape[1].Size, vi.Shape[2].Size})

	node, idx, ok := ctx.Graph.GetNodeProducing(out)
	require.True(t, ok)
	require.Equal(t, 0, idx)
	require.Equal(t, "Transpose", node.OpType)
}

func TestRemoveIfDeadKeepsGraphOutputs(t *testing.T) {
	model := &internalonnx.ModelProto{
		OpsetImport: []internalonnx.OperatorSetID{{Version: 13}},
		Graph: &internalonnx.GraphProto{
			Inputs:  []internalonnx.ValueInfoProto{{Name: "x", Type: dims(2, 2)}},
			Outputs: []internalonnx.ValueInfoProto{{Name: "y", Type: dims(2, 2)}},
			Nodes: []internalonnx.NodeProto{
				{OpType: "Identity", Inputs: []string{"x"}, Outputs: []string{"y"}},
			},
		},
	}
	ctx := newCtx(t, model)
	node := ctx.Graph.Nodes()[0]

	rewrite.RemoveIfDead(ctx, node)
	require.Len(t, ctx.Graph.Nodes(), 1, "node producing a graph output must not be removed")
}

func TestRemoveIfDeadDropsUnreferencedNode(t *testing.T) {
	model := &internalonnx.ModelProto{
		OpsetImport: []internalonnx.OperatorSetID{{Version: 13}},
		Graph: &internalonnx.GraphProto{
			Inputs:  []internalonnx.ValueInfoProto{{Name: "x", Type: dims(2, 2)}},
			Outputs: []internalonnx.ValueInfoProto{{Name: "y", Type: dims(2, 2)}},
			Nodes: []internalonnx.NodeProto{
				{OpType: "Identity", Inputs: []string{"x"}, Outputs: []string{"unused"}},
				{OpType: "Identity", Inputs: []string{"x"}, Outputs: []string{"y"}},
			},
		},
	}
	ctx := newCtx(t, model)
	dead := ctx.Graph.Nodes()[0]

	rewrite.RemoveIfDead(ctx, dead)
	require.Len(t, ctx.Graph.Nodes(), 1)
	require.Equal(t, "y", ctx.Graph.Nodes()[0].Outputs[0])
}
