package cost

import (
	"testing"

	internalonnx "github.com/born-ml/onnxtranspose/internal/onnx"
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/ir"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
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

func transposeNode(inputs, outputs []string, p []int64) internalonnx.NodeProto {
	return internalonnx.NodeProto{
		OpType:  "Transpose",
		Inputs:  inputs,
		Outputs: outputs,
		Attributes: []internalonnx.AttributeProto{
			{Name: "perm", Type: internalonnx.AttributeProtoInts, Ints: p},
		},
	}
}

func newModel(t *testing.T) (*ir.Graph, *graph.OptimizerCtx) {
	t.Helper()
	model := &internalonnx.ModelProto{
		OpsetImport: []internalonnx.OperatorSetID{{Version: 13}},
		Graph: &internalonnx.GraphProto{
			Inputs:  []internalonnx.ValueInfoProto{{Name: "x", Type: dims(1, 2, 3)}},
			Outputs: []internalonnx.ValueInfoProto{{Name: "y", Type: dims(1, 2, 3)}},
			Nodes: []internalonnx.NodeProto{
				transposeNode([]string{"x"}, []string{"t1"}, []int64{0, 2, 1}),
				{OpType: "Relu", Inputs: []string{"t1"}, Outputs: []string{"r1"}},
				{OpType: "Relu", Inputs: []string{"r1"}, Outputs: []string{"y"}},
			},
		},
	}
	g, err := ir.NewFromModel(model)
	if err != nil {
		t.Fatalf("ir.NewFromModel: %v", err)
	}
	ctx := &graph.OptimizerCtx{Graph: g, Opset: 13}
	return g, ctx
}

func allPushFriendly(n *graph.Node) bool { return true }
func nonePushFriendly(n *graph.Node) bool { return false }

func TestEstimateValueRank(t *testing.T) {
	_, ctx := newModel(t)
	m := &Model{Ctx: ctx}

	cases := []struct {
		name  string
		value string
		want  int
	}{
		{"known rank, size-1 dims not counted", "x", 2},
		{"unknown value has pessimistic rank", "nonexistent", unknownRank},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := m.EstimateValueRank(c.value); got != c.want {
				t.Errorf("EstimateValueRank(%q) = %d, want %d", c.value, got, c.want)
			}
		})
	}
}

func TestEstimateValueRankIgnoresSizeOneDims(t *testing.T) {
	model := &internalonnx.ModelProto{
		OpsetImport: []internalonnx.OperatorSetID{{Version: 13}},
		Graph: &internalonnx.GraphProto{
			Inputs:  []internalonnx.ValueInfoProto{{Name: "x", Type: dims(1, 1, 3)}},
			Outputs: []internalonnx.ValueInfoProto{{Name: "x", Type: dims(1, 1, 3)}},
		},
	}
	g, err := ir.NewFromModel(model)
	if err != nil {
		t.Fatalf("ir.NewFromModel: %v", err)
	}
	ctx := &graph.OptimizerCtx{Graph: g, Opset: 13}
	m := &Model{Ctx: ctx}

	if got := m.EstimateValueRank("x"); got != 1 {
		t.Errorf("EstimateValueRank(x) = %d, want 1", got)
	}
}

func TestEstimateTransposeValueCostConstantIsFree(t *testing.T) {
	model := &internalonnx.ModelProto{
		OpsetImport: []internalonnx.OperatorSetID{{Version: 13}},
		Graph: &internalonnx.GraphProto{
			Inputs:  []internalonnx.ValueInfoProto{{Name: "x", Type: dims(2, 2)}},
			Outputs: []internalonnx.ValueInfoProto{{Name: "y", Type: dims(2, 2)}},
			Initializers: []internalonnx.TensorProto{
				{Name: "w", DataType: internalonnx.TensorProtoInt64, Dims: []int64{2}, Int64Data: []int64{1, 2}},
			},
			Nodes: []internalonnx.NodeProto{
				{OpType: "Add", Inputs: []string{"x", "w"}, Outputs: []string{"y"}},
			},
		},
	}
	g, err := ir.NewFromModel(model)
	if err != nil {
		t.Fatalf("ir.NewFromModel: %v", err)
	}
	ctx := &graph.OptimizerCtx{Graph: g, Opset: 13}
	m := &Model{Ctx: ctx, PushFriendly: allPushFriendly}

	if got := m.EstimateTransposeValueCost("w", perm.Perm{1, 0}); got != 0 {
		t.Errorf("EstimateTransposeValueCost(constant) = %d, want 0", got)
	}
}

func TestEstimateTransposeValueCostCancelingTransposeProducer(t *testing.T) {
	_, ctx := newModel(t)
	m := &Model{Ctx: ctx, PushFriendly: allPushFriendly}

	// t1 is produced by Transpose([0,2,1]); pushing with permInv=[0,2,1]
	// cancels it (Invert([0,2,1]) == [0,2,1]), and every consumer of t1 is
	// push-friendly, so the whole Transpose is removable: cost is -rank.
	got := m.EstimateTransposeValueCost("t1", perm.Perm{0, 2, 1})
	want := -m.EstimateValueRank("t1")
	if got != want {
		t.Errorf("EstimateTransposeValueCost(t1, canceling) = %d, want %d", got, want)
	}
}

func TestEstimateTransposeValueCostCancelingButStrandedConsumer(t *testing.T) {
	_, ctx := newModel(t)
	m := &Model{Ctx: ctx, PushFriendly: nonePushFriendly}

	// Same cancellation as above, but no consumer is push-friendly, so the
	// Transpose can't actually be deleted: cost reverts to 0.
	if got := m.EstimateTransposeValueCost("t1", perm.Perm{0, 2, 1}); got != 0 {
		t.Errorf("EstimateTransposeValueCost(t1, stranded) = %d, want 0", got)
	}
}

func TestEstimateTransposeValueCostNonCancelingTransposeProducer(t *testing.T) {
	_, ctx := newModel(t)
	m := &Model{Ctx: ctx, PushFriendly: allPushFriendly}

	// permInv doesn't invert the producer's perm, so there's nothing to
	// cancel: cost is 0, regardless of rank.
	if got := m.EstimateTransposeValueCost("t1", perm.Perm{1, 0, 2}); got != 0 {
		t.Errorf("EstimateTransposeValueCost(t1, non-canceling) = %d, want 0", got)
	}
}

func TestEstimateTransposeValueCostPlainValue(t *testing.T) {
	_, ctx := newModel(t)
	m := &Model{Ctx: ctx, PushFriendly: allPushFriendly}

	// "x" is a graph input, not produced by any Transpose: cost is its rank.
	got := m.EstimateTransposeValueCost("x", perm.Perm{0, 2, 1})
	want := m.EstimateValueRank("x")
	if got != want {
		t.Errorf("EstimateTransposeValueCost(x) = %d, want %d", got, want)
	}
}

func TestEstimateTransposeInputsCostSkipsEmptySlots(t *testing.T) {
	_, ctx := newModel(t)
	m := &Model{Ctx: ctx, PushFriendly: allPushFriendly}

	node := &graph.Node{Inputs: []string{"x", "", "x"}}
	got := m.EstimateTransposeInputsCost(node, perm.Perm{0, 2, 1}, []int{0, 1, 2})
	want := 2 * m.EstimateValueRank("x")
	if got != want {
		t.Errorf("EstimateTransposeInputsCost = %d, want %d", got, want)
	}
}

func TestEstimateOutputsCostNotTransposed(t *testing.T) {
	_, ctx := newModel(t)
	m := &Model{Ctx: ctx}

	node := &graph.Node{Outputs: []string{"y"}}
	if got := m.EstimateOutputsCost(node, false); got != 0 {
		t.Errorf("EstimateOutputsCost(willTransposeOutputs=false) = %d, want 0", got)
	}
}

func TestEstimateOutputsCostReachableIsFree(t *testing.T) {
	_, ctx := newModel(t)
	m := &Model{Ctx: ctx, Reachable: map[string]bool{"y": true}}

	node := &graph.Node{Outputs: []string{"y"}}
	if got := m.EstimateOutputsCost(node, true); got != 0 {
		t.Errorf("EstimateOutputsCost(reachable) = %d, want 0", got)
	}
}

func TestEstimateOutputsCostUnreachableUsesMaxRank(t *testing.T) {
	_, ctx := newModel(t)
	m := &Model{Ctx: ctx, Reachable: map[string]bool{}}

	node := &graph.Node{Outputs: []string{"x"}}
	got := m.EstimateOutputsCost(node, true)
	want := m.EstimateValueRank("x")
	if got != want {
		t.Errorf("EstimateOutputsCost(unreachable) = %d, want %d", got, want)
	}
}

func TestIsAdmissible(t *testing.T) {
	cases := []struct {
		total int
		want  bool
	}{
		{-1, true},
		{0, false},
		{1, false},
	}
	for _, c := range cases {
		if got := IsAdmissible(c.total); got != c.want {
			t.Errorf("IsAdmissible(%d) = %v, want %v", c.total, got, c.want)
		}
	}
}
