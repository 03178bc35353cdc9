package onnx

import (
	"testing"

	internalonnx "github.com/born-ml/onnxtranspose/internal/onnx"
)

// transposeReluTranspose builds Transpose(x, [0,2,1]) -> Relu -> Transpose(_, [0,2,1]) -> y,
// the simplest case the optimizer should collapse entirely: the first
// Transpose pushes through Relu and cancels the second.
func transposeReluTranspose() *internalonnx.ModelProto {
	shape := func(dims ...int64) *internalonnx.TypeProto {
		ds := make([]internalonnx.DimensionProto, len(dims))
		for i, d := range dims {
			ds[i] = internalonnx.DimensionProto{DimValue: d}
		}
		return &internalonnx.TypeProto{TensorType: &internalonnx.TensorTypeProto{
			ElemType: internalonnx.TensorProtoFloat,
			Shape:    &internalonnx.TensorShapeProto{Dims: ds},
		}}
	}

	return &internalonnx.ModelProto{
		OpsetImport: []internalonnx.OperatorSetID{{Domain: "", Version: 13}},
		Graph: &internalonnx.GraphProto{
			Name: "transpose_relu_transpose",
			Inputs: []internalonnx.ValueInfoProto{
				{Name: "x", Type: shape(1, 2, 3)},
			},
			Outputs: []internalonnx.ValueInfoProto{
				{Name: "y", Type: shape(1, 3, 2)},
			},
			Nodes: []internalonnx.NodeProto{
				{
					OpType:  "Transpose",
					Inputs:  []string{"x"},
					Outputs: []string{"t1"},
					Attributes: []internalonnx.AttributeProto{
						{Name: "perm", Type: internalonnx.AttributeProtoInts, Ints: []int64{0, 2, 1}},
					},
				},
				{
					OpType:  "Relu",
					Inputs:  []string{"t1"},
					Outputs: []string{"r1"},
				},
				{
					OpType:  "Transpose",
					Inputs:  []string{"r1"},
					Outputs: []string{"y"},
					Attributes: []internalonnx.AttributeProto{
						{Name: "perm", Type: internalonnx.AttributeProtoInts, Ints: []int64{0, 2, 1}},
					},
				},
			},
		},
	}
}

func TestOptimizeCancelsTransposeAcrossRelu(t *testing.T) {
	h, err := fromModel(transposeReluTranspose())
	if err != nil {
		t.Fatalf("fromModel() error = %v", err)
	}
	if got := h.TransposeCount(); got != 2 {
		t.Fatalf("TransposeCount() before optimizing = %d, want 2", got)
	}

	changed := Optimize(h)
	if !changed {
		t.Fatal("Optimize() = false, want true")
	}
	if got := h.TransposeCount(); got != 0 {
		t.Fatalf("TransposeCount() after optimizing = %d, want 0", got)
	}

	changed = Optimize(h)
	if changed {
		t.Error("Optimize() on an already-optimal graph = true, want false")
	}
}

func TestOptimizeNoTransposesIsNoOp(t *testing.T) {
	model := transposeReluTranspose()
	model.Graph.Nodes = model.Graph.Nodes[1:2] // just the Relu
	model.Graph.Nodes[0].Inputs = []string{"x"}
	model.Graph.Nodes[0].Outputs = []string{"y"}

	h, err := fromModel(model)
	if err != nil {
		t.Fatalf("fromModel() error = %v", err)
	}
	if Optimize(h) {
		t.Error("Optimize() on a graph with no transposes = true, want false")
	}
}

func TestLoadFromBytesRejectsGarbage(t *testing.T) {
	if _, err := LoadFromBytes([]byte("not an onnx model")); err == nil {
		t.Error("LoadFromBytes() on garbage input = nil error, want non-nil")
	}
}
