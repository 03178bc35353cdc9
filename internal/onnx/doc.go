// Package onnx implements a hand-written protobuf decoder for the ONNX
// wire format, with no external dependencies.
//
// Key components:
//   - ModelProto: Top-level ONNX model structure with metadata and graph
//   - GraphProto: Computation graph with nodes, inputs, outputs, and initializers
//   - NodeProto: Single operation in the graph (e.g., Conv, MatMul, Relu)
//   - TensorProto: Weight/initializer tensor with data and shape
//   - ValueInfoProto: Input/output tensor type information
//
// Supported data types:
//   - float32, float64 (primary ML types)
//   - int8, int16, int32, int64 (integer types)
//   - uint8, uint16, uint32, uint64 (unsigned types)
//   - bool (boolean type)
//
// This package owns the serialized format only. internal/onnx/ir adapts
// a *ModelProto into the abstract graph.Graph the transpose optimizer
// operates against; this package never imports the optimizer or its
// collaborators.
//
// Example usage:
//
//	model, err := onnx.ParseFile("resnet50.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Model: %s (version %d)\n", model.ProducerName, model.ModelVersion)
//	fmt.Printf("Graph: %s with %d nodes\n", model.Graph.Name, len(model.Graph.Nodes))
package onnx
