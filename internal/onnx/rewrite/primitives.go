// Package rewrite implements the graph-edit primitives (spec.md §4.2) and
// the input/output transposition helpers (spec.md §4.3) every per-operator
// handler is built from. Every exported function here leaves the graph
// well-formed and keeps ValueInfo consistent with whatever it just built.
package rewrite

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
)

// Opset13 is the boundary at which Squeeze/Unsqueeze/Split/ReduceSum move
// their axes/split parameter from a node attribute to an optional integer
// initializer input.
const Opset13 = 13

// MakeTranspose builds a Transpose(p) node consuming value and returns its
// output's name. The output's ValueInfo is set to value's ValueInfo
// permuted by p, when known.
func MakeTranspose(ctx *graph.OptimizerCtx, value string, p perm.Perm) string {
	n := ctx.Graph.AddNode("Transpose", []string{value}, 1, "")
	n.SetAttributeInts("perm", intsToInt64(p))
	if vi, ok := ctx.Graph.GetValueInfo(value); ok {
		ctx.Graph.SetValueInfo(n.Outputs[0], vi.Permuted(p))
	}
	return n.Outputs[0]
}

// MakeSqueezeOrUnsqueeze builds a Squeeze or Unsqueeze node over the given
// axes, choosing the attribute form (opset < 13) or the integer-initializer
// input form (opset >= 13) to match the graph's opset.
func MakeSqueezeOrUnsqueeze(ctx *graph.OptimizerCtx, kind string, value string, axes []int) string {
	var n *graph.Node
	if ctx.Opset >= Opset13 {
		axesValue := ctx.Graph.AddInitializerI64([]int64{int64(len(axes))}, intsToInt64(axes))
		n = ctx.Graph.AddNode(kind, []string{value, axesValue}, 1, "")
	} else {
		n = ctx.Graph.AddNode(kind, []string{value}, 1, "")
		n.SetAttributeInts("axes", intsToInt64(axes))
	}

	vi, ok := ctx.Graph.GetValueInfo(value)
	if !ok || !vi.KnownRank() {
		return n.Outputs[0]
	}
	switch kind {
	case "Unsqueeze":
		if shape, err := perm.UnsqueezeShape(vi.Shape, axes); err == nil {
			ctx.Graph.SetValueInfo(n.Outputs[0], graph.ValueInfo{DType: vi.DType, Shape: shape})
		}
	case "Squeeze":
		shape := squeezeShape(vi.Shape, axes)
		ctx.Graph.SetValueInfo(n.Outputs[0], graph.ValueInfo{DType: vi.DType, Shape: shape})
	}
	return n.Outputs[0]
}

func squeezeShape(shape perm.Shape, axes []int) perm.Shape {
	drop := make(map[int]bool, len(axes))
	for _, a := range axes {
		drop[a] = true
	}
	out := make(perm.Shape, 0, len(shape)-len(axes))
	for i, d := range shape {
		if !drop[i] {
			out = append(out, d)
		}
	}
	return out
}

// ReplaceValueReferences rewrites every input slot on the given node set
// that referenced old to reference newValue instead.
func ReplaceValueReferences(nodes []*graph.Node, old, newValue string) {
	for _, n := range nodes {
		for i, v := range n.Inputs {
			if v == old {
				n.SetInput(i, newValue)
			}
		}
	}
}

// RemoveIfDead deletes n from the graph if none of its outputs have any
// remaining consumers and none are pinned graph outputs.
func RemoveIfDead(ctx *graph.OptimizerCtx, n *graph.Node) {
	for _, out := range n.Outputs {
		if ctx.Graph.HasValueConsumers(out) || ctx.IsPinned(out) {
			return
		}
	}
	ctx.Graph.RemoveNode(n)
}

// ReadPermAttr reads and validates a node's "perm" attribute. It returns
// ok=false if the attribute is absent or does not describe a valid
// permutation — per spec.md §7, an invalid permutation is treated as
// absent, never propagated as an error.
func ReadPermAttr(n *graph.Node) (perm.Perm, bool) {
	ints, ok := n.GetAttrInts("perm")
	if !ok {
		return nil, false
	}
	p := int64sToInts(ints)
	if !perm.IsValid(p) {
		return nil, false
	}
	return p, true
}

// NodeAxes reads a node's axes, from the "axes" attribute (opset < 13) or
// from a constant integer input at inputIdx (opset >= 13). ok is false if
// axes are required but absent, or present as a non-constant input.
func NodeAxes(ctx *graph.OptimizerCtx, n *graph.Node, inputIdx int) (axes []int, ok bool) {
	if ints, has := n.GetAttrInts("axes"); has {
		return int64sToInts(ints), true
	}
	if inputIdx < len(n.Inputs) && n.Inputs[inputIdx] != "" {
		t, isConst := ctx.Graph.GetConstant(n.Inputs[inputIdx])
		if !isConst {
			return nil, false
		}
		return int64sToInts(t.AsInt64()), true
	}
	return nil, false
}

// WriteAxes writes axes back to n in whichever form it was read from:
// the "axes" attribute if one already exists, otherwise a fresh constant
// wired into inputIdx (growing Inputs if necessary).
func WriteAxes(ctx *graph.OptimizerCtx, n *graph.Node, inputIdx int, axes []int) {
	if _, has := n.GetAttrInts("axes"); has {
		n.SetAttributeInts("axes", intsToInt64(axes))
		return
	}
	var old string
	if inputIdx < len(n.Inputs) {
		old = n.Inputs[inputIdx]
	}
	value := ctx.Graph.AddInitializerI64([]int64{int64(len(axes))}, intsToInt64(axes))
	for len(n.Inputs) <= inputIdx {
		n.Inputs = append(n.Inputs, "")
	}
	n.SetInput(inputIdx, value)
	RemoveInitializerIfDead(ctx, old)
}

// RemoveInitializerIfDead deletes name's initializer once no node
// references it any longer. Every rewrite that replaces an axes/pads/
// repeats constant with a freshly computed one (WriteAxes, and the
// Pad/Tile/Slice/ReduceSum handlers) calls this on the value it just
// stopped using, so repeated rewrites don't leave dead constants for
// Graph.Export to keep emitting.
func RemoveInitializerIfDead(ctx *graph.OptimizerCtx, name string) {
	if name == "" || ctx.IsPinned(name) {
		return
	}
	if ctx.Graph.HasValueConsumers(name) {
		return
	}
	if _, isConst := ctx.Graph.GetConstant(name); !isConst {
		return
	}
	ctx.Graph.RemoveInitializer(name)
}

func intsToInt64(axes []int) []int64 {
	out := make([]int64, len(axes))
	for i, a := range axes {
		out[i] = int64(a)
	}
	return out
}

func int64sToInts(axes []int64) []int {
	out := make([]int, len(axes))
	for i, a := range axes {
		out[i] = int(a)
	}
	return out
}
