package rewrite

import (
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
)

// TransposeInput replaces node.Inputs[i] with a transposed-under-p version
// of its current value, considering the four cases of spec.md §4.3 in
// order: constant absorption, existing-Transpose cancellation/fusion,
// sibling reuse, and fresh insertion.
func TransposeInput(ctx *graph.OptimizerCtx, node *graph.Node, i int, p, pInv perm.Perm) {
	value := node.Inputs[i]
	if value == "" {
		return
	}
	g := ctx.Graph

	// Case 1: input is a constant with a fully enumerated consumer set.
	if _, isConst := g.GetConstant(value); isConst {
		consumers := g.GetValueConsumers(value)
		if consumers.Comprehensive && !ctx.IsPinned(value) {
			vi, hasVI := g.GetValueInfo(value)
			if err := g.TransposeInitializer(value, p); err == nil {
				if hasVI {
					g.SetValueInfo(value, vi.Permuted(p))
				}
				others := otherConsumers(consumers, node, i)
				if len(others) > 0 {
					compensated := MakeTranspose(ctx, value, pInv)
					redirectInputs(others, value, compensated)
				}
				return
			}
		}
	}

	// Case 2: input is produced by an existing Transpose with perm q.
	if producer, outIdx, ok := g.GetNodeProducing(value); ok && outIdx == 0 && producer.OpType == "Transpose" {
		if q, valid := ReadPermAttr(producer); valid {
			if perm.Equal(perm.Invert(q), p) {
				node.SetInput(i, producer.Inputs[0])
				RemoveIfDead(ctx, producer)
				return
			}
			fused := MakeTranspose(ctx, producer.Inputs[0], perm.Compose(q, p))
			node.SetInput(i, fused)
			RemoveIfDead(ctx, producer)
			return
		}
	}

	// Case 3: some sibling consumer of value is already Transpose(p).
	if reuse := findSiblingTranspose(ctx, value, p); reuse != "" {
		node.SetInput(i, reuse)
		return
	}

	// Case 4: otherwise, insert a new Transpose(p).
	node.SetInput(i, MakeTranspose(ctx, value, p))
}

// UnsqueezeInput mirrors TransposeInput's four-case structure for
// inserting an unsqueeze on node.Inputs[i], with the extra subtlety that a
// Transpose producer is pushed through via the Unsqueeze handler logic
// rather than simply wrapped.
func UnsqueezeInput(ctx *graph.OptimizerCtx, node *graph.Node, i int, axes []int) {
	value := node.Inputs[i]
	if value == "" {
		return
	}
	g := ctx.Graph

	// Case 1: constant with a fully enumerated consumer set.
	if _, isConst := g.GetConstant(value); isConst {
		consumers := g.GetValueConsumers(value)
		if consumers.Comprehensive && !ctx.IsPinned(value) {
			if vi, ok := g.GetValueInfo(value); ok && vi.KnownRank() {
				if newShape, err := perm.UnsqueezeShape(vi.Shape, axes); err == nil {
					if dims, fixed := fixedDims(newShape); fixed {
						if err := g.ReshapeInitializer(value, dims); err == nil {
							g.SetValueInfo(value, graph.ValueInfo{DType: vi.DType, Shape: newShape})
							others := otherConsumers(consumers, node, i)
							if len(others) > 0 {
								compensated := MakeSqueezeOrUnsqueeze(ctx, "Squeeze", value, axes)
								redirectInputs(others, value, compensated)
							}
							return
						}
					}
				}
			}
		}
	}

	// Case 2: existing producer.
	if producer, outIdx, ok := g.GetNodeProducing(value); ok && outIdx == 0 {
		switch producer.OpType {
		case "Squeeze":
			if existing, has := NodeAxes(ctx, producer, 1); has && sameAxesSet(existing, axes) {
				node.SetInput(i, producer.Inputs[0])
				RemoveIfDead(ctx, producer)
				return
			}
		case "Transpose":
			if pushUnsqueezeThroughTranspose(ctx, node, i, producer, axes) {
				return
			}
		}
	}

	// Case 3: sibling reuse.
	if reuse := findSiblingUnsqueeze(ctx, value, axes); reuse != "" {
		node.SetInput(i, reuse)
		return
	}

	// Case 4: fresh insertion.
	node.SetInput(i, MakeSqueezeOrUnsqueeze(ctx, "Unsqueeze", value, axes))
}

// pushUnsqueezeThroughTranspose implements the "recursively push through"
// case of UnsqueezeInput: rather than unsqueezing the Transpose's output,
// it unsqueezes the Transpose's input and re-derives the compensating
// output permutation via perm.UnsqueezePerm, so that
// Transpose(UnsqueezePerm(axes,q))(Unsqueeze(s,axes)) computes the same
// value as Unsqueeze(Transpose(s,q),axes) would have.
func pushUnsqueezeThroughTranspose(ctx *graph.OptimizerCtx, node *graph.Node, i int, producer *graph.Node, axes []int) bool {
	q, valid := ReadPermAttr(producer)
	if !valid {
		return false
	}
	outPerm, err := perm.UnsqueezePerm(axes, q)
	if err != nil {
		return false
	}
	unsq := MakeSqueezeOrUnsqueeze(ctx, "Unsqueeze", producer.Inputs[0], axes)
	wrapped := MakeTranspose(ctx, unsq, outPerm)
	node.SetInput(i, wrapped)
	RemoveIfDead(ctx, producer)
	return true
}

// TransposeOutput inserts a Transpose(p) after node.Outputs[i], preserving
// the externally visible name: the old output name is moved onto the
// transpose's output, and node's own output is renamed.
func TransposeOutput(ctx *graph.OptimizerCtx, node *graph.Node, i int, p, pInv perm.Perm) {
	g := ctx.Graph
	old := node.Outputs[i]
	t := g.AddNode("Transpose", []string{""}, 1, "")
	t.SetAttributeInts("perm", intsToInt64(p))

	g.MoveOutput(node, i, t, 0) // node.Outputs[i] renamed fresh; t.Outputs[0] == old
	t.SetInput(0, node.Outputs[i])

	if vi, ok := g.GetValueInfo(old); ok {
		g.SetValueInfo(node.Outputs[i], vi.Permuted(pInv))
		g.SetValueInfo(t.Outputs[0], vi)
	}
}

// TransposeOutputs applies TransposeOutput to every output of node.
func TransposeOutputs(ctx *graph.OptimizerCtx, node *graph.Node, p, pInv perm.Perm) {
	for i := range node.Outputs {
		TransposeOutput(ctx, node, i, p, pInv)
	}
}

// NormalizeInputRanks left-pads every listed input whose known rank is
// less than targetRank with unit axes [0,1,...,rankDiff-1]. It reports
// false (and makes no edits) if any listed input's rank is unknown or
// exceeds targetRank.
func NormalizeInputRanks(ctx *graph.OptimizerCtx, node *graph.Node, targetRank int, indices []int) bool {
	g := ctx.Graph
	for _, idx := range indices {
		v := node.Inputs[idx]
		if v == "" {
			continue
		}
		vi, ok := g.GetValueInfo(v)
		if !ok || !vi.KnownRank() || vi.Rank() > targetRank {
			return false
		}
	}
	for _, idx := range indices {
		v := node.Inputs[idx]
		if v == "" {
			continue
		}
		vi, _ := g.GetValueInfo(v)
		diff := targetRank - vi.Rank()
		if diff == 0 {
			continue
		}
		axes := make([]int, diff)
		for k := range axes {
			axes[k] = k
		}
		UnsqueezeInput(ctx, node, idx, axes)
	}
	return true
}

func otherConsumers(c graph.Consumers, self *graph.Node, selfInput int) []consumerRef {
	out := make([]consumerRef, 0, len(c.Nodes))
	for idx, n := range c.Nodes {
		if n == self && c.InputIndex[idx] == selfInput {
			continue
		}
		out = append(out, consumerRef{node: n, inputIndex: c.InputIndex[idx]})
	}
	return out
}

type consumerRef struct {
	node       *graph.Node
	inputIndex int
}

func redirectInputs(refs []consumerRef, _ string, newValue string) {
	for _, r := range refs {
		r.node.SetInput(r.inputIndex, newValue)
	}
}

func findSiblingTranspose(ctx *graph.OptimizerCtx, value string, p perm.Perm) string {
	consumers := ctx.Graph.GetValueConsumers(value)
	for _, n := range consumers.Nodes {
		if n.OpType != "Transpose" || len(n.Inputs) == 0 || n.Inputs[0] != value {
			continue
		}
		if q, ok := ReadPermAttr(n); ok && perm.Equal(q, p) {
			return n.Outputs[0]
		}
	}
	return ""
}

func findSiblingUnsqueeze(ctx *graph.OptimizerCtx, value string, axes []int) string {
	consumers := ctx.Graph.GetValueConsumers(value)
	for _, n := range consumers.Nodes {
		if n.OpType != "Unsqueeze" || len(n.Inputs) == 0 || n.Inputs[0] != value {
			continue
		}
		if existing, ok := NodeAxes(ctx, n, 1); ok && sameAxesSet(existing, axes) {
			return n.Outputs[0]
		}
	}
	return ""
}

func sameAxesSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			return false
		}
	}
	return true
}

func fixedDims(shape perm.Shape) ([]int64, bool) {
	out := make([]int64, len(shape))
	for i, d := range shape {
		if d.Symbolic {
			return nil, false
		}
		out[i] = d.Size
	}
	return out, true
}
