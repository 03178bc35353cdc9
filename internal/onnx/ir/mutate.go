package ir

import (
	"fmt"

	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
)

func (g *Graph) ReshapeInitializer(name string, shape []int64) error {
	t, ok := g.initializers[name]
	if !ok {
		return fmt.Errorf("ir: %q is not an initializer", name)
	}
	if err := t.reshape(shape); err != nil {
		return err
	}
	if vi, ok := g.valueInfo[name]; ok {
		vi.Shape = shapeFromDims(shape)
		g.valueInfo[name] = vi
	}
	return nil
}

func (g *Graph) TransposeInitializer(name string, p perm.Perm) error {
	t, ok := g.initializers[name]
	if !ok {
		return fmt.Errorf("ir: %q is not an initializer", name)
	}
	if err := t.transpose(p); err != nil {
		return err
	}
	if vi, ok := g.valueInfo[name]; ok {
		g.valueInfo[name] = vi.Permuted(p)
	}
	return nil
}

// RemoveNode deallocates n. Callers (rewrite.RemoveIfDead) check that n has
// no remaining consumers before calling this.
func (g *Graph) RemoveNode(n *graph.Node) {
	i, err := g.findNodeIndex(n)
	if err != nil {
		return
	}
	g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
}

func (g *Graph) RemoveInitializer(name string) {
	delete(g.initializers, name)
	delete(g.valueInfo, name)
}

// MoveOutput transfers src.Outputs[i]'s name to dst.Outputs[j]: src gets a
// fresh output name, dst's slot is renamed to the value everyone else
// still refers to. Since producer/consumer lookups scan Inputs/Outputs
// directly, this single rename is the entire operation; no side index
// needs updating.
func (g *Graph) MoveOutput(src *graph.Node, i int, dst *graph.Node, j int) {
	old := src.Outputs[i]
	src.Outputs[i] = freshName(src.OpType)
	dst.Outputs[j] = old
}
