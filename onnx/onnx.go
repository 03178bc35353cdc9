// Package onnx is the public entry point for loading an ONNX model and
// running the transpose-pushing layout optimizer over it.
//
// # Example usage
//
//	h, err := onnx.Load("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	before := h.TransposeCount()
//	onnx.Optimize(h)
//	fmt.Printf("removed %d of %d Transpose nodes\n", before-h.TransposeCount(), before)
//
// Optimize and ChangeLayout never fail: a handler that cannot safely push
// a Transpose simply declines, so the only observable outcome is whether
// anything in the graph changed. The error returns in this package
// (Load, LoadFromBytes) are exclusively about malformed input files.
package onnx

import (
	"fmt"

	internalonnx "github.com/born-ml/onnxtranspose/internal/onnx"
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/ir"
	"github.com/born-ml/onnxtranspose/internal/onnx/optimizer"
)

// LayoutDirection, LayoutPolicy and LayoutMap are re-exported so a caller
// building a LayoutMap for ChangeLayout never has to import
// internal/onnx/optimizer directly.
type (
	LayoutDirection = optimizer.LayoutDirection
	LayoutPolicy    = optimizer.LayoutPolicy
	LayoutMap       = optimizer.LayoutMap
)

const (
	ChannelsLastToFirst = optimizer.ChannelsLastToFirst
	ChannelsFirstToLast = optimizer.ChannelsFirstToLast
)

// Load parses an ONNX model from a file path and builds its live,
// optimizable graph.
func Load(path string) (*Handle, error) {
	model, err := internalonnx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("onnx: %w", err)
	}
	return fromModel(model)
}

// LoadFromBytes parses an ONNX model already in memory (e.g. embedded in
// the binary, or fetched over the network) and builds its live,
// optimizable graph.
func LoadFromBytes(data []byte) (*Handle, error) {
	model, err := internalonnx.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("onnx: %w", err)
	}
	return fromModel(model)
}

func fromModel(model *internalonnx.ModelProto) (*Handle, error) {
	g, err := ir.NewFromModel(model)
	if err != nil {
		return nil, fmt.Errorf("onnx: %w", err)
	}
	return &Handle{g: g}, nil
}

// Optimize runs the transpose-pushing optimizer over h's graph to a fixed
// point, mutating it in place, and reports whether anything changed.
func Optimize(h *Handle, opts ...Options) bool {
	o := resolveOptions(opts)
	ctx := &graph.OptimizerCtx{
		Graph:            h.g,
		AllowExtendedOps: o.AllowExtendedOps,
		SkipCostCheck:    o.SkipCostCheck,
	}
	return optimizer.OptimizeWithCtx(ctx)
}

// ChangeLayout wraps every node layoutMap selects in a compensating
// Transpose sandwich and runs Optimize to absorb the wrappers into their
// surroundings, converting the graph between channels-first and
// channels-last layout for the selected ops.
func ChangeLayout(h *Handle, layoutMap LayoutMap, direction LayoutDirection, opts ...Options) bool {
	o := resolveOptions(opts)
	return optimizer.ChangeLayout(h.g, layoutMap, direction, o.AllowExtendedOps)
}

// ChannelFirstToLast is ChangeLayout fixed to the channels-first ->
// channels-last direction.
func ChannelFirstToLast(h *Handle, layoutMap LayoutMap, opts ...Options) bool {
	o := resolveOptions(opts)
	return optimizer.ChannelFirstToLast(h.g, layoutMap, o.AllowExtendedOps)
}

// ChannelLastToFirst is ChangeLayout fixed to the channels-last ->
// channels-first direction.
func ChannelLastToFirst(h *Handle, layoutMap LayoutMap, opts ...Options) bool {
	o := resolveOptions(opts)
	return optimizer.ChannelLastToFirst(h.g, layoutMap, o.AllowExtendedOps)
}
