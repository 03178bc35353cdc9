// Package ops holds the per-operator transpose-push handlers (spec.md
// §4.5) and the table that dispatches a node to one. Handlers edit the
// graph through the rewrite primitives and never consult the cost model;
// the driver (internal/onnx/optimizer) applies the cost gate and owns
// nothing about individual operators beyond calling into this table.
package ops

import "github.com/born-ml/onnxtranspose/internal/onnx/graph"

// vendorDomain is the extended operator domain (spec.md §4.5 "Dispatcher").
const vendorDomain = "com.microsoft"

// Entry is one operator's push policy.
type Entry struct {
	// Handle performs the push. It must either fully commit the rewrite and
	// return true, or make no graph edits at all and return false.
	Handle func(args *graph.HandlerArgs) bool

	// TransposibleInputs returns the input indices a push would transpose,
	// given the node alone (no perm yet committed) — used both to populate
	// HandlerArgs.TransposibleInputs and by the cost model's
	// reverse-reachability pass. Must not mutate the graph.
	TransposibleInputs func(ctx *graph.OptimizerCtx, n *graph.Node) []int

	// TransposesOutputs reports whether a successful push also wraps the
	// node's outputs in a compensating transpose, for the cost model's
	// output-cost term.
	TransposesOutputs bool

	// Exempt bypasses the cost gate entirely (Transpose, MaxPool).
	Exempt bool
}

// Registry is the (domain, op_type) -> Entry dispatch table.
type Registry struct {
	standard map[string]Entry
	extended map[string]Entry
}

// NewRegistry builds the table of every handler in spec.md §4.5.
func NewRegistry() *Registry {
	r := &Registry{
		standard: make(map[string]Entry),
		extended: make(map[string]Entry),
	}
	registerElementwise(r)
	registerBroadcast(r)
	registerAxisOps(r)
	registerReductions(r)
	registerSqueezeUnsqueeze(r)
	registerShape(r)
	registerPad(r)
	registerSlice(r)
	registerTile(r)
	registerTransposeSelf(r)
	registerArgMinMax(r)
	registerQuantized(r)
	registerMaxPool(r)
	return r
}

func (r *Registry) addStandard(opType string, e Entry) {
	r.standard[opType] = e
}

func (r *Registry) addExtended(opType string, e Entry) {
	r.extended[opType] = e
}

// Lookup resolves a node to its Entry, honoring the vendor-domain gate:
// the extended table is only consulted when the caller allowed extended
// ops and the vendor domain's opset is exactly 1.
func (r *Registry) Lookup(ctx *graph.OptimizerCtx, n *graph.Node) (Entry, bool) {
	switch n.Domain {
	case "":
		e, ok := r.standard[n.OpType]
		return e, ok
	case vendorDomain:
		if !ctx.AllowExtendedOps || ctx.Graph.Opset(vendorDomain) != 1 {
			return Entry{}, false
		}
		e, ok := r.extended[n.OpType]
		return e, ok
	default:
		return Entry{}, false
	}
}

// Supported reports whether n has any registered handler, irrespective of
// cost — used by the cost model's can_likely_remove_transpose check.
func (r *Registry) Supported(ctx *graph.OptimizerCtx, n *graph.Node) bool {
	_, ok := r.Lookup(ctx, n)
	return ok
}
