// Package perm implements the pure permutation algebra the transpose
// optimizer builds everything else on: validity, inversion, composition,
// axis renumbering, and the shape/axis transforms that unsqueeze and squeeze
// induce on a permutation. Every function here is total and side-effect
// free — no Graph, no Node, just integers.
package perm

import "fmt"

// Perm is a permutation of [0, len(p)): Perm[i] names which axis of the
// pre-transpose tensor ends up at position i after applying the transpose.
type Perm []int

// IsValid reports whether p is a bijection on [0, len(p)).
func IsValid(p Perm) bool {
	seen := make([]bool, len(p))
	for _, v := range p {
		if v < 0 || v >= len(p) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// Identity returns the length-r identity permutation.
func Identity(r int) Perm {
	p := make(Perm, r)
	for i := range p {
		p[i] = i
	}
	return p
}

// IsIdentity reports whether p is the identity permutation.
func IsIdentity(p Perm) bool {
	for i, v := range p {
		if v != i {
			return false
		}
	}
	return true
}

// Invert returns the inverse of p. Undefined (panics) unless IsValid(p).
func Invert(p Perm) Perm {
	if !IsValid(p) {
		panic(fmt.Sprintf("perm: Invert of invalid permutation %v", p))
	}
	inv := make(Perm, len(p))
	for i, v := range p {
		inv[v] = i
	}
	return inv
}

// Compose returns a permutation equal to applying q then p:
// Compose(p, q)[i] = p[q[i]].
func Compose(p, q Perm) Perm {
	if len(p) != len(q) {
		panic(fmt.Sprintf("perm: Compose length mismatch %d vs %d", len(p), len(q)))
	}
	out := make(Perm, len(p))
	for i := range out {
		out[i] = p[q[i]]
	}
	return out
}

// Equal reports whether p and q are the same permutation.
func Equal(p, q Perm) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of p.
func Clone(p Perm) Perm {
	out := make(Perm, len(p))
	copy(out, p)
	return out
}

// ChannelsLastToFirst returns the permutation moving a channels-last tensor
// ([N, ..., C]) to channels-first ([N, C, ...]): [0, r-1, 1, 2, ..., r-2].
// Requires r >= 1.
func ChannelsLastToFirst(r int) Perm {
	if r < 1 {
		panic("perm: ChannelsLastToFirst requires rank >= 1")
	}
	p := make(Perm, r)
	p[0] = 0
	if r > 1 {
		p[1] = r - 1
		for i := 2; i < r; i++ {
			p[i] = i - 1
		}
	}
	return p
}

// ChannelsFirstToLast returns the inverse of ChannelsLastToFirst: moves a
// channels-first tensor ([N, C, ...]) to channels-last ([N, ..., C]).
func ChannelsFirstToLast(r int) Perm {
	return Invert(ChannelsLastToFirst(r))
}

// NormalizeAxis maps a possibly-negative ONNX axis into [0, rank).
func NormalizeAxis(axis, rank int) int {
	if axis < 0 {
		axis += rank
	}
	return axis
}

// NormalizeAxes maps every axis in axes into [0, rank) and returns the
// result (a new slice; the input is not mutated).
func NormalizeAxes(axes []int, rank int) []int {
	out := make([]int, len(axes))
	for i, a := range axes {
		out[i] = NormalizeAxis(a, rank)
	}
	return out
}

// AxesForTransposedInput renumbers axes through perm, preserving order:
// axes'[i] = perm[axes[i]]. Used wherever the operator treats axes as an
// ordered list positionally aligned with other per-axis parameters (e.g.
// Slice's starts/ends/steps).
func AxesForTransposedInput(axes []int, p Perm) []int {
	out := make([]int, len(axes))
	for i, a := range axes {
		out[i] = p[a]
	}
	return out
}

// SortedAxesForTransposedInput is AxesForTransposedInput followed by an
// ascending sort. Used wherever the operator treats axes as a set rather
// than an ordered list (e.g. reductions, Squeeze).
func SortedAxesForTransposedInput(axes []int, p Perm) []int {
	out := AxesForTransposedInput(axes, p)
	sortInts(out)
	return out
}

func sortInts(s []int) {
	// Insertion sort: axis lists in practice are a handful of elements.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// PermutePads reorders an ONNX Pad "pads" attribute/input ([start_0...
// start_{r-1}, end_0...end_{r-1}]) by perm: both halves are reordered
// independently, result[i] = pads[p[i]] and result[r+i] = pads[r+p[i]].
func PermutePads(pads []int64, p Perm) []int64 {
	r := len(p)
	if len(pads) != 2*r {
		panic(fmt.Sprintf("perm: PermutePads expected %d pads, got %d", 2*r, len(pads)))
	}
	out := make([]int64, 2*r)
	for i := 0; i < r; i++ {
		out[i] = pads[p[i]]
		out[r+i] = pads[r+p[i]]
	}
	return out
}
