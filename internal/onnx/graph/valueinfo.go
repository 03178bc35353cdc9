package graph

import "github.com/born-ml/onnxtranspose/internal/onnx/perm"

// DType is an element type, independent of any serialization format's enum.
type DType int32

const (
	DTypeUndefined DType = iota
	DTypeFloat32
	DTypeFloat64
	DTypeInt8
	DTypeInt16
	DTypeInt32
	DTypeInt64
	DTypeUint8
	DTypeUint16
	DTypeUint32
	DTypeUint64
	DTypeBool
)

// ValueInfo is the per-value metadata kept consistent with every rewrite:
// dtype plus an optional shape. A nil Shape means unknown rank.
type ValueInfo struct {
	DType DType
	Shape perm.Shape
}

// KnownRank reports whether the value's rank is known.
func (vi ValueInfo) KnownRank() bool { return vi.Shape != nil }

// Rank returns len(Shape), or -1 if the rank is unknown.
func (vi ValueInfo) Rank() int {
	if vi.Shape == nil {
		return -1
	}
	return len(vi.Shape)
}

// Permuted returns a copy of vi whose Shape has been permuted by p (shape
// stays nil if unknown).
func (vi ValueInfo) Permuted(p perm.Perm) ValueInfo {
	return ValueInfo{DType: vi.DType, Shape: vi.Shape.Permute(p)}
}

// Tensor is a constant value's data, as exposed by Graph.GetConstant. The
// optimizer only ever reads integer parameter tensors (axes, perm, pads,
// repeats) through this interface; it never reads or writes float payload
// data — that happens inside Graph.TransposeInitializer/ReshapeInitializer,
// which own the concrete storage.
type Tensor interface {
	DType() DType
	Shape() []int64
	// AsInt64 returns the tensor's contents widened to int64. Only valid
	// for integer-typed tensors; used for axes/perm/pads/repeats constants.
	AsInt64() []int64
}

// IsScalarTensor reports whether shape represents a scalar for broadcasting
// purposes: rank 0, or every dimension equal to 1. This is broader than
// onnxruntime's HandleSimpleNodeBroadcast test, which accepts rank 0 only.
func IsScalarTensor(shape []int64) bool {
	for _, d := range shape {
		if d != 1 {
			return false
		}
	}
	return true
}
