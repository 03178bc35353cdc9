package ir

import (
	"encoding/binary"
	"fmt"
	"math"

	onnxpb "github.com/born-ml/onnxtranspose/internal/onnx"
	"github.com/born-ml/onnxtranspose/internal/onnx/graph"
	"github.com/born-ml/onnxtranspose/internal/onnx/perm"
)

// tensor is the ir package's concrete constant value: row-major raw bytes
// plus enough type information to decode them. It implements graph.Tensor.
type tensor struct {
	dtype graph.DType
	dims  []int64
	data  []byte
}

func (t *tensor) DType() graph.DType { return t.dtype }
func (t *tensor) Shape() []int64     { return t.dims }

// AsInt64 widens the tensor's integer contents to int64. Used only for
// the small parameter tensors the optimizer reads (axes, perm, pads,
// repeats).
func (t *tensor) AsInt64() []int64 {
	n := elemCount(t.dims)
	out := make([]int64, n)
	size := dtypeSize(t.dtype)
	for i := 0; i < n; i++ {
		b := t.data[i*size : (i+1)*size]
		out[i] = decodeInt(t.dtype, b)
	}
	return out
}

func elemCount(dims []int64) int {
	n := 1
	for _, d := range dims {
		n *= int(d)
	}
	return n
}

func dtypeSize(d graph.DType) int {
	switch d {
	case graph.DTypeInt8, graph.DTypeUint8, graph.DTypeBool:
		return 1
	case graph.DTypeInt16, graph.DTypeUint16:
		return 2
	case graph.DTypeInt32, graph.DTypeUint32, graph.DTypeFloat32:
		return 4
	case graph.DTypeInt64, graph.DTypeUint64, graph.DTypeFloat64:
		return 8
	default:
		return 4
	}
}

func decodeInt(d graph.DType, b []byte) int64 {
	switch d {
	case graph.DTypeInt8:
		return int64(int8(b[0]))
	case graph.DTypeUint8, graph.DTypeBool:
		return int64(b[0])
	case graph.DTypeInt16:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	case graph.DTypeUint16:
		return int64(binary.LittleEndian.Uint16(b))
	case graph.DTypeInt32:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	case graph.DTypeUint32:
		return int64(binary.LittleEndian.Uint32(b))
	case graph.DTypeInt64:
		return int64(binary.LittleEndian.Uint64(b))
	case graph.DTypeUint64:
		return int64(binary.LittleEndian.Uint64(b))
	default:
		return 0
	}
}

func encodeInt(d graph.DType, v int64, out []byte) {
	switch d {
	case graph.DTypeInt8, graph.DTypeUint8, graph.DTypeBool:
		out[0] = byte(v)
	case graph.DTypeInt16, graph.DTypeUint16:
		binary.LittleEndian.PutUint16(out, uint16(v))
	case graph.DTypeInt32, graph.DTypeUint32:
		binary.LittleEndian.PutUint32(out, uint32(v))
	case graph.DTypeInt64, graph.DTypeUint64:
		binary.LittleEndian.PutUint64(out, uint64(v))
	}
}

func newInt64Tensor(dims []int64, data []int64) *tensor {
	size := dtypeSize(graph.DTypeInt64)
	buf := make([]byte, len(data)*size)
	for i, v := range data {
		encodeInt(graph.DTypeInt64, v, buf[i*size:(i+1)*size])
	}
	return &tensor{dtype: graph.DTypeInt64, dims: dims, data: buf}
}

func newInt32Tensor(dims []int64, data []int32) *tensor {
	size := dtypeSize(graph.DTypeInt32)
	buf := make([]byte, len(data)*size)
	for i, v := range data {
		encodeInt(graph.DTypeInt32, int64(v), buf[i*size:(i+1)*size])
	}
	return &tensor{dtype: graph.DTypeInt32, dims: dims, data: buf}
}

// reshape overwrites dims in place; element count must be unchanged.
func (t *tensor) reshape(dims []int64) error {
	if elemCount(dims) != elemCount(t.dims) {
		return fmt.Errorf("ir: reshape element count mismatch: %d vs %d", elemCount(dims), elemCount(t.dims))
	}
	t.dims = dims
	return nil
}

// transpose reorders t's data under p, rank-for-rank with t.dims.
func (t *tensor) transpose(p perm.Perm) error {
	if len(p) != len(t.dims) {
		return fmt.Errorf("ir: transpose rank mismatch: perm has %d axes, tensor has %d", len(p), len(t.dims))
	}
	size := dtypeSize(t.dtype)
	newDims := make([]int64, len(p))
	for i := range p {
		newDims[i] = t.dims[p[i]]
	}

	oldStrides := stridesOf(t.dims)
	newStrides := stridesOf(newDims)
	n := elemCount(t.dims)
	out := make([]byte, len(t.data))

	idx := make([]int64, len(p))
	for linear := 0; linear < n; linear++ {
		rem := linear
		for d := 0; d < len(newDims); d++ {
			idx[d] = int64(rem) / newStrides[d]
			rem = rem % int(newStrides[d])
		}
		oldOffset := int64(0)
		for d := range p {
			oldOffset += idx[d] * oldStrides[p[d]]
		}
		copy(out[int64(linear)*int64(size):], t.data[oldOffset*int64(size):oldOffset*int64(size)+int64(size)])
	}

	t.dims = newDims
	t.data = out
	return nil
}

func stridesOf(dims []int64) []int64 {
	strides := make([]int64, len(dims))
	acc := int64(1)
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= dims[i]
	}
	return strides
}

func mapONNXDType(t int32) graph.DType {
	switch t {
	case onnxpb.TensorProtoFloat:
		return graph.DTypeFloat32
	case onnxpb.TensorProtoDouble:
		return graph.DTypeFloat64
	case onnxpb.TensorProtoInt8:
		return graph.DTypeInt8
	case onnxpb.TensorProtoInt16:
		return graph.DTypeInt16
	case onnxpb.TensorProtoInt32:
		return graph.DTypeInt32
	case onnxpb.TensorProtoInt64:
		return graph.DTypeInt64
	case onnxpb.TensorProtoUint8:
		return graph.DTypeUint8
	case onnxpb.TensorProtoUint16:
		return graph.DTypeUint16
	case onnxpb.TensorProtoUint32:
		return graph.DTypeUint32
	case onnxpb.TensorProtoUint64:
		return graph.DTypeUint64
	case onnxpb.TensorProtoBool:
		return graph.DTypeBool
	default:
		return graph.DTypeUndefined
	}
}

func mapGraphDType(d graph.DType) int32 {
	switch d {
	case graph.DTypeFloat32:
		return onnxpb.TensorProtoFloat
	case graph.DTypeFloat64:
		return onnxpb.TensorProtoDouble
	case graph.DTypeInt8:
		return onnxpb.TensorProtoInt8
	case graph.DTypeInt16:
		return onnxpb.TensorProtoInt16
	case graph.DTypeInt32:
		return onnxpb.TensorProtoInt32
	case graph.DTypeInt64:
		return onnxpb.TensorProtoInt64
	case graph.DTypeUint8:
		return onnxpb.TensorProtoUint8
	case graph.DTypeUint16:
		return onnxpb.TensorProtoUint16
	case graph.DTypeUint32:
		return onnxpb.TensorProtoUint32
	case graph.DTypeUint64:
		return onnxpb.TensorProtoUint64
	case graph.DTypeBool:
		return onnxpb.TensorProtoBool
	default:
		return onnxpb.TensorProtoUndefined
	}
}

// tensorFromProto decodes a TensorProto's data into raw row-major bytes,
// widening the legacy typed-array fields to bytes when RawData is absent.
func tensorFromProto(tp *onnxpb.TensorProto) (*tensor, error) {
	dtype := mapONNXDType(tp.DataType)
	size := dtypeSize(dtype)
	n := elemCount(tp.Dims)

	if len(tp.RawData) > 0 {
		return &tensor{dtype: dtype, dims: tp.Dims, data: tp.RawData}, nil
	}

	data := make([]byte, n*size)
	switch {
	case len(tp.Int64Data) > 0:
		for i, v := range tp.Int64Data {
			encodeInt(dtype, v, data[i*size:(i+1)*size])
		}
	case len(tp.Int32Data) > 0:
		for i, v := range tp.Int32Data {
			encodeInt(dtype, int64(v), data[i*size:(i+1)*size])
		}
	case len(tp.FloatData) > 0:
		for i, v := range tp.FloatData {
			binary.LittleEndian.PutUint32(data[i*4:(i+1)*4], math.Float32bits(v))
		}
	default:
		if n != 0 {
			return nil, fmt.Errorf("ir: initializer %q has no data", tp.Name)
		}
	}
	return &tensor{dtype: dtype, dims: tp.Dims, data: data}, nil
}

func tensorToProto(name string, t *tensor) onnxpb.TensorProto {
	return onnxpb.TensorProto{
		Name:     name,
		DataType: mapGraphDType(t.dtype),
		Dims:     t.dims,
		RawData:  t.data,
	}
}
