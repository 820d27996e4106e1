package volio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/MeKo-Tech/segenergy/internal/volume"
	"github.com/klauspost/compress/zstd"
)

// Raw volume layout: a fixed header followed by a zstd stream of the
// little-endian elements in row-major order.
//
//	magic   [4]byte "SGEV"
//	version uint8
//	dtype   uint8
//	ndim    uint8
//	shape   [ndim]uint32
const (
	// RawExtension is the file extension of raw volumes.
	RawExtension = ".sgev"

	rawMagic   = "SGEV"
	rawVersion = 1
	// maxRawElements bounds allocations driven by an untrusted header.
	maxRawElements = 1 << 31
)

// DType identifies the element type of a raw volume.
type DType uint8

const (
	DTypeUint8   DType = 1
	DTypeInt64   DType = 2
	DTypeFloat64 DType = 3
)

func (d DType) String() string {
	switch d {
	case DTypeUint8:
		return "uint8"
	case DTypeInt64:
		return "int64"
	case DTypeFloat64:
		return "float64"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}

// Element is the set of element types a raw volume can hold.
type Element interface {
	uint8 | int64 | float64
}

func dtypeOf[T Element]() DType {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return DTypeUint8
	case int64:
		return DTypeInt64
	default:
		return DTypeFloat64
	}
}

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil)
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		return dec
	},
}

// WriteRaw writes a as a raw volume.
func WriteRaw[T Element](w io.Writer, a volume.Array[T]) error {
	if len(a.Shape) > 255 {
		return fmt.Errorf("raw volume: %d axes (max 255)", len(a.Shape))
	}
	header := make([]byte, 0, 7+4*len(a.Shape))
	header = append(header, rawMagic...)
	header = append(header, rawVersion, byte(dtypeOf[T]()), byte(len(a.Shape)))
	for _, n := range a.Shape {
		header = binary.LittleEndian.AppendUint32(header, uint32(n))
	}
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("raw volume header: %w", err)
	}

	enc := zstdEncPool.Get().(*zstd.Encoder)
	defer zstdEncPool.Put(enc)
	enc.Reset(w)
	if err := binary.Write(enc, binary.LittleEndian, a.Data); err != nil {
		_ = enc.Close()
		return fmt.Errorf("zstd encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd encode: %w", err)
	}
	return nil
}

// ReadRawHeader reads the header of a raw volume, returning its element
// type and shape.
func ReadRawHeader(r io.Reader) (DType, []int, error) {
	fixed := make([]byte, 7)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrBadMagic, err)
	}
	if string(fixed[:4]) != rawMagic {
		return 0, nil, ErrBadMagic
	}
	if fixed[4] != rawVersion {
		return 0, nil, fmt.Errorf("%w: version %d", ErrBadMagic, fixed[4])
	}
	dtype := DType(fixed[5])
	dims := make([]byte, 4*int(fixed[6]))
	if _, err := io.ReadFull(r, dims); err != nil {
		return 0, nil, fmt.Errorf("%w: truncated shape: %w", ErrBadMagic, err)
	}
	shape := make([]int, fixed[6])
	total := 1
	for i := range shape {
		shape[i] = int(binary.LittleEndian.Uint32(dims[4*i:]))
		total *= max(shape[i], 1)
		if total > maxRawElements {
			return 0, nil, fmt.Errorf("%w: shape %v too large", ErrBadMagic, shape[:i+1])
		}
	}
	return dtype, shape, nil
}

// ReadRaw reads a raw volume whose element type must be T.
func ReadRaw[T Element](r io.Reader) (volume.Array[T], error) {
	dtype, shape, err := ReadRawHeader(r)
	if err != nil {
		return volume.Array[T]{}, err
	}
	if want := dtypeOf[T](); dtype != want {
		return volume.Array[T]{}, fmt.Errorf("%w: file holds %s, want %s", ErrDType, dtype, want)
	}

	out := volume.New[T](shape...)
	if out.Len() == 0 {
		return out, nil
	}
	dec := zstdDecPool.Get().(*zstd.Decoder)
	defer zstdDecPool.Put(dec)
	if err := dec.Reset(r); err != nil {
		return volume.Array[T]{}, fmt.Errorf("zstd decode: %w", err)
	}
	if err := binary.Read(dec, binary.LittleEndian, out.Data); err != nil {
		return volume.Array[T]{}, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

// SaveRaw writes a raw volume to path.
func SaveRaw[T Element](a volume.Array[T], path string) (err error) {
	f, err := os.Create(path) //nolint:gosec // G304: output path is chosen by the user
	if err != nil {
		return &IOError{Operation: "save", Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &IOError{Operation: "save", Path: path, Err: cerr}
		}
	}()
	bw := bufio.NewWriter(f)
	if err := WriteRaw(bw, a); err != nil {
		return &IOError{Operation: "save", Path: path, Err: err}
	}
	if err := bw.Flush(); err != nil {
		return &IOError{Operation: "save", Path: path, Err: err}
	}
	return nil
}

// LoadRaw reads a raw volume of element type T from path.
func LoadRaw[T Element](path string) (volume.Array[T], error) {
	f, err := os.Open(path) //nolint:gosec // G304: reading a user-provided volume is expected
	if err != nil {
		return volume.Array[T]{}, &IOError{Operation: "load", Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	a, err := ReadRaw[T](bufio.NewReader(f))
	if err != nil {
		return volume.Array[T]{}, &IOError{Operation: "load", Path: path, Err: err}
	}
	return a, nil
}
