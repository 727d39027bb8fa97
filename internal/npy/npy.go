// Package npy reads and writes NumPy .npy array files.
//
// Only the subset of the format the dataset layer produces and consumes is
// implemented: version 1.0 headers, little-endian numeric dtypes, and one- or
// two-dimensional arrays. Snapshot and parameter dumps are written as float64
// ('<f8'); on read, integer and float32 arrays are widened to float64 so that
// parameter vectors saved from integer ranges load cleanly.
//
// FILE STRUCTURE (version 1.0):
//
//	magic   6 bytes  "\x93NUMPY"
//	version 2 bytes  major=1, minor=0
//	hdrlen  2 bytes  little-endian uint16
//	header  hdrlen bytes, ASCII dict literal padded with spaces, '\n' final
//	data    raw little-endian values, C (row-major) order
package npy

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrFormat reports a file that is not a readable .npy array.
	ErrFormat = errors.New("npy: invalid file format")

	// ErrUnsupported reports a valid .npy file outside the supported subset
	// (exotic dtype, >2 dimensions).
	ErrUnsupported = errors.New("npy: unsupported dtype or layout")
)

var magic = []byte{0x93, 'N', 'U', 'M', 'P', 'Y'}

// Header alignment used by numpy since 1.9; readers only require the
// trailing newline, but aligned headers keep the files bit-compatible.
const headerAlign = 64

var (
	descrRe   = regexp.MustCompile(`'descr':\s*'([^']+)'`)
	fortranRe = regexp.MustCompile(`'fortran_order':\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape':\s*\(([^)]*)\)`)
)

// WriteVector writes v as a one-dimensional float64 array.
func WriteVector(w io.Writer, v []float64) error {
	if err := writeHeader(w, fmt.Sprintf("(%d,)", len(v))); err != nil {
		return err
	}
	return writeFloats(w, v)
}

// WriteMatrix writes m as a two-dimensional float64 array in row-major order.
func WriteMatrix(w io.Writer, m *mat.Dense) error {
	r, c := m.Dims()
	if err := writeHeader(w, fmt.Sprintf("(%d, %d)", r, c)); err != nil {
		return err
	}
	buf := make([]byte, 8*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			binary.LittleEndian.PutUint64(buf[8*j:], math.Float64bits(m.At(i, j)))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("npy: write row %d: %w", i, err)
		}
	}
	return nil
}

// Read decodes a one- or two-dimensional array, returning its shape and the
// values flattened in row-major order.
func Read(r io.Reader) (shape []int, data []float64, err error) {
	hdr := make([]byte, 10)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, nil, fmt.Errorf("%w: short header: %v", ErrFormat, err)
	}
	for i, b := range magic {
		if hdr[i] != b {
			return nil, nil, fmt.Errorf("%w: bad magic", ErrFormat)
		}
	}
	major, minor := hdr[6], hdr[7]
	if major != 1 || minor != 0 {
		return nil, nil, fmt.Errorf("%w: version %d.%d", ErrUnsupported, major, minor)
	}
	hdrLen := int(binary.LittleEndian.Uint16(hdr[8:10]))
	dict := make([]byte, hdrLen)
	if _, err := io.ReadFull(r, dict); err != nil {
		return nil, nil, fmt.Errorf("%w: truncated header dict: %v", ErrFormat, err)
	}

	descr, fortran, shape, err := parseDict(string(dict))
	if err != nil {
		return nil, nil, err
	}
	if len(shape) < 1 || len(shape) > 2 {
		return nil, nil, fmt.Errorf("%w: %d-dimensional array", ErrUnsupported, len(shape))
	}

	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, nil, fmt.Errorf("%w: negative dimension", ErrFormat)
		}
		n *= d
	}
	data, err = readValues(r, descr, n)
	if err != nil {
		return nil, nil, err
	}
	if fortran && len(shape) == 2 {
		data = fortranToC(data, shape[0], shape[1])
	}
	return shape, data, nil
}

// ReadVector decodes a one-dimensional array. Two-dimensional input with a
// single row or column is flattened, matching how parameter dumps saved as
// column vectors are consumed.
func ReadVector(r io.Reader) ([]float64, error) {
	shape, data, err := Read(r)
	if err != nil {
		return nil, err
	}
	if len(shape) == 2 && shape[0] != 1 && shape[1] != 1 {
		return nil, fmt.Errorf("%w: expected vector, got %dx%d", ErrUnsupported, shape[0], shape[1])
	}
	return data, nil
}

// ReadMatrix decodes a two-dimensional array into a dense matrix. A
// one-dimensional array becomes a single-row matrix.
func ReadMatrix(r io.Reader) (*mat.Dense, error) {
	shape, data, err := Read(r)
	if err != nil {
		return nil, err
	}
	if len(shape) == 1 {
		return mat.NewDense(1, shape[0], data), nil
	}
	if shape[0] == 0 || shape[1] == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrFormat)
	}
	return mat.NewDense(shape[0], shape[1], data), nil
}

func writeHeader(w io.Writer, shape string) error {
	dict := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': %s, }", shape)
	// Pad so the full preamble is a multiple of headerAlign, '\n' last.
	total := len(magic) + 4 + len(dict) + 1
	pad := (headerAlign - total%headerAlign) % headerAlign
	dict += strings.Repeat(" ", pad) + "\n"

	if _, err := w.Write(magic); err != nil {
		return fmt.Errorf("npy: write magic: %w", err)
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return fmt.Errorf("npy: write version: %w", err)
	}
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(dict)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("npy: write header length: %w", err)
	}
	if _, err := w.Write([]byte(dict)); err != nil {
		return fmt.Errorf("npy: write header: %w", err)
	}
	return nil
}

func writeFloats(w io.Writer, v []float64) error {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(x))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("npy: write data: %w", err)
	}
	return nil
}

func parseDict(dict string) (descr string, fortran bool, shape []int, err error) {
	m := descrRe.FindStringSubmatch(dict)
	if m == nil {
		return "", false, nil, fmt.Errorf("%w: missing descr", ErrFormat)
	}
	descr = m[1]

	m = fortranRe.FindStringSubmatch(dict)
	if m == nil {
		return "", false, nil, fmt.Errorf("%w: missing fortran_order", ErrFormat)
	}
	fortran = m[1] == "True"

	m = shapeRe.FindStringSubmatch(dict)
	if m == nil {
		return "", false, nil, fmt.Errorf("%w: missing shape", ErrFormat)
	}
	for _, tok := range strings.Split(m[1], ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		d, convErr := strconv.Atoi(tok)
		if convErr != nil {
			return "", false, nil, fmt.Errorf("%w: shape token %q", ErrFormat, tok)
		}
		shape = append(shape, d)
	}
	if len(shape) == 0 {
		// () is a zero-dimensional scalar; treat as a length-1 vector.
		shape = []int{1}
	}
	return descr, fortran, shape, nil
}

func readValues(r io.Reader, descr string, n int) ([]float64, error) {
	width, decode, err := decoderFor(descr)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, n*width)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%w: truncated data: %v", ErrFormat, err)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = decode(raw[i*width:])
	}
	return out, nil
}

// decoderFor maps a dtype descr to its byte width and element decoder.
// Integer parameter dumps ('<i8') widen to float64 without loss for the
// magnitudes seen in temperature sweeps.
func decoderFor(descr string) (int, func([]byte) float64, error) {
	switch descr {
	case "<f8":
		return 8, func(b []byte) float64 {
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		}, nil
	case "<f4":
		return 4, func(b []byte) float64 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}, nil
	case "<i8":
		return 8, func(b []byte) float64 {
			return float64(int64(binary.LittleEndian.Uint64(b)))
		}, nil
	case "<i4":
		return 4, func(b []byte) float64 {
			return float64(int32(binary.LittleEndian.Uint32(b)))
		}, nil
	default:
		return 0, nil, fmt.Errorf("%w: dtype %q", ErrUnsupported, descr)
	}
}

func fortranToC(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			out[i*cols+j] = data[j*rows+i]
		}
	}
	return out
}
