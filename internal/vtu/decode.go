package vtu

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

func decodeArray(a dataArray, file *vtkFile) ([]float64, error) {
	switch a.Format {
	case "", "ascii":
		return parseASCII(a.Value)
	case "binary":
		payload, err := decodeBlock(strings.NewReader(stripSpace(a.Value)), file)
		if err != nil {
			return nil, err
		}
		return convertValues(payload, a.Type)
	case "appended":
		payload, err := decodeAppended(a, file)
		if err != nil {
			return nil, err
		}
		return convertValues(payload, a.Type)
	default:
		return nil, fmt.Errorf("%w: format %q", ErrUnsupported, a.Format)
	}
}

func parseASCII(text string) ([]float64, error) {
	fields := strings.Fields(text)
	out := make([]float64, 0, len(fields))
	for _, tok := range fields {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: ascii token %q", ErrFormat, tok)
		}
		out = append(out, v)
	}
	return out, nil
}

// decodeBlock reads one encoded block: either [byte count][payload] for
// uncompressed data, or the vtkZLibDataCompressor layout
// [nblocks][block size][last size][compressed sizes...] followed by the
// separately base64-encoded compressed blocks.
//
// VTK encodes the compression header and the block payloads as two distinct
// base64 streams, so compressed decoding re-anchors on the encoded text; enc
// carries the remaining encoded text for that purpose.
func decodeBlock(enc *strings.Reader, file *vtkFile) ([]byte, error) {
	if !file.compressed() {
		dec := base64.NewDecoder(base64.StdEncoding, enc)
		size, err := readHeaderWord(dec, file.headerWordSize())
		if err != nil {
			return nil, err
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(dec, payload); err != nil {
			return nil, fmt.Errorf("%w: truncated binary payload: %v", ErrFormat, err)
		}
		return payload, nil
	}
	return decodeCompressed(enc, file)
}

func decodeCompressed(enc *strings.Reader, file *vtkFile) ([]byte, error) {
	if file.Compressor != "vtkZLibDataCompressor" {
		return nil, fmt.Errorf("%w: compressor %q", ErrUnsupported, file.Compressor)
	}
	word := file.headerWordSize()

	// The header's own length depends on the block count it starts with, so
	// peek at the first word before decoding the full header.
	text, err := io.ReadAll(enc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	peek := base64.NewDecoder(base64.StdEncoding, bytes.NewReader(text))
	nblocks, err := readHeaderWord(peek, word)
	if err != nil {
		return nil, err
	}
	if nblocks == 0 || nblocks > 1<<20 {
		return nil, fmt.Errorf("%w: compression block count %d", ErrFormat, nblocks)
	}

	headerBytes := word * (3 + nblocks)
	headerEnc := base64.StdEncoding.EncodedLen(headerBytes)
	if len(text) < headerEnc {
		return nil, fmt.Errorf("%w: truncated compression header", ErrFormat)
	}
	hdr := base64.NewDecoder(base64.StdEncoding, bytes.NewReader(text[:headerEnc]))
	if _, err := readHeaderWord(hdr, word); err != nil { // nblocks again
		return nil, err
	}
	if _, err := readHeaderWord(hdr, word); err != nil { // full block size
		return nil, err
	}
	if _, err := readHeaderWord(hdr, word); err != nil { // last block size
		return nil, err
	}
	compressedSizes := make([]int, nblocks)
	for i := range compressedSizes {
		compressedSizes[i], err = readHeaderWord(hdr, word)
		if err != nil {
			return nil, err
		}
	}

	body := base64.NewDecoder(base64.StdEncoding, bytes.NewReader(text[headerEnc:]))
	var out bytes.Buffer
	for i, csize := range compressedSizes {
		block := make([]byte, csize)
		if _, err := io.ReadFull(body, block); err != nil {
			return nil, fmt.Errorf("%w: truncated compressed block %d: %v", ErrFormat, i, err)
		}
		zr, err := zlib.NewReader(bytes.NewReader(block))
		if err != nil {
			return nil, fmt.Errorf("%w: zlib block %d: %v", ErrFormat, i, err)
		}
		if _, err := io.Copy(&out, zr); err != nil {
			zr.Close()
			return nil, fmt.Errorf("%w: zlib block %d: %v", ErrFormat, i, err)
		}
		zr.Close()
	}
	return out.Bytes(), nil
}

func decodeAppended(a dataArray, file *vtkFile) ([]byte, error) {
	if file.Appended == nil {
		return nil, fmt.Errorf("%w: appended array without AppendedData section", ErrFormat)
	}
	if file.Appended.Encoding != "base64" {
		return nil, fmt.Errorf("%w: appended encoding %q", ErrUnsupported, file.Appended.Encoding)
	}
	offset := 0
	if a.Offset != "" {
		n, err := strconv.Atoi(strings.TrimSpace(a.Offset))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: offset %q", ErrFormat, a.Offset)
		}
		offset = n
	}
	text := stripSpace(file.Appended.Value)
	text = strings.TrimPrefix(text, "_")
	if offset > len(text) {
		return nil, fmt.Errorf("%w: appended offset %d beyond data", ErrFormat, offset)
	}
	return decodeBlock(strings.NewReader(text[offset:]), file)
}

func readHeaderWord(r io.Reader, word int) (int, error) {
	buf := make([]byte, word)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, fmt.Errorf("%w: truncated block header: %v", ErrFormat, err)
	}
	if word == 8 {
		v := binary.LittleEndian.Uint64(buf)
		if v > math.MaxInt32 {
			return 0, fmt.Errorf("%w: block size %d too large", ErrFormat, v)
		}
		return int(v), nil
	}
	return int(binary.LittleEndian.Uint32(buf)), nil
}

func convertValues(raw []byte, vtkType string) ([]float64, error) {
	width, decode, err := elementDecoder(vtkType)
	if err != nil {
		return nil, err
	}
	if len(raw)%width != 0 {
		return nil, fmt.Errorf("%w: payload %d bytes not divisible by %d-byte %s", ErrFormat, len(raw), width, vtkType)
	}
	out := make([]float64, len(raw)/width)
	for i := range out {
		out[i] = decode(raw[i*width:])
	}
	return out, nil
}

func elementDecoder(vtkType string) (int, func([]byte) float64, error) {
	switch vtkType {
	case "Float64":
		return 8, func(b []byte) float64 {
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		}, nil
	case "Float32":
		return 4, func(b []byte) float64 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}, nil
	case "Int64":
		return 8, func(b []byte) float64 {
			return float64(int64(binary.LittleEndian.Uint64(b)))
		}, nil
	case "Int32":
		return 4, func(b []byte) float64 {
			return float64(int32(binary.LittleEndian.Uint32(b)))
		}, nil
	case "UInt32":
		return 4, func(b []byte) float64 {
			return float64(binary.LittleEndian.Uint32(b))
		}, nil
	case "Int16":
		return 2, func(b []byte) float64 {
			return float64(int16(binary.LittleEndian.Uint16(b)))
		}, nil
	case "UInt16":
		return 2, func(b []byte) float64 {
			return float64(binary.LittleEndian.Uint16(b))
		}, nil
	case "Int8":
		return 1, func(b []byte) float64 { return float64(int8(b[0])) }, nil
	case "UInt8":
		return 1, func(b []byte) float64 { return float64(b[0]) }, nil
	default:
		return 0, nil, fmt.Errorf("%w: data type %q", ErrUnsupported, vtkType)
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}
