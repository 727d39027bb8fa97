// Package vtu reads VTK XML unstructured-grid (.vtu) files into mesh values.
//
// Only the subset the field-extraction layer consumes is implemented: the
// first <Piece> of an <UnstructuredGrid>, its <Points> coordinates, and its
// <PointData> arrays. Cell connectivity is skipped; downstream rendering and
// extraction operate on point clouds.
//
// SUPPORTED ENCODINGS:
//
//	format="ascii"     whitespace-separated literals
//	format="binary"    inline base64 of [header][payload], optionally
//	                   zlib-compressed (vtkZLibDataCompressor)
//	format="appended"  <AppendedData encoding="base64"> blocks addressed by
//	                   byte offset into the encoded stream
//
// Raw (unencoded) appended data and big-endian files are rejected with
// ErrUnsupported rather than misread.
package vtu

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fieldline-data/rom.report/internal/fsutil"
	"github.com/fieldline-data/rom.report/internal/mesh"
)

var (
	// ErrFormat reports a structurally invalid or inconsistent file.
	ErrFormat = errors.New("vtu: malformed file")

	// ErrUnsupported reports a valid VTK construct outside the supported
	// subset.
	ErrUnsupported = errors.New("vtu: unsupported feature")
)

type vtkFile struct {
	XMLName    xml.Name          `xml:"VTKFile"`
	Type       string            `xml:"type,attr"`
	ByteOrder  string            `xml:"byte_order,attr"`
	HeaderType string            `xml:"header_type,attr"`
	Compressor string            `xml:"compressor,attr"`
	Grid       *unstructuredGrid `xml:"UnstructuredGrid"`
	Appended   *appendedData     `xml:"AppendedData"`
}

type unstructuredGrid struct {
	Pieces []piece `xml:"Piece"`
}

type piece struct {
	NumberOfPoints string     `xml:"NumberOfPoints,attr"`
	Points         arrayGroup `xml:"Points"`
	PointData      arrayGroup `xml:"PointData"`
}

type arrayGroup struct {
	Arrays []dataArray `xml:"DataArray"`
}

type dataArray struct {
	Type       string `xml:"type,attr"`
	Name       string `xml:"Name,attr"`
	Components string `xml:"NumberOfComponents,attr"`
	Format     string `xml:"format,attr"`
	Offset     string `xml:"offset,attr"`
	Value      string `xml:",chardata"`
}

type appendedData struct {
	Encoding string `xml:"encoding,attr"`
	Value    string `xml:",chardata"`
}

// Read parses a .vtu document from r.
func Read(r io.Reader) (*mesh.Mesh, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("vtu: read: %w", err)
	}
	var file vtkFile
	if err := xml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return assemble(&file)
}

// ReadFile opens and parses path through the given filesystem.
func ReadFile(fsys fsutil.FileSystem, path string) (*mesh.Mesh, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vtu: open %s: %w", path, err)
	}
	defer f.Close()
	m, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("vtu: parse %s: %w", path, err)
	}
	return m, nil
}

func assemble(file *vtkFile) (*mesh.Mesh, error) {
	if file.Type != "" && file.Type != "UnstructuredGrid" {
		return nil, fmt.Errorf("%w: VTKFile type %q", ErrUnsupported, file.Type)
	}
	if file.ByteOrder == "BigEndian" {
		return nil, fmt.Errorf("%w: big-endian data", ErrUnsupported)
	}
	if file.Grid == nil || len(file.Grid.Pieces) == 0 {
		return nil, fmt.Errorf("%w: no UnstructuredGrid piece", ErrFormat)
	}
	p := file.Grid.Pieces[0]

	if len(p.Points.Arrays) == 0 {
		return nil, fmt.Errorf("%w: piece has no Points array", ErrFormat)
	}
	coordArr := p.Points.Arrays[0]
	if c := componentsOf(coordArr); c != 3 {
		return nil, fmt.Errorf("%w: Points array has %d components, want 3", ErrFormat, c)
	}
	coords, err := decodeArray(coordArr, file)
	if err != nil {
		return nil, fmt.Errorf("vtu: Points: %w", err)
	}

	m, err := mesh.New(coords)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	if want, ok := declaredPoints(p); ok && m.PointCount() != want {
		return nil, fmt.Errorf("%w: NumberOfPoints=%d but Points holds %d", ErrFormat, want, m.PointCount())
	}

	for _, arr := range p.PointData.Arrays {
		if arr.Name == "" {
			continue
		}
		comps := componentsOf(arr)
		if comps != 1 && comps != 3 {
			return nil, fmt.Errorf("%w: array %q has %d components", ErrUnsupported, arr.Name, comps)
		}
		values, err := decodeArray(arr, file)
		if err != nil {
			return nil, fmt.Errorf("vtu: array %q: %w", arr.Name, err)
		}
		if err := m.AddField(arr.Name, comps, values); err != nil {
			return nil, fmt.Errorf("%w: array %q: %v", ErrFormat, arr.Name, err)
		}
	}
	return m, nil
}

func declaredPoints(p piece) (int, bool) {
	if p.NumberOfPoints == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(p.NumberOfPoints))
	if err != nil {
		return 0, false
	}
	return n, true
}

func componentsOf(a dataArray) int {
	if a.Components == "" {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(a.Components))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// headerWordSize returns the width of binary block-size headers; VTK writes
// UInt32 headers unless header_type says otherwise.
func (f *vtkFile) headerWordSize() int {
	if f.HeaderType == "UInt64" {
		return 8
	}
	return 4
}

func (f *vtkFile) compressed() bool { return f.Compressor != "" }
