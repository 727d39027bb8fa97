package field

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/fieldline-data/rom.report/internal/fsutil"
	"github.com/fieldline-data/rom.report/internal/npy"
)

// Fixed dump names shared with the original tooling; changing them breaks
// interchange with existing saved sweeps.
const (
	FileSnapshotsX      = "snapshots_x.npy"
	FileSnapshotsY      = "snapshots_y.npy"
	FileSnapshotsZ      = "snapshots_z.npy"
	FileSnapshotsStress = "snapshots_stress.npy"
	FileParam           = "param.npy"
)

// DumpKind classifies an array dump file by its role in a dataset.
type DumpKind int

const (
	DumpUnknown DumpKind = iota
	DumpX
	DumpY
	DumpZ
	DumpStress
	DumpParam
)

func (k DumpKind) String() string {
	switch k {
	case DumpX:
		return "snapshots_x"
	case DumpY:
		return "snapshots_y"
	case DumpZ:
		return "snapshots_z"
	case DumpStress:
		return "snapshots_stress"
	case DumpParam:
		return "param"
	}
	return "unknown"
}

// Component maps a snapshot dump kind to its component slot.
func (k DumpKind) Component() (Component, bool) {
	switch k {
	case DumpX:
		return ComponentX, true
	case DumpY:
		return ComponentY, true
	case DumpZ:
		return ComponentZ, true
	case DumpStress:
		return ComponentStress, true
	}
	return 0, false
}

// ClassifyNPY guesses the dataset slot of a loosely named upload. Stress is
// tested before the axis letters so "snapshots_stress" never lands on an
// axis by accident.
func ClassifyNPY(filename string) DumpKind {
	base := strings.ToLower(filepath.Base(filename))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	switch {
	case strings.Contains(base, "param"):
		return DumpParam
	case strings.Contains(base, "stress") || base == "s":
		return DumpStress
	case strings.Contains(base, "x"):
		return DumpX
	case strings.Contains(base, "y"):
		return DumpY
	case strings.Contains(base, "z"):
		return DumpZ
	}
	return DumpUnknown
}

// Save writes the dataset's non-empty sets and parameter vector to dir using
// the fixed dump names, returning the file names written. The parameter
// vector is stored as an (n, 1) column to stay byte-compatible with dumps
// produced by the original assembly script.
func (d *Dataset) Save(fsys fsutil.FileSystem, dir string) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("field: save dataset: %w", err)
	}

	var written []string
	write := func(name string, m *mat.Dense) error {
		var buf bytes.Buffer
		if err := npy.WriteMatrix(&buf, m); err != nil {
			return fmt.Errorf("field: encode %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("field: write %s: %w", name, err)
		}
		written = append(written, name)
		return nil
	}

	names := map[Component]string{
		ComponentX:      FileSnapshotsX,
		ComponentY:      FileSnapshotsY,
		ComponentZ:      FileSnapshotsZ,
		ComponentStress: FileSnapshotsStress,
	}
	for _, c := range Components {
		set := d.Set(c)
		if set.Empty() {
			continue
		}
		if err := write(names[c], set.Matrix()); err != nil {
			return written, err
		}
	}
	if len(d.Params) > 0 {
		col := mat.NewDense(len(d.Params), 1, append([]float64(nil), d.Params...))
		if err := write(FileParam, col); err != nil {
			return written, err
		}
	}
	if len(written) == 0 {
		return nil, errors.New("field: dataset has nothing to save")
	}
	return written, nil
}

// LoadDataset reads whichever dumps exist in dir, returning the dataset and
// the file names loaded. Missing files are skipped, not errors; at least one
// must be present. Snapshot sets loaded from dumps have no source tags, so
// tags are reconstructed from the parameter vector (or row indexes when no
// parameter dump exists).
func LoadDataset(fsys fsutil.FileSystem, dir string) (*Dataset, []string, error) {
	d := &Dataset{}
	var loaded []string

	readMatrix := func(name string) (*mat.Dense, error) {
		data, err := fsys.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		m, err := npy.ReadMatrix(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("field: decode %s: %w", name, err)
		}
		return m, nil
	}

	kinds := []struct {
		name string
		c    Component
	}{
		{FileSnapshotsX, ComponentX},
		{FileSnapshotsY, ComponentY},
		{FileSnapshotsZ, ComponentZ},
		{FileSnapshotsStress, ComponentStress},
	}
	for _, k := range kinds {
		if !fsys.Exists(filepath.Join(dir, k.name)) {
			continue
		}
		m, err := readMatrix(k.name)
		if err != nil {
			return nil, loaded, err
		}
		if err := d.AdoptMatrix(k.c, m); err != nil {
			return nil, loaded, fmt.Errorf("field: %s: %w", k.name, err)
		}
		loaded = append(loaded, k.name)
	}

	if fsys.Exists(filepath.Join(dir, FileParam)) {
		data, err := fsys.ReadFile(filepath.Join(dir, FileParam))
		if err != nil {
			return nil, loaded, err
		}
		params, err := npy.ReadVector(bytes.NewReader(data))
		if err != nil {
			return nil, loaded, fmt.Errorf("field: decode %s: %w", FileParam, err)
		}
		if err := d.AdoptParams(params); err != nil {
			return nil, loaded, err
		}
		loaded = append(loaded, FileParam)
	}

	if len(loaded) == 0 {
		return nil, nil, fmt.Errorf("field: no array dumps found in %s", dir)
	}
	return d, loaded, nil
}

// AdoptMatrix installs a loaded snapshot matrix into component c, checking
// shape agreement with already-loaded sets and synthesizing row tags.
func (d *Dataset) AdoptMatrix(c Component, m *mat.Dense) error {
	rows, cols := m.Dims()
	if d.PointCount == 0 {
		d.PointCount = cols
	} else if d.PointCount != cols {
		return fmt.Errorf("field: %d points, other sets have %d", cols, d.PointCount)
	}

	set := d.Set(c)
	set.Rows = set.Rows[:0]
	set.Tags = set.Tags[:0]
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		mat.Row(row, i, m)
		set.append(d.tagForRow(i), row)
	}
	d.syncTags(rows)
	return nil
}

// AdoptParams installs a loaded parameter vector and renames row tags after
// its values.
func (d *Dataset) AdoptParams(params []float64) error {
	for _, c := range Components {
		if s := d.Set(c); !s.Empty() && s.Len() != len(params) {
			return fmt.Errorf("field: %d parameters for %d snapshot rows", len(params), s.Len())
		}
	}
	d.Params = params
	d.Tags = make([]string, len(params))
	for i, p := range params {
		d.Tags[i] = FormatTag(p)
	}
	for _, c := range Components {
		if s := d.Set(c); !s.Empty() {
			copy(s.Tags, d.Tags)
		}
	}
	return nil
}

func (d *Dataset) tagForRow(i int) string {
	if i < len(d.Tags) {
		return d.Tags[i]
	}
	return fmt.Sprintf("%d", i)
}

func (d *Dataset) syncTags(rows int) {
	if len(d.Tags) >= rows {
		return
	}
	for i := len(d.Tags); i < rows; i++ {
		d.Tags = append(d.Tags, fmt.Sprintf("%d", i))
	}
}
