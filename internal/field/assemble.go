package field

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/fieldline-data/rom.report/internal/fsutil"
	"github.com/fieldline-data/rom.report/internal/mesh"
	"github.com/fieldline-data/rom.report/internal/vtu"
)

// ErrNoTags reports a mesh whose array names carry no deltaT tokens.
var ErrNoTags = errors.New("field: no deltaT tags found in mesh arrays")

// SnapshotSet stacks one component's per-tag arrays. Rows and Tags are
// parallel: Tags[i] is the parameter tag that produced Rows[i]. Carrying the
// tags per set (instead of assuming positional agreement with the dataset's
// full tag list) is what makes partial extractions detectable.
type SnapshotSet struct {
	Rows [][]float64
	Tags []string
}

// Len returns the number of snapshot rows.
func (s *SnapshotSet) Len() int { return len(s.Rows) }

// Empty reports whether the set has no rows.
func (s *SnapshotSet) Empty() bool { return len(s.Rows) == 0 }

// HasTag reports whether a row for the given tag is present.
func (s *SnapshotSet) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Row returns the snapshot stored for tag, or nil.
func (s *SnapshotSet) Row(tag string) []float64 {
	for i, t := range s.Tags {
		if t == tag {
			return s.Rows[i]
		}
	}
	return nil
}

// Matrix stacks the rows into a dense (rows × points) matrix. Empty sets
// return nil.
func (s *SnapshotSet) Matrix() *mat.Dense {
	if s.Empty() {
		return nil
	}
	cols := len(s.Rows[0])
	m := mat.NewDense(len(s.Rows), cols, nil)
	for i, row := range s.Rows {
		m.SetRow(i, row)
	}
	return m
}

func (s *SnapshotSet) append(tag string, row []float64) {
	s.Rows = append(s.Rows, row)
	s.Tags = append(s.Tags, tag)
}

// Dataset bundles the four component snapshot sets with the discovered tag
// list and the parameter vector parsed from it.
type Dataset struct {
	X, Y, Z, Stress SnapshotSet

	// Tags is every tag discovered in the source, ascending. Individual
	// sets may cover only a subset when arrays are missing for some tags.
	Tags   []string
	Params []float64

	PointCount int
}

// Set returns the snapshot set for component c.
func (d *Dataset) Set(c Component) *SnapshotSet {
	switch c {
	case ComponentX:
		return &d.X
	case ComponentY:
		return &d.Y
	case ComponentZ:
		return &d.Z
	case ComponentStress:
		return &d.Stress
	}
	return nil
}

// Available lists components with at least one snapshot row.
func (d *Dataset) Available() []Component {
	var out []Component
	for _, c := range Components {
		if !d.Set(c).Empty() {
			out = append(out, c)
		}
	}
	return out
}

// Aligned reports whether every non-empty set has one row per discovered
// tag. When false, positional indexing across sets is unsafe; use
// AlignedSubset first.
func (d *Dataset) Aligned() bool {
	for _, c := range Components {
		if s := d.Set(c); !s.Empty() && s.Len() != len(d.Tags) {
			return false
		}
	}
	return true
}

// AlignedSubset returns a dataset restricted to tags present in every
// non-empty set, restoring row agreement after partial extractions.
func (d *Dataset) AlignedSubset() (*Dataset, error) {
	var kept []string
	for _, tag := range d.Tags {
		ok := true
		for _, c := range Components {
			if s := d.Set(c); !s.Empty() && !s.HasTag(tag) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, tag)
		}
	}
	if len(kept) == 0 {
		return nil, errors.New("field: no tag is present in every component set")
	}
	params, err := ParamsFromTags(kept)
	if err != nil {
		return nil, err
	}
	out := &Dataset{Tags: kept, Params: params, PointCount: d.PointCount}
	for _, c := range Components {
		src, dst := d.Set(c), out.Set(c)
		if src.Empty() {
			continue
		}
		for _, tag := range kept {
			dst.append(tag, src.Row(tag))
		}
	}
	return out, nil
}

// SetParams overrides the parameter vector, typically from a user-entered
// sweep range. The length must match the tag count so rows stay paired with
// parameter values.
func (d *Dataset) SetParams(params []float64) error {
	if len(params) != len(d.Tags) {
		return fmt.Errorf("field: %d parameters for %d tags", len(params), len(d.Tags))
	}
	d.Params = params
	return nil
}

// AssembleMesh extracts every discovered tag from m and stacks the results.
func AssembleMesh(m *mesh.Mesh) (*Dataset, error) {
	tags := DiscoverTags(m)
	if len(tags) == 0 {
		return nil, ErrNoTags
	}
	params, err := ParamsFromTags(tags)
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		Tags:       tags,
		Params:     params,
		PointCount: m.PointCount(),
	}
	for _, tag := range tags {
		ex := Extract(m, tag)
		for _, c := range Components {
			if data := ex.Component(c); data != nil {
				d.Set(c).append(tag, data)
			}
		}
	}
	return d, nil
}

// Assemble reads the mesh at path and assembles its dataset.
func Assemble(fsys fsutil.FileSystem, path string) (*Dataset, error) {
	m, err := vtu.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("field: assemble: %w", err)
	}
	return AssembleMesh(m)
}
