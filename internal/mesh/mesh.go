// Package mesh models an unstructured point mesh: point coordinates plus
// named point-data fields. Meshes are immutable after load except for
// attaching derived fields (displacement magnitude, prediction error, warped
// copies), which is how every downstream consumer decorates them.
package mesh

import (
	"errors"
	"fmt"
	"math"
)

// Field is one named point-data array. Components is 1 for scalars and 3 for
// vectors; Data holds PointCount*Components values, interleaved per point for
// vectors.
type Field struct {
	Name       string
	Components int
	Data       []float64
}

// Mesh is a set of points with attached point-data fields. Field order is
// preserved as loaded so that UI listings and tag discovery are stable across
// reads of the same file.
type Mesh struct {
	points []float64 // xyz triplets
	fields []Field
	index  map[string]int
}

// New builds a mesh from flat xyz triplets.
func New(points []float64) (*Mesh, error) {
	if len(points)%3 != 0 {
		return nil, fmt.Errorf("mesh: point array length %d not divisible by 3", len(points))
	}
	return &Mesh{
		points: points,
		index:  make(map[string]int),
	}, nil
}

// PointCount returns the number of mesh points.
func (m *Mesh) PointCount() int { return len(m.points) / 3 }

// Point returns the coordinates of point i.
func (m *Mesh) Point(i int) (x, y, z float64) {
	return m.points[3*i], m.points[3*i+1], m.points[3*i+2]
}

// Coords returns per-axis coordinate slices (copies).
func (m *Mesh) Coords() (xs, ys, zs []float64) {
	n := m.PointCount()
	xs = make([]float64, n)
	ys = make([]float64, n)
	zs = make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i], ys[i], zs[i] = m.Point(i)
	}
	return xs, ys, zs
}

// AddField attaches a named field, replacing any existing field of the same
// name (derived fields are recomputed per request).
func (m *Mesh) AddField(name string, components int, data []float64) error {
	if components != 1 && components != 3 {
		return fmt.Errorf("mesh: field %q: unsupported component count %d", name, components)
	}
	if want := m.PointCount() * components; len(data) != want {
		return fmt.Errorf("mesh: field %q: length %d, want %d", name, len(data), want)
	}
	if i, ok := m.index[name]; ok {
		m.fields[i] = Field{Name: name, Components: components, Data: data}
		return nil
	}
	m.index[name] = len(m.fields)
	m.fields = append(m.fields, Field{Name: name, Components: components, Data: data})
	return nil
}

// Field looks up a field by exact name.
func (m *Mesh) Field(name string) (Field, bool) {
	i, ok := m.index[name]
	if !ok {
		return Field{}, false
	}
	return m.fields[i], true
}

// FieldNames lists field names in load order.
func (m *Mesh) FieldNames() []string {
	names := make([]string, len(m.fields))
	for i, f := range m.fields {
		names[i] = f.Name
	}
	return names
}

// ScalarNames lists only single-component field names, the candidates for
// color mapping.
func (m *Mesh) ScalarNames() []string {
	var names []string
	for _, f := range m.fields {
		if f.Components == 1 {
			names = append(names, f.Name)
		}
	}
	return names
}

// Bounds returns the axis-aligned bounding box. Zero-point meshes return
// zero bounds.
func (m *Mesh) Bounds() (min, max [3]float64) {
	n := m.PointCount()
	if n == 0 {
		return min, max
	}
	min = [3]float64{m.points[0], m.points[1], m.points[2]}
	max = min
	for i := 1; i < n; i++ {
		x, y, z := m.Point(i)
		min[0] = math.Min(min[0], x)
		min[1] = math.Min(min[1], y)
		min[2] = math.Min(min[2], z)
		max[0] = math.Max(max[0], x)
		max[1] = math.Max(max[1], y)
		max[2] = math.Max(max[2], z)
	}
	return min, max
}

// Warp returns a new mesh with points displaced by (dx, dy, dz) scaled by
// factor. The original's fields are carried over so scalar coloring still
// applies to the deformed shape; the source mesh is left untouched.
func (m *Mesh) Warp(dx, dy, dz []float64, factor float64) (*Mesh, error) {
	n := m.PointCount()
	if len(dx) != n || len(dy) != n || len(dz) != n {
		return nil, errors.New("mesh: warp component length does not match point count")
	}
	warped := make([]float64, len(m.points))
	for i := 0; i < n; i++ {
		warped[3*i] = m.points[3*i] + factor*dx[i]
		warped[3*i+1] = m.points[3*i+1] + factor*dy[i]
		warped[3*i+2] = m.points[3*i+2] + factor*dz[i]
	}
	out := &Mesh{
		points: warped,
		fields: append([]Field(nil), m.fields...),
		index:  make(map[string]int, len(m.index)),
	}
	for k, v := range m.index {
		out.index[k] = v
	}
	return out, nil
}

// Magnitude computes per-point Euclidean magnitude of a vector field given
// as separate components.
func Magnitude(dx, dy, dz []float64) ([]float64, error) {
	if len(dx) != len(dy) || len(dy) != len(dz) {
		return nil, errors.New("mesh: magnitude component lengths differ")
	}
	out := make([]float64, len(dx))
	for i := range dx {
		out[i] = math.Sqrt(dx[i]*dx[i] + dy[i]*dy[i] + dz[i]*dz[i])
	}
	return out, nil
}
