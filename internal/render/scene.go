package render

import (
	"fmt"

	"github.com/fieldline-data/rom.report/internal/mesh"
	"github.com/fieldline-data/rom.report/internal/metrics"
)

// FieldScene builds a scene from a mesh colored by one of its scalar
// fields. Pass an empty name for an uncolored point cloud.
func FieldScene(m *mesh.Mesh, fieldName string) (*Scene, error) {
	if m == nil || m.PointCount() == 0 {
		return nil, fmt.Errorf("render: scene needs a non-empty mesh")
	}
	xs, ys, zs := m.Coords()
	scene := &Scene{Title: "Field view", X: xs, Y: ys, Z: zs}
	if fieldName == "" {
		return scene, nil
	}
	f, ok := m.Field(fieldName)
	if !ok {
		return nil, fmt.Errorf("render: mesh has no field %q", fieldName)
	}
	if f.Components != 1 {
		return nil, fmt.Errorf("render: field %q has %d components, scene coloring needs a scalar", fieldName, f.Components)
	}
	scene.Title = fieldName
	scene.Scalar = f.Data
	scene.ScalarName = fieldName
	return scene, nil
}

// DeformationScene warps the mesh by the displacement components scaled by
// factor and colors the result by displacement magnitude. With overlay set,
// the undeformed positions ride along as a faint reference cloud.
func DeformationScene(m *mesh.Mesh, dx, dy, dz []float64, factor float64, overlay bool) (*Scene, error) {
	if m == nil || m.PointCount() == 0 {
		return nil, fmt.Errorf("render: scene needs a non-empty mesh")
	}
	warped, err := m.Warp(dx, dy, dz, factor)
	if err != nil {
		return nil, fmt.Errorf("render: deformation scene: %w", err)
	}
	mag, err := mesh.Magnitude(dx, dy, dz)
	if err != nil {
		return nil, fmt.Errorf("render: deformation scene: %w", err)
	}

	xs, ys, zs := warped.Coords()
	scene := &Scene{
		Title:      fmt.Sprintf("Deformation (x%g)", factor),
		X:          xs,
		Y:          ys,
		Z:          zs,
		Scalar:     mag,
		ScalarName: "displacement magnitude",
	}
	if overlay {
		n := m.PointCount()
		scene.Undeformed = make([][3]float64, n)
		for i := 0; i < n; i++ {
			x, y, z := m.Point(i)
			scene.Undeformed[i] = [3]float64{x, y, z}
		}
	}
	return scene, nil
}

// ThresholdScene partitions the mesh points by an error threshold and
// colors the two classes. The cutoff semantics live in metrics.Threshold;
// this only applies the resulting mask.
func ThresholdScene(m *mesh.Mesh, errs []float64, t metrics.Threshold) (*Scene, error) {
	if m == nil || m.PointCount() == 0 {
		return nil, fmt.Errorf("render: scene needs a non-empty mesh")
	}
	if len(errs) != m.PointCount() {
		return nil, fmt.Errorf("render: %d error values for %d points", len(errs), m.PointCount())
	}
	cutoff, err := t.Cutoff(errs)
	if err != nil {
		return nil, fmt.Errorf("render: threshold scene: %w", err)
	}
	above, _ := metrics.Mask(errs, cutoff)

	xs, ys, zs := m.Coords()
	return &Scene{
		Title:   fmt.Sprintf("Error threshold (cutoff %.4g)", cutoff),
		X:       xs,
		Y:       ys,
		Z:       zs,
		Classes: &ClassSplit{Above: above},
	}, nil
}
