package mesh

import (
	"math"
	"testing"
)

func testMesh(t *testing.T) *Mesh {
	t.Helper()
	m, err := New([]float64{
		0, 0, 0,
		1, 0, 0,
		0, 2, 0,
		0, 0, 3,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestNewRejectsRaggedPoints(t *testing.T) {
	if _, err := New([]float64{1, 2, 3, 4}); err == nil {
		t.Error("expected error for point array not divisible by 3")
	}
}

func TestAddField(t *testing.T) {
	testCases := []struct {
		name       string
		field      string
		components int
		length     int
		wantErr    bool
	}{
		{name: "scalar ok", field: "stress", components: 1, length: 4},
		{name: "vector ok", field: "disp", components: 3, length: 12},
		{name: "short scalar", field: "bad", components: 1, length: 3, wantErr: true},
		{name: "bad components", field: "bad2", components: 2, length: 8, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := testMesh(t)
			err := m.AddField(tc.field, tc.components, make([]float64, tc.length))
			if (err != nil) != tc.wantErr {
				t.Errorf("AddField error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestAddFieldReplacesInPlace(t *testing.T) {
	m := testMesh(t)
	if err := m.AddField("err", 1, []float64{1, 1, 1, 1}); err != nil {
		t.Fatalf("AddField: %v", err)
	}
	if err := m.AddField("err", 1, []float64{2, 2, 2, 2}); err != nil {
		t.Fatalf("AddField replace: %v", err)
	}
	f, ok := m.Field("err")
	if !ok || f.Data[0] != 2 {
		t.Errorf("field not replaced: %+v", f)
	}
	if got := len(m.FieldNames()); got != 1 {
		t.Errorf("field count = %d, want 1", got)
	}
}

func TestFieldOrderStable(t *testing.T) {
	m := testMesh(t)
	for _, name := range []string{"c", "a", "b"} {
		if err := m.AddField(name, 1, make([]float64, 4)); err != nil {
			t.Fatalf("AddField %s: %v", name, err)
		}
	}
	got := m.FieldNames()
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FieldNames = %v, want %v", got, want)
		}
	}
}

func TestScalarNamesSkipsVectors(t *testing.T) {
	m := testMesh(t)
	_ = m.AddField("mag", 1, make([]float64, 4))
	_ = m.AddField("disp", 3, make([]float64, 12))
	names := m.ScalarNames()
	if len(names) != 1 || names[0] != "mag" {
		t.Errorf("ScalarNames = %v, want [mag]", names)
	}
}

func TestBounds(t *testing.T) {
	m := testMesh(t)
	min, max := m.Bounds()
	if min != [3]float64{0, 0, 0} {
		t.Errorf("min = %v", min)
	}
	if max != [3]float64{1, 2, 3} {
		t.Errorf("max = %v", max)
	}
}

func TestWarp(t *testing.T) {
	m := testMesh(t)
	dx := []float64{1, 0, 0, 0}
	dy := []float64{0, 1, 0, 0}
	dz := []float64{0, 0, 0, 1}

	w, err := m.Warp(dx, dy, dz, 10)
	if err != nil {
		t.Fatalf("Warp: %v", err)
	}

	if x, _, _ := w.Point(0); x != 10 {
		t.Errorf("warped x = %v, want 10", x)
	}
	if _, y, _ := w.Point(1); y != 10 {
		t.Errorf("warped y = %v, want 10", y)
	}
	if _, _, z := w.Point(3); z != 13 {
		t.Errorf("warped z = %v, want 13", z)
	}
	// Source untouched.
	if x, _, _ := m.Point(0); x != 0 {
		t.Errorf("source mutated: x = %v", x)
	}
}

func TestWarpLengthMismatch(t *testing.T) {
	m := testMesh(t)
	if _, err := m.Warp([]float64{1}, []float64{1}, []float64{1}, 1); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestMagnitude(t *testing.T) {
	got, err := Magnitude([]float64{3, 0}, []float64{4, 0}, []float64{0, 2})
	if err != nil {
		t.Fatalf("Magnitude: %v", err)
	}
	if got[0] != 5 {
		t.Errorf("magnitude[0] = %v, want 5", got[0])
	}
	if got[1] != 2 {
		t.Errorf("magnitude[1] = %v, want 2", got[1])
	}
}

func TestMagnitudeMismatch(t *testing.T) {
	if _, err := Magnitude([]float64{1}, []float64{1, 2}, []float64{1}); err == nil {
		t.Error("expected component length error")
	}
}

func TestCoords(t *testing.T) {
	m := testMesh(t)
	xs, ys, zs := m.Coords()
	if xs[1] != 1 || ys[2] != 2 || zs[3] != 3 {
		t.Errorf("Coords = %v %v %v", xs, ys, zs)
	}
	xs[0] = math.NaN() // copies; source must not change
	if x, _, _ := m.Point(0); x != 0 {
		t.Errorf("Coords returned aliased storage")
	}
}
