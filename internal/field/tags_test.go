package field

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiscoverTagsNumericOrder(t *testing.T) {
	m := newFieldMesh(t, map[string][]float64{
		"von_Mises_stress_@_deltaT=10":  {1, 1, 1},
		"von_Mises_stress_@_deltaT=-50": {2, 2, 2},
		"von_Mises_stress_@_deltaT=0":   {3, 3, 3},
	})

	got := DiscoverTags(m)
	want := []string{"-50", "0", "10"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DiscoverTags mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverTagsDeduplicates(t *testing.T) {
	m := newFieldMesh(t, map[string][]float64{
		"Displacement_field,_X-component_@_deltaT=30": {1, 1, 1},
		"Displacement_field,_Y-component_@_deltaT=30": {2, 2, 2},
		"von_Mises_stress_@_deltaT=30":                {3, 3, 3},
	})

	got := DiscoverTags(m)
	if len(got) != 1 || got[0] != "30" {
		t.Errorf("DiscoverTags = %v, want [30]", got)
	}
}

func TestDiscoverTagsDecimals(t *testing.T) {
	m := newFieldMesh(t, map[string][]float64{
		"a_@_deltaT=2.5":  {1, 1, 1},
		"b_@_deltaT=-2.5": {2, 2, 2},
		"c_@_deltaT=2":    {3, 3, 3},
	})

	got := DiscoverTags(m)
	want := []string{"-2.5", "2", "2.5"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DiscoverTags mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverTagsEmptyMesh(t *testing.T) {
	m := newFieldMesh(t, map[string][]float64{
		"temperature": {1, 2, 3},
	})
	if got := DiscoverTags(m); len(got) != 0 {
		t.Errorf("DiscoverTags = %v, want empty", got)
	}
}

func TestParamsFromTags(t *testing.T) {
	got, err := ParamsFromTags([]string{"-50", "0", "2.5"})
	if err != nil {
		t.Fatalf("ParamsFromTags: %v", err)
	}
	want := []float64{-50, 0, 2.5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestParamsFromRange(t *testing.T) {
	testCases := []struct {
		name             string
		start, end, step float64
		want             []float64
		wantErr          bool
	}{
		{
			name:  "default sweep",
			start: -50, end: 90, step: 20,
			want: []float64{-50, -30, -10, 10, 30, 50, 70},
		},
		{
			name:  "end excluded",
			start: 0, end: 60, step: 20,
			want: []float64{0, 20, 40},
		},
		{
			name:  "descending",
			start: 10, end: -10, step: -5,
			want: []float64{10, 5, 0, -5},
		},
		{
			name:  "empty when inverted",
			start: 10, end: 0, step: 5,
			want: nil,
		},
		{
			name:  "zero step",
			start: 0, end: 10, step: 0,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParamsFromRange(tc.start, tc.end, tc.step)
			if (err != nil) != tc.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tc.wantErr)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("range mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatTag(t *testing.T) {
	testCases := []struct {
		in   float64
		want string
	}{
		{-50, "-50"},
		{0, "0"},
		{2.5, "2.5"},
		{70, "70"},
	}
	for _, tc := range testCases {
		if got := FormatTag(tc.in); got != tc.want {
			t.Errorf("FormatTag(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
