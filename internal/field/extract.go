package field

import (
	"fmt"
	"strings"

	"github.com/fieldline-data/rom.report/internal/fsutil"
	"github.com/fieldline-data/rom.report/internal/mesh"
	"github.com/fieldline-data/rom.report/internal/monitoring"
	"github.com/fieldline-data/rom.report/internal/vtu"
)

// Extraction holds the per-component arrays matched for one parameter tag.
// Missing components are nil; Found records the array identifier that
// supplied each present component.
type Extraction struct {
	Tag    string
	X      []float64
	Y      []float64
	Z      []float64
	Stress []float64
	Mesh   *mesh.Mesh
	Found  map[Component]string
}

// Component returns the array extracted for slot c (nil when absent).
func (e *Extraction) Component(c Component) []float64 {
	switch c {
	case ComponentX:
		return e.X
	case ComponentY:
		return e.Y
	case ComponentZ:
		return e.Z
	case ComponentStress:
		return e.Stress
	}
	return nil
}

// HasDisplacement reports whether all three displacement axes are present.
func (e *Extraction) HasDisplacement() bool {
	return e.X != nil && e.Y != nil && e.Z != nil
}

// Empty reports whether no component matched at all.
func (e *Extraction) Empty() bool { return len(e.Found) == 0 }

// Extract scans m's scalar arrays for identifiers embedding both a component
// marker and the literal token "deltaT=<tag>". The English vocabulary is
// scanned first; if it matches no displacement axis the localized vocabulary
// overlays its matches onto the result, so a stress array found only under
// the English name survives the fallback.
func Extract(m *mesh.Mesh, tag string) Extraction {
	ex := Extraction{
		Tag:   tag,
		Mesh:  m,
		Found: make(map[Component]string),
	}

	scanMarkers(m, englishMarkers, tag, &ex)
	if !anyDisplacement(&ex) {
		scanMarkers(m, localizedMarkers, tag, &ex)
	}
	return ex
}

// containsTagToken reports whether name embeds "deltaT=<tag>" as a complete
// numeric token. Plain substring containment would let tag "5" claim a
// "deltaT=50" array, so the character after the tag must not extend the
// number.
func containsTagToken(name, tag string) bool {
	token := "deltaT=" + tag
	for start := 0; ; {
		i := strings.Index(name[start:], token)
		if i < 0 {
			return false
		}
		end := start + i + len(token)
		if end >= len(name) {
			return true
		}
		if c := name[end]; c != '.' && (c < '0' || c > '9') {
			return true
		}
		start += i + 1
	}
}

// ExtractFile reads the mesh at path and extracts the given tag. Unlike the
// in-memory form, file errors are returned (and logged) rather than folded
// into an empty extraction.
func ExtractFile(fsys fsutil.FileSystem, path, tag string) (Extraction, error) {
	m, err := vtu.ReadFile(fsys, path)
	if err != nil {
		monitoring.Logf("field: extract %s tag %s: %v", path, tag, err)
		return Extraction{}, fmt.Errorf("field: read mesh: %w", err)
	}
	return Extract(m, tag), nil
}

func scanMarkers(m *mesh.Mesh, set markerSet, tag string, ex *Extraction) {
	for _, name := range m.FieldNames() {
		if !containsTagToken(name, tag) {
			continue
		}
		f, ok := m.Field(name)
		if !ok || f.Components != 1 {
			continue
		}
		for _, c := range Components {
			if strings.Contains(name, set.markers[c]) {
				assign(ex, c, name, f.Data)
				break
			}
		}
	}
}

func assign(ex *Extraction, c Component, name string, data []float64) {
	switch c {
	case ComponentX:
		ex.X = data
	case ComponentY:
		ex.Y = data
	case ComponentZ:
		ex.Z = data
	case ComponentStress:
		ex.Stress = data
	}
	ex.Found[c] = name
}

func anyDisplacement(ex *Extraction) bool {
	return ex.X != nil || ex.Y != nil || ex.Z != nil
}
