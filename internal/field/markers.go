// Package field extracts displacement and stress fields from mesh point-data
// arrays, discovers the deltaT parameter tags embedded in array names, and
// assembles per-tag fields into snapshot datasets.
//
// Array names follow the convention produced by the source simulations:
//
//	<component marker> ... _@_deltaT=<signed integer or decimal>
//
// e.g. "Displacement_field,_X-component_@_deltaT=-50". Two marker
// vocabularies exist: the English phrases written by current exports and a
// localized (Chinese) vocabulary from older exports. The English vocabulary
// is tried first; when it matches no displacement axis the localized pass
// overlays whatever it finds.
package field

import (
	"fmt"
	"strings"
)

// Component identifies one of the four extractable field slots.
type Component int

const (
	ComponentX Component = iota
	ComponentY
	ComponentZ
	ComponentStress
)

// Components lists the slots in display order.
var Components = [4]Component{ComponentX, ComponentY, ComponentZ, ComponentStress}

// Key returns the short identifier used in found-component records and UI
// labels: "X", "Y", "Z", "S".
func (c Component) Key() string {
	switch c {
	case ComponentX:
		return "X"
	case ComponentY:
		return "Y"
	case ComponentZ:
		return "Z"
	case ComponentStress:
		return "S"
	}
	return "?"
}

func (c Component) String() string {
	switch c {
	case ComponentX:
		return "X displacement"
	case ComponentY:
		return "Y displacement"
	case ComponentZ:
		return "Z displacement"
	case ComponentStress:
		return "von Mises stress"
	}
	return "unknown"
}

// ParseComponent maps a short key back to its component, accepting either
// case.
func ParseComponent(s string) (Component, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return ComponentX, nil
	case "Y":
		return ComponentY, nil
	case "Z":
		return ComponentZ, nil
	case "S", "STRESS":
		return ComponentStress, nil
	}
	return ComponentX, fmt.Errorf("field: unknown component %q", s)
}

// markerSet is one naming vocabulary: the substring that identifies each
// component inside an array name.
type markerSet struct {
	name    string
	markers map[Component]string
}

var englishMarkers = markerSet{
	name: "english",
	markers: map[Component]string{
		ComponentX:      "Displacement_field,_X-component",
		ComponentY:      "Displacement_field,_Y-component",
		ComponentZ:      "Displacement_field,_Z-component",
		ComponentStress: "von_Mises_stress",
	},
}

var localizedMarkers = markerSet{
	name: "localized",
	markers: map[Component]string{
		ComponentX:      "X_分量",
		ComponentY:      "Y_分量",
		ComponentZ:      "Z_分量",
		ComponentStress: "S_分量",
	},
}
