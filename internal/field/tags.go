package field

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/fieldline-data/rom.report/internal/mesh"
)

// tagPattern matches the parameter token embedded in array names. One
// pattern covers both integer and decimal tags so that "deltaT=2.5" is
// captured whole, never truncated to "2".
var tagPattern = regexp.MustCompile(`deltaT=(-?\d+(?:\.\d+)?)`)

// DiscoverTags returns the distinct parameter tags appearing in m's array
// names, sorted ascending by numeric value. Numeric ordering matters because
// tags are signed: lexical order would put "-50" after "10".
func DiscoverTags(m *mesh.Mesh) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, name := range m.FieldNames() {
		for _, match := range tagPattern.FindAllStringSubmatch(name, -1) {
			if !seen[match[1]] {
				seen[match[1]] = true
				tags = append(tags, match[1])
			}
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		vi, _ := strconv.ParseFloat(tags[i], 64)
		vj, _ := strconv.ParseFloat(tags[j], 64)
		return vi < vj
	})
	return tags
}

// ParamsFromTags parses tag strings into parameter values, preserving order.
func ParamsFromTags(tags []string) ([]float64, error) {
	out := make([]float64, len(tags))
	for i, tag := range tags {
		v, err := strconv.ParseFloat(tag, 64)
		if err != nil {
			return nil, fmt.Errorf("field: tag %q is not numeric: %w", tag, err)
		}
		out[i] = v
	}
	return out, nil
}

// ParamsFromRange generates the half-open arithmetic sweep [start, end) with
// the given step, matching the numpy.arange semantics the analysis scripts
// used for their default -50..90 step 20 sweep.
func ParamsFromRange(start, end, step float64) ([]float64, error) {
	if step == 0 {
		return nil, fmt.Errorf("field: zero step in parameter range")
	}
	count := int(math.Ceil((end - start) / step))
	if count <= 0 {
		return nil, nil
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out, nil
}

// FormatTag renders a parameter value the way tags are written into array
// names: no exponent, no trailing zeros.
func FormatTag(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
