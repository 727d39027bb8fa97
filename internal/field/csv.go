package field

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// csvHeaders are the fixed localized column headers of the displacement
// export; downstream spreadsheets key on them.
var csvHeaders = []string{"X坐标", "Y坐标", "Z坐标", "X位移", "Y位移", "Z位移", "合位移"}

// CSVFileName builds the conventional export name for a mesh base name and
// tag, e.g. "plate_deltaT-50_displacement.csv".
func CSVFileName(base, tag string) string {
	return fmt.Sprintf("%s_deltaT%s_displacement.csv", base, tag)
}

// ExportCSV writes the per-point displacement table for an extraction: point
// coordinates, the three displacement components, and the combined magnitude.
// All three displacement axes must be present.
func ExportCSV(w io.Writer, ex *Extraction) error {
	if !ex.HasDisplacement() {
		return errors.New("field: csv export needs all three displacement components")
	}
	if ex.Mesh == nil {
		return errors.New("field: csv export needs the source mesh")
	}
	n := ex.Mesh.PointCount()
	if len(ex.X) != n || len(ex.Y) != n || len(ex.Z) != n {
		return fmt.Errorf("field: csv export: component length does not match %d points", n)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeaders); err != nil {
		return fmt.Errorf("field: csv header: %w", err)
	}
	record := make([]string, len(csvHeaders))
	for i := 0; i < n; i++ {
		x, y, z := ex.Mesh.Point(i)
		mag := math.Sqrt(ex.X[i]*ex.X[i] + ex.Y[i]*ex.Y[i] + ex.Z[i]*ex.Z[i])
		for j, v := range []float64{x, y, z, ex.X[i], ex.Y[i], ex.Z[i], mag} {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("field: csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
