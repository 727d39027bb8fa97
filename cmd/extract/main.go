// Extract pulls the displacement and stress arrays for one deltaT tag out
// of a VTU result file and writes the per-point displacement table as CSV.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fieldline-data/rom.report/internal/field"
	"github.com/fieldline-data/rom.report/internal/fsutil"
	"github.com/fieldline-data/rom.report/internal/vtu"
)

func main() {
	var (
		vtuPath = flag.String("vtu", "", "path to the VTU result file")
		tag     = flag.String("tag", "", "deltaT tag to extract (default: first discovered)")
		list    = flag.Bool("list", false, "list available deltaT tags and exit")
		outDir  = flag.String("out", "", "directory for the CSV export (empty: summary only)")
	)
	flag.Parse()

	if *vtuPath == "" {
		log.Fatal("VTU file is required (-vtu)")
	}

	fsys := fsutil.OSFileSystem{}
	m, err := vtu.ReadFile(fsys, *vtuPath)
	if err != nil {
		log.Fatalf("read %s: %v", *vtuPath, err)
	}

	tags := field.DiscoverTags(m)
	if len(tags) == 0 {
		log.Fatalf("%s carries no deltaT-tagged arrays", *vtuPath)
	}
	if *list {
		for _, t := range tags {
			fmt.Println(t)
		}
		return
	}

	selected := *tag
	if selected == "" {
		selected = tags[0]
	}
	ex := field.Extract(m, selected)
	if ex.Empty() {
		log.Fatalf("no component arrays for deltaT=%s (available: %s)", selected, strings.Join(tags, ", "))
	}

	fmt.Printf("%s: %d points, deltaT=%s\n", filepath.Base(*vtuPath), m.PointCount(), selected)
	for _, c := range field.Components {
		if name, ok := ex.Found[c]; ok {
			fmt.Printf("  %s: %s\n", c.Key(), name)
		}
	}

	if *outDir == "" {
		return
	}
	if !ex.HasDisplacement() {
		log.Fatalf("csv export needs all three displacement components, found %d array(s)", len(ex.Found))
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("create output directory: %v", err)
	}
	base := strings.TrimSuffix(filepath.Base(*vtuPath), filepath.Ext(*vtuPath))
	csvPath := filepath.Join(*outDir, field.CSVFileName(base, selected))
	f, err := os.Create(csvPath)
	if err != nil {
		log.Fatalf("create %s: %v", csvPath, err)
	}
	if err := field.ExportCSV(f, &ex); err != nil {
		f.Close()
		log.Fatalf("export: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("close %s: %v", csvPath, err)
	}
	fmt.Printf("wrote %s\n", csvPath)
}
