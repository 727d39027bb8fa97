// Assemble discovers every deltaT tag in a VTU result file, stacks the
// per-tag fields into snapshot matrices, and saves them as NPY dumps for
// the reduction tooling.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/fieldline-data/rom.report/internal/field"
	"github.com/fieldline-data/rom.report/internal/fsutil"
)

func main() {
	var (
		vtuPath = flag.String("vtu", "", "path to the VTU result file")
		outDir  = flag.String("out", "data", "directory for the NPY dumps")
		start   = flag.Float64("start", -50, "parameter sweep start (with -sweep)")
		end     = flag.Float64("end", 90, "parameter sweep end, exclusive (with -sweep)")
		step    = flag.Float64("step", 20, "parameter sweep step (with -sweep)")
		sweep   = flag.Bool("sweep", false, "replace tag-derived parameters with the arithmetic sweep")
	)
	flag.Parse()

	if *vtuPath == "" {
		log.Fatal("VTU file is required (-vtu)")
	}

	fsys := fsutil.OSFileSystem{}
	ds, err := field.Assemble(fsys, *vtuPath)
	if err != nil {
		log.Fatalf("assemble %s: %v", *vtuPath, err)
	}

	if *sweep {
		params, err := field.ParamsFromRange(*start, *end, *step)
		if err != nil {
			log.Fatalf("parameter sweep: %v", err)
		}
		if err := ds.SetParams(params); err != nil {
			log.Fatalf("parameter sweep: %v", err)
		}
	}

	fmt.Printf("tags: %s\n", strings.Join(ds.Tags, ", "))
	fmt.Printf("points per snapshot: %d\n", ds.PointCount)
	for _, c := range ds.Available() {
		fmt.Printf("%s: %d snapshot(s)\n", c, ds.Set(c).Len())
	}

	files, err := ds.Save(fsys, *outDir)
	if err != nil {
		log.Fatalf("save dataset: %v", err)
	}
	for _, name := range files {
		fmt.Printf("wrote %s\n", name)
	}
}
