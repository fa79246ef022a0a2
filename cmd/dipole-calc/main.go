// dipole-calc - Solar dipole moment calculator
//
// Computes the magnetic dipole vector (axial strength D_ax and the two
// transverse components H1/H2) from full-disk radial-field magnetograms.
//
// Supported magnetogram containers:
//   - JSON object with a "Magnetogram" 2D array (null = missing pixel)
//   - CSV grid (.csv, .csv.gz)
//   - Parquet pixel table (.parquet)
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/dipole-calc ./cmd/dipole-calc
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/heliolab/solar-dipole-apps/internal/magio"
	"github.com/heliolab/solar-dipole-apps/internal/magnetogram"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

// Result is the machine-readable output for one magnetogram.
type Result struct {
	File        string  `json:"file"`
	Date        string  `json:"date,omitempty"`
	Instrument  string  `json:"instrument,omitempty"`
	DAx         float64 `json:"d_ax"`
	H1          float64 `json:"h1"`
	H2          float64 `json:"h2"`
	Horizontal  float64 `json:"horizontal"`
	Unit        string  `json:"unit,omitempty"`
	Weighted    bool    `json:"weighted"`
	ValidPixels int     `json:"valid_pixels"`
	TotalPixels int     `json:"total_pixels"`
}

func compute(path string, weighted bool) (*Result, error) {
	c, err := magio.Read(path)
	if err != nil {
		return nil, err
	}

	theta, phi, err := magnetogram.AngleGrids(c.Field.NTheta, c.Field.NPhi)
	if err != nil {
		return nil, err
	}

	var v magnetogram.Vector
	if weighted {
		v, err = magnetogram.DipoleWeighted(c.Field, theta, phi)
	} else {
		v, err = magnetogram.Dipole(c.Field, theta, phi)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		File:        filepath.Base(path),
		Date:        c.Date,
		Instrument:  c.Instrument,
		DAx:         v.DAx,
		H1:          v.H1,
		H2:          v.H2,
		Horizontal:  v.Strength(),
		Weighted:    weighted,
		ValidPixels: v.ValidPixels,
		TotalPixels: v.TotalPixels,
	}, nil
}

func main() {
	weighted := flag.Bool("weighted", false, "Apply the 3/(4pi) prefactor and solid-angle element (physical moments)")
	unit := flag.String("unit", "", "Display unit tag for the outputs (e.g. G)")
	jsonOut := flag.Bool("json", false, "Emit results as JSON lines on stdout")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "dipole-calc v%s - Solar Dipole Moment Calculator\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] <magnetogram> [magnetogram...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Computes D_ax, H1 and H2 from full-disk radial-field magnetograms.\n\n")
		fmt.Fprintf(os.Stderr, "Supported containers:\n")
		fmt.Fprintf(os.Stderr, "  - JSON mapping with a \"Magnetogram\" entry\n")
		fmt.Fprintf(os.Stderr, "  - CSV grid (.csv, .csv.gz)\n")
		fmt.Fprintf(os.Stderr, "  - Parquet pixel table (.parquet)\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if len(flag.Args()) < 1 {
		fmt.Fprintf(os.Stderr, "Error: missing <magnetogram> argument\n")
		flag.Usage()
		os.Exit(1)
	}

	if !*jsonOut {
		log.Println("=========================================================")
		log.Printf("Dipole Calculator v%s", Version)
		log.Println("=========================================================")
	}

	enc := json.NewEncoder(os.Stdout)
	failures := 0

	for _, path := range flag.Args() {
		res, err := compute(path, *weighted)
		if err != nil {
			log.Printf("[%s] Error: %v", filepath.Base(path), err)
			failures++
			continue
		}
		res.Unit = *unit

		if *jsonOut {
			if err := enc.Encode(res); err != nil {
				log.Fatalf("JSON encode error: %v", err)
			}
			continue
		}

		suffix := ""
		if *unit != "" {
			suffix = " " + *unit
		}
		log.Printf("[%s] Pixels: %d/%d valid", res.File, res.ValidPixels, res.TotalPixels)
		log.Printf("  D_ax = %+.6e%s", res.DAx, suffix)
		log.Printf("  H1   = %+.6e%s", res.H1, suffix)
		log.Printf("  H2   = %+.6e%s", res.H2, suffix)
		log.Printf("  |H|  = %.6e%s", res.Horizontal, suffix)
	}

	if failures > 0 {
		os.Exit(1)
	}
}
