package magio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"

	"github.com/heliolab/solar-dipole-apps/internal/magnetogram"
)

const csvReadBufferSize = 1024 * 1024 // 1MB read buffer

// readCSV parses a dense CSV grid: one line per latitude row, NPhi
// comma-separated values per line. Empty cells and "NaN" mark missing
// pixels. Files ending in .gz are decompressed with parallel gzip.
func readCSV(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReaderN(f, 256*1024, runtime.NumCPU())
		if err != nil {
			return nil, fmt.Errorf("malformed gzip container: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	cr := csv.NewReader(bufio.NewReaderSize(reader, csvReadBufferSize))
	cr.ReuseRecord = true

	var data []float64
	nPhi := 0
	nTheta := 0

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed magnetogram container: %w", err)
		}

		if nPhi == 0 {
			nPhi = len(record)
		} else if len(record) != nPhi {
			return nil, fmt.Errorf("ragged grid: row %d has %d values, expected %d", nTheta, len(record), nPhi)
		}

		for _, cell := range record {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				data = append(data, math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad value %q: %w", nTheta, cell, err)
			}
			data = append(data, v)
		}
		nTheta++
	}

	if nTheta == 0 {
		return nil, fmt.Errorf("container is empty")
	}

	grid, err := magnetogram.NewGridFrom(nTheta, nPhi, data)
	if err != nil {
		return nil, err
	}
	return &Container{Field: grid}, nil
}

// writeCSV serializes the grid as dense CSV, one latitude row per line,
// NaN spelled out for missing pixels. Files ending in .gz are
// gzip-compressed on the way out.
func writeCSV(path string, c *Container) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}

	bw := bufio.NewWriterSize(w, csvReadBufferSize)
	g := c.Field

	for i := 0; i < g.NTheta; i++ {
		for j := 0; j < g.NPhi; j++ {
			if j > 0 {
				bw.WriteByte(',')
			}
			v := g.Data[i*g.NPhi+j]
			if math.IsNaN(v) {
				bw.WriteString("NaN")
			} else {
				bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			}
		}
		bw.WriteByte('\n')
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	if gz != nil {
		return gz.Close()
	}
	return nil
}
