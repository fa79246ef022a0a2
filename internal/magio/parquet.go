package magio

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/heliolab/solar-dipole-apps/internal/magnetogram"
)

// Pixel is one magnetogram sample in the parquet container. The grid
// dimensions ride along on every row so a reader never needs external
// metadata; rows absent from the table read back as missing pixels.
type Pixel struct {
	NTheta     int32   `parquet:"n_theta"`
	NPhi       int32   `parquet:"n_phi"`
	ThetaIdx   int32   `parquet:"theta_idx"`
	PhiIdx     int32   `parquet:"phi_idx"`
	Br         float64 `parquet:"b_r"`
	Date       string  `parquet:"date"`
	Instrument string  `parquet:"instrument"`
}

func readParquet(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("malformed magnetogram container: %w", err)
	}

	reader := parquet.NewGenericReader[Pixel](pf)
	defer reader.Close()

	var c *Container
	var grid *magnetogram.Grid
	pixels := make([]Pixel, 1000)

	for {
		n, err := reader.Read(pixels)

		for i := 0; i < n; i++ {
			px := pixels[i]
			if grid == nil {
				var gerr error
				grid, gerr = magnetogram.NewGrid(int(px.NTheta), int(px.NPhi))
				if gerr != nil {
					return nil, fmt.Errorf("container declares invalid shape: %w", gerr)
				}
				for k := range grid.Data {
					grid.Data[k] = math.NaN()
				}
				c = &Container{Field: grid, Date: px.Date, Instrument: px.Instrument}
			}
			if int(px.NTheta) != grid.NTheta || int(px.NPhi) != grid.NPhi {
				return nil, fmt.Errorf("inconsistent shape in pixel table: (%d, %d) vs (%d, %d)",
					px.NTheta, px.NPhi, grid.NTheta, grid.NPhi)
			}
			if err := grid.Set(int(px.ThetaIdx), int(px.PhiIdx), px.Br); err != nil {
				return nil, fmt.Errorf("pixel out of declared shape: %w", err)
			}
		}

		// A corrupt data page must fail the whole read; returning the
		// partially-filled grid would pass truncation off as missing
		// pixels.
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed magnetogram container: %w", err)
		}
		if n == 0 {
			break
		}
	}

	if c == nil {
		return nil, fmt.Errorf("container has no pixels")
	}
	return c, nil
}

func writeParquet(path string, c *Container) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := parquet.NewGenericWriter[Pixel](f)
	g := c.Field

	buf := make([]Pixel, 0, g.NPhi)
	for i := 0; i < g.NTheta; i++ {
		buf = buf[:0]
		for j := 0; j < g.NPhi; j++ {
			buf = append(buf, Pixel{
				NTheta:     int32(g.NTheta),
				NPhi:       int32(g.NPhi),
				ThetaIdx:   int32(i),
				PhiIdx:     int32(j),
				Br:         g.Data[i*g.NPhi+j],
				Date:       c.Date,
				Instrument: c.Instrument,
			})
		}
		if _, err := writer.Write(buf); err != nil {
			return err
		}
	}

	return writer.Close()
}
