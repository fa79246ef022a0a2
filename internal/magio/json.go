package magio

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/heliolab/solar-dipole-apps/internal/magnetogram"
)

// jsonContainer is the on-disk JSON shape. JSON has no NaN literal, so
// missing pixels are encoded as null and decoded through *float64.
type jsonContainer struct {
	Magnetogram [][]*float64 `json:"Magnetogram"`
	Date        string       `json:"Date,omitempty"`
	Instrument  string       `json:"Instrument,omitempty"`
}

func readJSON(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var jc jsonContainer
	if err := json.Unmarshal(data, &jc); err != nil {
		return nil, fmt.Errorf("malformed magnetogram container: %w", err)
	}
	if len(jc.Magnetogram) == 0 {
		return nil, fmt.Errorf("container has no Magnetogram entry")
	}

	nTheta := len(jc.Magnetogram)
	nPhi := len(jc.Magnetogram[0])
	grid, err := magnetogram.NewGrid(nTheta, nPhi)
	if err != nil {
		return nil, err
	}

	for i, row := range jc.Magnetogram {
		if len(row) != nPhi {
			return nil, fmt.Errorf("ragged Magnetogram: row %d has %d values, expected %d", i, len(row), nPhi)
		}
		for j, v := range row {
			if v == nil {
				grid.Data[i*nPhi+j] = math.NaN()
			} else {
				grid.Data[i*nPhi+j] = *v
			}
		}
	}

	return &Container{Field: grid, Date: jc.Date, Instrument: jc.Instrument}, nil
}

func writeJSON(path string, c *Container) error {
	g := c.Field
	rows := make([][]*float64, g.NTheta)
	for i := 0; i < g.NTheta; i++ {
		row := make([]*float64, g.NPhi)
		for j := 0; j < g.NPhi; j++ {
			v := g.Data[i*g.NPhi+j]
			if !math.IsNaN(v) {
				v := v
				row[j] = &v
			}
		}
		rows[i] = row
	}

	data, err := json.Marshal(jsonContainer{
		Magnetogram: rows,
		Date:        c.Date,
		Instrument:  c.Instrument,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
