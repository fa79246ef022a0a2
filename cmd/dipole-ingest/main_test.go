package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliolab/solar-dipole-apps/internal/magnetogram"
)

func TestFlushIfFull_DryRunResetsAtThreshold(t *testing.T) {
	batch := NewDipoleBatch()
	ts := time.Date(2022, 9, 19, 0, 0, 0, 0, time.UTC)
	v := magnetogram.Vector{DAx: 1, H1: 2, H2: 3, ValidPixels: 10, TotalPixels: 12}

	// Below the threshold nothing happens, in dry-run or not.
	batch.AddRecord(ts, v, false, "mag_20220919.csv")
	n, err := flushIfFull(context.Background(), nil, "helio.dipole_raw", batch, true)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, batch.Len())

	// At the threshold a dry run drops the batch instead of letting it
	// grow across a long directory walk.
	for batch.Len() < batchLimit {
		batch.AddRecord(ts, v, false, "mag_20220919.csv")
	}
	n, err = flushIfFull(context.Background(), nil, "helio.dipole_raw", batch, true)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, batch.Len())
}

func TestDipoleBatch_AddAndReset(t *testing.T) {
	batch := NewDipoleBatch()
	ts := time.Date(2022, 9, 19, 6, 0, 0, 0, time.UTC)

	batch.AddRecord(ts, magnetogram.Vector{DAx: -0.5, ValidPixels: 7, TotalPixels: 9}, true, "mag.parquet")
	batch.AddRecord(ts, magnetogram.Vector{H1: 1.5}, false, "mag.csv")
	require.Equal(t, 2, batch.Len())

	input := batch.Input()
	require.Len(t, input, 9)
	assert.Equal(t, "d_ax", input[2].Name)
	assert.Equal(t, "source_file", input[8].Name)

	batch.Reset()
	assert.Equal(t, 0, batch.Len())
}
