package magio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliolab/solar-dipole-apps/internal/magnetogram"
)

// sampleContainer builds a small grid with a couple of missing pixels.
func sampleContainer(t *testing.T) *Container {
	t.Helper()
	g, err := magnetogram.NewGrid(3, 4)
	require.NoError(t, err)
	for i := range g.Data {
		g.Data[i] = float64(i) - 5.5
	}
	g.Data[1] = math.NaN()
	g.Data[10] = math.NaN()
	return &Container{Field: g, Date: "2022-09-19T12:00:00", Instrument: "GONG"}
}

func assertSameField(t *testing.T, want, got *magnetogram.Grid) {
	t.Helper()
	require.Equal(t, want.NTheta, got.NTheta)
	require.Equal(t, want.NPhi, got.NPhi)
	for i := range want.Data {
		if math.IsNaN(want.Data[i]) {
			assert.True(t, math.IsNaN(got.Data[i]), "pixel %d should be missing", i)
		} else {
			assert.Equal(t, want.Data[i], got.Data[i], "pixel %d", i)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	c := sampleContainer(t)
	path := filepath.Join(t.TempDir(), "mag_20220919.json")

	require.NoError(t, Write(path, c))
	got, err := Read(path)
	require.NoError(t, err)

	assertSameField(t, c.Field, got.Field)
	assert.Equal(t, c.Date, got.Date)
	assert.Equal(t, c.Instrument, got.Instrument)
}

func TestCSVRoundTrip(t *testing.T) {
	c := sampleContainer(t)
	path := filepath.Join(t.TempDir(), "mag_20220919.csv")

	require.NoError(t, Write(path, c))
	got, err := Read(path)
	require.NoError(t, err)
	assertSameField(t, c.Field, got.Field)
}

func TestCSVGzipRoundTrip(t *testing.T) {
	c := sampleContainer(t)
	path := filepath.Join(t.TempDir(), "mag_20220919.csv.gz")

	require.NoError(t, Write(path, c))
	got, err := Read(path)
	require.NoError(t, err)
	assertSameField(t, c.Field, got.Field)
}

func TestParquetRoundTrip(t *testing.T) {
	c := sampleContainer(t)
	path := filepath.Join(t.TempDir(), "mag_20220919.parquet")

	require.NoError(t, Write(path, c))
	got, err := Read(path)
	require.NoError(t, err)

	assertSameField(t, c.Field, got.Field)
	assert.Equal(t, c.Date, got.Date)
	assert.Equal(t, c.Instrument, got.Instrument)
}

func TestCSVEmptyCellIsMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mag.csv")
	require.NoError(t, os.WriteFile(path, []byte("1,,3\n4,NaN,6\n"), 0644))

	got, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, 2, got.Field.NTheta)
	require.Equal(t, 3, got.Field.NPhi)
	assert.True(t, math.IsNaN(got.Field.Data[1]))
	assert.True(t, math.IsNaN(got.Field.Data[4]))
	assert.Equal(t, 6.0, got.Field.Data[5])
}

func TestCSVRaggedGridFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mag.csv")
	require.NoError(t, os.WriteFile(path, []byte("1,2,3\n4,5\n"), 0644))

	_, err := Read(path)
	require.Error(t, err)
}

func TestJSONMissingMagnetogramEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mag.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Date":"2022-09-19"}`), 0644))

	_, err := Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Magnetogram")
}

func TestJSONMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mag.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Magnetogram": [[1,`), 0644))

	_, err := Read(path)
	require.Error(t, err)
}

func TestParquetCorruptDataPageFails(t *testing.T) {
	// A grid large enough that flipping bytes deep in the file lands in
	// a data page while the footer stays intact.
	g, err := magnetogram.NewGrid(500, 400)
	require.NoError(t, err)
	for i := range g.Data {
		g.Data[i] = float64(i%1000) - 500
	}
	path := filepath.Join(t.TempDir(), "mag_20220919.parquet")
	require.NoError(t, Write(path, &Container{Field: g}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	off := len(data) * 9 / 10
	for i := off; i < off+256 && i < len(data); i++ {
		data[i] ^= 0xFF
	}
	require.NoError(t, os.WriteFile(path, data, 0644))

	// A truncated read must surface as a deserialization error, never
	// as a grid full of "missing" pixels.
	_, err = Read(path)
	require.Error(t, err)
}

func TestParquetPixelOutOfDeclaredShapeFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mag.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := parquet.NewGenericWriter[Pixel](f)
	_, err = w.Write([]Pixel{
		{NTheta: 2, NPhi: 2, ThetaIdx: 0, PhiIdx: 0, Br: 1},
		{NTheta: 2, NPhi: 2, ThetaIdx: 5, PhiIdx: 0, Br: 2},
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	_, err = Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared shape")
}

func TestParquetInconsistentShapeFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mag.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := parquet.NewGenericWriter[Pixel](f)
	_, err = w.Write([]Pixel{
		{NTheta: 2, NPhi: 2, ThetaIdx: 0, PhiIdx: 0, Br: 1},
		{NTheta: 3, NPhi: 2, ThetaIdx: 1, PhiIdx: 0, Br: 2},
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	_, err = Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inconsistent shape")
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, DetectFormat("/data/mrzqs_20220919.json"))
	assert.Equal(t, FormatCSV, DetectFormat("/data/mrzqs_20220919.csv"))
	assert.Equal(t, FormatCSV, DetectFormat("/data/mrzqs_20220919.csv.gz"))
	assert.Equal(t, FormatParquet, DetectFormat("/data/mrzqs_20220919.parquet"))
	assert.Equal(t, FormatUnknown, DetectFormat("/data/nonexistent.bin"))
}

func TestDetectFormat_ContentSniff(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "magnetogram.dat")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"Magnetogram": [[1]]}`), 0644))
	assert.Equal(t, FormatJSON, DetectFormat(jsonPath))

	parquetPath := filepath.Join(dir, "magnetogram.bin")
	require.NoError(t, os.WriteFile(parquetPath, []byte("PAR1xxxx"), 0644))
	assert.Equal(t, FormatParquet, DetectFormat(parquetPath))
}
