// Package magio reads and writes magnetogram containers. Three formats
// are supported:
//
//   - JSON object with a "Magnetogram" 2D array (null = missing pixel)
//     and optional Date/Instrument metadata
//   - dense CSV grid, optionally gzip-compressed (.csv, .csv.gz)
//   - Parquet pixel table (.parquet)
//
// All three round-trip missing pixels exactly: a pixel that is NaN on
// write is NaN on read.
package magio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/heliolab/solar-dipole-apps/internal/magnetogram"
)

// Format identifies a magnetogram container format.
type Format string

const (
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatUnknown Format = "unknown"
)

// Container is a deserialized magnetogram with its optional metadata.
// Date, when present, is the observation timestamp in ISO form.
type Container struct {
	Field      *magnetogram.Grid
	Date       string
	Instrument string
}

var parquetMagic = []byte("PAR1")

// DetectFormat determines the container format from the file extension,
// falling back to a content sniff for unrecognized extensions.
func DetectFormat(path string) Format {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(base, ".json"):
		return FormatJSON
	case strings.HasSuffix(base, ".csv"), strings.HasSuffix(base, ".csv.gz"):
		return FormatCSV
	case strings.HasSuffix(base, ".parquet"):
		return FormatParquet
	}

	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown
	}
	defer f.Close()

	head := make([]byte, 4)
	n, _ := f.Read(head)
	head = head[:n]
	switch {
	case bytes.HasPrefix(head, parquetMagic):
		return FormatParquet
	case len(head) > 0 && (head[0] == '{' || head[0] == '['):
		return FormatJSON
	}
	return FormatUnknown
}

// Read deserializes the magnetogram container at path, detecting the
// format from the filename.
func Read(path string) (*Container, error) {
	switch DetectFormat(path) {
	case FormatJSON:
		return readJSON(path)
	case FormatCSV:
		return readCSV(path)
	case FormatParquet:
		return readParquet(path)
	}
	return nil, fmt.Errorf("cannot determine magnetogram format of %s", filepath.Base(path))
}

// Write serializes the container to path, choosing the format from the
// filename extension.
func Write(path string, c *Container) error {
	switch DetectFormat(path) {
	case FormatJSON:
		return writeJSON(path, c)
	case FormatCSV:
		return writeCSV(path, c)
	case FormatParquet:
		return writeParquet(path, c)
	}
	return fmt.Errorf("cannot determine magnetogram format of %s", filepath.Base(path))
}
