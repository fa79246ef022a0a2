// Package obstime handles observation timestamps for magnetogram
// pipelines: Julian-date conversion, flexible date parsing, filename
// date stamps, and CSV date lists.
package obstime

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// unixEpochJD is the Julian date of 1970-01-01T00:00:00 UTC.
const unixEpochJD = 2440587.5

const secondsPerDay = 86400.0

// JulianDate converts t to a Julian date.
func JulianDate(t time.Time) float64 {
	return unixEpochJD + float64(t.UnixNano())/1e9/secondsPerDay
}

// FromJulianDate converts a Julian date to UTC time, rounded to the
// nearest millisecond to absorb the float64 day-fraction error.
func FromJulianDate(jd float64) time.Time {
	sec := (jd - unixEpochJD) * secondsPerDay
	ns := int64(sec * 1e9)
	return time.Unix(0, ns).UTC().Round(time.Millisecond)
}

// dateLayouts are tried in order by ParseDate.
// Fractional seconds in the input are accepted by the seconds-bearing
// layouts without being spelled in them.
var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
}

// ParseDate accepts an observation date as an ISO datetime string (with
// or without fractional seconds), a plain date, a compact YYYYMMDD
// stamp, or a Julian date rendered as a decimal number. All results are
// UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	// Julian dates are ~2.4 million for the modern era, so a bare
	// number that large cannot be confused with a calendar form.
	if jd, err := strconv.ParseFloat(s, 64); err == nil && jd > 1e6 {
		return FromJulianDate(jd), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// FromFilename extracts a YYYYMMDD observation stamp from a magnetogram
// filename, e.g. mrzqs_20220919.csv.gz -> 2022-09-19. The first 8-digit
// run that parses as a plausible date wins.
func FromFilename(path string) (time.Time, bool) {
	name := filepath.Base(path)

	for i := 0; i+8 <= len(name); i++ {
		if !isDigit(name[i]) {
			continue
		}
		j := i
		for j < len(name) && isDigit(name[j]) {
			j++
		}
		if j-i == 8 {
			if t, err := time.ParseInLocation("20060102", name[i:j], time.UTC); err == nil {
				if y := t.Year(); y >= 1900 && y <= 2100 {
					return t, true
				}
			}
		}
		i = j
	}
	return time.Time{}, false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ReadDateList reads a CSV file of observation dates (one or more per
// record, any form ParseDate accepts). Blank cells and comment lines
// starting with # are skipped; a cell that is present but unparseable
// is an error.
func ReadDateList(path string) ([]time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed date list: %w", err)
	}

	var dates []time.Time
	for _, record := range records {
		for _, cell := range record {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			t, err := ParseDate(cell)
			if err != nil {
				return nil, fmt.Errorf("date list %s: %w", filepath.Base(path), err)
			}
			dates = append(dates, t)
		}
	}
	return dates, nil
}
