// dipole-series - Query the stored dipole time series from ClickHouse
//
// Reads the dipole vector series over a date range and prints it as CSV
// on stdout, optionally exporting a Parquet file for downstream
// analysis.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/dipole-series ./cmd/dipole-series
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/parquet-go/parquet-go"

	"github.com/heliolab/solar-dipole-apps/internal/common"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

// DipoleRow is one observation of the stored series. The parquet tags
// define the export schema.
type DipoleRow struct {
	Timestamp   int64   `parquet:"timestamp"`
	DAx         float64 `parquet:"d_ax"`
	H1          float64 `parquet:"h1"`
	H2          float64 `parquet:"h2"`
	ValidPixels uint32  `parquet:"valid_pixels"`
	TotalPixels uint32  `parquet:"total_pixels"`
	Weighted    uint8   `parquet:"weighted"`
	SourceFile  string  `parquet:"source_file"`
}

func writeParquet(path string, rows []DipoleRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := parquet.NewGenericWriter[DipoleRow](f)
	if _, err := writer.Write(rows); err != nil {
		return err
	}
	return writer.Close()
}

func main() {
	cfg := common.DefaultConfig()

	chHost := flag.String("ch-host", cfg.ClickHouseHost+":9000", "ClickHouse native protocol address")
	chDB := flag.String("ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	chTable := flag.String("ch-table", "dipole_raw", "ClickHouse table")
	startStr := flag.String("start", "1976-01-01", "Start date (YYYY-MM-DD)")
	endStr := flag.String("end", "", "End date (default: today)")
	parquetOut := flag.String("parquet-out", "", "Also export the series to this Parquet file")
	weightedOnly := flag.Bool("weighted", false, "Select only weighted (physical-moment) records")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "dipole-series v%s - Dipole Time Series Export\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Prints the stored dipole series as CSV on stdout.\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -start 2022-01-01 -end 2022-12-31\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -weighted -parquet-out dipole_2022.parquet\n", os.Args[0])
	}
	flag.Parse()

	log.Println("=========================================================")
	log.Printf("Dipole Series v%s", Version)
	log.Println("=========================================================")

	startDate, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		log.Fatalf("Invalid start date: %v", err)
	}
	endDate := time.Now().UTC().Truncate(24 * time.Hour)
	if *endStr != "" {
		endDate, err = time.Parse("2006-01-02", *endStr)
		if err != nil {
			log.Fatalf("Invalid end date: %v", err)
		}
	}
	log.Printf("Date range: %s to %s", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))

	ctx := context.Background()

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{*chHost},
		Auth: clickhouse.Auth{
			Database: *chDB,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		log.Fatalf("ClickHouse connection failed: %v", err)
	}
	defer conn.Close()

	query := fmt.Sprintf(`SELECT time, d_ax, h1, h2, valid_pixels, total_pixels, weighted, source_file
FROM %s.%s
WHERE date >= ? AND date <= ?`, *chDB, *chTable)
	if *weightedOnly {
		query += " AND weighted = 1"
	}
	query += " ORDER BY time"

	t0 := time.Now()
	chRows, err := conn.Query(ctx, query, startDate, endDate)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer chRows.Close()

	var rows []DipoleRow
	for chRows.Next() {
		var ts time.Time
		var r DipoleRow
		if err := chRows.Scan(&ts, &r.DAx, &r.H1, &r.H2, &r.ValidPixels, &r.TotalPixels, &r.Weighted, &r.SourceFile); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		r.Timestamp = ts.Unix()
		rows = append(rows, r)
	}
	if err := chRows.Err(); err != nil {
		log.Fatalf("Query error: %v", err)
	}

	log.Printf("Fetched %d record(s) in %v", len(rows), time.Since(t0).Round(time.Millisecond))

	if len(rows) == 0 {
		log.Fatal("No records in date range")
	}

	fmt.Println("time,d_ax,h1,h2,valid_pixels,total_pixels,weighted,source_file")
	for _, r := range rows {
		fmt.Printf("%s,%g,%g,%g,%d,%d,%d,%s\n",
			time.Unix(r.Timestamp, 0).UTC().Format("2006-01-02T15:04:05"),
			r.DAx, r.H1, r.H2, r.ValidPixels, r.TotalPixels, r.Weighted, r.SourceFile)
	}

	if *parquetOut != "" {
		if err := writeParquet(*parquetOut, rows); err != nil {
			log.Fatalf("Parquet export failed: %v", err)
		}
		log.Printf("Parquet export: %s (%d rows)", *parquetOut, len(rows))
	}
}
