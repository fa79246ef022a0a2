// dipole-ingest - Magnetogram dipole series ingestion into ClickHouse
//
// Walks a directory of full-disk magnetogram containers (JSON, CSV,
// CSV.gz or Parquet), computes the dipole vector for each observation
// and inserts the resulting time series into ClickHouse via the native
// protocol.
//
// The observation date is resolved from container metadata when present,
// then from a YYYYMMDD stamp in the filename, then from file mtime.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/dipole-ingest ./cmd/dipole-ingest
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"

	"github.com/heliolab/solar-dipole-apps/internal/common"
	"github.com/heliolab/solar-dipole-apps/internal/magio"
	"github.com/heliolab/solar-dipole-apps/internal/magnetogram"
	"github.com/heliolab/solar-dipole-apps/internal/obstime"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

const batchLimit = 10_000 // flush every 10k observations

// DipoleBatch holds column data for native insert
type DipoleBatch struct {
	Date        *proto.ColDate32
	Time        *proto.ColDateTime
	DAx         *proto.ColFloat64
	H1          *proto.ColFloat64
	H2          *proto.ColFloat64
	ValidPixels *proto.ColUInt32
	TotalPixels *proto.ColUInt32
	Weighted    *proto.ColUInt8
	SourceFile  *proto.ColStr
}

func NewDipoleBatch() *DipoleBatch {
	return &DipoleBatch{
		Date:        new(proto.ColDate32),
		Time:        new(proto.ColDateTime),
		DAx:         new(proto.ColFloat64),
		H1:          new(proto.ColFloat64),
		H2:          new(proto.ColFloat64),
		ValidPixels: new(proto.ColUInt32),
		TotalPixels: new(proto.ColUInt32),
		Weighted:    new(proto.ColUInt8),
		SourceFile:  new(proto.ColStr),
	}
}

func (b *DipoleBatch) Reset() {
	b.Date.Reset()
	b.Time.Reset()
	b.DAx.Reset()
	b.H1.Reset()
	b.H2.Reset()
	b.ValidPixels.Reset()
	b.TotalPixels.Reset()
	b.Weighted.Reset()
	b.SourceFile.Reset()
}

func (b *DipoleBatch) Len() int {
	return b.Date.Rows()
}

func (b *DipoleBatch) Input() proto.Input {
	return proto.Input{
		{Name: "date", Data: b.Date},
		{Name: "time", Data: b.Time},
		{Name: "d_ax", Data: b.DAx},
		{Name: "h1", Data: b.H1},
		{Name: "h2", Data: b.H2},
		{Name: "valid_pixels", Data: b.ValidPixels},
		{Name: "total_pixels", Data: b.TotalPixels},
		{Name: "weighted", Data: b.Weighted},
		{Name: "source_file", Data: b.SourceFile},
	}
}

func (b *DipoleBatch) AddRecord(ts time.Time, v magnetogram.Vector, weighted bool, sourceFile string) {
	b.Date.Append(ts)
	b.Time.Append(ts)
	b.DAx.Append(v.DAx)
	b.H1.Append(v.H1)
	b.H2.Append(v.H2)
	b.ValidPixels.Append(uint32(v.ValidPixels))
	b.TotalPixels.Append(uint32(v.TotalPixels))
	if weighted {
		b.Weighted.Append(1)
	} else {
		b.Weighted.Append(0)
	}
	b.SourceFile.Append(sourceFile)
}

func flushBatch(ctx context.Context, conn *ch.Client, tableFQN string, batch *DipoleBatch) error {
	if batch.Len() == 0 {
		return nil
	}

	query := fmt.Sprintf("INSERT INTO %s (date, time, d_ax, h1, h2, valid_pixels, total_pixels, weighted, source_file) VALUES", tableFQN)
	return conn.Do(ctx, ch.Query{
		Body:  query,
		Input: batch.Input(),
	})
}

// flushIfFull flushes and resets a batch that has reached the flush
// threshold, returning the number of rows written. In dry-run mode the
// batch is dropped instead of flushed so a long directory walk cannot
// grow it unboundedly.
func flushIfFull(ctx context.Context, conn *ch.Client, tableFQN string, batch *DipoleBatch, dryRun bool) (int, error) {
	if batch.Len() < batchLimit {
		return 0, nil
	}
	if dryRun {
		batch.Reset()
		return 0, nil
	}
	n := batch.Len()
	if err := flushBatch(ctx, conn, tableFQN, batch); err != nil {
		return 0, err
	}
	batch.Reset()
	return n, nil
}

// observationTime resolves the timestamp of a magnetogram: container
// metadata first, filename stamp second, file mtime last.
func observationTime(path string, c *magio.Container) time.Time {
	if c.Date != "" {
		if t, err := obstime.ParseDate(c.Date); err == nil {
			return t
		}
		log.Printf("[%s] Unparseable Date metadata %q, falling back to filename", filepath.Base(path), c.Date)
	}
	if t, ok := obstime.FromFilename(path); ok {
		return t
	}
	if info, err := os.Stat(path); err == nil {
		return info.ModTime().UTC()
	}
	return time.Now().UTC()
}

func processFile(path string, weighted bool, stats *common.Stats) (time.Time, magnetogram.Vector, error) {
	t0 := time.Now()

	c, err := magio.Read(path)
	if err != nil {
		return time.Time{}, magnetogram.Vector{}, err
	}

	theta, phi, err := magnetogram.AngleGrids(c.Field.NTheta, c.Field.NPhi)
	if err != nil {
		return time.Time{}, magnetogram.Vector{}, err
	}

	var v magnetogram.Vector
	if weighted {
		v, err = magnetogram.DipoleWeighted(c.Field, theta, phi)
	} else {
		v, err = magnetogram.Dipole(c.Field, theta, phi)
	}
	if err != nil {
		return time.Time{}, magnetogram.Vector{}, err
	}

	if info, err := os.Stat(path); err == nil {
		stats.AddBytes(uint64(info.Size()))
	}
	stats.AddPixels(uint64(v.TotalPixels))
	stats.SetFileLatency(uint64(time.Since(t0).Nanoseconds()))

	return observationTime(path, c), v, nil
}

func main() {
	cfg := common.DefaultConfig()

	chHost := flag.String("ch-host", cfg.ClickHouseHost+":9000", "ClickHouse native protocol address")
	chDB := flag.String("ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	chTable := flag.String("ch-table", "dipole_raw", "ClickHouse table")
	sourceDir := flag.String("source-dir", cfg.MagnetogramDir(), "Magnetogram source directory")
	weighted := flag.Bool("weighted", false, "Store physical moments (3/(4pi) and solid-angle weighting)")
	truncate := flag.Bool("truncate", false, "Truncate table before insert")
	dryRun := flag.Bool("dry-run", false, "Compute only, no ClickHouse insert")
	silent := flag.Bool("silent", false, "Disable the progress reporter")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "dipole-ingest v%s - Dipole Series Ingester\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [files...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Computes the dipole vector per magnetogram and inserts the\n")
		fmt.Fprintf(os.Stderr, "time series into ClickHouse.\n\n")
		fmt.Fprintf(os.Stderr, "Supported containers:\n")
		fmt.Fprintf(os.Stderr, "  - JSON mapping with a \"Magnetogram\" entry\n")
		fmt.Fprintf(os.Stderr, "  - CSV grid (.csv, .csv.gz)\n")
		fmt.Fprintf(os.Stderr, "  - Parquet pixel table (.parquet)\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	log.Println("=========================================================")
	log.Printf("Dipole Ingest v%s", Version)
	log.Println("=========================================================")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nShutdown requested...")
		cancel()
	}()

	// Discover files
	var files []string
	if len(flag.Args()) > 0 {
		files = flag.Args()
	} else {
		entries, err := os.ReadDir(*sourceDir)
		if err != nil {
			log.Fatalf("Cannot read source directory: %v", err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				files = append(files, filepath.Join(*sourceDir, e.Name()))
			}
		}
	}

	if len(files) == 0 {
		log.Fatal("No files to process")
	}

	sort.Strings(files)
	log.Printf("Found %d file(s)", len(files))
	if *weighted {
		log.Printf("Mode: weighted (physical moments)")
	} else {
		log.Printf("Mode: raw sums")
	}

	var conn *ch.Client
	tableFQN := fmt.Sprintf("%s.%s", *chDB, *chTable)

	if !*dryRun {
		log.Printf("Connecting to ClickHouse at %s...", *chHost)
		var err error
		conn, err = ch.Dial(ctx, ch.Options{
			Address:     *chHost,
			Database:    *chDB,
			Compression: ch.CompressionLZ4,
		})
		if err != nil {
			log.Fatalf("ClickHouse connection failed: %v", err)
		}
		defer conn.Close()
		log.Printf("Table: %s", tableFQN)

		if *truncate {
			log.Printf("Truncating table %s...", tableFQN)
			if err := conn.Do(ctx, ch.Query{Body: fmt.Sprintf("TRUNCATE TABLE %s", tableFQN)}); err != nil {
				log.Printf("Truncate warning: %v", err)
			}
		}
	}

	stats := common.NewStats()
	stats.SetSilent(*silent)
	stats.StartReporter()
	defer stats.StopReporter()

	startTime := time.Now()
	batch := NewDipoleBatch()
	computed := 0
	inserted := 0
	skipped := 0

	for _, filePath := range files {
		select {
		case <-ctx.Done():
			log.Printf("Interrupted after %d file(s)", computed)
			return
		default:
		}

		fileName := filepath.Base(filePath)

		if magio.DetectFormat(filePath) == magio.FormatUnknown {
			log.Printf("[%s] Skipping (unknown format)", fileName)
			skipped++
			continue
		}

		ts, v, err := processFile(filePath, *weighted, stats)
		if err != nil {
			log.Printf("[%s] Error: %v", fileName, err)
			skipped++
			continue
		}

		log.Printf("[%s] %s  D_ax=%+.4e H1=%+.4e H2=%+.4e (%d/%d valid)",
			fileName, ts.Format("2006-01-02"), v.DAx, v.H1, v.H2, v.ValidPixels, v.TotalPixels)

		batch.AddRecord(ts, v, *weighted, fileName)
		computed++

		n, err := flushIfFull(ctx, conn, tableFQN, batch, *dryRun)
		if err != nil {
			log.Fatalf("Insert error: %v", err)
		}
		inserted += n
	}

	if *dryRun {
		log.Printf("Dry run — skipping ClickHouse insert of %d record(s)", computed)
	} else if batch.Len() > 0 {
		if err := flushBatch(ctx, conn, tableFQN, batch); err != nil {
			log.Fatalf("Final insert error: %v", err)
		}
		inserted += batch.Len()
	}

	elapsed := time.Since(startTime)

	log.Println()
	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Magnetograms: %d computed, %d skipped", computed, skipped)
	log.Printf("Inserted:     %d records", inserted)
	log.Printf("Pixels:       %d", stats.GetTotalPixels())
	log.Printf("Elapsed:      %v", elapsed.Round(time.Millisecond))
	if computed > 0 {
		log.Printf("Rate:         %.1f magnetograms/sec", float64(computed)/elapsed.Seconds())
	}
	log.Println("=========================================================")
}
