package common

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Stats holds atomic counters for telemetry tracking
type Stats struct {
	TotalPixelsProcessed uint64 // Atomic counter for total pixels processed
	TotalBytesRead       uint64 // Atomic counter for total bytes read
	CurrentFileLatency   uint64 // Atomic counter for per-file latency in nanoseconds

	// Internal state for reporter
	running    atomic.Bool
	stopCh     chan struct{}
	silent     bool
	lastPixels uint64
	lastBytes  uint64
	lastTime   time.Time

	// Moving average window for Mpps calculation
	mppsWindow     []float64
	mppsWindowSize int
	mppsIndex      int
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{
		stopCh:         make(chan struct{}),
		mppsWindow:     make([]float64, 10), // 10-sample moving average (5 seconds)
		mppsWindowSize: 10,
		mppsIndex:      0,
	}
}

// AddPixels atomically increments the total pixels processed counter
func (s *Stats) AddPixels(count uint64) {
	atomic.AddUint64(&s.TotalPixelsProcessed, count)
}

// AddBytes atomically increments the total bytes read counter
func (s *Stats) AddBytes(count uint64) {
	atomic.AddUint64(&s.TotalBytesRead, count)
}

// SetFileLatency atomically sets the latest per-file latency in nanoseconds
func (s *Stats) SetFileLatency(ns uint64) {
	atomic.StoreUint64(&s.CurrentFileLatency, ns)
}

// GetTotalPixels atomically reads the total pixels processed
func (s *Stats) GetTotalPixels() uint64 {
	return atomic.LoadUint64(&s.TotalPixelsProcessed)
}

// GetTotalBytes atomically reads the total bytes read
func (s *Stats) GetTotalBytes() uint64 {
	return atomic.LoadUint64(&s.TotalBytesRead)
}

// GetFileLatency atomically reads the latest per-file latency
func (s *Stats) GetFileLatency() uint64 {
	return atomic.LoadUint64(&s.CurrentFileLatency)
}

// SetSilent enables or disables silent mode
func (s *Stats) SetSilent(silent bool) {
	s.silent = silent
}

// StartReporter starts a background goroutine that prints telemetry stats
// every 500ms using standard newline-based logging to avoid conflicts with log.Printf
func (s *Stats) StartReporter() {
	if s.running.Load() {
		return // Already running
	}

	s.running.Store(true)
	s.lastTime = time.Now()
	s.lastPixels = 0
	s.lastBytes = 0

	go s.reporterLoop()
}

// StopReporter stops the background reporter goroutine
func (s *Stats) StopReporter() {
	if !s.running.Load() {
		return
	}

	s.running.Store(false)
	close(s.stopCh)
}

// reporterLoop is the background goroutine that periodically prints stats
func (s *Stats) reporterLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.printStatus()
		}
	}
}

// printStatus prints the current telemetry status using standard logging
// Uses newline-based output to avoid conflicts with log.Printf statements
func (s *Stats) printStatus() {
	if s.silent {
		return
	}

	now := time.Now()
	elapsed := now.Sub(s.lastTime).Seconds()

	if elapsed < 0.001 {
		// Avoid division by zero on first tick
		return
	}

	// Get current counters
	currentPixels := s.GetTotalPixels()
	currentBytes := s.GetTotalBytes()
	fileLatencyNs := s.GetFileLatency()

	// Calculate deltas
	deltaPixels := currentPixels - s.lastPixels
	deltaBytes := currentBytes - s.lastBytes

	// Calculate throughput
	mibPerSec := (float64(deltaBytes) / (1024 * 1024)) / elapsed
	mpps := (float64(deltaPixels) / 1_000_000) / elapsed

	// Update moving average for Mpps
	s.mppsWindow[s.mppsIndex] = mpps
	s.mppsIndex = (s.mppsIndex + 1) % s.mppsWindowSize

	// Calculate smoothed Mpps (moving average)
	var sum float64
	var count int
	for i := 0; i < s.mppsWindowSize; i++ {
		if s.mppsWindow[i] > 0 {
			sum += s.mppsWindow[i]
			count++
		}
	}
	smoothedMpps := 0.0
	if count > 0 {
		smoothedMpps = sum / float64(count)
	}

	// Format per-file latency
	fileLatencyMs := float64(fileLatencyNs) / 1_000_000

	fmt.Printf("[Progress] Throughput: %.2f MiB/s | Pixels: %.2f Mpps (avg: %.2f) | File: %.2f ms | Total: %d pixels\n",
		mibPerSec,
		mpps,
		smoothedMpps,
		fileLatencyMs,
		currentPixels,
	)

	// Update last values
	s.lastPixels = currentPixels
	s.lastBytes = currentBytes
	s.lastTime = now
}

// Reset resets all counters (useful for testing or restarting)
func (s *Stats) Reset() {
	atomic.StoreUint64(&s.TotalPixelsProcessed, 0)
	atomic.StoreUint64(&s.TotalBytesRead, 0)
	atomic.StoreUint64(&s.CurrentFileLatency, 0)
	s.lastPixels = 0
	s.lastBytes = 0
	s.lastTime = time.Now()

	// Clear moving average window
	for i := range s.mppsWindow {
		s.mppsWindow[i] = 0
	}
	s.mppsIndex = 0
}
