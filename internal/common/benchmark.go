// Package common provides measurement helpers for the encoder benchmarks.
package common

import (
	"encoding/csv"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"time"
)

// MemoryStats is the subset of runtime memory statistics a benchmark reports.
type MemoryStats struct {
	HeapAlloc  uint64
	TotalAlloc uint64
	Mallocs    uint64
	NumGC      uint32
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		HeapAlloc:  m.HeapAlloc,
		TotalAlloc: m.TotalAlloc,
		Mallocs:    m.Mallocs,
		NumGC:      m.NumGC,
	}
}

// String returns a formatted string representation of memory stats.
func (m MemoryStats) String() string {
	return fmt.Sprintf("Heap: %d KB, Total: %d KB, Mallocs: %d, GC: %d",
		m.HeapAlloc/1024, m.TotalAlloc/1024, m.Mallocs, m.NumGC)
}

// BenchmarkResult holds the outcome of one measured workload.
type BenchmarkResult struct {
	Name string
	// Elements is the number of label elements processed per iteration.
	Elements     int
	Iterations   int
	Duration     time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Error        error
}

// PerIteration returns the mean wall time of one iteration.
func (br BenchmarkResult) PerIteration() time.Duration {
	if br.Iterations == 0 {
		return 0
	}
	return br.Duration / time.Duration(br.Iterations)
}

// Throughput returns processed elements per second.
func (br BenchmarkResult) Throughput() float64 {
	if br.Duration <= 0 {
		return 0
	}
	return float64(br.Elements*br.Iterations) / br.Duration.Seconds()
}

// AllocatedKB returns the bytes allocated per iteration in KB.
func (br BenchmarkResult) AllocatedKB() uint64 {
	if br.Iterations == 0 {
		return 0
	}
	return (br.MemoryAfter.TotalAlloc - br.MemoryBefore.TotalAlloc) / uint64(br.Iterations) / 1024 //nolint:gosec // G115: iterations is positive
}

// String returns a formatted string representation of the benchmark result.
func (br BenchmarkResult) String() string {
	if br.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", br.Name, br.Error)
	}
	return fmt.Sprintf("%s: %d iterations, avg: %v, total: %v, %.2f Melem/s, alloc: %d KB/op",
		br.Name, br.Iterations, br.PerIteration(), br.Duration, br.Throughput()/1e6, br.AllocatedKB())
}

// Measure runs fn iterations times after a garbage collection and records
// wall time and allocation. It stops at the first error, which is kept in
// the result.
func Measure(name string, elements, iterations int, fn func() error) BenchmarkResult {
	result := BenchmarkResult{Name: name, Elements: elements}
	runtime.GC()
	result.MemoryBefore = GetMemoryStats()
	start := time.Now()
	for range iterations {
		if err := fn(); err != nil {
			result.Error = err
			break
		}
		result.Iterations++
	}
	result.Duration = time.Since(start)
	result.MemoryAfter = GetMemoryStats()
	return result
}

// WriteCSV writes one row per result with a header.
func WriteCSV(w io.Writer, results []BenchmarkResult) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"name", "elements", "iterations", "avg_ms", "melem_per_s", "alloc_kb_per_op", "error"})
	for _, r := range results {
		errText := ""
		if r.Error != nil {
			errText = r.Error.Error()
		}
		_ = cw.Write([]string{
			r.Name,
			strconv.Itoa(r.Elements),
			strconv.Itoa(r.Iterations),
			strconv.FormatFloat(float64(r.PerIteration().Microseconds())/1000, 'f', 3, 64),
			strconv.FormatFloat(r.Throughput()/1e6, 'f', 3, 64),
			strconv.FormatUint(r.AllocatedKB(), 10),
			errText,
		})
	}
	cw.Flush()
	return cw.Error()
}
