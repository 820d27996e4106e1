package common

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMemoryStats(t *testing.T) {
	stats := GetMemoryStats()
	assert.Positive(t, stats.HeapAlloc)
	assert.Positive(t, stats.TotalAlloc)

	str := stats.String()
	assert.Contains(t, str, "Heap:")
	assert.Contains(t, str, "KB")
}

func TestBenchmarkResult(t *testing.T) {
	result := BenchmarkResult{
		Name:         "test_result",
		Elements:     1000,
		Duration:     100 * time.Millisecond,
		Iterations:   10,
		MemoryBefore: MemoryStats{TotalAlloc: 0},
		MemoryAfter:  MemoryStats{TotalAlloc: 10 * 2048},
	}
	assert.Equal(t, 10*time.Millisecond, result.PerIteration())
	assert.InDelta(t, 100000.0, result.Throughput(), 1e-6)
	assert.Equal(t, uint64(2), result.AllocatedKB())

	str := result.String()
	assert.Contains(t, str, "test_result")
	assert.Contains(t, str, "10 iterations")
	assert.Contains(t, str, "10ms")
	assert.Contains(t, str, "100ms")

	errorResult := BenchmarkResult{Name: "error_result", Error: errors.New("test error")}
	str = errorResult.String()
	assert.Contains(t, str, "ERROR")
	assert.Contains(t, str, "test error")
	assert.Zero(t, errorResult.PerIteration())
	assert.Zero(t, errorResult.Throughput())
}

func TestMeasure(t *testing.T) {
	calls := 0
	r := Measure("count", 4, 5, func() error {
		calls++
		return nil
	})
	assert.Equal(t, 5, calls)
	assert.Equal(t, 5, r.Iterations)
	assert.Equal(t, 4, r.Elements)
	require.NoError(t, r.Error)
}

func TestMeasure_StopsAtError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	r := Measure("fail", 1, 5, func() error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, r.Iterations)
	assert.ErrorIs(t, r.Error, boom)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []BenchmarkResult{
		{Name: "instance", Elements: 10, Iterations: 2, Duration: 4 * time.Millisecond},
		{Name: "skeleton", Error: errors.New("bad, input")},
	})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name,elements,iterations,avg_ms,melem_per_s,alloc_kb_per_op,error", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "instance,10,2,2.000,"))
	assert.Contains(t, lines[2], `"bad, input"`)
}

func BenchmarkMemoryStatsRetrieval(b *testing.B) {
	for range b.N {
		GetMemoryStats()
	}
}
