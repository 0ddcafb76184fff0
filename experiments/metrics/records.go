package metrics

import (
	"time"

	"github.com/google/uuid"
)

// RunConfig is one (level, workers) cell of the benchmark grid.
type RunConfig struct {
	ID      int
	Workers int
	Level   int
	Depth   int
}

// SearchRecord is one timed search.
type SearchRecord struct {
	Config   int    `parquet:"config"` // RunConfig.ID
	Repeat   int    `parquet:"repeat"`
	SearchID string `parquet:"search_id"`
	Workers  int    `parquet:"workers"`
	Level    int    `parquet:"level"`
	Depth    int    `parquet:"depth"`

	StartTime time.Time     `parquet:"start_time"`
	Duration  time.Duration `parquet:"duration_ns"`

	Nodes    int64 `parquet:"nodes"`
	Tasks    int64 `parquet:"tasks"`
	Sent     int64 `parquet:"sent"`
	Received int64 `parquet:"received"`
	Local    int64 `parquet:"local"`

	Column int     `parquet:"column"`
	Value  float64 `parquet:"value"`
}

// Summary aggregates the repeats of one RunConfig. Speedup is measured
// against the single-worker run at the same level.
type Summary struct {
	Workers       int
	Level         int
	Repeats       int
	MeanSeconds   float64
	StdDevSeconds float64
	Speedup       float64
	Efficiency    float64
}

// Run identifies one benchmark invocation.
type Run struct {
	ID        uuid.UUID
	StartTime time.Time
	EndTime   time.Time
}
