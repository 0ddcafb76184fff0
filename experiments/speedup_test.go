package experiments

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"connect4/experiments/metrics"
	"connect4/game"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	records := []metrics.SearchRecord{
		{Level: 1, Workers: 1, Duration: 4 * time.Second},
		{Level: 1, Workers: 1, Duration: 6 * time.Second},
		{Level: 1, Workers: 2, Duration: 2 * time.Second},
		{Level: 1, Workers: 2, Duration: 3 * time.Second},
		{Level: 2, Workers: 2, Duration: time.Second},
	}

	summaries := Summarize(records)
	require.Len(t, summaries, 3)

	one := summaries[0]
	require.Equal(t, 1, one.Workers)
	require.Equal(t, 2, one.Repeats)
	require.InDelta(t, 5.0, one.MeanSeconds, 1e-9)
	require.InDelta(t, 1.4142135, one.StdDevSeconds, 1e-6)
	require.InDelta(t, 1.0, one.Speedup, 1e-9)
	require.InDelta(t, 1.0, one.Efficiency, 1e-9)

	two := summaries[1]
	require.Equal(t, 2, two.Workers)
	require.InDelta(t, 2.5, two.MeanSeconds, 1e-9)
	require.InDelta(t, 2.0, two.Speedup, 1e-9)
	require.InDelta(t, 1.0, two.Efficiency, 1e-9)

	// No single-worker baseline at level 2 and a single repeat.
	lone := summaries[2]
	require.Equal(t, 2, lone.Level)
	require.Zero(t, lone.Speedup)
	require.Zero(t, lone.StdDevSeconds)
}

func TestRunSpeedup(t *testing.T) {
	out := t.TempDir()
	board := game.NewBoard(6, 7)
	require.True(t, board.Apply(3, game.Opponent))

	result, err := RunSpeedup(context.Background(), Config{
		Board:      board,
		Depth:      2,
		MaxWorkers: 2,
		MaxLevel:   3,
		Repeats:    2,
		Out:        out,
	})
	require.NoError(t, err)

	// Levels are capped at the depth.
	require.Len(t, result.Configs, 4)
	require.Len(t, result.Records, 8)
	require.Len(t, result.Summaries, 4)

	for _, r := range result.Records {
		require.Equal(t, r.Tasks, r.Sent)
		require.Equal(t, r.Sent, r.Received)
		require.Zero(t, r.Local)
		require.Equal(t, result.Records[0].Value, r.Value)
	}

	require.Equal(t, filepath.Join(out, "speedup", result.Run.ID.String()), result.Dir)

	f, err := os.Open(filepath.Join(result.Dir, "search_records.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1+8)
	require.Equal(t, "config", rows[0][0])

	stored, err := parquet.ReadFile[metrics.SearchRecord](filepath.Join(result.Dir, "search_records.parquet"))
	require.NoError(t, err)
	require.Len(t, stored, 8)
	for i, r := range stored {
		require.Equal(t, result.Records[i].SearchID, r.SearchID)
		require.Equal(t, result.Records[i].Tasks, r.Tasks)
		require.Equal(t, result.Records[i].Workers, r.Workers)
	}

	require.FileExists(t, filepath.Join(result.Dir, "run_configs.csv"))
	require.FileExists(t, filepath.Join(result.Dir, "summaries.csv"))
}

func TestRunSpeedupWithoutOutput(t *testing.T) {
	result, err := RunSpeedup(context.Background(), Config{
		Board:      game.NewBoard(6, 7),
		Depth:      1,
		MaxWorkers: 1,
		MaxLevel:   1,
		Repeats:    1,
	})
	require.NoError(t, err)
	require.Empty(t, result.Dir)
	require.Len(t, result.Records, 1)
	require.EqualValues(t, 7, result.Records[0].Tasks)
}
