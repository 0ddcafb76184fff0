package experiments

import (
	"context"
	"fmt"
	"time"

	"connect4/communication"
	"connect4/experiments/metrics"
	"connect4/game"
	"connect4/searcher"
	"connect4/searcher/agent"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

type Config struct {
	Board      game.Board
	Depth      int
	MaxWorkers int
	MaxLevel   int
	Repeats    int
	Out        string // records are written under Out/speedup/<run id>; empty skips writing
}

type Result struct {
	Run       metrics.Run
	Dir       string
	Configs   []metrics.RunConfig
	Records   []metrics.SearchRecord
	Summaries []metrics.Summary
}

// RunSpeedup times the same search for every agglomeration level up to
// MaxLevel and every worker count up to MaxWorkers. Workers are goroutines
// on an in-process transport and the coordinator never evaluates tasks
// itself, so the timings reflect the worker count alone.
func RunSpeedup(ctx context.Context, cfg Config) (Result, error) {
	run := metrics.Run{ID: uuid.New(), StartTime: time.Now()}
	maxLevel := min(cfg.MaxLevel, cfg.Depth)

	var configs []metrics.RunConfig
	for level := 1; level <= maxLevel; level++ {
		for workers := 1; workers <= cfg.MaxWorkers; workers++ {
			configs = append(configs, metrics.RunConfig{
				ID:      len(configs) + 1,
				Workers: workers,
				Level:   level,
				Depth:   cfg.Depth,
			})
		}
	}

	log.Info().
		Str("run", run.ID.String()).
		Int("configs", len(configs)).
		Int("repeats", cfg.Repeats).
		Msg("starting speedup experiment...")

	var records []metrics.SearchRecord
	for _, config := range configs {
		for repeat := 1; repeat <= cfg.Repeats; repeat++ {
			record, err := timeSearch(ctx, cfg.Board, config, repeat)
			if err != nil {
				return Result{}, fmt.Errorf("level %d with %d workers: %w", config.Level, config.Workers, err)
			}
			records = append(records, record)
		}
		log.Info().
			Int("level", config.Level).
			Int("workers", config.Workers).
			Msg("completed config")
	}
	run.EndTime = time.Now()

	result := Result{
		Run:       run,
		Configs:   configs,
		Records:   records,
		Summaries: Summarize(records),
	}
	log.Info().Dur("duration", run.EndTime.Sub(run.StartTime)).Msg("completed speedup experiment")

	if cfg.Out == "" {
		return result, nil
	}

	writer, err := metrics.NewWriter(cfg.Out, run.ID)
	if err != nil {
		return Result{}, err
	}
	if err := writer.WriteRun(run, configs); err != nil {
		return Result{}, err
	}
	if err := writer.WriteSearchRecords(records); err != nil {
		return Result{}, err
	}
	if err := writer.WriteSummaries(result.Summaries); err != nil {
		return Result{}, err
	}
	result.Dir = writer.Dir()
	log.Info().Str("dir", result.Dir).Msg("stored search records")

	return result, nil
}

func timeSearch(ctx context.Context, board game.Board, config metrics.RunConfig, repeat int) (metrics.SearchRecord, error) {
	local := communication.NewLocal(ctx, config.Workers, agent.Run)
	defer local.Stop()

	s := searcher.NewSearcher(local,
		searcher.WithDepth(config.Depth),
		searcher.WithLevel(config.Level),
		searcher.WithLocalFallback(false),
		searcher.WithMetrics(),
		searcher.WithLogger(log.Logger.Level(zerolog.WarnLevel)),
	)

	decision, err := s.FindMove(ctx, board)
	if err != nil {
		return metrics.SearchRecord{}, err
	}
	if err := s.Close(); err != nil {
		return metrics.SearchRecord{}, err
	}
	if err := local.Wait(); err != nil {
		return metrics.SearchRecord{}, err
	}

	m := decision.Metrics
	return metrics.SearchRecord{
		Config:    config.ID,
		Repeat:    repeat,
		SearchID:  m.SearchID.String(),
		Workers:   config.Workers,
		Level:     config.Level,
		Depth:     config.Depth,
		StartTime: m.StartTime,
		Duration:  m.Duration,
		Nodes:     m.Nodes,
		Tasks:     m.Tasks,
		Sent:      m.Sent,
		Received:  m.Received,
		Local:     m.Local,
		Column:    decision.Column,
		Value:     decision.Value,
	}, nil
}

type cell struct {
	level   int
	workers int
}

// Summarize groups records by level and worker count. Cells are returned in
// level, then worker order.
func Summarize(records []metrics.SearchRecord) []metrics.Summary {
	seconds := map[cell][]float64{}
	var order []cell
	for _, r := range records {
		c := cell{level: r.Level, workers: r.Workers}
		if _, ok := seconds[c]; !ok {
			order = append(order, c)
		}
		seconds[c] = append(seconds[c], r.Duration.Seconds())
	}

	summaries := make([]metrics.Summary, 0, len(order))
	for _, c := range order {
		xs := seconds[c]
		s := metrics.Summary{
			Workers:     c.workers,
			Level:       c.level,
			Repeats:     len(xs),
			MeanSeconds: stat.Mean(xs, nil),
		}
		if len(xs) > 1 {
			s.StdDevSeconds = stat.StdDev(xs, nil)
		}
		if base, ok := seconds[cell{level: c.level, workers: 1}]; ok && s.MeanSeconds > 0 {
			s.Speedup = stat.Mean(base, nil) / s.MeanSeconds
			s.Efficiency = s.Speedup / float64(c.workers)
		}
		summaries = append(summaries, s)
	}
	return summaries
}
