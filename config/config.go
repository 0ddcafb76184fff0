package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"connect4/meta"
	"connect4/searcher"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Rows        int               `yaml:"rows"`
	Cols        int               `yaml:"cols"`
	LogLevel    string            `yaml:"log_level"`
	Search      SearchConfig      `yaml:"search"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Worker      WorkerConfig      `yaml:"worker"`
	Bench       BenchConfig       `yaml:"bench"`
}

type SearchConfig struct {
	Depth          int           `yaml:"depth"`
	Level          int           `yaml:"level"`
	Workers        int           `yaml:"workers"` // in-process workers for play and move
	RandomTieBreak bool          `yaml:"random_tie_break"`
	Seed           uint64        `yaml:"seed"`
	Watchdog       time.Duration `yaml:"watchdog"`
	LocalFallback  bool          `yaml:"local_fallback"`
	RetryOnLoss    bool          `yaml:"retry_on_loss"`
}

type CoordinatorConfig struct {
	Listen       string        `yaml:"listen"`
	Workers      int           `yaml:"workers"` // remote workers to wait for before the first move
	PingInterval time.Duration `yaml:"ping_interval"`
}

type WorkerConfig struct {
	URL              string        `yaml:"url"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

type BenchConfig struct {
	Depth      int    `yaml:"depth"`
	MaxWorkers int    `yaml:"max_workers"`
	MaxLevel   int    `yaml:"max_level"`
	Repeats    int    `yaml:"repeats"`
	Out        string `yaml:"out"`
}

func Default() Config {
	return Config{
		Rows:     meta.ROWS,
		Cols:     meta.COLS,
		LogLevel: "info",
		Search: SearchConfig{
			Depth:         meta.DEPTH,
			Level:         meta.LEVEL,
			Workers:       meta.WORKERS,
			LocalFallback: true,
			RetryOnLoss:   true,
		},
		Coordinator: CoordinatorConfig{
			Listen:       meta.LISTEN,
			Workers:      meta.WORKERS,
			PingInterval: 30 * time.Second,
		},
		Worker: WorkerConfig{
			URL:              "ws://localhost" + meta.LISTEN + "/ws/worker",
			HandshakeTimeout: 10 * time.Second,
		},
		Bench: BenchConfig{
			Depth:      meta.DEPTH,
			MaxWorkers: meta.WORKERS,
			MaxLevel:   3,
			Repeats:    3,
			Out:        "experiments",
		},
	}
}

// Load reads YAML from r over the defaults. Keys the file leaves out keep
// their default; unknown keys are an error.
func Load(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, c.Validate()
}

// LoadFile is Load on a file. An empty path yields the defaults.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Load(bytes.NewReader(data))
}

func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Rows > 0, "rows %d must be positive", c.Rows)
	check(c.Cols > 0, "cols %d must be positive", c.Cols)
	check(c.Search.Depth > 0, "search.depth %d must be positive", c.Search.Depth)
	check(c.Search.Level > 0, "search.level %d must be positive", c.Search.Level)
	check(c.Search.Workers >= 0, "search.workers %d is negative", c.Search.Workers)
	check(c.Search.Watchdog >= 0, "search.watchdog %v is negative", c.Search.Watchdog)
	check(c.Coordinator.Workers > 0, "coordinator.workers %d must be positive", c.Coordinator.Workers)
	check(c.Bench.Depth > 0, "bench.depth %d must be positive", c.Bench.Depth)
	check(c.Bench.MaxWorkers > 0, "bench.max_workers %d must be positive", c.Bench.MaxWorkers)
	check(c.Bench.MaxLevel > 0, "bench.max_level %d must be positive", c.Bench.MaxLevel)
	check(c.Bench.Repeats > 0, "bench.repeats %d must be positive", c.Bench.Repeats)
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		check(false, "log_level %q", c.LogLevel)
	}
	return errors.Join(errs...)
}

// Level is the parsed log level, info when unset.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Options turns the search section into searcher options.
func (c SearchConfig) Options() []searcher.Option {
	options := []searcher.Option{
		searcher.WithDepth(c.Depth),
		searcher.WithLevel(c.Level),
		searcher.WithLocalFallback(c.LocalFallback),
	}
	if c.RandomTieBreak {
		options = append(options, searcher.WithRandomTieBreak(c.Seed))
	}
	if c.Watchdog > 0 {
		options = append(options, searcher.WithWatchdog(c.Watchdog))
	}
	return options
}
