package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connect4/communication"
	"connect4/communication/client"
	"connect4/communication/server"
	"connect4/config"
	"connect4/engine"
	"connect4/experiments"
	"connect4/game"
	"connect4/searcher"
	"connect4/searcher/agent"
	"connect4/tui"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: connect4 <command> [flags]

commands:
  play         play against the machine in the terminal
  move         make the machine's move on a board file
  coordinator  serve websocket workers and play against them
  worker       connect to a coordinator and evaluate tasks
  bench        measure speedup over worker counts and levels
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "play":
		err = runPlay(ctx, args)
	case "move":
		err = runMove(ctx, args)
	case "coordinator":
		err = runCoordinator(ctx, args)
	case "worker":
		err = runWorker(ctx, args)
	case "bench":
		err = runBench(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

// common holds the flags every command takes.
type common struct {
	configPath string
	logLevel   string
	depth      int
	level      int
}

func newFlagSet(name string) (*flag.FlagSet, *common) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c := &common{}
	fs.StringVar(&c.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.IntVar(&c.depth, "depth", 0, "Search depth, overrides the configuration when > 0")
	fs.IntVar(&c.level, "level", 0, "Agglomeration level, overrides the configuration when > 0")
	return fs, c
}

// load reads the configuration, applies flag overrides and sets up logging.
func (c *common) load() (config.Config, error) {
	cfg, err := config.LoadFile(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.depth > 0 {
		cfg.Search.Depth = c.depth
		cfg.Bench.Depth = c.depth
	}
	if c.level > 0 {
		cfg.Search.Level = c.level
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	zerolog.SetGlobalLevel(cfg.Level())
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	return cfg, nil
}

// localSearcher runs cfg.Search.Workers in-process workers. The returned
// function terminates them.
func localSearcher(ctx context.Context, cfg config.Config) (*searcher.Searcher, func() error) {
	if cfg.Search.Workers == 0 {
		s := searcher.NewSearcher(nil, cfg.Search.Options()...)
		return s, func() error { return nil }
	}
	local := communication.NewLocal(ctx, cfg.Search.Workers, agent.Run)
	s := searcher.NewSearcher(local, cfg.Search.Options()...)
	return s, func() error {
		return errors.Join(s.Close(), local.Wait())
	}
}

func runPlay(ctx context.Context, args []string) error {
	fs, c := newFlagSet("play")
	useTUI := fs.Bool("tui", false, "Use the full-screen interface")
	fs.Parse(args)

	cfg, err := c.load()
	if err != nil {
		return err
	}
	s, shutdown := localSearcher(ctx, cfg)
	defer shutdown()

	return play(ctx, cfg, s, *useTUI)
}

func play(ctx context.Context, cfg config.Config, s *searcher.Searcher, useTUI bool) error {
	e := engine.New(game.NewBoard(cfg.Rows, cfg.Cols), engine.NewSearchMover(s, cfg.Search.RetryOnLoss))
	if useTUI {
		return tui.Run(ctx, e)
	}
	return e.RunConsole(ctx, os.Stdin, os.Stdout)
}

func runMove(ctx context.Context, args []string) error {
	fs, c := newFlagSet("move")
	path := fs.String("board", "", "Board file to read and update")
	fs.Parse(args)
	if *path == "" {
		return errors.New("move needs -board")
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	s, shutdown := localSearcher(ctx, cfg)
	defer shutdown()

	result, err := engine.SolveFile(ctx, *path, engine.NewSearchMover(s, cfg.Search.RetryOnLoss))
	if errors.Is(err, engine.ErrGameOver) {
		fmt.Printf("Game over: %s\n", result.Outcome)
		return nil
	}
	if err != nil {
		return err
	}

	for _, cv := range result.Move.Values {
		fmt.Printf("column %d, value %.4f\n", cv.Column, cv.Value)
	}
	fmt.Printf("Best: column %d, value %.4f, depth %d\n", result.Move.Column, result.Move.Value, result.Move.Depth)
	if result.Outcome != engine.InProgress {
		fmt.Printf("Game over: %s\n", result.Outcome)
	}
	return nil
}

func runCoordinator(ctx context.Context, args []string) error {
	fs, c := newFlagSet("coordinator")
	listen := fs.String("listen", "", "Address to serve workers on")
	workers := fs.Int("workers", 0, "Workers to wait for before the first move")
	useTUI := fs.Bool("tui", false, "Use the full-screen interface")
	fs.Parse(args)

	cfg, err := c.load()
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Coordinator.Listen = *listen
	}
	if *workers > 0 {
		cfg.Coordinator.Workers = *workers
	}

	hub := server.NewHub(server.WithPingInterval(cfg.Coordinator.PingInterval))
	srv := &http.Server{
		Addr:    cfg.Coordinator.Listen,
		Handler: hub.Handler(),
	}
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	defer func() {
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().
		Str("listen", cfg.Coordinator.Listen).
		Int("workers", cfg.Coordinator.Workers).
		Msg("waiting for workers")
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err, ok := <-serverErr; ok {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()
	if err := hub.WaitForWorkers(waitCtx, cfg.Coordinator.Workers); err != nil {
		return err
	}

	s := searcher.NewSearcher(hub, cfg.Search.Options()...)
	defer s.Close()
	return play(ctx, cfg, s, *useTUI)
}

func runWorker(ctx context.Context, args []string) error {
	fs, c := newFlagSet("worker")
	url := fs.String("url", "", "Coordinator worker endpoint, e.g. ws://host:8080/ws/worker")
	fs.Parse(args)

	cfg, err := c.load()
	if err != nil {
		return err
	}
	if *url != "" {
		cfg.Worker.URL = *url
	}

	conn, err := client.Dial(ctx, cfg.Worker.URL, cfg.Worker.HandshakeTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Info().Str("url", cfg.Worker.URL).Msg("connected to coordinator")
	if err := agent.Run(ctx, conn); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("worker terminated")
	return nil
}

func runBench(ctx context.Context, args []string) error {
	fs, c := newFlagSet("bench")
	maxWorkers := fs.Int("max-workers", 0, "Largest worker count")
	maxLevel := fs.Int("max-level", 0, "Largest agglomeration level")
	repeats := fs.Int("repeats", 0, "Searches per configuration")
	out := fs.String("out", "", "Output root for records")
	fs.Parse(args)

	cfg, err := c.load()
	if err != nil {
		return err
	}
	if *maxWorkers > 0 {
		cfg.Bench.MaxWorkers = *maxWorkers
	}
	if *maxLevel > 0 {
		cfg.Bench.MaxLevel = *maxLevel
	}
	if *repeats > 0 {
		cfg.Bench.Repeats = *repeats
	}
	if *out != "" {
		cfg.Bench.Out = *out
	}

	result, err := experiments.RunSpeedup(ctx, experiments.Config{
		Board:      game.NewBoard(cfg.Rows, cfg.Cols),
		Depth:      cfg.Bench.Depth,
		MaxWorkers: cfg.Bench.MaxWorkers,
		MaxLevel:   cfg.Bench.MaxLevel,
		Repeats:    cfg.Bench.Repeats,
		Out:        cfg.Bench.Out,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%-6s %-8s %-12s %-10s %-10s\n", "level", "workers", "mean", "speedup", "efficiency")
	for _, s := range result.Summaries {
		fmt.Printf("%-6d %-8d %-12s %-10.4f %-10.4f\n",
			s.Level, s.Workers,
			time.Duration(s.MeanSeconds*float64(time.Second)).Round(time.Microsecond),
			s.Speedup, s.Efficiency)
	}
	fmt.Printf("records written to %s\n", result.Dir)
	return nil
}
