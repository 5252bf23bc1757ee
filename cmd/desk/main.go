package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"golang.org/x/sync/errgroup"

	"tradingdesk/internal/api"
	"tradingdesk/internal/broker/paper"
	"tradingdesk/internal/engine"
	"tradingdesk/internal/feed"
	"tradingdesk/internal/journal"
	"tradingdesk/internal/loader"
	"tradingdesk/internal/obs"
	"tradingdesk/internal/ops"
	"tradingdesk/internal/registry"
	"tradingdesk/internal/risk"
	"tradingdesk/internal/tape"
	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/market"
)

func main() {
	configPath := flag.String("config", "desk.json", "path to JSON config, empty to use env only")
	envFile := flag.String("env", ".env", "dotenv file loaded before the config")
	list := flag.Bool("list", false, "print loaded algorithms and exit")
	flag.Parse()

	if err := run(*configPath, *envFile, *list); err != nil {
		log.Fatalf("desk failed: %v", err)
	}
}

func run(configPath, envFile string, list bool) error {
	cfg, err := ops.Load(configPath, envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	metrics := obs.NewMetrics()
	reg := registry.New(loader.New(loader.WithMetrics(metrics)))
	if err := reg.LoadAll(cfg.AlgorithmsDir); err != nil {
		logs.Errorf("some algorithms failed to load, err: %+v", err)
	}
	if list {
		fmt.Println(reg.String())
		return nil
	}

	if cfg.Pyroscope.Addr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: cfg.Pyroscope.AppName,
			ServerAddress:   cfg.Pyroscope.Addr,
			Logger:          emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return fmt.Errorf("pyroscope start: %w", err)
		}
		defer func() { _ = profiler.Stop() }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var recorder engine.Recorder
	if cfg.Journal.Enabled() {
		store, err := journal.Open(ctx, cfg.Journal.Option())
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = store
	}

	broker := paper.New(0)
	if err := broker.Login(ctx); err != nil {
		return err
	}
	defer broker.Logout(context.Background())

	runner := engine.NewRunner(engine.WithQueueCapacity(cfg.QueueCapacity), engine.WithRunnerMetrics(metrics))
	if err := addSessions(runner, reg, broker, recorder, metrics, cfg); err != nil {
		return err
	}

	publish := runner.Publish
	if cfg.Tape.Enabled() {
		writer, err := tape.NewWriter(cfg.Tape.Config())
		if err != nil {
			return fmt.Errorf("open tape: %w", err)
		}
		if err := writer.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := writer.Close(); err != nil {
				logs.Errorf("close tape, err: %+v", err)
			}
		}()
		publish = taped(runner, writer, metrics)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx)
	})
	g.Go(func() error {
		return api.NewServer(reg, runner, metrics).Run(gctx, cfg.API.Addr)
	})
	if cfg.Feed.URL != "" {
		client := feed.NewClient(cfg.Feed.URL)
		if cfg.Feed.ReadTimeout > 0 {
			client.ReadTimeout = cfg.Feed.ReadTimeout.Std()
		}
		client.MaxAttempts = cfg.Feed.MaxAttempts
		g.Go(func() error {
			defer runner.Close()
			return client.Run(gctx, publish)
		})
	} else {
		logs.Info("no feed configured, sessions stay idle")
	}
	g.Go(func() error {
		select {
		case <-sys.Shutdown():
			logs.Info("shutting down")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	err = g.Wait()
	runner.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// addSessions binds every configured session to its algorithm. An algorithm
// instance keeps its own state, so it can drive a single session only.
func addSessions(runner *engine.Runner, reg *registry.Registry, broker *paper.Broker, recorder engine.Recorder, metrics *obs.Metrics, cfg ops.Loaded) error {
	used := make(map[string]bool, len(cfg.Sessions))
	for _, sc := range cfg.Sessions {
		algo, ok := reg.Get(sc.Algorithm)
		if !ok {
			return fmt.Errorf("%w: session %s wants %q", exception.ErrUnknownAlgorithm, sc.Derivative.Symbol, sc.Algorithm)
		}
		if used[sc.Algorithm] {
			return fmt.Errorf("session %s: algorithm %q already drives another session", sc.Derivative.Symbol, sc.Algorithm)
		}
		used[sc.Algorithm] = true

		broker.Add(sc.Deposit)
		opts := []engine.SessionOption{
			engine.WithRisk(risk.NewEngine(cfg.Risk)),
			engine.WithExecutor(broker),
			engine.WithMetrics(metrics),
		}
		if recorder != nil {
			opts = append(opts, engine.WithRecorder(recorder))
		}
		if cfg.HistoryLimit > 0 {
			opts = append(opts, engine.WithHistoryLimit(cfg.HistoryLimit))
		}
		s := engine.NewSession(algo, sc.Deposit, sc.Derivative, sc.TimeStep, opts...)
		runner.Add(s)
		logs.Infof("session %s: %s on %s every %s", s.ID(), sc.Algorithm, sc.Derivative.Symbol, sc.TimeStep)
	}
	return nil
}

// taped publishes to the runner and records the tick. A full tape queue drops
// the record, never the tick.
func taped(runner *engine.Runner, writer *tape.Writer, metrics *obs.Metrics) func(market.Tick) {
	return func(tick market.Tick) {
		runner.Publish(tick)
		switch err := writer.TryAppend(tick); {
		case err == nil:
		case errors.Is(err, tape.ErrQueueFull):
			metrics.IncQueueDrop()
		default:
			logs.Errorf("tape tick %s, err: %+v", tick.Symbol, err)
		}
	}
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
