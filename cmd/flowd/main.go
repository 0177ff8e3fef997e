// Command flowd runs the workflow execution daemon: it compiles workflow
// graphs, schedules their jobs through the configured store and queue,
// and serves the status API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flowkit-io/flowkit/api"
	"github.com/flowkit-io/flowkit/compiler"
	"github.com/flowkit-io/flowkit/config"
	"github.com/flowkit-io/flowkit/graph"
	"github.com/flowkit-io/flowkit/job"
	"github.com/flowkit-io/flowkit/logger"
	"github.com/flowkit-io/flowkit/monitor"
	"github.com/flowkit-io/flowkit/orchestrator"
	"github.com/flowkit-io/flowkit/processor"
	"github.com/flowkit-io/flowkit/queue"
	"github.com/flowkit-io/flowkit/runtime"
	"github.com/flowkit-io/flowkit/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	graphPath := flag.String("graph", "", "workflow graph file (YAML or JSON) to execute on startup")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}

	if err := run(*configPath, *graphPath); err != nil {
		fmt.Fprintf(os.Stderr, "flowd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, graphPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.New(&cfg.Logging, cfg.Service.Name)
	log.Info("starting", logger.Fields(
		"version", version.Get().String(),
		"environment", cfg.Service.Environment,
		"engine_mode", cfg.Engine.Mode,
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, storeCleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer storeCleanup()

	workQueue, err := buildQueue(cfg, log)
	if err != nil {
		return err
	}
	defer workQueue.Close()

	var metrics *monitor.Metrics
	if cfg.Metrics.Enabled {
		mp, err := monitor.InitMeter(ctx, monitor.MeterConfig{
			ServiceName:    cfg.Service.Name,
			ServiceVersion: version.Get().Version,
			Environment:    cfg.Service.Environment,
			Endpoint:       cfg.Metrics.Endpoint,
			Insecure:       cfg.Metrics.Insecure,
			Interval:       cfg.Metrics.Interval,
		}, log)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mp.Shutdown(shutdownCtx)
		}()

		metrics, err = monitor.NewMetrics(monitor.Meter("flowkit"))
		if err != nil {
			return err
		}
	}
	mon := monitor.New(log, metrics)
	errHandler := monitor.NewErrorHandler(log, mon)
	observer := monitor.NewFailureObserver(mon, errHandler)

	registry := processor.NewRegistry()
	processor.RegisterBuiltins(registry)
	runner := runtime.NewRunner(registry, log, cfg.Engine.DefaultTimeout)

	backoff := orchestrator.BackoffConfig{
		Initial: cfg.Engine.Backoff.Initial,
		Max:     cfg.Engine.Backoff.Max,
		Factor:  cfg.Engine.Backoff.Factor,
		Jitter:  cfg.Engine.Backoff.Jitter,
	}

	var orch orchestrator.Orchestrator
	var async *orchestrator.AsyncOrchestrator
	if cfg.Engine.Mode == "sync" {
		orch = orchestrator.NewSync(store, runner, log, observer)
	} else {
		async = orchestrator.NewAsync(store, workQueue, runner, log, observer, backoff)
		orch = async
	}

	workersDone := make(chan struct{})
	if async != nil {
		go func() {
			defer close(workersDone)
			async.RunWorkers(ctx, cfg.Engine.Workers)
		}()
	} else {
		close(workersDone)
	}

	var apiServer *api.Server
	apiDone := make(chan error, 1)
	if cfg.API.Enabled {
		apiServer = api.New(cfg.API.Addr, store, mon, log)
		go func() { apiDone <- apiServer.Run() }()
	}

	if graphPath != "" {
		if err := executeGraph(ctx, graphPath, store, orch, log); err != nil {
			log.Error("graph execution failed", logger.ErrorFields("execute", err))
		}
	}

	<-ctx.Done()
	log.Info("shutting down")

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("api shutdown failed", logger.ErrorFields("shutdown", err))
		}
		if err := <-apiDone; err != nil {
			log.Warn("api server error", logger.ErrorFields("serve", err))
		}
	}
	<-workersDone

	return nil
}

func buildStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (job.Store, func(), error) {
	if cfg.Store.Driver == "redis" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Store.Redis.Addr, err)
		}
		return job.NewRedisStore(rdb, cfg.Store.Redis.Prefix, log), func() { _ = rdb.Close() }, nil
	}
	return job.NewMemoryStore(), func() {}, nil
}

func buildQueue(cfg *config.Config, log *logger.Logger) (queue.WorkQueue, error) {
	if cfg.Queue.Driver == "kafka" {
		return queue.NewKafkaQueue(cfg.Queue.Kafka, log)
	}
	return queue.NewMemoryQueue(cfg.Queue.Capacity), nil
}

// executeGraph compiles a workflow file, generates its jobs and starts it
// on the configured orchestrator.
func executeGraph(ctx context.Context, path string, store job.Store, orch orchestrator.Orchestrator, log *logger.Logger) error {
	g, err := graph.LoadFile(path)
	if err != nil {
		return err
	}
	plan, err := compiler.New(log).Compile(g)
	if err != nil {
		return err
	}

	p := &job.Pipeline{
		ID:         fmt.Sprintf("run-%d", time.Now().Unix()),
		WorkflowID: g.ID,
		Status:     job.PipelinePending,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := store.CreatePipeline(ctx, p); err != nil {
		return err
	}
	if _, err := job.NewGenerator(store, log).Generate(ctx, p, plan); err != nil {
		return err
	}

	resp, err := orch.ExecutePipeline(ctx, p, plan)
	if err != nil {
		return err
	}
	log.Info("pipeline submitted", logger.Fields(
		logger.FieldPipelineID, p.ID,
		logger.FieldWorkflowID, g.ID,
		logger.FieldStatus, string(resp.Status),
	))
	return nil
}
