// Command flowline runs a demonstration pipeline: a producer feeding a
// bounded queue, a coordinator draining it with N workers, and an
// observability endpoint exposing Prometheus metrics and live stats.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/flowlineio/flowline/pkg/config"
	"github.com/flowlineio/flowline/pkg/coordinator"
	"github.com/flowlineio/flowline/pkg/logging"
	promx "github.com/flowlineio/flowline/pkg/observability/prometheus"
	"github.com/flowlineio/flowline/pkg/observability/tracing"
	"github.com/flowlineio/flowline/pkg/queue"
)

// Job is the unit of work flowing through the demo pipeline.
type Job struct {
	ID       string
	Sequence int
}

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	flag.Parse()

	logger := logging.NewDefaultLogger()

	cfg := config.DefaultPipeline()
	if *configPath != "" {
		if err := config.LoadWithEnv(*configPath, "FLOWLINE", &cfg); err != nil {
			logger.Errorf("failed to load config: %v", err)
			os.Exit(1)
		}
	} else if err := config.ApplyEnvOverrides("FLOWLINE", &cfg); err != nil {
		logger.Errorf("failed to apply env overrides: %v", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Errorf("invalid config: %v", err)
		os.Exit(1)
	}

	if cfg.Tracing {
		shutdownTracing, err := tracing.Setup(os.Stdout, "flowline")
		if err != nil {
			logger.Errorf("failed to set up tracing: %v", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				logger.Warnf("trace exporter shutdown: %v", err)
			}
		}()
	}

	metrics := promx.GetMetrics()
	metrics.QueueCapacity.Set(float64(cfg.QueueCapacity))

	q := queue.NewBounded[Job](cfg.QueueCapacity)

	coord, err := coordinator.New(q, coordinator.Config[Job]{
		Workers:  cfg.Workers,
		Handler:  processJob,
		Observer: promx.NewObserver(metrics),
		OnError: func(job Job, err error) {
			logger.Warnf("job %s failed: %v", job.ID, err)
		},
		Logger: logger,
	})
	if err != nil {
		logger.Errorf("failed to create coordinator: %v", err)
		os.Exit(1)
	}
	if err := coord.Start(); err != nil {
		logger.Errorf("failed to start coordinator: %v", err)
		os.Exit(1)
	}

	// Queue depth updater.
	depthDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.QueueDepth.Set(float64(q.Size()))
			case <-depthDone:
				return
			}
		}
	}()

	var srv *fasthttp.Server
	if cfg.MetricsAddr != "" {
		srv = newObservabilityServer(coord)
		go func() {
			logger.Infof("observability endpoint listening on %s", cfg.MetricsAddr)
			if err := srv.ListenAndServe(cfg.MetricsAddr); err != nil {
				logger.Errorf("observability server: %v", err)
			}
		}()
	}

	// Producer: keeps the queue fed until shutdown closes it.
	go func() {
		for seq := 0; ; seq++ {
			job := Job{ID: uuid.New().String(), Sequence: seq}
			if err := q.Put(job); err != nil {
				if errors.Is(err, queue.ErrClosed) {
					return
				}
				logger.Errorf("producer: %v", err)
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down...")

	coord.Shutdown()
	timeout := time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second
	if !coord.AwaitTermination(timeout) {
		logger.Warnf("workers did not terminate within %s", timeout)
	}
	close(depthDone)

	if srv != nil {
		if err := srv.Shutdown(); err != nil {
			logger.Warnf("observability server shutdown: %v", err)
		}
	}

	stats := coord.Stats()
	logger.Infof("pipeline drained: %d completed, %d failed", stats.Completed, stats.Failed)
}

// processJob is the demo workload: a few milliseconds of simulated work, with
// a deterministic failure every 50th job to exercise the error path.
func processJob(ctx context.Context, job Job) error {
	select {
	case <-time.After(5 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	if job.Sequence > 0 && job.Sequence%50 == 0 {
		return fmt.Errorf("simulated failure for job %d", job.Sequence)
	}
	return nil
}

// newObservabilityServer serves /metrics (Prometheus exposition), /live and
// /stats (a JSON snapshot of coordinator counters).
func newObservabilityServer(coord *coordinator.Coordinator[Job]) *fasthttp.Server {
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(promx.DefaultRegistry, promhttp.HandlerOpts{}),
	)

	return &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			switch string(ctx.Path()) {
			case "/metrics":
				metricsHandler(ctx)
			case "/live":
				ctx.SetContentType("application/json")
				ctx.SetBodyString(`{"status":"up"}`)
			case "/stats":
				body, err := json.Marshal(coord.Stats())
				if err != nil {
					ctx.Error("failed to marshal stats", fasthttp.StatusInternalServerError)
					return
				}
				ctx.SetContentType("application/json")
				ctx.SetBody(body)
			default:
				ctx.Error("not found", fasthttp.StatusNotFound)
			}
		},
	}
}
