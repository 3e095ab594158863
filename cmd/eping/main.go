package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tkjaer/eping/internal/config"
	"github.com/tkjaer/eping/internal/output"
	"github.com/tkjaer/eping/internal/probe"
)

func main() {
	args, err := config.ParseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	logFile, err := config.SetupLogging(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logging: %v\n", err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	slog.Debug("Starting eping",
		"destination", args.Destination,
		"size", args.Size,
		"timeout", args.Timeout,
		"count", args.Count,
		"continuous", args.Continuous,
	)

	// Stop at the next wait on Ctrl+C
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if logFile != nil {
			logFile.Close()
		}
		os.Exit(1)
	}

	slog.Debug("eping completed")
}

func run(ctx context.Context, args config.Args) error {
	om, metrics, err := setupOutputs(args)
	if err != nil {
		return err
	}
	defer func() {
		if err := om.Close(); err != nil {
			slog.Error("Error closing outputs", "error", err)
		}
	}()

	cfg := probe.ConfigFromArgs(args)
	engine := probe.NewEngine(cfg)

	g, ctx := errgroup.WithContext(ctx)
	probeCtx, probesDone := context.WithCancel(ctx)

	if metrics != nil {
		g.Go(func() error {
			return serveMetrics(probeCtx, args.MetricsAddr, metrics.Handler())
		})
	}

	g.Go(func() error {
		defer probesDone()
		if !args.Repeated() {
			// A single probe bypasses the sequencer and prints no statistics.
			result, err := engine.Probe(probeCtx)
			if err != nil {
				return ignoreCancel(probeCtx, err)
			}
			om.ProbeResult(result.Record())
			return nil
		}
		return probe.NewProbeManager(engine, cfg, om).Run(probeCtx)
	})

	return g.Wait()
}

func setupOutputs(args config.Args) (*output.OutputManager, *output.PrometheusOutput, error) {
	om := &output.OutputManager{}

	if args.Json {
		jsonOut, err := output.NewJSONOutput("")
		if err != nil {
			return nil, nil, err
		}
		om.Register(jsonOut)
	} else {
		om.Register(output.NewTextOutput(os.Stdout))
		if args.JsonFile != "" {
			jsonOut, err := output.NewJSONOutput(args.JsonFile)
			if err != nil {
				return nil, nil, fmt.Errorf("opening JSON file: %w", err)
			}
			om.Register(jsonOut)
		}
	}

	if args.MetricsAddr == "" {
		return om, nil, nil
	}
	metrics, err := output.NewPrometheusOutput()
	if err != nil {
		om.Close()
		return nil, nil, fmt.Errorf("registering metrics: %w", err)
	}
	om.Register(metrics)
	return om, metrics, nil
}

// serveMetrics serves /metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	slog.Info("Serving metrics", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ignoreCancel treats cancellation as a normal way to stop.
func ignoreCancel(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
