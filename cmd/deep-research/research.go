// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/archive"
	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/internal/research"
	"github.com/pdiddy/deep-research/internal/search"
	"github.com/pdiddy/deep-research/internal/structured"
	"github.com/pdiddy/deep-research/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research [query...]",
	Short: "Run a full research session on a query",
	Long: `Research searches the web for the query, analyses and summarises the
results with the configured language model, issues follow-up searches for
the gaps it finds, and writes a final cited report.

The session snapshot is written to the output directory (or stdout with
--stdout) and, when an archive path is configured, recorded in the archive.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("query must not be empty")
	}
	backend, _ := cmd.Flags().GetString("backend")
	toStdout, _ := cmd.Flags().GetBool("stdout")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := search.NewMetrics(reg)
	if metricsAddr != "" {
		stop := serveMetrics(metricsAddr, reg)
		defer stop()
	}

	gateway, err := search.NewGatewayFromConfig(cfg.Search, nil, logger, metrics)
	if err != nil {
		return err
	}
	gen, err := llm.New(cfg.Generation, nil)
	if err != nil {
		return err
	}
	adapter := structured.NewAdapter(gen, cfg.Generation.MaxRetries, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if cfg.Session.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Session.Timeout)
		defer cancel()
	}

	logger.Info("starting research",
		zap.String("query", query),
		zap.String("generator", gen.Name()),
		zap.Strings("backends", gateway.Backends()))

	orch := research.New(cfg, gateway, adapter,
		research.WithLogger(logger),
		research.WithBackend(backend))
	snap, runErr := orch.Run(ctx, query)

	if err := emit(cmd, snap, toStdout); err != nil {
		return errors.Join(runErr, err)
	}
	if runErr != nil {
		return runErr
	}
	if snap.Aborted {
		return fmt.Errorf("research aborted: %s", snap.AbortReason)
	}
	return nil
}

// emit writes the snapshot to its destination and archives it.
func emit(cmd *cobra.Command, snap types.SessionSnapshot, toStdout bool) error {
	if toStdout {
		if err := writeSnapshot(cmd.OutOrStdout(), snap, cfg.Output.Format); err != nil {
			return err
		}
	} else {
		path, err := saveSnapshot(cfg.Output, snap, time.Now())
		if err != nil {
			return err
		}
		logger.Info("session written", zap.String("path", path))
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}

	if cfg.Output.Archive == "" {
		return nil
	}
	store, err := archive.Open(cfg.Output.Archive)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Save(context.Background(), snap); err != nil {
		return fmt.Errorf("archiving session: %w", err)
	}
	logger.Info("session archived", zap.String("archive", cfg.Output.Archive), zap.String("id", snap.ID))
	return nil
}

// serveMetrics exposes reg on addr until the returned function is called.
func serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func init() {
	flags := researchCmd.Flags()
	flags.Int("max-iterations", 3, "search rounds including the initial one")
	flags.Int("initial-results", 8, "results requested for the original query")
	flags.Int("additional-results", 5, "results requested per follow-up query")
	flags.Int("max-follow-ups", 3, "follow-up queries issued per round")
	flags.String("provider", "ollama", "generation provider: "+strings.Join(llm.Providers, ", "))
	flags.String("model", "", "model identifier (default: provider default)")
	flags.String("base-url", "", "override the provider endpoint")
	flags.Float64("temperature", 0.7, "sampling temperature")
	flags.Duration("timeout", 0, "bound on total session time (0 = none)")
	flags.String("output-dir", "output", "directory for session files")
	flags.String("format", "yaml", "session file format: yaml, json, or markdown")
	flags.String("archive", "", "SQLite archive path for finished sessions")
	flags.String("backend", "", "force every search to one backend: google or duckduckgo")
	flags.Bool("stdout", false, "write the session to stdout instead of a file")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address during the run (e.g. :9090)")

	bindFlags(flags, map[string]string{
		"max-iterations":     "iteration.max_iterations",
		"initial-results":    "iteration.initial_result_count",
		"additional-results": "iteration.additional_result_count",
		"max-follow-ups":     "iteration.max_follow_up_queries",
		"provider":           "generation.provider",
		"model":              "generation.model",
		"base-url":           "generation.base_url",
		"temperature":        "generation.temperature",
		"timeout":            "session.timeout",
		"output-dir":         "output.dir",
		"format":             "output.format",
		"archive":            "output.archive",
	})

	rootCmd.AddCommand(researchCmd)
}
