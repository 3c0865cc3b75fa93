// Command admissiond runs the admission-control HTTP server: it loads a
// topology/algorithm config, seeds the registry's initial queues, and
// serves the add_clients/del_client/add_queue/del_queue surface over HTTP
// until told to shut down. Grounded in the teacher's cmd/simd/main.go
// (flag parsing, signal.NotifyContext, graceful shutdown), minus the gRPC
// half the teacher also runs — this domain's transport is HTTP-only
// (SPEC_FULL.md §6 drops RPC wire format as out of scope).
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snc-qos/admission-core/internal/admission"
	"github.com/snc-qos/admission-core/internal/analysis"
	"github.com/snc-qos/admission-core/internal/enforcer"
	"github.com/snc-qos/admission-core/internal/httpapi"
	"github.com/snc-qos/admission-core/internal/mmbp"
	"github.com/snc-qos/admission-core/internal/registry"
	"github.com/snc-qos/admission-core/pkg/config"
	"github.com/snc-qos/admission-core/pkg/logger"
)

func main() {
	var configPath string
	var httpAddr string

	flag.StringVar(&configPath, "config", "", "path to a YAML config file (see pkg/config)")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			logger.Error("failed to load config", "path", configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if httpAddr != "" {
		cfg.ListenAddr = httpAddr
	}

	logger.SetDefault(logger.NewText(cfg.LogLevel, os.Stdout))

	strategy, err := analysis.ParseStrategy(cfg.Algorithm)
	if err != nil {
		logger.Error("invalid algorithm in config", "algorithm", cfg.Algorithm, "error", err)
		os.Exit(1)
	}

	reg := registry.New()
	for _, q := range cfg.InitialQueues {
		if _, err := reg.AddQueue(q.Name, q.Bandwidth); err != nil {
			logger.Error("failed to seed initial queue", "name", q.Name, "error", err)
			os.Exit(1)
		}
	}

	mmbpCfg := mmbp.Config{
		MaxStates:            cfg.MMBP.MaxStates,
		IntervalWidthSeconds: cfg.MMBP.IntervalWidthSeconds,
		StepSizeSeconds:      cfg.MMBP.StepSizeSeconds,
	}

	ctrl := admission.New(reg, strategy, cfg.MMBP.StepSizeSeconds, mmbpCfg, enforcer.NewHTTPEnforcer())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.NewServer(ctrl).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("admission HTTP server listening", "addr", cfg.ListenAddr, "algorithm", cfg.Algorithm)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
}
