package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shehryarbajwa/entry-proxy/internal/api"
	"github.com/shehryarbajwa/entry-proxy/internal/config"
	"github.com/shehryarbajwa/entry-proxy/internal/logging"
	"github.com/shehryarbajwa/entry-proxy/internal/metrics"
	"github.com/shehryarbajwa/entry-proxy/internal/proxy"
	"github.com/shehryarbajwa/entry-proxy/internal/token"
	"github.com/shehryarbajwa/entry-proxy/internal/upstream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "entry-proxy: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file
	dotenv := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !dotenv {
		logger.Debug("no .env file found, using system environment variables")
	}

	m := metrics.New()

	client, err := upstream.NewClient(upstream.Options{
		BaseURL:   cfg.UpstreamBaseURL,
		UserAgent: cfg.UpstreamUserAgent,
		Timeout:   cfg.UpstreamTimeout,
		Observer:  m,
	})
	if err != nil {
		return err
	}

	chain, err := token.NewChain(token.Options{
		Strategies: cfg.TokenStrategies,
		JSONPath:   cfg.TokenJSONPath,
		Fetcher:    client,
	})
	if err != nil {
		return err
	}
	logger.Info("token strategies configured", zap.Strings("strategies", chain.Names()))

	service := proxy.NewService(client, chain, logger)
	handler := api.NewHandler(service, logger, m)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler.SetupRoutes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	servers := []*http.Server{srv}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		servers = append(servers, &http.Server{
			Addr:        cfg.MetricsAddr,
			Handler:     mux,
			ReadTimeout: cfg.ReadTimeout,
		})
	}

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		s := s // per-iteration copy (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			logger.Info("server starting", zap.String("addr", s.Addr))
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", s.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server gracefully")

		// Shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", s.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}

	logger.Info("server stopped cleanly")
	return nil
}
