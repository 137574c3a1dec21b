package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joshuamtm/compas-navigator/internal/observability"
	"github.com/joshuamtm/compas-navigator/internal/server"
	"github.com/joshuamtm/compas-navigator/pkg/config"
	pkgobs "github.com/joshuamtm/compas-navigator/pkg/observability"
	"github.com/joshuamtm/compas-navigator/pkg/security"
	"github.com/joshuamtm/compas-navigator/pkg/session"
)

func serveCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the coaching HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", os.Getenv("CONFIG_FILE"), "Configuration file")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log.Printf("starting compas-navigator v%s (provider=%s policy=%s store=%s)",
		Version, cfg.Provider, cfg.Policy.Kind, cfg.Store.Kind)

	pkgobs.InitMetrics()
	pkgobs.SetVersion(Version)

	if err := observability.Init(observability.Config{
		ServiceName:  "compas-navigator",
		Enabled:      cfg.Tracing.Enabled,
		ExporterType: cfg.Tracing.ExporterType,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPHeaders:  observability.ParseHeaders(cfg.Tracing.OTLPHeaders),
	}); err != nil {
		return err
	}

	eng, store, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	registerHealthChecks(store)

	var serverOpts []server.ServerOption
	if cfg.RateLimit.Enabled {
		serverOpts = append(serverOpts, server.WithRateLimiter(
			security.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)))
	}

	apiServer := server.New(eng, cfg.Server.Addr, serverOpts...)
	opsServer := pkgobs.NewServer(cfg.Server.OpsAddr)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("api listening on %s", cfg.Server.Addr)
		return apiServer.Start()
	})
	g.Go(func() error {
		log.Printf("ops listening on %s", cfg.Server.OpsAddr)
		return opsServer.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("api shutdown: %v", err)
		}
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("ops shutdown: %v", err)
		}
		if err := observability.Shutdown(shutdownCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	log.Println("stopped")
	return nil
}

// registerHealthChecks wires the store into the readiness probe. Stores with
// a native ping use it; the rest prove liveness by listing sessions.
func registerHealthChecks(store session.Store) {
	checker := pkgobs.GetHealthChecker()

	type pinger interface {
		Ping(ctx context.Context) error
	}

	if p, ok := store.(pinger); ok {
		checker.RegisterCheck(pkgobs.StoreCheck(p.Ping))
		return
	}
	checker.RegisterCheck(pkgobs.StoreCheck(func(ctx context.Context) error {
		_, err := store.List(ctx)
		return err
	}))
}
