package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	config "loomi-api/configs"
	"loomi-api/pkg/app"
	"loomi-api/pkg/router"
	"loomi-api/pkg/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envErr := godotenv.Load()

	cfg := config.LoadConfig()
	app.SetupLogging(cfg)
	if envErr != nil {
		log.Debug().Err(envErr).Msg(".env file not loaded, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("servers stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	pricingMonitoring := services.NewMonitoringService(router.PricingService, nil)
	supplyMonitoring := services.NewMonitoringService(router.SupplyService, nil)
	aiMonitoring := services.NewMonitoringService(router.AIService, nil)

	a, err := app.New(ctx, cfg, pricingMonitoring)
	if err != nil {
		return errors.Wrap(err, "initialize services")
	}
	defer a.Close()

	servers := newServers(cfg, a, aiMonitoring, pricingMonitoring, supplyMonitoring)
	return serve(ctx, servers)
}

func newServers(cfg *config.Config, a *app.App, aiMonitoring, pricingMonitoring, supplyMonitoring *services.MonitoringService) map[string]*http.Server {
	var aiMaintenance, pricingMaintenance, supplyMaintenance atomic.Bool
	return map[string]*http.Server{
		router.AIService:      newServer(cfg.AIPort, router.NewAssistantRouter(cfg, aiMonitoring, &aiMaintenance, a.Services.Assistant)),
		router.PricingService: newServer(cfg.PricingPort, router.NewPricingRouter(cfg, pricingMonitoring, &pricingMaintenance, a.Services.Pricing)),
		router.SupplyService:  newServer(cfg.SupplyPort, router.NewSupplyRouter(cfg, supplyMonitoring, &supplyMaintenance, a.Services.SupplyChain)),
	}
}

func newServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort("", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// serve runs every server until ctx is done or one of them fails, then shuts
// all of them down.
func serve(ctx context.Context, servers map[string]*http.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	for name, srv := range servers {
		g.Go(func() error {
			log.Info().Str("service", name).Str("addr", srv.Addr).Msg("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrapf(err, "%s server", name)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var firstErr error
		for name, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Str("service", name).Msg("graceful shutdown failed")
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		return firstErr
	})

	return g.Wait()
}
