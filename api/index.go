// Package handler exposes the combined Loomi gateway as a serverless function.
package handler

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	config "loomi-api/configs"
	"loomi-api/pkg/app"
	"loomi-api/pkg/router"
	"loomi-api/pkg/services"
)

var (
	engine http.Handler
	once   sync.Once
)

// setupApp builds the gateway once per function instance. Environment
// variables come from the platform, so no .env file is read.
func setupApp() http.Handler {
	once.Do(func() {
		cfg := config.LoadConfig()
		app.SetupLogging(cfg)

		monitoring := services.NewMonitoringService(router.GatewayService, nil)
		a, err := app.New(context.Background(), cfg, monitoring)
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize gateway")
			engine = unavailable(err)
			return
		}

		var maintenance atomic.Bool
		engine = router.NewGateway(cfg, monitoring, &maintenance, a.Services)
		log.Info().Msg("gateway initialized")
	})
	return engine
}

func unavailable(err error) http.Handler {
	r := gin.New()
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service initialization failed: " + err.Error()})
	})
	return r
}

// Handler is the entrypoint for every request routed to the function.
func Handler(w http.ResponseWriter, r *http.Request) {
	setupApp().ServeHTTP(w, r)
}
