package handlers

import (
	"crypto/subtle"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	config "loomi-api/configs"
)

// AdminHandler handles administrator operations of one service.
type AdminHandler struct {
	service       string
	adminUsername string
	adminPassword string
	maintenance   *atomic.Bool
}

// NewAdminHandler creates an AdminHandler toggling the given maintenance flag.
func NewAdminHandler(cfg *config.Config, service string, maintenance *atomic.Bool) *AdminHandler {
	return &AdminHandler{
		service:       service,
		adminUsername: cfg.AdminUsername,
		adminPassword: cfg.AdminPassword,
		maintenance:   maintenance,
	}
}

// AdminCredentials is the request body of the maintenance endpoints.
type AdminCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// StartMaintenance turns maintenance mode on.
func (h *AdminHandler) StartMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	h.maintenance.Store(true)
	log.Warn().Str("service", h.service).Msg("maintenance mode started")
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode started"})
}

// StopMaintenance turns maintenance mode off.
func (h *AdminHandler) StopMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	h.maintenance.Store(false)
	log.Info().Str("service", h.service).Msg("maintenance mode stopped")
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode stopped"})
}

// GetHealthStatus reports whether the service is in maintenance mode.
func (h *AdminHandler) GetHealthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": h.service, "isMaintenanceMode": h.maintenance.Load()})
}

// HealthCheck answers load balancer probes; 503 while in maintenance.
func (h *AdminHandler) HealthCheck(c *gin.Context) {
	if h.maintenance.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": h.service, "message": "Server is in maintenance mode"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}

func (h *AdminHandler) authorize(c *gin.Context) bool {
	var input AdminCredentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(input.Username), []byte(h.adminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(input.Password), []byte(h.adminPassword)) == 1
	if h.adminPassword == "" || !userOK || !passOK {
		log.Warn().Str("service", h.service).Str("username", input.Username).Msg("rejected admin credentials")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return false
	}
	return true
}
