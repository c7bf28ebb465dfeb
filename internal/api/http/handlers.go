package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/monitoring"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/engine"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	engine  *engine.Engine
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandlers creates a new handler set. metrics may be nil.
func NewHandlers(eng *engine.Engine, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		engine:  eng,
		metrics: metrics,
		logger:  logger,
	}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	// Navigation and downloads
	r.POST("/evaluate", h.Evaluate)
	r.POST("/security-level", h.SecurityLevel)
	r.POST("/downloads/classify", h.ClassifyDownload)
	r.POST("/downloads/inspect", h.InspectDownload)

	// Phishing
	r.POST("/phishing/check", h.CheckPhishing)
	r.GET("/phishing/domains", h.ListPhishingDomains)
	r.POST("/phishing/domains", h.AddPhishingDomain)

	// Profiles and toggles
	r.GET("/profiles", h.ListProfiles)
	r.GET("/profile", h.GetProfile)
	r.PUT("/profile", h.SwitchProfile)
	r.POST("/profiles/:id/sites", h.AddProfileSite)
	r.GET("/toggles", h.GetToggles)
	r.PUT("/toggles", h.UpdateToggles)
	r.GET("/browser-settings", h.BrowserSettings)

	// Blocklist
	r.GET("/blocklist", h.ListBlocklist)
	r.POST("/blocklist", h.AddBlocklist)
	r.DELETE("/blocklist/:domain", h.RemoveBlocklist)

	// Privacy and stats
	r.POST("/panic", h.Panic)
	r.GET("/stats", h.Stats)
}

// Root handles the liveness check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Krill policy daemon",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"profile":           h.engine.Profile(),
		"blocklist_entries": len(h.engine.Blocklist()),
		"phishing_domains":  len(h.engine.PhishingDomains()),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
