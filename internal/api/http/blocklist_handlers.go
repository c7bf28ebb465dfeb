package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BigJoe84g/Krill-Browser/internal/policy/engine"
)

// ListBlocklist returns every blocklist entry and the user-added subset
func (h *Handlers) ListBlocklist(c *gin.Context) {
	entries := h.engine.Blocklist()
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"custom":  h.engine.CustomBlocklist(),
		"count":   len(entries),
	})
}

// AddBlocklist adds a user domain
func (h *Handlers) AddBlocklist(c *gin.Context) {
	var req DomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	added := h.engine.AddBlockedDomain(req.Domain)
	h.syncBlocklistGauge()

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"added":  added,
		"domain": req.Domain,
	})
}

// RemoveBlocklist removes a domain
func (h *Handlers) RemoveBlocklist(c *gin.Context) {
	domain := c.Param("domain")
	if !h.engine.RemoveBlockedDomain(domain) {
		c.JSON(http.StatusNotFound, gin.H{"error": "domain not in blocklist"})
		return
	}
	h.syncBlocklistGauge()

	c.JSON(http.StatusOK, gin.H{
		"removed": true,
		"domain":  domain,
	})
}

// Panic wipes all browsing data through the configured clearer
func (h *Handlers) Panic(c *gin.Context) {
	err := h.engine.PanicClear(c.Request.Context())
	switch {
	case errors.Is(err, engine.ErrNoClearer):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("Panic clear failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// Stats returns policy counters and, when metrics are wired, a request summary
func (h *Handlers) Stats(c *gin.Context) {
	resp := gin.H{
		"profile": h.engine.Profile(),
		"policy":  h.engine.Stats(),
	}
	if h.metrics != nil {
		resp["server"] = summarize(h.metrics.Snapshot())
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) syncBlocklistGauge() {
	if h.metrics != nil {
		h.metrics.SetBlocklistEntries(len(h.engine.Blocklist()))
	}
}
