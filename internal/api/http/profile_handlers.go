package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BigJoe84g/Krill-Browser/internal/policy/profile"
)

// ListProfiles lists every profile and marks the active one
func (h *Handlers) ListProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"profiles": h.engine.Profiles(),
		"active":   h.engine.Profile(),
	})
}

// GetProfile returns the active profile
func (h *Handlers) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.ActiveProfile())
}

// SwitchProfile activates a profile and returns the resulting toggles
func (h *Handlers) SwitchProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	pid, err := profile.ParseID(req.Profile)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.SwitchProfile(pid); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile": h.engine.ActiveProfile(),
		"toggles": h.engine.Toggles(),
	})
}

// AddProfileSite extends a profile's blocked or allowed sites
func (h *Handlers) AddProfileSite(c *gin.Context) {
	pid, err := profile.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req SiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.engine.AddProfileSite(pid, req.Site, req.Allow); err != nil {
		badRequest(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"profile": pid,
		"site":    req.Site,
		"allow":   req.Allow,
	})
}

// GetToggles returns the global switches
func (h *Handlers) GetToggles(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Toggles())
}

// UpdateToggles applies a partial update
func (h *Handlers) UpdateToggles(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, h.engine.UpdateToggles(req))
}

// BrowserSettings returns what the rendering engine needs per navigation
func (h *Handlers) BrowserSettings(c *gin.Context) {
	t := h.engine.Toggles()
	c.JSON(http.StatusOK, gin.H{
		"referrer_policy":           h.engine.ReferrerPolicy(),
		"javascript_enabled":        h.engine.JavaScriptAllowed(),
		"do_not_track":              h.engine.DoNotTrack(),
		"block_third_party_cookies": t.BlockThirdPartyCookies,
		"private_mode":              t.PrivateMode,
	})
}
