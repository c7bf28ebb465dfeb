package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxInspectBytes bounds the file head accepted for content sniffing
const maxInspectBytes = 64 * 1024

// Evaluate decides a navigation. Blocks are a normal outcome and answer 200.
func (h *Handlers) Evaluate(c *gin.Context) {
	var req URLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, h.engine.Evaluate(req.URL))
}

// SecurityLevel classifies a URL for the address-bar indicator
func (h *Handlers) SecurityLevel(c *gin.Context) {
	var req URLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":   req.URL,
		"level": h.engine.SecurityLevel(req.URL),
	})
}

// ClassifyDownload scores a download by filename
func (h *Handlers) ClassifyDownload(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, h.engine.ClassifyDownload(req.Filename))
}

// InspectDownload scores a download by filename and content
func (h *Handlers) InspectDownload(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	head := req.Content
	if len(head) > maxInspectBytes {
		head = head[:maxInspectBytes]
	}
	c.JSON(http.StatusOK, h.engine.InspectDownload(req.Filename, head))
}

// CheckPhishing runs the phishing detector
func (h *Handlers) CheckPhishing(c *gin.Context) {
	var req URLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, h.engine.CheckPhishing(req.URL))
}

// ListPhishingDomains lists the known-bad hosts
func (h *Handlers) ListPhishingDomains(c *gin.Context) {
	domains := h.engine.PhishingDomains()
	c.JSON(http.StatusOK, gin.H{
		"domains": domains,
		"count":   len(domains),
	})
}

// AddPhishingDomain reports a phishing host
func (h *Handlers) AddPhishingDomain(c *gin.Context) {
	var req DomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	added := h.engine.AddPhishingDomain(req.Domain)
	status := http.StatusOK
	if added {
		status = http.StatusCreated
		h.logger.Debug("phishing domain reported", zap.String("domain", req.Domain))
	}
	c.JSON(status, gin.H{
		"added":  added,
		"domain": req.Domain,
	})
}
