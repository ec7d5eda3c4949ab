package share

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"medivault-backend/login"
	"medivault-backend/records"
)

type Handler struct {
	Service    *Service
	LegacyHost string
}

func NewHandler(s *Service, legacyHost string) *Handler {
	return &Handler{Service: s, LegacyHost: legacyHost}
}

// RegisterRoutes mounts issuance, which acts on a patient's data.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/share", h.Issue)
}

// RegisterPublicRoutes mounts redemption; possession of the token is the
// only credential.
func (h *Handler) RegisterPublicRoutes(r gin.IRouter) {
	r.GET("/share/:token", h.Redeem)
}

func (h *Handler) Issue(c *gin.Context) {
	var req struct {
		PatientEmail string `json:"patientEmail"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PatientEmail) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "patientEmail is required"})
		return
	}
	email := strings.TrimSpace(req.PatientEmail)
	if !login.Authorize(c, email) {
		return
	}
	l, err := h.Service.Issue(c.Request.Context(), email)
	if errors.Is(err, ErrPatientNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Patient not found"})
		return
	}
	if err != nil {
		log.Printf("[SHARE][ISSUE][ERROR] email=%s err=%v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Could not create share link"})
		return
	}
	log.Printf("[SHARE][ISSUE] patient=%s expires=%s", l.PatientID, l.ExpiresAt.Format("15:04:05"))
	c.JSON(http.StatusOK, gin.H{"success": true, "token": l.Token, "expiresAt": l.ExpiresAt})
}

func (h *Handler) Redeem(c *gin.Context) {
	token := c.Param("token")
	res, err := h.Service.Redeem(c.Request.Context(), token)
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Invalid link"})
		return
	case errors.Is(err, ErrExpired):
		c.JSON(http.StatusGone, gin.H{"success": false, "message": "This link has expired"})
		return
	case errors.Is(err, ErrPatientNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Patient not found"})
		return
	case err != nil:
		log.Printf("[SHARE][REDEEM][ERROR] err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server Error"})
		return
	}
	log.Printf("[SHARE][REDEEM] records=%d", len(res.Records))
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"patientName":   res.PatientName,
		"patientValues": res.PatientValues,
		"records":       records.ForRequest(res.Records, h.LegacyHost, c.Request),
	})
}
