package notifications

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"medivault-backend/login"
)

type Handler struct {
	Store Store
}

func NewHandler(store Store) *Handler { return &Handler{Store: store} }

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/notifications", h.List)
	r.PUT("/notifications/:id", h.MarkRead)
}

func (h *Handler) List(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "email is required"})
		return
	}
	if !login.Authorize(c, email) {
		return
	}
	list, err := h.Store.ListByOwner(c.Request.Context(), email)
	if err != nil {
		log.Printf("[NOTIFY][LIST][ERROR] email=%s err=%v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching notifications"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// MarkRead is idempotent: an already-read notification stays read.
func (h *Handler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	n, err := h.Store.Get(c.Request.Context(), id)
	if err != nil {
		log.Printf("[NOTIFY][READ][ERROR] id=%s err=%v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server Error"})
		return
	}
	if n == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Notification not found"})
		return
	}
	if !login.Authorize(c, n.Owner) {
		return
	}
	found, err := h.Store.MarkRead(c.Request.Context(), id)
	if err != nil {
		log.Printf("[NOTIFY][READ][ERROR] id=%s err=%v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server Error"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
