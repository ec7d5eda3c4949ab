package profile

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"medivault-backend/accounts"
	"medivault-backend/login"
)

type Handler struct {
	Accounts accounts.Store
}

func NewHandler(store accounts.Store) *Handler { return &Handler{Accounts: store} }

// RegisterRoutes registers profile endpoints
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/profile", h.Get)
	r.POST("/profile/update", h.Update)
	r.GET("/patients", h.Patients)
}

func (h *Handler) Get(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "email is required"})
		return
	}
	if !login.Authorize(c, email) {
		return
	}
	acc, err := h.Accounts.GetByEmail(c.Request.Context(), email)
	if err != nil {
		log.Printf("[PROFILE][GET][ERROR] email=%s err=%v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server Error"})
		return
	}
	if acc == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": acc})
}

// updateRequest accepts {email, ...fields}; only fields present in the body
// are applied.
type updateRequest struct {
	Email string `json:"email"`
	accounts.Patch
}

func (h *Handler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "email is required"})
		return
	}
	if !login.Authorize(c, email) {
		return
	}
	ctx := c.Request.Context()
	acc, err := h.Accounts.GetByEmail(ctx, email)
	if err != nil {
		log.Printf("[PROFILE][UPDATE][ERROR] email=%s err=%v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server Error"})
		return
	}
	if acc == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
		return
	}
	if acc.Apply(req.Patch) {
		if err := h.Accounts.Update(ctx, acc); err != nil {
			log.Printf("[PROFILE][UPDATE][ERROR] email=%s err=%v", email, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server Error"})
			return
		}
		log.Printf("[PROFILE][UPDATE] email=%s", email)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": acc})
}

// Patients lists every patient account; doctors use it to pick an upload
// target.
func (h *Handler) Patients(c *gin.Context) {
	if id := login.Current(c); id != nil && id.Role != accounts.RoleDoctor {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Only doctors can list patients"})
		return
	}
	list, err := h.Accounts.ListByRole(c.Request.Context(), accounts.RolePatient)
	if err != nil {
		log.Printf("[PROFILE][PATIENTS][ERROR] err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server Error"})
		return
	}
	c.JSON(http.StatusOK, list)
}
