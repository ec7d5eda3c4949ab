package login

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"medivault-backend/accounts"
	mailer "medivault-backend/email"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Handler struct {
	Accounts *accounts.Service
	Tokens   *Tokens
	// Welcome is called after signup; failures are only logged.
	Welcome func(to, name, role string) error
}

func NewHandler(svc *accounts.Service, tokens *Tokens) *Handler {
	return &Handler{Accounts: svc, Tokens: tokens, Welcome: mailer.SendWelcome}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/login", h.Login)
	r.POST("/signup", h.Signup)
}

func (h *Handler) Login(c *gin.Context) {
	var creds Credentials
	if err := c.ShouldBindJSON(&creds); err != nil || creds.Email == "" || creds.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email and password are required"})
		return
	}
	acc, err := h.Accounts.Authenticate(c.Request.Context(), creds.Email, creds.Password)
	if errors.Is(err, accounts.ErrInvalidCredentials) {
		log.Printf("[LOGIN][DENY] email=%s", creds.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}
	if err != nil {
		log.Printf("[LOGIN][ERROR] email=%s err=%v", creds.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Login failed"})
		return
	}
	token, exp, err := h.Tokens.Issue(acc.Email, acc.Role)
	if err != nil {
		log.Printf("[LOGIN][TOKEN][ERROR] email=%s err=%v", acc.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Login failed"})
		return
	}
	log.Printf("[LOGIN][OK] email=%s role=%s", acc.Email, acc.Role)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"role":      acc.Role,
		"name":      acc.Name,
		"email":     acc.Email,
		"token":     token,
		"expiresAt": exp.UTC(),
	})
}

func (h *Handler) Signup(c *gin.Context) {
	var p accounts.Signup
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}
	acc, err := h.Accounts.Register(c.Request.Context(), p)
	var ve *accounts.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": ve.Msg})
		return
	case errors.Is(err, accounts.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Email already registered"})
		return
	case err != nil:
		log.Printf("[SIGNUP][ERROR] email=%s err=%v", p.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Could not create account"})
		return
	}
	if h.Welcome != nil {
		if err := h.Welcome(acc.Email, acc.Name, acc.Role); err != nil {
			log.Printf("[SIGNUP][EMAIL] welcome not sent to %s: %v", acc.Email, err)
		}
	}
	log.Printf("[SIGNUP][OK] email=%s role=%s", acc.Email, acc.Role)
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Account created successfully"})
}
