package login

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"medivault-backend/accounts"
)

const identityKey = "identity"

// Identity parses a bearer token when one is sent and stores its claims on
// the context. A bad token is always rejected. A missing token is rejected
// only when required is true; otherwise handlers fall back to the email the
// client supplies.
func Identity(tokens *Tokens, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := strings.TrimSpace(c.GetHeader("Authorization"))
		if auth == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
				return
			}
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired token"})
			return
		}
		claims, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			log.Printf("[AUTH][DENY] path=%s err=%v", c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired token"})
			return
		}
		c.Set(identityKey, claims)
		c.Next()
	}
}

// Current returns the verified caller, or nil when the request carried no token.
func Current(c *gin.Context) *Claims {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	cl, _ := v.(*Claims)
	return cl
}

// Authorize reports whether the caller may act on records owned by email.
// An empty email means every owner. Doctors may act on anyone; patients only
// on themselves. Without a verified identity the client-supplied email is
// trusted. On refusal it writes 403 and the handler must return.
func Authorize(c *gin.Context, email string) bool {
	id := Current(c)
	if id == nil || id.Role == accounts.RoleDoctor {
		return true
	}
	if email != "" && email == id.Email {
		return true
	}
	log.Printf("[AUTH][FORBIDDEN] caller=%s target=%q path=%s", id.Email, email, c.Request.URL.Path)
	c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "You are not allowed to access this account's data"})
	return false
}
