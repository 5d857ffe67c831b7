package auth

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/junaidrashid-git/cart-api/middleware"
)

// POST /auth/guest
// Issues a stable anonymous session id. The client sends it back in the
// X-Session-Id header; the token is an optional signed wrapper for
// clients that prefer bearer auth.
func CreateGuestSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := uuid.NewString()

		token, err := issueGuestToken(sessionID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Token generation failed"})
			return
		}

		c.Header(middleware.SessionHeader, sessionID)
		c.JSON(http.StatusOK, gin.H{
			"session_id": sessionID,
			"token":      token,
			"expires_at": time.Now().Add(24 * time.Hour),
		})
	}
}

func issueGuestToken(sessionID string) (string, error) {
	claims := jwt.MapClaims{
		"session_id": sessionID,
		"role":       "guest",
		"exp":        time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}
