package middleware

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/junaidrashid-git/cart-api/models"
)

const (
	// SessionHeader carries the anonymous session id. It is echoed back on
	// every response so the browser keeps a stable owner key.
	SessionHeader = "X-Session-Id"

	ownerContextKey = "owner_key"
)

// Identity resolves the optional-auth owner key for every request: a valid
// bearer token wins and yields a user key; otherwise the session header is
// used, generating a fresh session id when the client has none yet.
// It never rejects a request — cart routes work for guests.
func Identity(c *gin.Context) {
	if userID, ok := userFromToken(c.GetHeader("Authorization")); ok {
		c.Set(ownerContextKey, models.UserOwner(userID))
		c.Next()
		return
	}

	sessionID := c.GetHeader(SessionHeader)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	c.Header(SessionHeader, sessionID)
	c.Set(ownerContextKey, models.SessionOwner(sessionID))
	c.Next()
}

// RequireUser aborts with 401 unless the request carries a valid user
// token. Used by the login-time cart merge.
func RequireUser(c *gin.Context) {
	owner, ok := Owner(c)
	if !ok || !owner.IsUser() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		c.Abort()
		return
	}
	c.Next()
}

// Owner returns the owner key the Identity middleware resolved.
func Owner(c *gin.Context) (models.OwnerKey, bool) {
	val, exists := c.Get(ownerContextKey)
	if !exists {
		return models.OwnerKey{}, false
	}
	owner, ok := val.(models.OwnerKey)
	return owner, ok
}

func userFromToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	tokenString := header
	if len(header) > 7 && header[:7] == "Bearer " {
		tokenString = header[7:]
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	if role, _ := claims["role"].(string); role == "guest" {
		// Guest tokens identify a session, not a user.
		return "", false
	}
	userID, _ := claims["user_id"].(string)
	return userID, userID != ""
}
