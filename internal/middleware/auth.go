package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by VerifyToken.
const (
	UserIDKey          = "userID"
	UserEmailKey       = "userEmail"
	UserDisplayNameKey = "userDisplayName"
)

// ErrorResponse is a local definition for sending standardized error messages.
// It mirrors the one in internal/api to avoid import cycles.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// TokenVerifier verifies identity-provider ID tokens. *auth.Client
// implements it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthMiddleware provides Gin middleware for Firebase token authentication.
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	if verifier == nil {
		panic("AuthMiddleware requires a non-nil TokenVerifier")
	}
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// VerifyToken verifies the bearer token of the request and stores the
// caller's identity in the Gin context. Browsers cannot set headers on a
// WebSocket handshake, so a "token" query parameter is accepted as well.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		idToken := c.Query("token")
		if idToken == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header is required"})
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header format must be 'Bearer {token}'"})
				return
			}
			idToken = parts[1]
		}

		token, err := m.verifier.VerifyIDToken(c.Request.Context(), idToken)
		if err != nil {
			m.logger.Warn("Error verifying ID token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired authentication token"})
			return
		}

		c.Set(UserIDKey, token.UID)
		if email, ok := token.Claims["email"].(string); ok {
			c.Set(UserEmailKey, email)
		}
		if name, ok := token.Claims["name"].(string); ok {
			c.Set(UserDisplayNameKey, name)
		}

		c.Next()
	}
}

// RequireAdmin rejects callers whose profile does not carry the admin role.
// It must run after VerifyToken.
func RequireAdmin(isAdmin func(uid string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAdmin(c.GetString(UserIDKey)) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "Administrator role required"})
			return
		}
		c.Next()
	}
}

var errInvalidDevToken = errors.New("dev token must look like dev:{uid}")

// DevVerifier accepts tokens of the form "dev:{uid}" or "dev:{uid}:{email}".
// It is meant for the in-memory backend when no identity provider is
// configured.
type DevVerifier struct{}

func (DevVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	parts := strings.SplitN(idToken, ":", 3)
	if len(parts) < 2 || parts[0] != "dev" || parts[1] == "" {
		return nil, errInvalidDevToken
	}
	token := &auth.Token{UID: parts[1], Claims: map[string]interface{}{}}
	if len(parts) == 3 {
		token.Claims["email"] = parts[2]
	}
	return token, nil
}
