package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	authorizationHeader = "Authorization"
	authorizationType   = "Bearer"
	ContextUserIDKey    = "userID"
)

// AccessTokenValidator resolves an access token to the user it was issued to.
// Refresh tokens must be refused.
type AccessTokenValidator interface {
	ValidateToken(token string) (string, error)
}

// AuthMiddleware admits requests carrying a valid bearer access token. The
// owner id is stored under ContextUserIDKey and added as user_id to the
// request logger, so every later log line of the request names its owner.
func AuthMiddleware(tokens AccessTokenValidator, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "auth").Logger()

	return func(c *gin.Context) {
		token, reason := bearerToken(c.GetHeader(authorizationHeader))
		if reason != "" {
			refuse(c, log, reason, nil)
			return
		}

		userID, err := tokens.ValidateToken(token)
		if err != nil {
			refuse(c, log, "invalid or expired token", err)
			return
		}

		c.Set(ContextUserIDKey, userID)
		zerolog.Ctx(c.Request.Context()).UpdateContext(func(zc zerolog.Context) zerolog.Context {
			return zc.Str("user_id", userID)
		})

		c.Next()
	}
}

func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "authorization header required"
	}
	fields := strings.Fields(header)
	if len(fields) < 2 || fields[0] != authorizationType {
		return "", "invalid authorization header format"
	}
	return fields[1], ""
}

func refuse(c *gin.Context, log zerolog.Logger, reason string, err error) {
	log.Debug().Err(err).
		Str("path", c.Request.URL.Path).
		Str("ip", c.ClientIP()).
		Msg(reason)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
}

func GetUserID(c *gin.Context) (string, bool) {
	id, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	idStr, ok := id.(string)
	return idStr, ok
}
