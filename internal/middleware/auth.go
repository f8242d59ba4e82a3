package middleware

import (
	"cinema/internal/acl"
	"cinema/internal/auth"
	"cinema/internal/logger"
	"cinema/internal/permission"
	"cinema/pkg/response"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// CookieOptions controls how the access token cookie is written
type CookieOptions struct {
	Secure bool
	TTL    time.Duration
}

// SetTokenCookie sets access_token as an HttpOnly cookie
func SetTokenCookie(c *gin.Context, accessToken string, opts CookieOptions) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	if opts.Secure {
		sameSite = http.SameSiteNoneMode
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", accessToken, int(opts.TTL.Seconds()), "/", "", opts.Secure, true)
}

// ClearTokenCookie removes the access_token cookie
func ClearTokenCookie(c *gin.Context, opts CookieOptions) {
	sameSite := http.SameSiteLaxMode
	if opts.Secure {
		sameSite = http.SameSiteNoneMode
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", opts.Secure, true)
}

// Authenticate validates the access token and stores the actor on the context.
// The token is read from the access_token cookie or the Authorization header.
func Authenticate(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie("access_token")
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		actor, err := claims.Actor()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
			return
		}

		c.Set(actorKey, actor)
		ctx := auth.WithActor(c.Request.Context(), actor)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With("user_id", actor.ID))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequirePermission checks that one of the actor's roles may perform act on obj.
// It must run after Authenticate.
func RequirePermission(enforcer *permission.Enforcer, obj, act string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
			return
		}

		if !enforcer.Allow(actor.Roles, obj, act) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Next()
	}
}

// CurrentActor returns the actor set by Authenticate
func CurrentActor(c *gin.Context) (acl.Actor, bool) {
	v, exists := c.Get(actorKey)
	if !exists {
		return acl.Actor{}, false
	}
	actor, ok := v.(acl.Actor)
	return actor, ok
}
