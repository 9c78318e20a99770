package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Bharatkumawat03/pedalWB-sub001/services/common/auth"
	apperrors "github.com/Bharatkumawat03/pedalWB-sub001/services/common/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	GuestIDHeader = "X-Guest-ID"
	GuestIDCookie = "guest_id"

	guestIDKey = "guestID"
	userIDKey  = "userID"
	tokenKey   = "accessToken"
)

var guestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// GuestIdentity makes sure every request carries a guest id, issuing a new
// one (and a cookie for it) when the browser has none or sent garbage.
func GuestIdentity(cookieTTL time.Duration, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		guestID := c.GetHeader(GuestIDHeader)
		if guestID == "" {
			if v, err := c.Cookie(GuestIDCookie); err == nil {
				guestID = v
			}
		}

		if !guestIDPattern.MatchString(guestID) {
			guestID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(GuestIDCookie, guestID, int(cookieTTL.Seconds()), "/", "", secureCookie, true)
		}

		c.Header(GuestIDHeader, guestID)
		c.Set(guestIDKey, guestID)
		c.Next()
	}
}

// OptionalAuth authenticates the request when it carries a bearer token.
// Requests without one continue as guests; a bad token is rejected.
func OptionalAuth(validator *auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			apperrors.HandleError(c, apperrors.WithMessage(apperrors.ErrInvalidToken, "malformed Authorization header"))
			return
		}

		claims, err := validator.ParseAndValidateToken(token, "access")
		if err != nil {
			apperrors.HandleError(c, apperrors.Wrap(apperrors.ErrInvalidToken, err))
			return
		}
		userID, err := auth.UserID(claims)
		if err != nil {
			apperrors.HandleError(c, apperrors.Wrap(apperrors.ErrInvalidToken, err))
			return
		}

		c.Set(userIDKey, userID)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// RequireAuth rejects requests OptionalAuth did not authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUser(c); !ok {
			apperrors.HandleError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "sign in required"))
			return
		}
		c.Next()
	}
}

func GetGuestID(c *gin.Context) string {
	return c.GetString(guestIDKey)
}

// GetUser returns the authenticated user id and the bearer token to forward
// upstream.
func GetUser(c *gin.Context) (userID string, ok bool) {
	userID = c.GetString(userIDKey)
	return userID, userID != ""
}

func GetToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
