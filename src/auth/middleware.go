package auth

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"meme-market/src/helpers"
	"meme-market/src/models"
)

const (
	SessionName = "meme_session"

	// APIKeyParam is the query parameter carrying an access token.
	APIKeyParam = "api_key"

	sessionUserKey  = "external_id"
	sessionStateKey = "oauth_state"
	contextUserKey  = "meme.user"

	sessionMaxAge = 30 * 24 * 60 * 60
)

// -----------------------------------------------------------------------------
// Sessions
// -----------------------------------------------------------------------------

// SessionMiddleware keeps the logged-in identity in a signed cookie.
func SessionMiddleware(secret string) gin.HandlerFunc {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(SessionName, store)
}

// SignIn binds the session to a user.
func SignIn(c *gin.Context, user *models.MUser) error {
	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ExternalID)
	session.Delete(sessionStateKey)
	return session.Save()
}

// SignOut forgets the session identity.
func SignOut(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

// SetState remembers the OAuth state parameter for the callback.
func SetState(c *gin.Context, state string) error {
	session := sessions.Default(c)
	session.Set(sessionStateKey, state)
	return session.Save()
}

// CheckState reports whether state matches the one issued to this session.
func CheckState(c *gin.Context, state string) bool {
	expected, ok := sessions.Default(c).Get(sessionStateKey).(string)
	return ok && expected != "" && expected == state
}

// -----------------------------------------------------------------------------
// Identity resolution
// -----------------------------------------------------------------------------

// Resolve attaches the caller's user to the context. An access token in the
// query wins; an unmatched token falls through to the session cookie. Callers
// with neither stay anonymous.
func (s *Service) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if key := c.Query(APIKeyParam); key != "" {
			user, err := s.ResolveAPIKey(ctx, key)
			if err == nil {
				c.Set(contextUserKey, user)
				c.Next()
				return
			}
			if !errors.Is(err, helpers.ErrUserNotFound) {
				s.Logger.Error("Failed to resolve access token: %v", err)
			}
		}

		session := sessions.Default(c)
		if id, ok := session.Get(sessionUserKey).(string); ok && id != "" {
			user, err := s.User(ctx, id)
			switch {
			case err == nil:
				c.Set(contextUserKey, user)
			case errors.Is(err, helpers.ErrUserNotFound):
				session.Delete(sessionUserKey)
				if err := session.Save(); err != nil {
					s.Logger.Warning("Failed to drop stale session: %v", err)
				}
			default:
				s.Logger.Error("Failed to load session user %s: %v", id, err)
			}
		}

		c.Next()
	}
}

// CurrentUser returns the user attached by Resolve.
func CurrentUser(c *gin.Context) (*models.MUser, bool) {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.MUser)
	return user, ok && user != nil
}

// -----------------------------------------------------------------------------

// RequireUser rejects anonymous API calls with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status": "fail",
				"reason": helpers.KindNotAuthenticated,
			})
			return
		}
		c.Next()
	}
}

// RequireLogin sends anonymous browsers to the login page.
func RequireLogin(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}
