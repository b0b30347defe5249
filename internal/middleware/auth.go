package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipebox/internal/session"
)

// LoginPath is where unauthenticated requests are sent
const LoginPath = "/login"

// WithAuth lets the request through only when the session is logged in.
// Otherwise it redirects to the login page and the handler never runs. It
// does not check who owns the requested resource.
func WithAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !session.FromContext(c).LoggedIn {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}
