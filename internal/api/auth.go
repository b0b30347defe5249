package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"github.com/pageza/recipebox/internal/apperrors"
	"github.com/pageza/recipebox/internal/monitoring"
	"github.com/pageza/recipebox/internal/service"
	"github.com/pageza/recipebox/internal/session"
	"github.com/pageza/recipebox/internal/types"
)

const (
	msgRegistrationFailed = "User registration failed"
	msgLogoutFailed       = "Logout failed"
	msgLoginFailed        = "Login failed"
)

// AuthHandler serves the pages and form posts around user accounts
type AuthHandler struct {
	authService service.IAuthService
	sessions    SessionManager
	metrics     *monitoring.Metrics
	log         *zap.Logger
}

func NewAuthHandler(authService service.IAuthService, sessions SessionManager, metrics *monitoring.Metrics, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		metrics:     metrics,
		log:         log,
	}
}

// RegisterPages mounts the HTML pages at the site root
func (h *AuthHandler) RegisterPages(router gin.IRouter) {
	router.GET("/", h.Home)
	router.GET("/login", h.LoginPage)
	router.POST("/login", h.Login)
	router.GET("/register", h.RegisterPage)
}

// RegisterRoutes mounts the account actions on router. They are mounted at
// the site root and under /api/user.
func (h *AuthHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/register", h.Register)
	router.GET("/logout", h.Logout)
}

func (h *AuthHandler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", gin.H{"logged_in": session.FromContext(c).LoggedIn})
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"logged_in": session.FromContext(c).LoggedIn})
}

func (h *AuthHandler) RegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{"logged_in": session.FromContext(c).LoggedIn})
}

// Register creates an account from an allow-listed body. An existing email
// re-renders the sign-up page and a new account renders the home page. The
// new user is not logged in.
func (h *AuthHandler) Register(c *gin.Context) {
	req, err := bindRegister(c)
	if err != nil {
		respondErrorStatus(c, h.log, err, apperrors.KindValidation, http.StatusBadRequest, msgRegistrationFailed)
		return
	}

	s := session.FromContext(c)
	user, err := h.authService.Register(c.Request.Context(), req)
	switch {
	case apperrors.Is(err, apperrors.KindConflict):
		h.log.Info("registration for existing email", zap.String("request_id", requestID(c)))
		c.HTML(http.StatusOK, "register.html", gin.H{"logged_in": s.LoggedIn})
		return
	case err != nil:
		respondErrorStatus(c, h.log, err, registerFailureKind(err), http.StatusBadRequest, msgRegistrationFailed)
		return
	}

	h.metrics.UserRegistered()
	h.log.Info("registered user", zap.String("user_id", user.ID.String()))
	c.HTML(http.StatusOK, "home.html", gin.H{"logged_in": s.LoggedIn})
}

func registerFailureKind(err error) apperrors.Kind {
	if kind := apperrors.KindOf(err); kind != apperrors.KindInternal {
		return kind
	}
	return apperrors.KindStore
}

// bindRegister decodes the registration body, rejecting any key outside the
// allow-list for both JSON and form submissions.
func bindRegister(c *gin.Context) (types.RegisterRequest, error) {
	var req types.RegisterRequest

	switch c.ContentType() {
	case binding.MIMEJSON:
		dec := json.NewDecoder(c.Request.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return req, apperrors.Validation(msgRegistrationFailed, err)
		}
	default:
		if err := c.Request.ParseMultipartForm(32 << 10); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return req, apperrors.Validation(msgRegistrationFailed, err)
		}
		for key := range c.Request.PostForm {
			if !allowedRegisterField(key) {
				return req, apperrors.Validation(msgRegistrationFailed, fmt.Errorf("unknown field %q", key))
			}
		}
		if mf := c.Request.MultipartForm; mf != nil {
			for key := range mf.File {
				return req, apperrors.Validation(msgRegistrationFailed, fmt.Errorf("unexpected file field %q", key))
			}
		}
		if err := c.ShouldBindWith(&req, binding.Form); err != nil {
			return req, apperrors.Validation(msgRegistrationFailed, err)
		}
	}

	if err := binding.Validator.ValidateStruct(&req); err != nil {
		return req, apperrors.Validation(msgRegistrationFailed, err)
	}
	return req, nil
}

func allowedRegisterField(key string) bool {
	for _, f := range types.RegisterFields {
		if f == key {
			return true
		}
	}
	return false
}

// Login checks the credentials and replaces the session with an
// authenticated one.
func (h *AuthHandler) Login(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.metrics.Login("invalid")
		c.HTML(http.StatusBadRequest, "login.html", gin.H{
			"error": "Email and password are required",
			"email": req.Email,
		})
		return
	}

	user, err := h.authService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if apperrors.Is(err, apperrors.KindUnauthorized) {
			h.metrics.Login("rejected")
			h.log.Info("login rejected", zap.String("request_id", requestID(c)))
			c.HTML(http.StatusUnauthorized, "login.html", gin.H{
				"error": clientMessage(err),
				"email": req.Email,
			})
			return
		}
		h.metrics.Login("error")
		respondError(c, h.log, err, msgLoginFailed)
		return
	}

	if _, err := h.sessions.Login(c, session.FromContext(c), user.ID); err != nil {
		h.metrics.Login("error")
		respondError(c, h.log, apperrors.Session("save session", err), msgLoginFailed)
		return
	}

	h.metrics.Login("success")
	c.Redirect(http.StatusFound, "/")
}

// Logout destroys the session and sends the client to the login page.
// Logging out an anonymous session succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Destroy(c, session.FromContext(c)); err != nil {
		respondError(c, h.log, apperrors.Session("destroy session", err), msgLogoutFailed)
		return
	}
	c.Redirect(http.StatusFound, "/login")
}
