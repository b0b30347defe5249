package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/recipebox/internal/apperrors"
)

const (
	// CookieName is the session cookie name
	CookieName = "recipebox.sid"
	contextKey = "session"
)

// Options configures a Manager
type Options struct {
	TTL    time.Duration
	Secure bool
}

// Manager loads the session for each request and persists changes
type Manager struct {
	store Store
	codec *Codec
	opts  Options
	log   *zap.Logger
}

// NewManager creates a Manager
func NewManager(store Store, codec *Codec, opts Options, log *zap.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &Manager{store: store, codec: codec, opts: opts, log: log}
}

// Middleware attaches the request's session to the gin context. A missing,
// tampered or expired cookie yields a fresh anonymous session.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := m.load(c)
		if err != nil {
			m.log.Error("failed to load session", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				apperrors.NewPayload(apperrors.KindSession, "Session unavailable"))
			return
		}
		c.Set(contextKey, s)
		c.Next()
	}
}

func (m *Manager) load(c *gin.Context) (Session, error) {
	if value, err := c.Cookie(CookieName); err == nil && value != "" {
		id, err := m.codec.Decode(value)
		if err != nil {
			m.log.Debug("rejected session cookie", zap.Error(err))
		} else {
			s, err := m.store.Get(c.Request.Context(), id)
			if err == nil {
				return s, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return Session{}, err
			}
		}
	}
	return New(m.opts.TTL)
}

// FromContext returns the session attached by Middleware. Without one the
// zero Session is returned, which is anonymous and not logged in.
func FromContext(c *gin.Context) Session {
	if v, ok := c.Get(contextKey); ok {
		if s, ok := v.(Session); ok {
			return s
		}
	}
	return Session{}
}

// Save persists s, writes its cookie and makes it the request's session
func (m *Manager) Save(c *gin.Context, s Session) error {
	if s.ID == "" {
		fresh, err := New(m.opts.TTL)
		if err != nil {
			return err
		}
		fresh.UserID, fresh.LoggedIn, fresh.CountVisit = s.UserID, s.LoggedIn, s.CountVisit
		s = fresh
	}
	if err := m.store.Save(c.Request.Context(), s); err != nil {
		return err
	}
	value, err := m.codec.Encode(s.ID, s.ExpiresAt)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, value, int(time.Until(s.ExpiresAt).Seconds()), "/", "", m.opts.Secure, true)
	c.Set(contextKey, s)
	return nil
}

// Login replaces s with an authenticated session for userID
func (m *Manager) Login(c *gin.Context, s Session, userID uuid.UUID) (Session, error) {
	if s.ID != "" {
		if err := m.store.Destroy(c.Request.Context(), s.ID); err != nil {
			return Session{}, err
		}
	}
	next, err := Authenticate(userID, m.opts.TTL)
	if err != nil {
		return Session{}, err
	}
	if err := m.Save(c, next); err != nil {
		return Session{}, err
	}
	return next, nil
}

// Destroy removes s from the store and expires the cookie. Destroying a
// session that was never saved succeeds.
func (m *Manager) Destroy(c *gin.Context, s Session) error {
	if s.ID != "" {
		if err := m.store.Destroy(c.Request.Context(), s.ID); err != nil {
			return err
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", m.opts.Secure, true)
	c.Set(contextKey, Session{})
	return nil
}
