package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/recipebox/internal/monitoring"
	"github.com/pageza/recipebox/internal/service"
	"github.com/pageza/recipebox/internal/session"
	"github.com/pageza/recipebox/internal/upload"
	"github.com/pageza/recipebox/web"
)

const testSecret = "api-test-secret"

type testEnv struct {
	router    *gin.Engine
	store     *session.MemoryStore
	codec     *session.Codec
	metrics   *monitoring.Metrics
	uploadDir string
}

func newTestEnv(t *testing.T, authService service.IAuthService, recipeService service.IRecipeService, strict bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := session.NewMemoryStore(time.Minute)
	t.Cleanup(func() { store.Close() })
	codec := session.NewCodec(testSecret)
	manager := session.NewManager(store, codec, session.Options{TTL: time.Hour}, zap.NewNop())
	metrics := monitoring.NewMetrics()

	tmpl, err := web.Templates()
	require.NoError(t, err)

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(manager.Middleware())

	uploadDir := t.TempDir()
	images := upload.NewAcceptor(upload.NewDiskStorage(uploadDir, "/uploads"))
	authHandler := NewAuthHandler(authService, manager, metrics, zap.NewNop())
	recipeHandler := NewRecipeHandler(recipeService, manager, images, metrics, zap.NewNop(), strict)

	authHandler.RegisterPages(router)
	authHandler.RegisterRoutes(router)
	authHandler.RegisterRoutes(router.Group("/api/user"))
	recipeHandler.RegisterRoutes(router, RouteOptions{})
	recipeHandler.RegisterRoutes(router.Group("/api"), RouteOptions{})

	return &testEnv{router: router, store: store, codec: codec, metrics: metrics, uploadDir: uploadDir}
}

func newDBTestEnv(t *testing.T, db *gorm.DB, strict bool) *testEnv {
	t.Helper()
	return newTestEnv(t,
		service.NewAuthService(db, zap.NewNop()),
		service.NewRecipeService(db, zap.NewNop()),
		strict,
	)
}

// login stores an authenticated session for userID and returns its cookie
func (e *testEnv) login(t *testing.T, userID uuid.UUID) *http.Cookie {
	t.Helper()
	s, err := session.Authenticate(userID, time.Hour)
	require.NoError(t, err)
	require.NoError(t, e.store.Save(context.Background(), s))
	value, err := e.codec.Encode(s.ID, s.ExpiresAt)
	require.NoError(t, err)
	return &http.Cookie{Name: session.CookieName, Value: value}
}

// session returns the stored session the cookie points at
func (e *testEnv) session(t *testing.T, cookie *http.Cookie) session.Session {
	t.Helper()
	id, err := e.codec.Decode(cookie.Value)
	require.NoError(t, err)
	s, err := e.store.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

func (e *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(method, path string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func responseCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func httptestGet(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, nil)
}
