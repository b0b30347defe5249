package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/recipebox/internal/api"
	"github.com/pageza/recipebox/internal/models"
	"github.com/pageza/recipebox/internal/monitoring"
	"github.com/pageza/recipebox/internal/router"
	"github.com/pageza/recipebox/internal/service"
	"github.com/pageza/recipebox/internal/session"
	"github.com/pageza/recipebox/internal/testhelpers"
	"github.com/pageza/recipebox/internal/upload"
)

// newClient starts the full router on a test server and returns a client
// that keeps cookies and does not follow redirects.
func newClient(t *testing.T) (*httptest.Server, *http.Client, func(*testing.T, interface{}) int64) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	db := testhelpers.SetupTestDatabase(t)

	store := session.NewMemoryStore(time.Minute)
	t.Cleanup(func() { store.Close() })
	sessions := session.NewManager(store, session.NewCodec("integration-secret"), session.Options{TTL: time.Hour}, log)
	metrics := monitoring.NewMetrics()
	images := upload.NewAcceptor(upload.NewDiskStorage(t.TempDir(), "/uploads"))

	engine, err := router.SetupRouter(log, sessions, metrics,
		api.NewAuthHandler(service.NewAuthService(db, log), sessions, metrics, log),
		api.NewRecipeHandler(service.NewRecipeService(db, log), sessions, images, metrics, log, false),
		api.NewHealthHandler(db, nil, log),
		router.Options{},
	)
	require.NoError(t, err)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	count := func(t *testing.T, model interface{}) int64 {
		return testhelpers.CountRows(t, db, model)
	}
	return srv, client, count
}

func sendJSON(t *testing.T, client *http.Client, method, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(method, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRecipeLifecycle(t *testing.T) {
	srv, client, count := newClient(t)

	// Register does not log in, so guarded routes still redirect
	resp := sendJSON(t, client, http.MethodPost, srv.URL+"/api/user/register", map[string]string{
		"username": "al",
		"email":    "al@x.com",
		"password": "p",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), count(t, &models.User{}))

	resp = sendJSON(t, client, http.MethodPost, srv.URL+"/recipes/create-recipe", map[string]string{"name": "Soup"})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, int64(0), count(t, &models.Recipe{}))

	resp, err := client.PostForm(srv.URL+"/login", url.Values{"email": {"al@x.com"}, "password": {"p"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp = sendJSON(t, client, http.MethodPost, srv.URL+"/recipes/create-recipe", map[string]interface{}{
		"name":        "Pesto",
		"ingredients": "basil, pine nuts, parmesan",
		"has_nuts":    "true",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created models.Recipe
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.True(t, created.HasNuts)
	assert.Equal(t, []string{"basil", "pine nuts", "parmesan"}, created.IngredientNames())

	resp, err = client.Get(srv.URL + "/api/recipes")
	require.NoError(t, err)
	var list struct {
		Recipes []models.Recipe `json:"recipes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list.Recipes, 1)
	assert.Equal(t, created.ID, list.Recipes[0].ID)

	resp, err = client.Get(srv.URL + "/recipes/" + created.ID.String())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = sendJSON(t, client, http.MethodPut, srv.URL+"/recipes/"+created.ID.String(), map[string]string{
		"name":     "Basil pesto",
		"has_nuts": "True",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/recipes/"+created.ID.String(), nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(0), count(t, &models.Recipe{}))
	assert.Equal(t, int64(0), count(t, &models.Ingredient{}))

	resp, err = client.Get(srv.URL + "/logout")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/recipes/" + created.ID.String())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}
