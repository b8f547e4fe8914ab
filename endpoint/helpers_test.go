package endpoint

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ariebrainware/clinic-app/app"
	"github.com/ariebrainware/clinic-app/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	testUser     = "maria"
	testPassword = "segredo"
)

// testClient drives the router like a browser, carrying cookies between
// requests.
type testClient struct {
	t       *testing.T
	app     *app.App
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		AppName:         "Clínica",
		AppEnv:          "test",
		DBDriver:        config.DriverSQLite,
		JWTSecret:       "test-secret-123",
		SessionTTL:      time.Hour,
		RememberTTL:     24 * time.Hour,
		LoginRateLimit:  100,
		LoginRateWindow: time.Minute,
	}
	a, err := app.New(context.Background(), cfg, app.Options{
		SecurityOutput: &bytes.Buffer{},
		Now:            func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local) },
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	r, err := NewRouter(a)
	require.NoError(t, err)

	return &testClient{t: t, app: a, router: r, cookies: map[string]*http.Cookie{}}
}

func (tc *testClient) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	tc.t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, ck := range tc.cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	tc.router.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(tc.cookies, ck.Name)
			continue
		}
		tc.cookies[ck.Name] = ck
	}
	return w
}

func (tc *testClient) get(target string) *httptest.ResponseRecorder {
	return tc.do(http.MethodGet, target, nil)
}

func (tc *testClient) post(target string, form url.Values) *httptest.ResponseRecorder {
	return tc.do(http.MethodPost, target, form)
}

// login registers the default user and logs in.
func (tc *testClient) login() {
	tc.t.Helper()
	w := tc.post("/register", url.Values{
		"username":         {testUser},
		"password":         {testPassword},
		"confirm_password": {testPassword},
	})
	require.Equal(tc.t, http.StatusSeeOther, w.Code, w.Body.String())
	w = tc.post("/login", url.Values{"username": {testUser}, "password": {testPassword}})
	require.Equal(tc.t, http.StatusSeeOther, w.Code, w.Body.String())
	tc.get("/") // consume the flash
}
