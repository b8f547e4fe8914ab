package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariebrainware/clinic-app/service"
	"github.com/ariebrainware/clinic-app/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireLogin_RedirectsAnonymous(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRouter(t)
	r.Use(RequireLogin(fakeResolver{}, util.NewSecurityLogger(&buf, nil, nil)))
	r.GET("/pesquisar_pacientes", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pesquisar_pacientes?filtro=nome", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?next=%2Fpesquisar_pacientes%3Ffiltro%3Dnome", w.Header().Get("Location"))
	assert.Contains(t, buf.String(), string(util.EventUnauthorizedAccess))
}

func TestRequireLogin_SetsIdentity(t *testing.T) {
	r := newTestRouter(t)
	r.Use(RequireLogin(fakeResolver{"good": {UserID: 3, Username: "maria"}}, util.NopSecurityLogger()))
	r.GET("/", func(c *gin.Context) {
		id, ok := GetUserID(c)
		require.True(t, ok)
		c.String(http.StatusOK, "%d:%s", id, GetUsername(c))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good"})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3:maria", w.Body.String())
}

func TestRequireLogin_RejectsUnknownToken(t *testing.T) {
	r := newTestRouter(t)
	r.Use(RequireLogin(fakeResolver{"good": {UserID: 3}}, nil))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "forged"})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestLoadUser_Optional(t *testing.T) {
	r := newTestRouter(t)
	r.Use(LoadUser(fakeResolver{"good": {UserID: 1, Username: "ana"}}))
	r.GET("/login", func(c *gin.Context) { c.String(http.StatusOK, "[%s]", GetUsername(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, "[]", w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good"})
	r.ServeHTTP(w, req)
	assert.Equal(t, "[ana]", w.Body.String())
}

func TestGetUserID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetUserID(c)
	assert.False(t, ok)
}

func TestRecovery_RendersGenericError(t *testing.T) {
	r := newTestRouter(t)
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("database exploded") })
	r.GET("/fine", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "error:500:")
	assert.NotContains(t, w.Body.String(), "exploded")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fine", nil))
	assert.Equal(t, http.StatusOK, w.Code, "a panic does not affect the next request")
}

func TestSecurityHeaders(t *testing.T) {
	r := newTestRouter(t)
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

var _ SessionResolver = (*service.AuthService)(nil)
