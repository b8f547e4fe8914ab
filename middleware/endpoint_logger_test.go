package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ariebrainware/clinic-app/model"
	"github.com/ariebrainware/clinic-app/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestEndpointCallLogger_BasicRequest(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRouter(t)
	r.Use(EndpointCallLogger(util.NewSecurityLogger(&buf, nil, nil)))
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test?foo=bar", nil)
	req.RemoteAddr = "192.168.1.100:1234"
	req.Header.Set("User-Agent", "TestAgent/1.0")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	out := buf.String()
	assert.Contains(t, out, string(util.EventEndpointCall))
	assert.Contains(t, out, "GET /test -> 200")
	assert.Contains(t, out, "192.168.1.100")
	assert.Contains(t, out, "TestAgent/1.0")
}

func TestEndpointCallLogger_PersistsWithUser(t *testing.T) {
	dsn := fmt.Sprintf("file:endpoint_logger_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.SecurityLog{}))

	r := newTestRouter(t)
	r.Use(EndpointCallLogger(util.NewSecurityLogger(&bytes.Buffer{}, db, nil)))
	r.Use(LoadUser(fakeResolver{"good": {UserID: 9, Username: "maria"}}))
	r.GET("/patients/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/patients/7", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good"})
	r.ServeHTTP(httptest.NewRecorder(), req)

	var row model.SecurityLog
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, string(util.EventEndpointCall), row.EventType)
	assert.Equal(t, "9", row.UserID)
	assert.Equal(t, "maria", row.Username)
	assert.True(t, strings.Contains(string(row.Details), `"path":"/patients/:id"`))
}
