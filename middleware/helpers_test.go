package middleware

import (
	"context"
	"html/template"
	"testing"

	"github.com/ariebrainware/clinic-app/service"
	"github.com/gin-gonic/gin"
)

type fakeResolver map[string]service.Identity

func (f fakeResolver) CurrentUser(_ context.Context, token string) (service.Identity, bool) {
	id, ok := f[token]
	return id, ok
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tmpl := template.Must(template.New("error.html").Parse(`error:{{.status}}:{{.message}}`))
	template.Must(tmpl.New("login.html").Parse(`login:{{.next}}:{{range .flashes}}{{.Message}}{{end}}`))
	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	return r
}
