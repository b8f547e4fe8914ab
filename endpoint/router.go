package endpoint

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ariebrainware/clinic-app/app"
	"github.com/ariebrainware/clinic-app/middleware"
	"github.com/ariebrainware/clinic-app/view"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine serving every clinic page.
func NewRouter(a *app.App) (*gin.Engine, error) {
	tmpl, err := view.Load()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(nil); err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)
	r.Use(
		middleware.EndpointCallLogger(a.Security),
		middleware.Recovery(),
		middleware.SecurityHeaders(),
	)

	h := New(a)
	loginLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Limit:    a.Config.LoginRateLimit,
		Window:   a.Config.LoginRateWindow,
		Redis:    a.Redis,
		Security: a.Security,
		View:     viewLogin,
		Data: func(c *gin.Context) gin.H {
			return gin.H{"next": c.Query("next"), "username": c.PostForm("username")}
		},
	})

	h.loginLimiter = loginLimiter

	r.GET("/healthz", h.Health)

	public := r.Group("/", middleware.LoadUser(a.Auth))
	public.GET("/register", h.RegisterPage)
	public.POST("/register", h.Register)
	public.GET("/login", h.LoginPage)
	public.POST("/login", loginLimiter.Handler(), h.Login)
	public.GET("/logout", h.Logout)
	public.POST("/logout", h.Logout)

	private := r.Group("/", middleware.RequireLogin(a.Auth, a.Security))
	private.GET("/", h.Index)
	private.GET("/novo_paciente", h.NewPatientPage)
	private.POST("/novo_paciente", h.CreatePatient)
	private.POST("/excluir_paciente/:id", h.DeletePatient)
	private.GET("/pesquisar_pacientes", h.SearchPatients)
	private.POST("/pesquisar_pacientes", h.SubmitSearch)
	private.GET("/cadastro_medico", h.NewPhysicianPage)
	private.GET("/cadastro_medico_page", h.NewPhysicianPage)
	private.POST("/cadastro_medico", h.CreatePhysician)
	private.GET("/nova_consulta", h.NewAppointmentPage)
	private.POST("/nova_consulta", h.CreateAppointment)
	private.GET("/agendar/:id", h.SchedulePage)
	private.POST("/agendar/:id", h.Schedule)

	return r, nil
}

// Health reports whether the database answers, along with GeoIP cache
// counters when a GeoIP database is loaded.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := h.app.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database"})
		return
	}
	resp := gin.H{"status": "ok", "app": h.app.Config.AppName}
	if h.app.Geo != nil {
		hits, misses, size := h.app.Geo.CacheMetrics()
		resp["geoip_cache"] = gin.H{"hits": hits, "misses": misses, "size": size}
	}
	c.JSON(http.StatusOK, resp)
}
