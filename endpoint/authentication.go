package endpoint

import (
	"net/http"

	"github.com/ariebrainware/clinic-app/middleware"
	"github.com/ariebrainware/clinic-app/service"
	"github.com/ariebrainware/clinic-app/util"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	viewRegister = "register.html"
	viewLogin    = "login.html"
)

type registerForm struct {
	Username        string `form:"username" binding:"required"`
	Password        string `form:"password" binding:"required"`
	ConfirmPassword string `form:"confirm_password" binding:"required"`
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
	Remember bool   `form:"remember"`
}

// RegisterPage renders the sign-up form.
func (h *Handler) RegisterPage(c *gin.Context) {
	util.Render(c, http.StatusOK, viewRegister, gin.H{"form": gin.H{}})
}

// Register creates a staff account and sends the user to the login page.
func (h *Handler) Register(c *gin.Context) {
	data := gin.H{"form": formData(c, "username")}

	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		util.CallUserError(c, util.ViewErrorParams{View: viewRegister, Msg: msgMissingFields, Err: err, Data: data})
		return
	}

	req := service.RegisterRequest{
		Username:        form.Username,
		Password:        form.Password,
		ConfirmPassword: form.ConfirmPassword,
		Client:          clientInfo(c),
	}
	if _, err := h.app.Auth.Register(c.Request.Context(), req); err != nil {
		respondError(c, err, viewRegister, data)
		return
	}

	util.CallSuccessRedirect(c, util.RedirectParams{
		Msg:      "Cadastro realizado com sucesso! Faça login.",
		Location: "/login",
	})
}

// LoginPage renders the login form, or goes home when already logged in.
func (h *Handler) LoginPage(c *gin.Context) {
	if middleware.GetUsername(c) != "" {
		c.Redirect(http.StatusSeeOther, util.SafeRedirect(c.Query("next")))
		return
	}
	util.Render(c, http.StatusOK, viewLogin, gin.H{"next": c.Query("next"), "username": ""})
}

// Login opens a session and redirects to the page the user asked for.
func (h *Handler) Login(c *gin.Context) {
	data := gin.H{"next": c.Query("next"), "username": c.PostForm("username")}

	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		util.CallUserError(c, util.ViewErrorParams{View: viewLogin, Msg: msgMissingFields, Err: err, Data: data})
		return
	}

	res, err := h.app.Auth.Login(c.Request.Context(), service.LoginRequest{
		Username: form.Username,
		Password: form.Password,
		Remember: form.Remember,
	}, clientInfo(c))
	if err != nil {
		respondError(c, err, viewLogin, data)
		return
	}

	if h.loginLimiter != nil {
		if err := h.loginLimiter.Reset(c.Request.Context(), c.ClientIP(), c.Request.URL.Path); err != nil {
			log.Warn().Err(err).Msg("failed to reset login rate limit")
		}
	}

	// A zero max-age keeps the cookie for the browser session only.
	maxAge := 0
	if res.Remember {
		maxAge = int(h.app.Config.RememberTTL.Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, res.Token, maxAge, "/", "", h.app.Config.CookieSecure, true)

	util.CallSuccessRedirect(c, util.RedirectParams{
		Msg:      "Login realizado com sucesso!",
		Location: util.SafeRedirect(c.Query("next")),
	})
}

// Logout ends the session, if any, and returns to the login page.
func (h *Handler) Logout(c *gin.Context) {
	if token, err := c.Cookie(middleware.SessionCookieName); err == nil {
		if err := h.app.Auth.Logout(c.Request.Context(), token, clientInfo(c)); err != nil {
			log.Error().Err(err).Msg("logout failed")
			util.CallServerError(c, util.ViewErrorParams{Err: err})
			return
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", h.app.Config.CookieSecure, true)

	util.CallSuccessRedirect(c, util.RedirectParams{
		Msg:      "Você saiu da sua conta.",
		Category: "info",
		Location: "/login",
	})
}
