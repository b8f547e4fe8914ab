package util

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by the authentication middleware.
const (
	UserIDContextKey   = "user_id"
	UsernameContextKey = "username"
)

const (
	flashCookieName = "flash"
	errorView       = "error.html"

	// GenericErrorMsg is shown whenever the real cause must stay server-side.
	GenericErrorMsg = "Ocorreu um erro inesperado. Tente novamente."
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// ViewErrorParams describes the page to re-render after a failed request.
type ViewErrorParams struct {
	View string
	Msg  string
	Err  error
	Data gin.H
}

// RedirectParams describes a post/redirect/get response.
type RedirectParams struct {
	Msg      string
	Category string
	Location string
}

// NormalizeName normalizes a name by trimming leading/trailing whitespace
// and collapsing multiple internal spaces into single spaces.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// SafeRedirect returns next when it is a local path and "/" otherwise, so a
// crafted ?next= cannot bounce a user to another site.
func SafeRedirect(next string) string {
	if next == "" || next[0] != '/' {
		return "/"
	}
	for _, r := range next {
		if r < 0x20 || r == 0x7f || r == '\\' {
			return "/"
		}
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return "/"
	}
	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

// Render writes view with data, adding the logged-in username and any
// pending flash messages.
func Render(c *gin.Context, status int, view string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	flashes := PopFlashes(c)
	if extra, ok := data["flashes"].([]Flash); ok {
		flashes = append(flashes, extra...)
	}
	data["flashes"] = flashes
	if username := c.GetString(UsernameContextKey); username != "" {
		data["current_user"] = username
	}
	c.HTML(status, view, data)
}

func renderWithMessage(c *gin.Context, status int, params ViewErrorParams, category string) {
	if params.Err != nil {
		_ = c.Error(params.Err)
	}
	view := params.View
	if view == "" {
		view = errorView
	}
	data := gin.H{}
	for k, v := range params.Data {
		data[k] = v
	}
	if view == errorView {
		data["status"] = status
		data["message"] = params.Msg
	} else {
		data["flashes"] = []Flash{{Category: category, Message: params.Msg}}
	}
	Render(c, status, view, data)
}

// CallUserError re-renders the originating form with status 400 and a message.
func CallUserError(c *gin.Context, params ViewErrorParams) {
	renderWithMessage(c, http.StatusBadRequest, params, "danger")
}

// CallUserNotAuthorized re-renders with status 401.
func CallUserNotAuthorized(c *gin.Context, params ViewErrorParams) {
	renderWithMessage(c, http.StatusUnauthorized, params, "danger")
}

// CallErrorNotFound is for return page not found
func CallErrorNotFound(c *gin.Context, params ViewErrorParams) {
	renderWithMessage(c, http.StatusNotFound, params, "warning")
}

// CallTooManyRequests re-renders with status 429.
func CallTooManyRequests(c *gin.Context, params ViewErrorParams) {
	renderWithMessage(c, http.StatusTooManyRequests, params, "warning")
}

// CallServerError records the error and renders a generic message; the
// underlying error never reaches the page.
func CallServerError(c *gin.Context, params ViewErrorParams) {
	params.Msg = GenericErrorMsg
	renderWithMessage(c, http.StatusInternalServerError, params, "danger")
}

// CallSuccessRedirect stores a flash message and redirects with 303 See Other.
func CallSuccessRedirect(c *gin.Context, params RedirectParams) {
	if params.Msg != "" {
		category := params.Category
		if category == "" {
			category = "success"
		}
		SetFlash(c, Flash{Category: category, Message: params.Msg})
	}
	c.Redirect(http.StatusSeeOther, params.Location)
}

// SetFlash queues a message for the next page render.
func SetFlash(c *gin.Context, f Flash) {
	pending := readFlashCookie(c)
	pending = append(pending, f)
	b, err := json.Marshal(pending)
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookieName, base64.RawURLEncoding.EncodeToString(b), 60, "/", "", false, true)
}

// PopFlashes returns queued messages and clears the cookie.
func PopFlashes(c *gin.Context) []Flash {
	flashes := readFlashCookie(c)
	if len(flashes) > 0 {
		c.SetCookie(flashCookieName, "", -1, "/", "", false, true)
	}
	return flashes
}

func readFlashCookie(c *gin.Context) []Flash {
	raw, err := c.Cookie(flashCookieName)
	if err != nil || raw == "" {
		return nil
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(b, &flashes); err != nil {
		return nil
	}
	return flashes
}
