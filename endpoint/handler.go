package endpoint

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ariebrainware/clinic-app/app"
	"github.com/ariebrainware/clinic-app/middleware"
	"github.com/ariebrainware/clinic-app/model"
	"github.com/ariebrainware/clinic-app/service"
	"github.com/ariebrainware/clinic-app/util"
	"github.com/gin-gonic/gin"
)

const msgMissingFields = "Preencha todos os campos obrigatórios."

// Handler serves the clinic pages from an application context.
type Handler struct {
	app *app.App
	// loginLimiter is cleared for a client once it logs in.
	loginLimiter *middleware.RateLimiter
}

func New(a *app.App) *Handler {
	return &Handler{app: a}
}

func clientInfo(c *gin.Context) service.ClientInfo {
	return service.ClientInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// respondError maps a service error onto the matching responder. view is
// re-rendered with data for user errors; server errors use the error page.
func respondError(c *gin.Context, err error, view string, data gin.H) {
	var (
		vErr  *service.ValidationError
		aErr  *service.AuthError
		nfErr *service.NotFoundError
	)
	switch {
	case errors.As(err, &vErr):
		util.CallUserError(c, util.ViewErrorParams{View: view, Msg: vErr.Msg, Err: err, Data: data})
	case errors.As(err, &aErr):
		util.CallUserNotAuthorized(c, util.ViewErrorParams{View: view, Msg: aErr.Msg, Err: err, Data: data})
	case errors.As(err, &nfErr):
		util.CallErrorNotFound(c, util.ViewErrorParams{View: view, Msg: notFoundMessage(nfErr), Err: err, Data: data})
	default:
		util.CallServerError(c, util.ViewErrorParams{Err: err})
	}
}

func notFoundMessage(err *service.NotFoundError) string {
	entity := err.Entity
	if r, size := utf8.DecodeRuneInString(entity); size > 0 {
		entity = string(unicode.ToUpper(r)) + entity[size:]
	}
	return entity + " não encontrado."
}

// formData echoes the submitted fields back into a re-rendered form.
func formData(c *gin.Context, fields ...string) gin.H {
	data := gin.H{}
	for _, f := range fields {
		data[f] = c.PostForm(f)
	}
	return data
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func patientRow(p model.Patient) gin.H {
	return gin.H{
		"id":      p.ID,
		"name":    p.Name,
		"age":     p.Age,
		"sex":     p.Sex,
		"cpf":     p.CPF,
		"address": p.Address,
		"phone":   p.Phone,
		"email":   p.Email,
	}
}

func patientRows(patients []model.Patient) []gin.H {
	rows := make([]gin.H, 0, len(patients))
	for _, p := range patients {
		rows = append(rows, patientRow(p))
	}
	return rows
}

func physicianRows(physicians []model.Physician) []gin.H {
	rows := make([]gin.H, 0, len(physicians))
	for _, p := range physicians {
		rows = append(rows, gin.H{
			"id":          p.ID,
			"name":        p.Name,
			"crm":         p.CRM,
			"specialties": p.Specialties,
		})
	}
	return rows
}

func appointmentRows(appointments []model.Appointment) []gin.H {
	rows := make([]gin.H, 0, len(appointments))
	for _, a := range appointments {
		physician := ""
		if a.Physician != nil {
			physician = a.Physician.Name
		}
		rows = append(rows, gin.H{
			"id":          a.ID,
			"date_time":   a.DateTime,
			"patient":     a.Patient.Name,
			"physician":   physician,
			"specialty":   a.Specialty,
			"description": a.Description,
		})
	}
	return rows
}
