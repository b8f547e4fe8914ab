package endpoint

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/ariebrainware/clinic-app/middleware"
	"github.com/ariebrainware/clinic-app/service"
	"github.com/ariebrainware/clinic-app/util"
	"github.com/gin-gonic/gin"
)

const (
	viewIndex          = "index.html"
	viewNewPatient     = "novo_paciente.html"
	viewSearchPatients = "pesquisar_pacientes.html"
)

var patientFields = []string{"nome", "idade", "sexo", "cpf", "endereco", "telefone", "email"}

type patientForm struct {
	Nome     string `form:"nome" binding:"required"`
	Idade    int    `form:"idade" binding:"min=0"`
	Sexo     string `form:"sexo"`
	CPF      string `form:"cpf" binding:"required"`
	Endereco string `form:"endereco"`
	Telefone string `form:"telefone"`
	Email    string `form:"email" binding:"omitempty,email"`
}

type searchForm struct {
	Termo  string `form:"termo_pesquisa"`
	Filtro string `form:"filtro"`
}

// Index lists today's appointments and every patient.
func (h *Handler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	patients, err := h.app.Clinic.ListPatients(ctx)
	if err != nil {
		util.CallServerError(c, util.ViewErrorParams{Err: err})
		return
	}
	appointments, err := h.app.Clinic.ListTodayAppointments(ctx)
	if err != nil {
		util.CallServerError(c, util.ViewErrorParams{Err: err})
		return
	}
	util.Render(c, http.StatusOK, viewIndex, gin.H{
		"title":        "Início",
		"patients":     patientRows(patients),
		"appointments": appointmentRows(appointments),
	})
}

// NewPatientPage renders the patient form.
func (h *Handler) NewPatientPage(c *gin.Context) {
	util.Render(c, http.StatusOK, viewNewPatient, gin.H{"title": "Novo paciente", "form": gin.H{}})
}

// CreatePatient stores a patient submitted from the form.
func (h *Handler) CreatePatient(c *gin.Context) {
	data := gin.H{"title": "Novo paciente", "form": formData(c, patientFields...)}

	var form patientForm
	if err := c.ShouldBind(&form); err != nil {
		util.CallUserError(c, util.ViewErrorParams{View: viewNewPatient, Msg: msgMissingFields, Err: err, Data: data})
		return
	}

	_, err := h.app.Clinic.AddPatient(c.Request.Context(), service.PatientRequest{
		Name:    form.Nome,
		Age:     form.Idade,
		Sex:     form.Sexo,
		CPF:     form.CPF,
		Address: form.Endereco,
		Phone:   form.Telefone,
		Email:   form.Email,
	})
	if err != nil {
		respondError(c, err, viewNewPatient, data)
		return
	}

	util.CallSuccessRedirect(c, util.RedirectParams{Msg: "Paciente cadastrado com sucesso!", Location: "/"})
}

// DeletePatient removes a patient together with its appointments.
func (h *Handler) DeletePatient(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		util.CallErrorNotFound(c, util.ViewErrorParams{Msg: "Paciente não encontrado."})
		return
	}

	if err := h.app.Clinic.DeletePatient(c.Request.Context(), id); err != nil {
		respondError(c, err, "", nil)
		return
	}

	userID, _ := middleware.GetUserID(c)
	h.app.Security.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventPatientDeleted,
		UserID:    fmt.Sprintf("%d", userID),
		Username:  middleware.GetUsername(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   fmt.Sprintf("Patient %d deleted", id),
		Details:   map[string]interface{}{"patient_id": id},
	})

	util.CallSuccessRedirect(c, util.RedirectParams{Msg: "Paciente excluído com sucesso!", Location: "/"})
}

// SearchPatients renders the search form and, once a term was submitted,
// the matching patients.
func (h *Handler) SearchPatients(c *gin.Context) {
	var form searchForm
	_ = c.ShouldBindQuery(&form)
	if form.Filtro == "" {
		form.Filtro = "nome"
	}
	data := gin.H{
		"title":    "Pesquisar pacientes",
		"term":     form.Termo,
		"filter":   form.Filtro,
		"searched": false,
		"patients": []gin.H{},
	}

	if _, submitted := c.GetQuery("termo_pesquisa"); !submitted {
		util.Render(c, http.StatusOK, viewSearchPatients, data)
		return
	}

	patients, err := h.app.Clinic.SearchPatients(c.Request.Context(), form.Termo, form.Filtro)
	if err != nil {
		respondError(c, err, viewSearchPatients, data)
		return
	}
	data["searched"] = true
	data["patients"] = patientRows(patients)
	util.Render(c, http.StatusOK, viewSearchPatients, data)
}

// SubmitSearch turns a posted search form into a bookmarkable GET.
func (h *Handler) SubmitSearch(c *gin.Context) {
	var form searchForm
	_ = c.ShouldBind(&form)
	q := url.Values{}
	q.Set("termo_pesquisa", form.Termo)
	q.Set("filtro", form.Filtro)
	c.Redirect(http.StatusSeeOther, "/pesquisar_pacientes?"+q.Encode())
}
