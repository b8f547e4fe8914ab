package endpoint

import (
	"context"
	"net/http"
	"strings"

	"github.com/ariebrainware/clinic-app/service"
	"github.com/ariebrainware/clinic-app/util"
	"github.com/gin-gonic/gin"
)

const (
	viewNewAppointment = "nova_consulta.html"
	viewSchedule       = "agendar.html"
	msgScheduled       = "Consulta agendada com sucesso!"
)

var appointmentFields = []string{"paciente_id", "medico_id", "especialidade", "data_hora", "descricao"}

type appointmentForm struct {
	PacienteID    string `form:"paciente_id"`
	MedicoID      string `form:"medico_id"`
	Especialidade string `form:"especialidade"`
	DataHora      string `form:"data_hora" binding:"required"`
	Descricao     string `form:"descricao"`
}

// physicianID reads the optional medico_id field.
func (f appointmentForm) physicianID() (*uint, error) {
	if strings.TrimSpace(f.MedicoID) == "" {
		return nil, nil
	}
	id, ok := parseID(f.MedicoID)
	if !ok {
		return nil, &service.ValidationError{Field: "medico_id", Msg: "Médico inválido."}
	}
	return &id, nil
}

func (h *Handler) appointmentPageData(ctx context.Context, withPatients bool) (gin.H, error) {
	physicians, err := h.app.Clinic.ListPhysicians(ctx)
	if err != nil {
		return nil, err
	}
	data := gin.H{
		"title":      "Nova consulta",
		"physicians": physicianRows(physicians),
		"form":       gin.H{},
	}
	if withPatients {
		patients, err := h.app.Clinic.ListPatients(ctx)
		if err != nil {
			return nil, err
		}
		data["patients"] = patientRows(patients)
	}
	return data, nil
}

// NewAppointmentPage lets the user pick any patient for an appointment.
func (h *Handler) NewAppointmentPage(c *gin.Context) {
	data, err := h.appointmentPageData(c.Request.Context(), true)
	if err != nil {
		util.CallServerError(c, util.ViewErrorParams{Err: err})
		return
	}
	util.Render(c, http.StatusOK, viewNewAppointment, data)
}

// CreateAppointment books an appointment; the physician is optional here.
func (h *Handler) CreateAppointment(c *gin.Context) {
	data, err := h.appointmentPageData(c.Request.Context(), true)
	if err != nil {
		util.CallServerError(c, util.ViewErrorParams{Err: err})
		return
	}
	data["form"] = formData(c, appointmentFields...)

	var form appointmentForm
	if err := c.ShouldBind(&form); err != nil {
		util.CallUserError(c, util.ViewErrorParams{View: viewNewAppointment, Msg: msgMissingFields, Err: err, Data: data})
		return
	}
	patientID, ok := parseID(form.PacienteID)
	if !ok {
		util.CallUserError(c, util.ViewErrorParams{View: viewNewAppointment, Msg: "Selecione um paciente.", Data: data})
		return
	}
	h.schedule(c, patientID, form, viewNewAppointment, data)
}

// SchedulePage shows the booking form for one patient.
func (h *Handler) SchedulePage(c *gin.Context) {
	data, ok := h.schedulePageData(c)
	if !ok {
		return
	}
	util.Render(c, http.StatusOK, viewSchedule, data)
}

// Schedule books an appointment for the patient in the URL. A physician is
// required on this page.
func (h *Handler) Schedule(c *gin.Context) {
	data, ok := h.schedulePageData(c)
	if !ok {
		return
	}
	data["form"] = formData(c, appointmentFields...)

	var form appointmentForm
	if err := c.ShouldBind(&form); err != nil {
		util.CallUserError(c, util.ViewErrorParams{View: viewSchedule, Msg: msgMissingFields, Err: err, Data: data})
		return
	}
	if strings.TrimSpace(form.MedicoID) == "" {
		util.CallUserError(c, util.ViewErrorParams{View: viewSchedule, Msg: "Selecione um médico.", Data: data})
		return
	}
	patient := data["patient"].(gin.H)
	h.schedule(c, patient["id"].(uint), form, viewSchedule, data)
}

func (h *Handler) schedulePageData(c *gin.Context) (gin.H, bool) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		util.CallErrorNotFound(c, util.ViewErrorParams{Msg: "Paciente não encontrado."})
		return nil, false
	}
	ctx := c.Request.Context()
	patient, err := h.app.Clinic.GetPatient(ctx, id)
	if err != nil {
		respondError(c, err, "", nil)
		return nil, false
	}
	data, err := h.appointmentPageData(ctx, false)
	if err != nil {
		util.CallServerError(c, util.ViewErrorParams{Err: err})
		return nil, false
	}
	data["title"] = "Agendar consulta"
	data["patient"] = patientRow(patient)
	return data, true
}

func (h *Handler) schedule(c *gin.Context, patientID uint, form appointmentForm, view string, data gin.H) {
	physicianID, err := form.physicianID()
	if err != nil {
		respondError(c, err, view, data)
		return
	}
	_, err = h.app.Clinic.ScheduleAppointment(c.Request.Context(), service.AppointmentRequest{
		PatientID:   patientID,
		PhysicianID: physicianID,
		Specialty:   form.Especialidade,
		DateTime:    form.DataHora,
		Description: form.Descricao,
	})
	if err != nil {
		respondError(c, err, view, data)
		return
	}
	util.CallSuccessRedirect(c, util.RedirectParams{Msg: msgScheduled, Location: "/"})
}
