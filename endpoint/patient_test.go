package endpoint

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/ariebrainware/clinic-app/model"
	"github.com/ariebrainware/clinic-app/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patientValues(name, cpf string) url.Values {
	return url.Values{
		"nome":     {name},
		"idade":    {"42"},
		"sexo":     {"Feminino"},
		"cpf":      {cpf},
		"endereco": {"Rua A, 1"},
		"telefone": {"11999999999"},
		"email":    {"ana@example.com"},
	}
}

func TestCreatePatient(t *testing.T) {
	tc := newTestClient(t)
	tc.login()

	w := tc.get("/novo_paciente")
	assert.Equal(t, http.StatusOK, w.Code)

	w = tc.post("/novo_paciente", patientValues("Ana Silva", "111.444.777-35"))
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = tc.get("/")
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Paciente cadastrado com sucesso!")
	assert.Contains(t, body, "Ana Silva")
	assert.Contains(t, body, "111.444.777-35")
}

func TestCreatePatient_InvalidCPF(t *testing.T) {
	tc := newTestClient(t)
	tc.login()

	w := tc.post("/novo_paciente", patientValues("Ana Silva", "11144477736"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "CPF inválido.")
	assert.Contains(t, w.Body.String(), `value="Ana Silva"`, "the form keeps what was typed")

	var count int64
	require.NoError(t, tc.app.DB.Model(&model.Patient{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreatePatient_DuplicateCPF(t *testing.T) {
	tc := newTestClient(t)
	tc.login()
	tc.post("/novo_paciente", patientValues("Ana Silva", "11144477735"))

	w := tc.post("/novo_paciente", patientValues("Outra Ana", "111.444.777-35"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "CPF já cadastrado.")
}

func TestCreatePatient_MissingFields(t *testing.T) {
	tc := newTestClient(t)
	tc.login()

	w := tc.post("/novo_paciente", url.Values{"nome": {"Ana"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), msgMissingFields)
}

func TestDeletePatient(t *testing.T) {
	tc := newTestClient(t)
	tc.login()
	ctx := context.Background()
	id, err := tc.app.Clinic.AddPatient(ctx, service.PatientRequest{Name: "Ana", CPF: "11144477735"})
	require.NoError(t, err)
	_, err = tc.app.Clinic.ScheduleAppointment(ctx, service.AppointmentRequest{PatientID: id, DateTime: "2024-05-01 10:00"})
	require.NoError(t, err)

	w := tc.post(fmt.Sprintf("/excluir_paciente/%d", id), url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code)

	var patients, appointments, events int64
	require.NoError(t, tc.app.DB.Model(&model.Patient{}).Count(&patients).Error)
	require.NoError(t, tc.app.DB.Unscoped().Model(&model.Appointment{}).Count(&appointments).Error)
	require.NoError(t, tc.app.DB.Model(&model.SecurityLog{}).Where("event_type = ?", "PATIENT_DELETED").Count(&events).Error)
	assert.Zero(t, patients)
	assert.Zero(t, appointments)
	assert.Equal(t, int64(1), events)

	w = tc.post(fmt.Sprintf("/excluir_paciente/%d", id), url.Values{})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Paciente não encontrado.")

	w = tc.post("/excluir_paciente/abc", url.Values{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchPatients(t *testing.T) {
	tc := newTestClient(t)
	tc.login()
	ctx := context.Background()
	for _, p := range []service.PatientRequest{
		{Name: "Ana Silva", CPF: "11144477735"},
		{Name: "Bruno silva", CPF: "52998224725"},
	} {
		_, err := tc.app.Clinic.AddPatient(ctx, p)
		require.NoError(t, err)
	}

	w := tc.get("/pesquisar_pacientes")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Ana Silva", "no results before searching")

	w = tc.get("/pesquisar_pacientes?termo_pesquisa=Silva&filtro=nome")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ana Silva")
	assert.NotContains(t, w.Body.String(), "Bruno silva")

	w = tc.get("/pesquisar_pacientes?termo_pesquisa=&filtro=nome")
	assert.Contains(t, w.Body.String(), "Ana Silva")
	assert.Contains(t, w.Body.String(), "Bruno silva")

	w = tc.get("/pesquisar_pacientes?termo_pesquisa=529982&filtro=cpf")
	assert.Contains(t, w.Body.String(), "Bruno silva")
	assert.NotContains(t, w.Body.String(), "Ana Silva")

	w = tc.get("/pesquisar_pacientes?termo_pesquisa=x&filtro=email")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = tc.post("/pesquisar_pacientes", url.Values{"termo_pesquisa": {"Ana"}, "filtro": {"nome"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/pesquisar_pacientes?filtro=nome&termo_pesquisa=Ana", w.Header().Get("Location"))
}
