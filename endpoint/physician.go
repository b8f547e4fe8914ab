package endpoint

import (
	"net/http"

	"github.com/ariebrainware/clinic-app/service"
	"github.com/ariebrainware/clinic-app/util"
	"github.com/gin-gonic/gin"
)

const viewNewPhysician = "cadastro_medico.html"

var physicianFields = []string{"nome", "idade", "sexo", "crm", "especialidades", "telefone", "email"}

type physicianForm struct {
	Nome           string `form:"nome" binding:"required"`
	Idade          int    `form:"idade" binding:"min=0"`
	Sexo           string `form:"sexo"`
	CRM            string `form:"crm" binding:"required"`
	Especialidades string `form:"especialidades"`
	Telefone       string `form:"telefone"`
	Email          string `form:"email" binding:"omitempty,email"`
}

// NewPhysicianPage renders the physician form.
func (h *Handler) NewPhysicianPage(c *gin.Context) {
	util.Render(c, http.StatusOK, viewNewPhysician, gin.H{"title": "Cadastrar médico", "form": gin.H{}})
}

// CreatePhysician stores a physician submitted from the form.
func (h *Handler) CreatePhysician(c *gin.Context) {
	data := gin.H{"title": "Cadastrar médico", "form": formData(c, physicianFields...)}

	var form physicianForm
	if err := c.ShouldBind(&form); err != nil {
		util.CallUserError(c, util.ViewErrorParams{View: viewNewPhysician, Msg: msgMissingFields, Err: err, Data: data})
		return
	}

	_, err := h.app.Clinic.AddPhysician(c.Request.Context(), service.PhysicianRequest{
		Name:        form.Nome,
		Age:         form.Idade,
		Sex:         form.Sexo,
		CRM:         form.CRM,
		Specialties: form.Especialidades,
		Phone:       form.Telefone,
		Email:       form.Email,
	})
	if err != nil {
		respondError(c, err, viewNewPhysician, data)
		return
	}

	util.CallSuccessRedirect(c, util.RedirectParams{Msg: "Médico cadastrado com sucesso!", Location: "/"})
}
