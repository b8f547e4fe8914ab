package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ariebrainware/clinic-app/model"
	"github.com/ariebrainware/clinic-app/util"
	"gorm.io/gorm"
)

const (
	dateLayout     = "2006-01-02"
	maxCRMLen      = 6
	maxDescription = 200

	msgCPFInvalid    = "CPF inválido."
	msgCPFRegistered = "CPF já cadastrado."
)

type PatientRequest struct {
	Name    string
	Age     int
	Sex     string
	CPF     string
	Address string
	Phone   string
	Email   string
}

type PhysicianRequest struct {
	Name        string
	Age         int
	Sex         string
	CRM         string
	Specialties string
	Phone       string
	Email       string
}

// AppointmentRequest books PatientID. PhysicianID is optional; when set,
// Specialty must be too.
type AppointmentRequest struct {
	PatientID   uint
	PhysicianID *uint
	Specialty   string
	DateTime    string
	Description string
}

// ClinicService manages patients, physicians and appointments.
type ClinicService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewClinicService returns a service over db. now defaults to time.Now and
// decides what "today" is.
func NewClinicService(db *gorm.DB, now func() time.Time) *ClinicService {
	if now == nil {
		now = time.Now
	}
	return &ClinicService{db: db, now: now}
}

// AddPatient validates and stores a patient, returning its id.
func (s *ClinicService) AddPatient(ctx context.Context, req PatientRequest) (uint, error) {
	name := util.NormalizeName(req.Name)
	if name == "" {
		return 0, invalid("nome", "Informe o nome do paciente.")
	}
	if req.Age < 0 {
		return 0, invalid("idade", "Idade inválida.")
	}
	if !util.ValidateCPF(req.CPF) {
		return 0, invalid("cpf", msgCPFInvalid)
	}
	cpf := util.NormalizeCPF(req.CPF)

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&model.Patient{}).Where("cpf = ?", cpf).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("check cpf: %w", err)
	}
	if count > 0 {
		return 0, invalid("cpf", msgCPFRegistered)
	}

	patient := model.Patient{
		Name:    name,
		Age:     req.Age,
		Sex:     strings.TrimSpace(req.Sex),
		CPF:     cpf,
		Address: strings.TrimSpace(req.Address),
		Phone:   strings.TrimSpace(req.Phone),
		Email:   strings.TrimSpace(req.Email),
	}
	if err := db.Create(&patient).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, invalid("cpf", msgCPFRegistered)
		}
		return 0, fmt.Errorf("create patient: %w", err)
	}
	return patient.ID, nil
}

// GetPatient loads a single patient.
func (s *ClinicService) GetPatient(ctx context.Context, id uint) (model.Patient, error) {
	var patient model.Patient
	err := s.db.WithContext(ctx).First(&patient, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Patient{}, &NotFoundError{Entity: "paciente", ID: id}
	}
	if err != nil {
		return model.Patient{}, fmt.Errorf("load patient: %w", err)
	}
	return patient, nil
}

// DeletePatient removes the patient and every appointment booked for it in a
// single transaction.
func (s *ClinicService) DeletePatient(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var patient model.Patient
		err := tx.First(&patient, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "paciente", ID: id}
		}
		if err != nil {
			return fmt.Errorf("load patient: %w", err)
		}

		if err := tx.Unscoped().Where("patient_id = ?", id).Delete(&model.Appointment{}).Error; err != nil {
			return fmt.Errorf("delete appointments: %w", err)
		}
		// Hard delete so the CPF can be registered again.
		if err := tx.Unscoped().Delete(&patient).Error; err != nil {
			return fmt.Errorf("delete patient: %w", err)
		}
		return nil
	})
}

// ListPatients returns every patient ordered by name.
func (s *ClinicService) ListPatients(ctx context.Context) ([]model.Patient, error) {
	var patients []model.Patient
	if err := s.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&patients).Error; err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}

var searchColumns = map[string]string{
	"name": "name",
	"nome": "name",
	"cpf":  "cpf",
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// SearchPatients returns patients whose field contains term, case
// sensitively. field is "name", "nome" or "cpf"; an empty term matches all.
func (s *ClinicService) SearchPatients(ctx context.Context, term, field string) ([]model.Patient, error) {
	column, ok := searchColumns[strings.ToLower(strings.TrimSpace(field))]
	if !ok {
		return nil, invalid("filtro", fmt.Sprintf("Filtro de pesquisa desconhecido: %q.", field))
	}
	if column == "cpf" {
		// CPFs are stored as digits only.
		term = strings.NewReplacer(".", "", "-", "", " ", "").Replace(term)
	}
	if term == "" {
		return s.ListPatients(ctx)
	}

	// LIKE case folding differs per driver, so it only narrows the rows and
	// the exact match happens here.
	var candidates []model.Patient
	err := s.db.WithContext(ctx).
		Where(column+" LIKE ? ESCAPE '!'", "%"+likeEscaper.Replace(term)+"%").
		Order("name ASC").Order("id ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}

	patients := make([]model.Patient, 0, len(candidates))
	for _, p := range candidates {
		value := p.Name
		if column == "cpf" {
			value = p.CPF
		}
		if strings.Contains(value, term) {
			patients = append(patients, p)
		}
	}
	return patients, nil
}

// AddPhysician stores a physician. CRM numbers may repeat.
func (s *ClinicService) AddPhysician(ctx context.Context, req PhysicianRequest) (uint, error) {
	name := util.NormalizeName(req.Name)
	if name == "" {
		return 0, invalid("nome", "Informe o nome do médico.")
	}
	if req.Age < 0 {
		return 0, invalid("idade", "Idade inválida.")
	}
	crm := strings.TrimSpace(req.CRM)
	if crm == "" || utf8.RuneCountInString(crm) > maxCRMLen {
		return 0, invalid("crm", fmt.Sprintf("O CRM deve ter entre 1 e %d caracteres.", maxCRMLen))
	}

	physician := model.Physician{
		Name:        name,
		Age:         req.Age,
		Sex:         strings.TrimSpace(req.Sex),
		CRM:         crm,
		Specialties: strings.TrimSpace(req.Specialties),
		Phone:       strings.TrimSpace(req.Phone),
		Email:       strings.TrimSpace(req.Email),
	}
	if err := s.db.WithContext(ctx).Create(&physician).Error; err != nil {
		return 0, fmt.Errorf("create physician: %w", err)
	}
	return physician.ID, nil
}

// ListPhysicians returns every physician ordered by name.
func (s *ClinicService) ListPhysicians(ctx context.Context) ([]model.Physician, error) {
	var physicians []model.Physician
	if err := s.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&physicians).Error; err != nil {
		return nil, fmt.Errorf("list physicians: %w", err)
	}
	return physicians, nil
}

// NormalizeDateTime turns a datetime-local value ("2024-05-01T14:30") into
// the stored form ("2024-05-01 14:30"). The value must start with a valid
// YYYY-MM-DD date.
func NormalizeDateTime(value string) (string, error) {
	value = strings.TrimSpace(value)
	if len(value) < len(dateLayout) {
		return "", invalid("data_hora", "Informe a data no formato AAAA-MM-DD.")
	}
	if _, err := time.Parse(dateLayout, value[:len(dateLayout)]); err != nil {
		return "", invalid("data_hora", "Informe a data no formato AAAA-MM-DD.")
	}
	if len(value) > len(dateLayout) && value[len(dateLayout)] == 'T' {
		value = value[:len(dateLayout)] + " " + value[len(dateLayout)+1:]
	}
	return value, nil
}

// ScheduleAppointment books an appointment and returns its id.
func (s *ClinicService) ScheduleAppointment(ctx context.Context, req AppointmentRequest) (uint, error) {
	dateTime, err := NormalizeDateTime(req.DateTime)
	if err != nil {
		return 0, err
	}
	description := strings.TrimSpace(req.Description)
	if utf8.RuneCountInString(description) > maxDescription {
		return 0, invalid("descricao", fmt.Sprintf("A descrição deve ter no máximo %d caracteres.", maxDescription))
	}
	specialty := strings.TrimSpace(req.Specialty)
	physicianID := req.PhysicianID
	if physicianID != nil && *physicianID == 0 {
		physicianID = nil
	}
	if physicianID != nil && specialty == "" {
		return 0, invalid("especialidade", "Informe a especialidade da consulta.")
	}

	var appointment model.Appointment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &model.Patient{}, req.PatientID, "paciente"); err != nil {
			return err
		}
		if physicianID != nil {
			if err := exists(tx, &model.Physician{}, *physicianID, "médico"); err != nil {
				return err
			}
		}
		appointment = model.Appointment{
			PatientID:   req.PatientID,
			PhysicianID: physicianID,
			Specialty:   specialty,
			DateTime:    dateTime,
			Description: description,
		}
		if err := tx.Create(&appointment).Error; err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return appointment.ID, nil
}

func exists(tx *gorm.DB, dst interface{}, id uint, entity string) error {
	var count int64
	if err := tx.Model(dst).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check %s: %w", entity, err)
	}
	if count == 0 {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

// ListTodayAppointments returns the appointments whose date-time starts with
// today's date, with patient and physician loaded.
func (s *ClinicService) ListTodayAppointments(ctx context.Context) ([]model.Appointment, error) {
	today := s.now().Format(dateLayout)

	var appointments []model.Appointment
	err := s.db.WithContext(ctx).
		Preload("Patient").
		Preload("Physician").
		Where("date_time LIKE ?", today+"%").
		Order("date_time ASC").Order("id ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("list today's appointments: %w", err)
	}
	return appointments, nil
}
