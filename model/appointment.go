package model

import "gorm.io/gorm"

// Appointment books a patient, optionally with a physician. DateTime is kept
// as entered ("YYYY-MM-DD HH:MM") so listings can match on the date prefix.
type Appointment struct {
	gorm.Model
	PatientID   uint       `json:"patient_id" gorm:"column:patient_id;not null;index"`
	Patient     Patient    `json:"patient" gorm:"foreignKey:PatientID"`
	PhysicianID *uint      `json:"physician_id" gorm:"column:physician_id;index"`
	Physician   *Physician `json:"physician,omitempty" gorm:"foreignKey:PhysicianID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Specialty   string     `json:"specialty" gorm:"column:specialty;type:varchar(200)"`
	DateTime    string     `json:"date_time" gorm:"column:date_time;type:varchar(50);not null;index"`
	Description string     `json:"description" gorm:"column:description;type:varchar(200)"`
}
