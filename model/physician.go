package model

import "gorm.io/gorm"

// Physician represents a doctor who can be booked for appointments.
// CRM is not unique: the same registration number may be entered twice.
type Physician struct {
	gorm.Model
	Name        string `json:"name" gorm:"column:name;type:varchar(100);not null"`
	Age         int    `json:"age" gorm:"column:age"`
	Sex         string `json:"sex" gorm:"column:sex;type:varchar(10)"`
	CRM         string `json:"crm" gorm:"column:crm;type:varchar(6);not null;index"`
	Specialties string `json:"specialties" gorm:"column:specialties;type:varchar(200)"`
	Phone       string `json:"phone" gorm:"column:phone;type:varchar(20)"`
	Email       string `json:"email" gorm:"column:email;type:varchar(100)"`
}
