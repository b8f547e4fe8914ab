package model

import "gorm.io/gorm"

// Patient is a person registered at the clinic. CPF holds the digits-only
// form and is unique across patients.
type Patient struct {
	gorm.Model
	Name    string `json:"name" gorm:"column:name;type:varchar(100);not null;index"`
	Age     int    `json:"age" gorm:"column:age"`
	Sex     string `json:"sex" gorm:"column:sex;type:varchar(10)"`
	CPF     string `json:"cpf" gorm:"column:cpf;type:varchar(11);not null;uniqueIndex"`
	Address string `json:"address" gorm:"column:address;type:varchar(200)"`
	Phone   string `json:"phone" gorm:"column:phone;type:varchar(20)"`
	Email   string `json:"email" gorm:"column:email;type:varchar(100)"`

	Appointments []Appointment `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
