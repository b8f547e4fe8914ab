package model

import (
	"time"

	"gorm.io/gorm"
)

// User is a staff account allowed to use the clinic pages.
type User struct {
	gorm.Model
	Username string `json:"username" gorm:"column:username;type:varchar(20);not null;uniqueIndex"`
	// Password holds an argon2id hash, or a bcrypt hash carried over from the
	// previous system until the next successful login upgrades it.
	Password string `json:"-" gorm:"column:password;type:varchar(255);not null"`
}

// Session is the server-side half of a login. The cookie carries a signed
// token naming SessionID; deleting the row revokes the token.
type Session struct {
	gorm.Model
	SessionID string    `json:"session_id" gorm:"column:session_id;type:varchar(36);not null;uniqueIndex"`
	UserID    uint      `json:"user_id" gorm:"column:user_id;not null;index"`
	User      User      `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ExpiresAt time.Time `json:"expires_at" gorm:"column:expires_at;not null;index"`
	Remember  bool      `json:"remember" gorm:"column:remember;default:false"`
	ClientIP  string    `json:"client_ip" gorm:"column:client_ip;type:varchar(45)"`
	Browser   string    `json:"browser" gorm:"column:browser;type:varchar(512)"`
}
