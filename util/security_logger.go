package util

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ariebrainware/clinic-app/model"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SecurityEventType represents different types of security events
type SecurityEventType string

const (
	EventLoginSuccess       SecurityEventType = "LOGIN_SUCCESS"
	EventLoginFailure       SecurityEventType = "LOGIN_FAILURE"
	EventRegisterSuccess    SecurityEventType = "REGISTER_SUCCESS"
	EventLogout             SecurityEventType = "LOGOUT"
	EventPasswordUpgraded   SecurityEventType = "PASSWORD_UPGRADED"
	EventUnauthorizedAccess SecurityEventType = "UNAUTHORIZED_ACCESS"
	EventRateLimitExceeded  SecurityEventType = "RATE_LIMIT_EXCEEDED"
	EventSuspiciousActivity SecurityEventType = "SUSPICIOUS_ACTIVITY"
	EventPatientDeleted     SecurityEventType = "PATIENT_DELETED"
	EventEndpointCall       SecurityEventType = "ENDPOINT_CALL"
)

// SecurityEvent represents a security event to be logged
type SecurityEvent struct {
	EventType SecurityEventType
	UserID    string
	Username  string
	IP        string
	UserAgent string
	Message   string
	Details   map[string]interface{}
}

// SecurityLogger writes security events to a zerolog logger and, when a
// database is attached, persists them as model.SecurityLog rows.
type SecurityLogger struct {
	logger zerolog.Logger
	db     *gorm.DB
	geo    *GeoLocator
}

// NewSecurityLogger builds a logger writing JSON lines to w (stdout when nil).
// db and geo are optional.
func NewSecurityLogger(w io.Writer, db *gorm.DB, geo *GeoLocator) *SecurityLogger {
	if w == nil {
		w = os.Stdout
	}
	return &SecurityLogger{
		logger: zerolog.New(w).With().Timestamp().Str("component", "security").Logger(),
		db:     db,
		geo:    geo,
	}
}

// NopSecurityLogger discards every event. Useful for tests and tools.
func NopSecurityLogger() *SecurityLogger {
	return &SecurityLogger{logger: zerolog.Nop()}
}

const maxLogValueLen = 200

// sanitizeLogValue removes newlines and other characters that could break log parsing
func sanitizeLogValue(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	if len(value) <= maxLogValueLen {
		return value
	}
	cut := 0
	for cut < len(value) {
		_, size := utf8.DecodeRuneInString(value[cut:])
		if cut+size > maxLogValueLen {
			break
		}
		cut += size
	}
	return value[:cut] + "..."
}

// LogSecurityEvent logs a security event
func (s *SecurityLogger) LogSecurityEvent(event SecurityEvent) {
	if s == nil {
		return
	}

	location := s.location(event.IP)

	entry := s.logger.Info().
		Str("event", sanitizeLogValue(string(event.EventType))).
		Str("user_id", sanitizeLogValue(event.UserID)).
		Str("username", sanitizeLogValue(event.Username)).
		Str("ip", sanitizeLogValue(event.IP)).
		Str("user_agent", sanitizeLogValue(event.UserAgent))
	if location != "" {
		entry = entry.Str("location", sanitizeLogValue(location))
	}
	if len(event.Details) > 0 {
		// Details are persisted but only counted in the log line.
		entry = entry.Int("details_count", len(event.Details))
	}
	entry.Msg(sanitizeLogValue(event.Message))

	if s.db == nil {
		return
	}

	var details datatypes.JSON
	if event.Details != nil {
		if b, err := json.Marshal(event.Details); err == nil {
			details = datatypes.JSON(b)
		}
	}

	row := model.SecurityLog{
		EventType: string(event.EventType),
		UserID:    event.UserID,
		Username:  sanitizeLogValue(event.Username),
		IP:        sanitizeLogValue(event.IP),
		Location:  sanitizeLogValue(location),
		UserAgent: sanitizeLogValue(event.UserAgent),
		Message:   sanitizeLogValue(event.Message),
		Details:   details,
	}
	if err := s.db.Create(&row).Error; err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist security event")
	}
}

func (s *SecurityLogger) location(ip string) string {
	if s.geo == nil {
		return ""
	}
	city, country := s.geo.Lookup(ip)
	switch {
	case city != "" && country != "":
		return fmt.Sprintf("%s/%s", city, country)
	case country != "":
		return country
	default:
		return city
	}
}

// LogLoginSuccess logs a successful login event
func (s *SecurityLogger) LogLoginSuccess(userID uint, username, ip, userAgent string) {
	s.LogSecurityEvent(SecurityEvent{
		EventType: EventLoginSuccess,
		UserID:    fmt.Sprintf("%d", userID),
		Username:  username,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User logged in successfully",
	})
}

// LogLoginFailure logs a failed login attempt
func (s *SecurityLogger) LogLoginFailure(username, ip, userAgent, reason string) {
	s.LogSecurityEvent(SecurityEvent{
		EventType: EventLoginFailure,
		Username:  username,
		IP:        ip,
		UserAgent: userAgent,
		Message:   fmt.Sprintf("Login failed: %s", reason),
	})
}

// LogRegister logs a new staff account.
func (s *SecurityLogger) LogRegister(userID uint, username, ip, userAgent string) {
	s.LogSecurityEvent(SecurityEvent{
		EventType: EventRegisterSuccess,
		UserID:    fmt.Sprintf("%d", userID),
		Username:  username,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User registered successfully",
	})
}

// LogLogout logs a logout event
func (s *SecurityLogger) LogLogout(userID uint, username, ip, userAgent string) {
	s.LogSecurityEvent(SecurityEvent{
		EventType: EventLogout,
		UserID:    fmt.Sprintf("%d", userID),
		Username:  username,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User logged out",
	})
}

// LogUnauthorizedAccess logs unauthorized access attempts
func (s *SecurityLogger) LogUnauthorizedAccess(ip, resource, reason string) {
	s.LogSecurityEvent(SecurityEvent{
		EventType: EventUnauthorizedAccess,
		IP:        ip,
		Message:   fmt.Sprintf("Unauthorized access to %s: %s", resource, reason),
	})
}

// LogRateLimitExceeded logs when rate limit is exceeded
func (s *SecurityLogger) LogRateLimitExceeded(ip, endpoint string) {
	s.LogSecurityEvent(SecurityEvent{
		EventType: EventRateLimitExceeded,
		IP:        ip,
		Message:   fmt.Sprintf("Rate limit exceeded for endpoint: %s", endpoint),
	})
}
