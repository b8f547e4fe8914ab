package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ariebrainware/clinic-app/model"
	"github.com/ariebrainware/clinic-app/util"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	minUsernameLen = 2
	maxUsernameLen = 20

	msgInvalidCredentials = "Usuário ou senha inválidos."
	msgLoginRequired      = "Faça login para acessar esta página."
)

// Identity is the authenticated user attached to a session.
type Identity struct {
	UserID   uint
	Username string
}

// ClientInfo describes the caller for audit purposes.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type RegisterRequest struct {
	Username        string
	Password        string
	ConfirmPassword string
	Client          ClientInfo
}

type LoginRequest struct {
	Username string
	Password string
	Remember bool
}

// LoginResult carries the signed session token handed to the client.
type LoginResult struct {
	Identity
	Token     string
	ExpiresAt time.Time
	Remember  bool
}

// AuthOptions configures an AuthService. Zero TTLs fall back to 12 hours and
// 30 days.
type AuthOptions struct {
	Secret      string
	SessionTTL  time.Duration
	RememberTTL time.Duration
	Cache       *util.SessionCache
	Security    *util.SecurityLogger
	Now         func() time.Time
}

// AuthService registers users and manages their sessions. It holds no
// per-user state; every session lives in the store and, optionally, Redis.
type AuthService struct {
	db          *gorm.DB
	cache       *util.SessionCache
	security    *util.SecurityLogger
	secret      []byte
	sessionTTL  time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

func NewAuthService(db *gorm.DB, opts AuthOptions) *AuthService {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	if opts.RememberTTL <= 0 {
		opts.RememberTTL = 30 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Security == nil {
		opts.Security = util.NopSecurityLogger()
	}
	return &AuthService{
		db:          db,
		cache:       opts.Cache,
		security:    opts.Security,
		secret:      []byte(opts.Secret),
		sessionTTL:  opts.SessionTTL,
		rememberTTL: opts.RememberTTL,
		now:         opts.Now,
	}
}

// Register creates a user after checking the username and password rules.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (uint, error) {
	username := strings.TrimSpace(req.Username)
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return 0, invalid("username", fmt.Sprintf("O nome de usuário deve ter entre %d e %d caracteres.", minUsernameLen, maxUsernameLen))
	}
	if req.Password == "" {
		return 0, invalid("password", "Informe uma senha.")
	}
	if req.Password != req.ConfirmPassword {
		return 0, invalid("confirm_password", "As senhas não coincidem.")
	}

	db := s.db.WithContext(ctx)
	exists, err := usernameTaken(db, username)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, invalid("username", "Nome de usuário já existe.")
	}

	hashed, err := util.HashPassword(req.Password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	user := model.User{Username: username, Password: hashed}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, invalid("username", "Nome de usuário já existe.")
		}
		return 0, fmt.Errorf("create user: %w", err)
	}

	s.security.LogRegister(user.ID, user.Username, req.Client.IP, req.Client.UserAgent)
	return user.ID, nil
}

// EnsureUser creates the user when it does not exist yet. Existing users are
// left untouched.
func (s *AuthService) EnsureUser(ctx context.Context, username, password string) error {
	exists, err := usernameTaken(s.db.WithContext(ctx), strings.TrimSpace(username))
	if err != nil || exists {
		return err
	}
	_, err = s.Register(ctx, RegisterRequest{Username: username, Password: password, ConfirmPassword: password})
	return err
}

func usernameTaken(db *gorm.DB, username string) (bool, error) {
	var count int64
	if err := db.Model(&model.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return count > 0, nil
}

// Login verifies the credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, client ClientInfo) (LoginResult, error) {
	db := s.db.WithContext(ctx)
	username := strings.TrimSpace(req.Username)

	var user model.User
	err := db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.security.LogLoginFailure(username, client.IP, client.UserAgent, "unknown user")
		return LoginResult{}, &AuthError{Msg: msgInvalidCredentials}
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}

	match, err := util.VerifyPassword(req.Password, user.Password)
	if err != nil || !match {
		reason := "wrong password"
		if err != nil {
			reason = err.Error()
		}
		s.security.LogLoginFailure(username, client.IP, client.UserAgent, reason)
		return LoginResult{}, &AuthError{Msg: msgInvalidCredentials}
	}

	s.upgradeLegacyPassword(db, &user, req.Password, client)

	ttl := s.sessionTTL
	if req.Remember {
		ttl = s.rememberTTL
	}
	now := s.now()
	session := model.Session{
		SessionID: uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(ttl),
		Remember:  req.Remember,
		ClientIP:  client.IP,
		Browser:   client.UserAgent,
	}

	token, err := s.signToken(session, user.Username, now)
	if err != nil {
		return LoginResult{}, err
	}
	if err := db.Create(&session).Error; err != nil {
		return LoginResult{}, fmt.Errorf("record session: %w", err)
	}

	// The cache is an accelerator; the session row stays authoritative.
	_ = s.cache.Store(ctx, session.SessionID, user.ID, user.Username, ttl)

	s.security.LogLoginSuccess(user.ID, user.Username, client.IP, client.UserAgent)
	return LoginResult{
		Identity:  Identity{UserID: user.ID, Username: user.Username},
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Remember:  req.Remember,
	}, nil
}

func (s *AuthService) upgradeLegacyPassword(db *gorm.DB, user *model.User, plain string, client ClientInfo) {
	if !util.NeedsRehash(user.Password) {
		return
	}
	hashed, err := util.HashPassword(plain)
	if err == nil {
		err = db.Model(user).Update("password", hashed).Error
	}
	if err != nil {
		s.security.LogSecurityEvent(util.SecurityEvent{
			EventType: util.EventSuspiciousActivity,
			UserID:    strconv.FormatUint(uint64(user.ID), 10),
			Username:  user.Username,
			IP:        client.IP,
			Message:   fmt.Sprintf("Failed to upgrade password hash: %v", err),
		})
		return
	}
	s.security.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventPasswordUpgraded,
		UserID:    strconv.FormatUint(uint64(user.ID), 10),
		Username:  user.Username,
		IP:        client.IP,
		Message:   "Upgraded password hash to argon2id",
	})
}

func (s *AuthService) signToken(session model.Session, username string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        session.SessionID,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// sessionID validates the token signature and expiry and returns its jti.
func (s *AuthService) sessionID(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	var claims jwt.RegisteredClaims
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid || claims.ID == "" {
		return "", false
	}
	if claims.ExpiresAt == nil || !s.now().Before(claims.ExpiresAt.Time) {
		return "", false
	}
	return claims.ID, true
}

// CurrentUser resolves the identity behind token. Any failure, including a
// store error, reads as anonymous.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (Identity, bool) {
	id, err := s.lookup(ctx, token)
	return id, err == nil
}

// RequireUser is CurrentUser for callers that need an error.
func (s *AuthService) RequireUser(ctx context.Context, token string) (Identity, error) {
	id, err := s.lookup(ctx, token)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return Identity{}, err
		}
		return Identity{}, fmt.Errorf("resolve session: %w", err)
	}
	return id, nil
}

func (s *AuthService) lookup(ctx context.Context, token string) (Identity, error) {
	sid, ok := s.sessionID(token)
	if !ok {
		return Identity{}, &AuthError{Msg: msgLoginRequired}
	}

	if uid, username, hit, err := s.cache.Lookup(ctx, sid); err == nil && hit {
		return Identity{UserID: uid, Username: username}, nil
	}

	var session model.Session
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("session_id = ? AND expires_at > ?", sid, s.now()).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, &AuthError{Msg: msgLoginRequired}
	}
	if err != nil {
		return Identity{}, err
	}

	_ = s.cache.Store(ctx, sid, session.UserID, session.User.Username, session.ExpiresAt.Sub(s.now()))
	return Identity{UserID: session.UserID, Username: session.User.Username}, nil
}

// Logout deletes the session named by token. Unknown or invalid tokens are
// ignored.
func (s *AuthService) Logout(ctx context.Context, token string, client ClientInfo) error {
	sid, ok := s.sessionID(token)
	if !ok {
		return nil
	}
	db := s.db.WithContext(ctx)

	var session model.Session
	err := db.Preload("User").Where("session_id = ?", sid).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_ = s.cache.Remove(ctx, sid)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	if err := db.Unscoped().Where("session_id = ?", sid).Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	_ = s.cache.Remove(ctx, sid)

	s.security.LogLogout(session.UserID, session.User.Username, client.IP, client.UserAgent)
	return nil
}

// PurgeExpiredSessions removes every session past its expiry.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Unscoped().Where("expires_at <= ?", s.now()).Delete(&model.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
