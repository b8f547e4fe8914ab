package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported values for DBDRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`

	DBDriver string `json:"dbdriver"`
	DBPath   string `json:"dbpath"`
	DBHost   string `json:"dbhost"`
	DBPort   uint16 `json:"dbport"`
	DBName   string `json:"dbname"`
	DBUser   string `json:"dbuser"`
	DBPass   string `json:"-"`

	JWTSecret    string        `json:"-"`
	SessionTTL   time.Duration `json:"session_ttl"`
	RememberTTL  time.Duration `json:"remember_ttl"`
	CookieSecure bool          `json:"cookie_secure"`

	RedisEnabled bool   `json:"redis_enabled"`
	RedisAddr    string `json:"redis_addr"`
	RedisPass    string `json:"-"`
	RedisDB      int    `json:"redis_db"`

	LoginRateLimit  int           `json:"login_rate_limit"`
	LoginRateWindow time.Duration `json:"login_rate_window"`

	GeoIPDBPath  string `json:"geoip_db_path"`
	SeedUsername string `json:"seed_username"`
	SeedPassword string `json:"-"`
	LogLevel     string `json:"loglevel"`
}

// IsTest reports whether the application runs under APPENV=test.
func (c *Config) IsTest() bool { return c.AppEnv == "test" }

// IsProduction reports whether the application runs under APPENV=production.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// LoadConfig loads the environment variables from an optional .env file and
// returns a fresh Config. Callers keep the returned value; there is no
// package-level copy.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppName:      getEnv("APPNAME", "Clínica"),
		AppEnv:       getEnv("APPENV", "development"),
		GinMode:      getEnv("GINMODE", "release"),
		DBDriver:     strings.ToLower(getEnv("DBDRIVER", DriverSQLite)),
		DBPath:       getEnv("DBPATH", "database.db"),
		DBHost:       getEnv("DBHOST", "localhost"),
		DBName:       getEnv("DBNAME", "clinic"),
		DBUser:       getEnv("DBUSER", ""),
		DBPass:       getEnv("DBPASS", ""),
		JWTSecret:    strings.TrimSpace(getEnv("JWTSECRET", "")),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:    getEnv("REDIS_PASS", ""),
		GeoIPDBPath:  getEnv("GEOIP_DB_PATH", ""),
		SeedUsername: getEnv("SEED_USERNAME", ""),
		SeedPassword: getEnv("SEED_PASSWORD", ""),
		LogLevel:     getEnv("LOGLEVEL", "info"),
	}

	var err error
	if cfg.AppPort, err = parsePort("APPPORT", 8080); err != nil {
		return nil, err
	}
	defaultDBPort := 3306
	if cfg.DBDriver == DriverPostgres {
		defaultDBPort = 5432
	}
	if cfg.DBPort, err = parsePort("DBPORT", defaultDBPort); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = parseDurationEnv("SESSION_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RememberTTL, err = parseDurationEnv("REMEMBER_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LoginRateWindow, err = parseDurationEnv("LOGIN_RATE_WINDOW", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.LoginRateLimit, err = parseIntEnv("LOGIN_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	cfg.CookieSecure = parseBoolEnv("COOKIE_SECURE", cfg.IsProduction())
	cfg.RedisEnabled = parseBoolEnv("REDIS_ENABLED", false)

	switch cfg.DBDriver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		return nil, fmt.Errorf("DBDRIVER %q is not supported", cfg.DBDriver)
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWTSECRET is required in production")
		}
		// Sessions signed with a random secret do not survive a restart.
		cfg.JWTSecret = randomSecret()
	}

	return cfg, nil
}

// DSN builds the data source name for the configured driver.
func (c *Config) DSN() string {
	switch c.DBDriver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4", c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
	default:
		return c.DBPath
	}
}

// ConnectDatabase opens the relational store described by cfg. Under
// APPENV=test it always returns a fresh in-memory SQLite database.
func ConnectDatabase(cfg *Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		// Unique index violations surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}

	var dialector gorm.Dialector
	switch {
	case cfg.IsTest():
		dsn := fmt.Sprintf("file:clinic_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
		dialector = sqlite.Open(dsn)
	case cfg.DBDriver == DriverMySQL:
		dialector = mysql.Open(cfg.DSN())
	case cfg.DBDriver == DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	default:
		dialector = sqlite.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}
	return db, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parsePort(key string, def int) (uint16, error) {
	val := getEnv(key, "")
	if val == "" {
		return uint16(def), nil
	}
	port, err := strconv.ParseUint(val, 10, 16)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("%s must be a valid port: %q", key, val)
	}
	return uint16(port), nil
}

func parseIntEnv(key string, def int) (int, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %q", key, val)
	}
	return n, nil
}

func parseBoolEnv(key string, def bool) bool {
	val := getEnv(key, "")
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return dur, nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("config: read random secret: %v", err))
	}
	return hex.EncodeToString(b)
}
