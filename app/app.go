package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ariebrainware/clinic-app/config"
	"github.com/ariebrainware/clinic-app/model"
	"github.com/ariebrainware/clinic-app/service"
	"github.com/ariebrainware/clinic-app/util"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// App is the application context built once at start-up and handed to the
// router. Nothing in the module keeps these handles in package variables.
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    *redis.Client
	Geo      *util.GeoLocator
	Security *util.SecurityLogger
	Auth     *service.AuthService
	Clinic   *service.ClinicService
}

// Options overrides the collaborators New would otherwise build.
type Options struct {
	// SecurityOutput receives security events; defaults to stdout.
	SecurityOutput io.Writer
	// Now is the clock used by both services.
	Now func() time.Time
}

// migrate is replaced in tests to simulate a failing schema upgrade.
var migrate = model.AutoMigrate

// New connects to the store, migrates the schema and wires the services.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		closeDB(db)
		return nil, err
	}

	rdb, err := config.ConnectRedis(cfg)
	if err != nil {
		// Sessions and rate limits still work from the database and memory.
		log.Warn().Err(err).Msg("redis unavailable, continuing without it")
		rdb = nil
	}

	geo, err := util.OpenGeoLocator(cfg.GeoIPDBPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.GeoIPDBPath).Msg("geoip database unavailable")
		geo = nil
	}

	out := opts.SecurityOutput
	if out == nil {
		out = os.Stdout
	}
	security := util.NewSecurityLogger(out, db, geo)

	a := &App{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Geo:      geo,
		Security: security,
		Auth: service.NewAuthService(db, service.AuthOptions{
			Secret:      cfg.JWTSecret,
			SessionTTL:  cfg.SessionTTL,
			RememberTTL: cfg.RememberTTL,
			Cache:       util.NewSessionCache(rdb),
			Security:    security,
			Now:         opts.Now,
		}),
		Clinic: service.NewClinicService(db, opts.Now),
	}

	if err := a.bootstrap(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) bootstrap(ctx context.Context) error {
	if a.Config.SeedUsername != "" {
		if err := a.Auth.EnsureUser(ctx, a.Config.SeedUsername, a.Config.SeedPassword); err != nil {
			return fmt.Errorf("seed user %q: %w", a.Config.SeedUsername, err)
		}
	}
	purged, err := a.Auth.PurgeExpiredSessions(ctx)
	if err != nil {
		return err
	}
	if purged > 0 {
		log.Info().Int64("sessions", purged).Msg("purged expired sessions")
	}
	return nil
}

// Close releases the database, Redis and GeoIP handles.
func (a *App) Close() {
	if a.Geo != nil {
		a.Geo.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		closeDB(a.DB)
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
