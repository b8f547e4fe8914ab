package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariebrainware/clinic-app/config"
	"github.com/ariebrainware/clinic-app/model"
	"github.com/ariebrainware/clinic-app/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:     "test",
		DBDriver:   config.DriverSQLite,
		JWTSecret:  "secret",
		SessionTTL: time.Hour,
	}
}

func TestNew_MigratesAndWires(t *testing.T) {
	a, err := New(context.Background(), testConfig(), Options{SecurityOutput: &bytes.Buffer{}})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Geo)
	assert.NotNil(t, a.Auth)
	assert.NotNil(t, a.Clinic)
	for _, m := range model.All() {
		assert.True(t, a.DB.Migrator().HasTable(m))
	}
}

func TestNew_SeedsUserOnce(t *testing.T) {
	cfg := testConfig()
	cfg.SeedUsername = "admin"
	cfg.SeedPassword = "admin123"
	var buf bytes.Buffer

	a, err := New(context.Background(), cfg, Options{SecurityOutput: &buf})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	res, err := a.Auth.Login(context.Background(), service.LoginRequest{Username: "admin", Password: "admin123"}, service.ClientInfo{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	require.NoError(t, a.bootstrap(context.Background()))
	var count int64
	require.NoError(t, a.DB.Model(&model.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Contains(t, buf.String(), "LOGIN_SUCCESS")
}

func TestNew_SeedValidationFails(t *testing.T) {
	cfg := testConfig()
	cfg.SeedUsername = "x"
	cfg.SeedPassword = "pw"

	_, err := New(context.Background(), cfg, Options{SecurityOutput: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestNew_ClosesDatabaseWhenMigrationFails(t *testing.T) {
	var opened *gorm.DB
	orig := migrate
	migrate = func(db *gorm.DB) error {
		opened = db
		return errors.New("migration failed")
	}
	t.Cleanup(func() { migrate = orig })

	_, err := New(context.Background(), testConfig(), Options{SecurityOutput: &bytes.Buffer{}})
	require.EqualError(t, err, "migration failed")
	require.NotNil(t, opened)

	sqlDB, err := opened.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
}
