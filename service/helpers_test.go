package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ariebrainware/clinic-app/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service_%s_%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))
	return db
}

func fixedClock(ts string) func() time.Time {
	now, err := time.Parse("2006-01-02 15:04", ts)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return now }
}

const validCPF = "11144477735"
