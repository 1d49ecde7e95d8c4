package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"LaunchSite", &LaunchSite{}, "launch_sites"},
		{"Run", &Run{}, "runs"},
		{"RunSample", &RunSample{}, "run_samples"},
		{"RunSeparation", &RunSeparation{}, "run_separations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(DatabaseModels...))
	return db
}

func TestLaunchSite_GetOrInsert(t *testing.T) {
	db := openTestDB(t)

	first := LaunchSite{Name: "School field"}
	created, err := first.GetOrInsert(db)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotZero(t, first.ID)

	again := LaunchSite{Name: "School field"}
	created, err = again.GetOrInsert(db)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	other := LaunchSite{Name: "Beach"}
	created, err = other.GetOrInsert(db)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestRun_CreatedAtRoundTripsOnSQLite(t *testing.T) {
	db := openTestDB(t)

	site := LaunchSite{Name: "School field"}
	_, err := site.GetOrInsert(db)
	require.NoError(t, err)

	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	run := Run{CreatedAt: created, LaunchSiteID: site.ID, Input: datatypes.JSON(`{}`), Summary: datatypes.JSON(`{}`)}
	require.NoError(t, db.Omit("Samples", "Separations", "LaunchSite").Create(&run).Error)

	var got Run
	require.NoError(t, db.First(&got, run.ID).Error)
	assert.True(t, created.Equal(got.CreatedAt), "got %v", got.CreatedAt)

	var listed []Run
	require.NoError(t, db.Order("created_at desc").Find(&listed).Error)
	require.Len(t, listed, 1)
}
