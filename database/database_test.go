package database

import (
	"testing"

	"firmdesk/errs"
	"firmdesk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRegistryOpen(t *testing.T) {
	t.Run("Empty tenant falls back to default", func(t *testing.T) {
		var requested string
		registry := NewRegistryWithDialector(func(tenant string) gorm.Dialector {
			requested = tenant
			return sqlite.Open(":memory:")
		}, "defaultfirm", zap.NewNop().Sugar())

		db, release, err := registry.Open("")
		require.NoError(t, err)
		require.NotNil(t, db)
		defer release()

		assert.Equal(t, "defaultfirm", requested)
	})

	t.Run("Explicit tenant is used", func(t *testing.T) {
		var requested string
		registry := NewRegistryWithDialector(func(tenant string) gorm.Dialector {
			requested = tenant
			return sqlite.Open(":memory:")
		}, "defaultfirm", zap.NewNop().Sugar())

		db, release, err := registry.Open("acmefirm")
		require.NoError(t, err)
		require.NotNil(t, db)
		defer release()

		assert.Equal(t, "acmefirm", requested)
	})

	t.Run("Unreachable database yields no handle", func(t *testing.T) {
		registry := NewRegistryWithDialector(func(tenant string) gorm.Dialector {
			return sqlite.Open("file:/nonexistent-dir/nope/tenant.db")
		}, "defaultfirm", zap.NewNop().Sugar())

		db, release, err := registry.Open("acmefirm")
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindConnection))
		assert.Nil(t, db)
		assert.Nil(t, release)
	})
}

func TestMigrateAndSeed(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	SeedInitialData(db)

	var menuCount, submenuCount, opCount, moCount int64
	db.Model(&models.Menu{}).Where("parent_id IS NULL").Count(&menuCount)
	db.Model(&models.Menu{}).Where("parent_id IS NOT NULL").Count(&submenuCount)
	db.Model(&models.Operation{}).Count(&opCount)
	db.Model(&models.MenuOperation{}).Count(&moCount)
	assert.Equal(t, int64(6), menuCount)
	assert.Equal(t, int64(4), submenuCount)
	assert.Equal(t, int64(4), opCount)
	assert.Equal(t, int64(40), moCount) // 10 menus x 4 operations

	// Submenus reference a top-level parent only (depth capped at 2).
	var violations int64
	db.Raw(`SELECT COUNT(*) FROM menus m JOIN menus p ON p.id = m.parent_id WHERE p.parent_id IS NOT NULL`).Scan(&violations)
	assert.Equal(t, int64(0), violations)

	var admin models.User
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	assert.Equal(t, models.StatusActive, admin.Status)

	// Seeding again is a no-op.
	SeedInitialData(db)
	var again int64
	db.Model(&models.Menu{}).Count(&again)
	assert.Equal(t, int64(10), again)
}
