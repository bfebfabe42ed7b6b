package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"firmdesk/auth"
	"firmdesk/database"
	"firmdesk/models"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupResourceEnv(t *testing.T) *testEnv {
	t.Helper()

	tenant := fmt.Sprintf("restenant_%d", time.Now().UnixNano())

	keeper, err := gorm.Open(sqlite.Open(sqliteDSN(tenant)), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := keeper.DB()
		_ = sqlDB.Close()
	})
	require.NoError(t, database.Migrate(keeper))

	registry := database.NewRegistryWithDialector(func(name string) gorm.Dialector {
		return sqlite.Open(sqliteDSN(name))
	}, tenant, zap.NewNop().Sugar())

	container := restful.NewContainer()
	for _, def := range ResourceDefs {
		ws := new(restful.WebService)
		NewResourceController(registry, def).RegisterRoutes(ws)
		container.Add(ws)
	}

	admin := models.User{Username: "admin", Password: "x", Name: "Admin", Role: "admin", Status: models.StatusActive}
	require.NoError(t, keeper.Create(&admin).Error)
	token, err := auth.GenerateToken(&admin, tenant)
	require.NoError(t, err)

	return &testEnv{container: container, db: keeper, tenant: tenant, token: token, admin: admin}
}

func TestResourceCRUD(t *testing.T) {
	env := setupResourceEnv(t)

	// Create a client.
	w := env.do(t, "POST", "/clients", map[string]interface{}{
		"name":  "Acme Traders",
		"email": "accounts@acme.example",
		"phone": "555-0100",
	})
	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	require.Equal(t, true, envelope["status"])
	id := uint(envelope["data"].(map[string]interface{})["id"].(float64))
	assert.NotZero(t, id)

	// Duplicate per the (name, email) uniqueness tuple.
	w = env.do(t, "POST", "/clients", map[string]interface{}{
		"name":  "Acme Traders",
		"email": "accounts@acme.example",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decodeEnvelope(t, w)["status"])

	// Unknown fields are dropped, not stored.
	w = env.do(t, "POST", "/clients", map[string]interface{}{
		"name":   "Beta LLP",
		"email":  "info@beta.example",
		"status": 0, // not an allowed field; rows are always created active
	})
	require.Equal(t, http.StatusOK, w.Code)

	// List returns both active rows.
	w = env.do(t, "GET", "/clients", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decodeEnvelope(t, w)["data"].([]interface{})
	assert.Len(t, rows, 2)

	// Update.
	w = env.do(t, "PUT", fmt.Sprintf("/clients/%d", id), map[string]interface{}{
		"phone": "555-0199",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var client models.Client
	require.NoError(t, env.db.First(&client, id).Error)
	assert.Equal(t, "555-0199", client.Phone)

	// Update of a missing row.
	w = env.do(t, "PUT", "/clients/9999", map[string]interface{}{"phone": "1"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Soft delete flips the flag and hides the row from lists.
	w = env.do(t, "DELETE", fmt.Sprintf("/clients/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, env.db.First(&client, id).Error)
	assert.Equal(t, models.StatusDeleted, client.Status)

	w = env.do(t, "GET", "/clients", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows = decodeEnvelope(t, w)["data"].([]interface{})
	assert.Len(t, rows, 1)

	// Deleting twice reports not found.
	w = env.do(t, "DELETE", fmt.Sprintf("/clients/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimesheetUniquenessTuple(t *testing.T) {
	env := setupResourceEnv(t)

	body := map[string]interface{}{
		"employee_id": env.admin.ID,
		"task_id":     1,
		"work_date":   "2026-08-01",
		"hours":       7.5,
	}
	require.Equal(t, http.StatusOK, env.do(t, "POST", "/timesheets", body).Code)

	// Same employee, task and day is a duplicate.
	w := env.do(t, "POST", "/timesheets", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// A different day is fine.
	body["work_date"] = "2026-08-02"
	assert.Equal(t, http.StatusOK, env.do(t, "POST", "/timesheets", body).Code)
}
