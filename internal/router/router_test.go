package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpy/paths"
	"github.com/psds-microservice/repair-desk/internal/config"
	"github.com/psds-microservice/repair-desk/internal/database"
	"github.com/psds-microservice/repair-desk/internal/handler"
	"github.com/psds-microservice/repair-desk/internal/model"
	"github.com/psds-microservice/repair-desk/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.DB.Driver = config.DriverSQLite
	cfg.DB.Path = filepath.Join(t.TempDir(), "repairs.db")
	db, err := database.OpenAndMigrate(cfg, zerolog.Nop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	h := handler.NewRepairHandler(service.NewRepairService(db), nil, zerolog.Nop())
	return New(h, sqlDB, zerolog.Nop())
}

func call(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func list(t *testing.T, srv http.Handler) []model.Repair {
	t.Helper()
	w := call(t, srv, http.MethodGet, "/get_repairs", "")
	require.Equal(t, http.StatusOK, w.Code)
	var items []model.Repair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	return items
}

func TestConcreteScenario(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, "[]", strings.TrimSpace(call(t, srv, http.MethodGet, "/get_repairs", "").Body.String()))

	w := call(t, srv, http.MethodPost, "/receive", `{"client_name":"Ivanov","device_type":"Phone"}`)
	require.Equal(t, http.StatusOK, w.Code)
	items := list(t, srv)
	require.Len(t, items, 1)
	assert.EqualValues(t, 1, items[0].ID)
	assert.Equal(t, model.RepairStatusReceived, items[0].Status)
	assert.Equal(t, "", items[0].Manufacturer)
	assert.Equal(t, "", items[0].Notes)

	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/receive", `{"client_name":"Petrov"}`).Code)
	items = list(t, srv)
	require.Len(t, items, 2)
	assert.EqualValues(t, 1, items[0].ID)
	assert.EqualValues(t, 2, items[1].ID)

	require.Equal(t, http.StatusOK, call(t, srv, http.MethodDelete, "/delete_repair/1", "").Code)
	items = list(t, srv)
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, items[0].ID)

	require.Equal(t, http.StatusOK, call(t, srv, http.MethodDelete, "/delete_all_repairs", "").Code)
	assert.Empty(t, list(t, srv))
}

func TestDeleteNeverIssuedID(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/receive", `{"client_name":"Ivanov"}`).Code)
	before := list(t, srv)

	w := call(t, srv, http.MethodDelete, "/delete_repair/77", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, before, list(t, srv))
}

func TestZeroIDIsNotFound(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/receive", `{"client_name":"Ivanov"}`).Code)
	before := list(t, srv)

	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, "/get_repair/0", "").Code)
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodPut, "/update_repair/0", `{"notes":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodDelete, "/delete_repair/0", "").Code)
	assert.Equal(t, before, list(t, srv))
}

func TestDeleteAllIsIdempotent(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 2; i++ {
		w := call(t, srv, http.MethodDelete, "/delete_all_repairs", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, list(t, srv))
	}
}

func TestUpdateKeepsID(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/receive", `{"client_name":"Ivanov","status":"received"}`).Code)

	w := call(t, srv, http.MethodPut, "/update_repair/1", `{"status":"ready","notes":"call client"}`)
	require.Equal(t, http.StatusOK, w.Code)
	items := list(t, srv)
	require.Len(t, items, 1)
	assert.EqualValues(t, 1, items[0].ID)
	assert.Equal(t, model.RepairStatusReady, items[0].Status)
	assert.Equal(t, "Ivanov", items[0].ClientName)
	assert.Equal(t, "call client", items[0].Notes)

	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodPut, "/update_repair/5", `{"notes":"x"}`).Code)
}

func TestHealthReadyAndSwagger(t *testing.T) {
	srv := newTestServer(t)
	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, paths.PathHealth, "").Code)
	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, paths.PathReady, "").Code)

	w := call(t, srv, http.MethodGet, paths.PathSwagger+"/openapi.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/get_repairs")
}
