package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/repair-desk/internal/errs"
	"github.com/psds-microservice/repair-desk/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepairService struct {
	created []model.RepairFields
	err     error
}

func (f *fakeRepairService) Create(_ context.Context, in model.RepairFields) (*model.Repair, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, in)
	return &model.Repair{ID: uint64(len(f.created)), ClientName: in.ClientName}, nil
}

func (f *fakeRepairService) GetByID(context.Context, uint64) (*model.Repair, error) {
	return nil, errs.ErrRepairNotFound
}

func (f *fakeRepairService) List(context.Context) ([]model.Repair, error) {
	return nil, f.err
}

func (f *fakeRepairService) Update(context.Context, uint64, model.RepairPatch) (*model.Repair, error) {
	return nil, f.err
}

func (f *fakeRepairService) Delete(context.Context, uint64) error { return f.err }

func (f *fakeRepairService) DeleteAll(context.Context) (int64, error) { return 0, f.err }

type recordingProducer struct {
	mu     sync.Mutex
	events []string
	done   chan struct{}
}

func (p *recordingProducer) ProduceRepairEvent(_ context.Context, event string, _ map[string]interface{}) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	p.done <- struct{}{}
}

func newEngine(h *RepairHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/receive", h.Create)
	r.GET("/get_repairs", h.List)
	r.GET("/get_repair/:id", h.Get)
	r.PUT("/update_repair/:id", h.Update)
	r.DELETE("/delete_repair/:id", h.Delete)
	r.DELETE("/delete_all_repairs", h.DeleteAll)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateMapsLegacyIntakePayload(t *testing.T) {
	svc := &fakeRepairService{}
	r := newEngine(NewRepairHandler(svc, nil, zerolog.Nop()))

	w := do(r, http.MethodPost, "/receive", `{"type":"Телефон","description":"не включается","contact":"+7 900","user":"Анна","time":"2025-03-01","extra":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", decode(t, w)["status"])

	require.Len(t, svc.created, 1)
	got := svc.created[0]
	assert.Equal(t, "Телефон", got.DeviceType)
	assert.Equal(t, "не включается", got.IssueDescription)
	assert.Equal(t, "+7 900", got.ClientAddress)
	assert.Equal(t, "Анна", got.ClientName)
	assert.Equal(t, "Заявка из мессенджера от 2025-03-01", got.Notes)
}

func TestCreateCanonicalFieldsWin(t *testing.T) {
	svc := &fakeRepairService{}
	r := newEngine(NewRepairHandler(svc, nil, zerolog.Nop()))
	w := do(r, http.MethodPost, "/receive", `{"device_type":"Laptop","type":"Телефон"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Laptop", svc.created[0].DeviceType)
}

func TestCreateEmptyBody(t *testing.T) {
	svc := &fakeRepairService{}
	r := newEngine(NewRepairHandler(svc, nil, zerolog.Nop()))
	w := do(r, http.MethodPost, "/receive", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.created, 1)
	assert.Equal(t, model.RepairFields{}, svc.created[0])
}

func TestCreateBadBody(t *testing.T) {
	svc := &fakeRepairService{}
	r := newEngine(NewRepairHandler(svc, nil, zerolog.Nop()))
	for _, body := range []string{`{"client_name":`, `{"client_name": 12}`} {
		w := do(r, http.MethodPost, "/receive", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "error", decode(t, w)["status"])
	}
	assert.Empty(t, svc.created)
}

func TestStorageFailureIs500(t *testing.T) {
	svc := &fakeRepairService{err: errors.New("disk I/O error")}
	r := newEngine(NewRepairHandler(svc, nil, zerolog.Nop()))

	w := do(r, http.MethodPost, "/receive", `{}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "disk I/O error")

	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/get_repairs", "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodDelete, "/delete_repair/1", "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodDelete, "/delete_all_repairs", "").Code)
}

func TestInvalidStatusIs400(t *testing.T) {
	svc := &fakeRepairService{err: errs.ErrInvalidStatus}
	r := newEngine(NewRepairHandler(svc, nil, zerolog.Nop()))
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/receive", `{"status":"lost"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/update_repair/1", `{"status":"lost"}`).Code)
}

func TestBadIDs(t *testing.T) {
	r := newEngine(NewRepairHandler(&fakeRepairService{}, nil, zerolog.Nop()))
	for _, path := range []string{"/delete_repair/abc", "/delete_repair/-3", "/delete_repair/1.5"} {
		assert.Equal(t, http.StatusBadRequest, do(r, http.MethodDelete, path, "").Code, path)
	}
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/get_repair/9", "").Code)
}

func TestWritesPublishEvents(t *testing.T) {
	p := &recordingProducer{done: make(chan struct{}, 4)}
	r := newEngine(NewRepairHandler(&fakeRepairService{}, p, zerolog.Nop()))

	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/receive", `{}`).Code)
	require.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/delete_repair/1", "").Code)
	require.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/delete_all_repairs", "").Code)
	for i := 0; i < 3; i++ {
		select {
		case <-p.done:
		case <-time.After(2 * time.Second):
			t.Fatal("event not published")
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	assert.ElementsMatch(t, []string{"repair.created", "repair.deleted", "repair.cleared"}, p.events)
}
