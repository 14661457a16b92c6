package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/repair-desk/internal/errs"
	"github.com/psds-microservice/repair-desk/internal/kafka"
	"github.com/psds-microservice/repair-desk/internal/model"
	"github.com/psds-microservice/repair-desk/internal/service"
	"github.com/rs/zerolog"
)

const eventTimeout = 5 * time.Second

type RepairHandler struct {
	svc    service.RepairServicer
	events kafka.RepairEventProducer
	log    zerolog.Logger
}

func NewRepairHandler(svc service.RepairServicer, events kafka.RepairEventProducer, log zerolog.Logger) *RepairHandler {
	return &RepairHandler{svc: svc, events: events, log: log}
}

// createRepairRequest принимает любое подмножество полей; неизвестные поля игнорируются.
// type/description/contact/user/time — формат старого бота приёма заявок.
type createRepairRequest struct {
	model.RepairFields

	Type        string `json:"type"`
	Description string `json:"description"`
	Contact     string `json:"contact"`
	User        string `json:"user"`
	Time        string `json:"time"`
}

func (r createRepairRequest) fields() model.RepairFields {
	f := r.RepairFields
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&f.DeviceType, r.Type)
	fill(&f.IssueDescription, r.Description)
	fill(&f.ClientAddress, r.Contact)
	fill(&f.ClientName, r.User)
	if r.Time != "" {
		fill(&f.Notes, "Заявка из мессенджера от "+r.Time)
	}
	return f
}

func errorJSON(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"status": "error", "message": message})
}

// bindOptionalJSON decodes the body into dst; an empty body is not an error.
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *RepairHandler) publish(event string, payload map[string]interface{}) {
	if h.events == nil {
		return
	}
	// Fire-and-forget: событие должно уйти даже после ответа клиенту, но с таймаутом
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		h.events.ProduceRepairEvent(ctx, event, payload)
	}()
}

// Create godoc: POST /receive
func (h *RepairHandler) Create(c *gin.Context) {
	var req createRepairRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	r, err := h.svc.Create(c.Request.Context(), req.fields())
	if err != nil {
		if errors.Is(err, errs.ErrInvalidStatus) {
			errorJSON(c, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("create repair")
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}
	h.log.Info().Uint64("id", r.ID).Str("client", r.ClientName).Msg("repair created")
	h.publish(kafka.EventRepairCreated, kafka.RepairEventPayload(r))
	c.JSON(http.StatusOK, gin.H{"status": "success", "id": r.ID})
}

// List godoc: GET /get_repairs — вся таблица, без фильтров и пагинации.
func (h *RepairHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list repairs")
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *RepairHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	r, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get repair", err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Update godoc: PUT /update_repair/{id} — атомарное обновление на месте, id сохраняется.
func (h *RepairHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req model.RepairPatch
	if err := bindOptionalJSON(c, &req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	r, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, "update repair", err)
		return
	}
	h.log.Info().Uint64("id", r.ID).Str("status", string(r.Status)).Msg("repair updated")
	h.publish(kafka.EventRepairUpdated, kafka.RepairEventPayload(r))
	c.JSON(http.StatusOK, r)
}

// Delete godoc: DELETE /delete_repair/{id}
func (h *RepairHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "delete repair", err)
		return
	}
	h.log.Info().Uint64("id", id).Msg("repair deleted")
	h.publish(kafka.EventRepairDeleted, map[string]interface{}{"repair_id": id})
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// DeleteAll godoc: DELETE /delete_all_repairs
func (h *RepairHandler) DeleteAll(c *gin.Context) {
	n, err := h.svc.DeleteAll(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("delete all repairs")
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}
	h.log.Info().Int64("deleted", n).Msg("all repairs deleted")
	h.publish(kafka.EventRepairCleared, map[string]interface{}{"deleted": n})
	c.JSON(http.StatusOK, gin.H{"status": "success", "deleted": n})
}

func (h *RepairHandler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, errs.ErrRepairNotFound):
		errorJSON(c, http.StatusNotFound, "repair not found")
	case errors.Is(err, errs.ErrInvalidStatus):
		errorJSON(c, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Str("op", op).Msg(op + " failed")
		errorJSON(c, http.StatusInternalServerError, err.Error())
	}
}
