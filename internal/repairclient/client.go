package repairclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/psds-microservice/repair-desk/internal/errs"
	"github.com/psds-microservice/repair-desk/internal/model"
)

// DefaultTimeout — таймаут одного запроса к сервису.
const DefaultTimeout = 5 * time.Second

// ServerError — сервис ответил не-2xx (кроме 404, который превращается в errs.ErrRepairNotFound).
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("server error: status %d: %s", e.StatusCode, e.Message)
}

// NetworkError — сервис недоступен или запрос превысил таймаут.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Op + ": " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err came from the transport rather than the service.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// Client — HTTP-клиент CRUD-сервиса квитанций. Повторов нет: ошибка возвращается вызывающему.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient возвращает клиент; timeout <= 0 означает DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the service address the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

type createResponse struct {
	Status string `json:"status"`
	ID     uint64 `json:"id"`
}

// Create отправляет POST /receive и возвращает id новой квитанции.
func (c *Client) Create(ctx context.Context, f model.RepairFields) (uint64, error) {
	var out createResponse
	if err := c.do(ctx, http.MethodPost, "/receive", f, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// List возвращает всю таблицу (GET /get_repairs).
func (c *Client) List(ctx context.Context) ([]model.Repair, error) {
	items := make([]model.Repair, 0)
	if err := c.do(ctx, http.MethodGet, "/get_repairs", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) Get(ctx context.Context, id uint64) (*model.Repair, error) {
	var r model.Repair
	if err := c.do(ctx, http.MethodGet, "/get_repair/"+strconv.FormatUint(id, 10), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Update изменяет квитанцию на месте (PUT /update_repair/{id}); id не меняется.
func (c *Client) Update(ctx context.Context, id uint64, p model.RepairPatch) (*model.Repair, error) {
	var r model.Repair
	if err := c.do(ctx, http.MethodPut, "/update_repair/"+strconv.FormatUint(id, 10), p, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) Delete(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, "/delete_repair/"+strconv.FormatUint(id, 10), nil, nil)
}

type deleteAllResponse struct {
	Deleted int64 `json:"deleted"`
}

// DeleteAll очищает таблицу и возвращает число удалённых квитанций.
func (c *Client) DeleteAll(ctx context.Context) (int64, error) {
	var out deleteAllResponse
	if err := c.do(ctx, http.MethodDelete, "/delete_all_repairs", nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	op := method + " " + path
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: new request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, errs.ErrRepairNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		return &ServerError{StatusCode: resp.StatusCode, Message: e.Message}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
