package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/psds-microservice/repair-desk/internal/errs"
	"github.com/psds-microservice/repair-desk/internal/model"
	"gorm.io/gorm"
)

// RepairServicer — интерфейс хранилища для HTTP-слоя (Dependency Inversion).
type RepairServicer interface {
	Create(ctx context.Context, f model.RepairFields) (*model.Repair, error)
	GetByID(ctx context.Context, id uint64) (*model.Repair, error)
	List(ctx context.Context) ([]model.Repair, error)
	Update(ctx context.Context, id uint64, p model.RepairPatch) (*model.Repair, error)
	Delete(ctx context.Context, id uint64) error
	DeleteAll(ctx context.Context) (int64, error)
}

type RepairService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepairService(db *gorm.DB) *RepairService {
	return &RepairService{db: db, now: time.Now}
}

// WithClock подменяет источник времени (для тестов).
func (s *RepairService) WithClock(now func() time.Time) *RepairService {
	s.now = now
	return s
}

// Create inserts a ticket. Missing status becomes "received"; a missing
// status_timestamp is stamped with the current time.
func (s *RepairService) Create(ctx context.Context, f model.RepairFields) (*model.Repair, error) {
	status, err := model.ParseStatus(f.Status)
	if err != nil {
		return nil, err
	}
	r := &model.Repair{
		ClientName:       f.ClientName,
		DeviceType:       f.DeviceType,
		Manufacturer:     f.Manufacturer,
		Model:            f.Model,
		SerialNumber:     f.SerialNumber,
		Accessories:      f.Accessories,
		ClientAddress:    f.ClientAddress,
		Status:           status,
		StatusTimestamp:  f.StatusTimestamp,
		IssueDescription: f.IssueDescription,
		Notes:            f.Notes,
	}
	if r.StatusTimestamp == "" {
		r.StatusTimestamp = model.FormatTimestamp(s.now())
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, fmt.Errorf("insert repair: %w", err)
	}
	return r, nil
}

func (s *RepairService) GetByID(ctx context.Context, id uint64) (*model.Repair, error) {
	if id == 0 {
		return nil, errs.ErrRepairNotFound
	}
	var r model.Repair
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrRepairNotFound
		}
		return nil, fmt.Errorf("get repair %d: %w", id, err)
	}
	return &r, nil
}

// List returns every ticket in insertion order.
func (s *RepairService) List(ctx context.Context) ([]model.Repair, error) {
	items := make([]model.Repair, 0)
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list repairs: %w", err)
	}
	return items, nil
}

// Update applies p in place inside one transaction; the id is kept.
// status_timestamp is refreshed only when the status actually changes.
func (s *RepairService) Update(ctx context.Context, id uint64, p model.RepairPatch) (*model.Repair, error) {
	if id == 0 {
		return nil, errs.ErrRepairNotFound
	}
	var out model.Repair
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrRepairNotFound
			}
			return err
		}
		changes := make(map[string]interface{})
		set := func(col string, v *string, cur *string) {
			if v != nil && *v != *cur {
				changes[col] = *v
				*cur = *v
			}
		}
		set("client_name", p.ClientName, &out.ClientName)
		set("device_type", p.DeviceType, &out.DeviceType)
		set("manufacturer", p.Manufacturer, &out.Manufacturer)
		set("model", p.Model, &out.Model)
		set("serial_number", p.SerialNumber, &out.SerialNumber)
		set("accessories", p.Accessories, &out.Accessories)
		set("client_address", p.ClientAddress, &out.ClientAddress)
		set("issue_description", p.IssueDescription, &out.IssueDescription)
		set("notes", p.Notes, &out.Notes)
		if p.Status != nil {
			status, err := model.ParseStatus(*p.Status)
			if err != nil {
				return err
			}
			if status != out.Status {
				out.Status = status
				out.StatusTimestamp = model.FormatTimestamp(s.now())
				changes["status"] = string(status)
				changes["status_timestamp"] = out.StatusTimestamp
			}
		}
		if len(changes) == 0 {
			return nil
		}
		return tx.Model(&model.Repair{}).Where("id = ?", id).Updates(changes).Error
	})
	if err != nil {
		if errors.Is(err, errs.ErrRepairNotFound) || errors.Is(err, errs.ErrInvalidStatus) {
			return nil, err
		}
		return nil, fmt.Errorf("update repair %d: %w", id, err)
	}
	return &out, nil
}

// Delete removes one ticket; ErrRepairNotFound when no row matched.
// Ids start at 1, so 0 is never found.
func (s *RepairService) Delete(ctx context.Context, id uint64) error {
	if id == 0 {
		return errs.ErrRepairNotFound
	}
	res := s.db.WithContext(ctx).Delete(&model.Repair{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete repair %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.ErrRepairNotFound
	}
	return nil
}

// DeleteAll empties the table and reports how many rows were removed.
func (s *RepairService) DeleteAll(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Repair{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete all repairs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
