package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/psds-microservice/repair-desk/internal/errs"
)

// TimestampLayout — формат status_timestamp (как в настольном клиенте).
const TimestampLayout = "2006-01-02 15:04:05"

type RepairStatus string

const (
	RepairStatusReceived RepairStatus = "received"
	RepairStatusInRepair RepairStatus = "in-repair"
	RepairStatusReady    RepairStatus = "ready"
	RepairStatusReturned RepairStatus = "returned"
)

// Statuses lists the vocabulary in workflow order.
var Statuses = []RepairStatus{
	RepairStatusReceived,
	RepairStatusInRepair,
	RepairStatusReady,
	RepairStatusReturned,
}

// statusAliases — подписи статусов из старого настольного клиента и выгрузок Excel.
var statusAliases = map[string]RepairStatus{
	"принят":        RepairStatusReceived,
	"сдан в ремонт": RepairStatusInRepair,
	"готов":         RepairStatusReady,
	"выдан":         RepairStatusReturned,
}

// ParseStatus normalizes s. An empty string yields RepairStatusReceived.
func ParseStatus(s string) (RepairStatus, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return RepairStatusReceived, nil
	}
	for _, st := range Statuses {
		if v == string(st) {
			return st, nil
		}
	}
	if st, ok := statusAliases[v]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", errs.ErrInvalidStatus, s)
}

// Label returns the Russian caption shown to staff.
func (s RepairStatus) Label() string {
	for label, st := range statusAliases {
		if st == s {
			return label
		}
	}
	return string(s)
}

// Repair — квитанция на ремонт. Все текстовые поля необязательны и по умолчанию пустые.
type Repair struct {
	ID               uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientName       string       `gorm:"not null" json:"client_name"`
	DeviceType       string       `gorm:"not null" json:"device_type"`
	Manufacturer     string       `gorm:"not null" json:"manufacturer"`
	Model            string       `gorm:"not null" json:"model"`
	SerialNumber     string       `gorm:"not null" json:"serial_number"`
	Accessories      string       `gorm:"not null" json:"accessories"`
	ClientAddress    string       `gorm:"not null" json:"client_address"`
	Status           RepairStatus `gorm:"type:varchar(32);not null" json:"status"`
	StatusTimestamp  string       `gorm:"not null" json:"status_timestamp"`
	IssueDescription string       `gorm:"type:text;not null" json:"issue_description"`
	Notes            string       `gorm:"type:text;not null" json:"notes"`
}

func (Repair) TableName() string { return "repairs" }

// Fields returns the ticket without its identity, ready for re-creation elsewhere.
func (r Repair) Fields() RepairFields {
	return RepairFields{
		ClientName:       r.ClientName,
		DeviceType:       r.DeviceType,
		Manufacturer:     r.Manufacturer,
		Model:            r.Model,
		SerialNumber:     r.SerialNumber,
		Accessories:      r.Accessories,
		ClientAddress:    r.ClientAddress,
		Status:           string(r.Status),
		StatusTimestamp:  r.StatusTimestamp,
		IssueDescription: r.IssueDescription,
		Notes:            r.Notes,
	}
}

// RepairFields is the writable field set of a ticket, as submitted on create.
type RepairFields struct {
	ClientName       string `json:"client_name"`
	DeviceType       string `json:"device_type"`
	Manufacturer     string `json:"manufacturer"`
	Model            string `json:"model"`
	SerialNumber     string `json:"serial_number"`
	Accessories      string `json:"accessories"`
	ClientAddress    string `json:"client_address"`
	Status           string `json:"status"`
	StatusTimestamp  string `json:"status_timestamp,omitempty"`
	IssueDescription string `json:"issue_description"`
	Notes            string `json:"notes"`
}

// RepairPatch — частичное обновление: nil означает «не менять».
type RepairPatch struct {
	ClientName       *string `json:"client_name,omitempty"`
	DeviceType       *string `json:"device_type,omitempty"`
	Manufacturer     *string `json:"manufacturer,omitempty"`
	Model            *string `json:"model,omitempty"`
	SerialNumber     *string `json:"serial_number,omitempty"`
	Accessories      *string `json:"accessories,omitempty"`
	ClientAddress    *string `json:"client_address,omitempty"`
	Status           *string `json:"status,omitempty"`
	IssueDescription *string `json:"issue_description,omitempty"`
	Notes            *string `json:"notes,omitempty"`
}

// PatchFrom builds a patch that sets every field of f. StatusTimestamp is not
// carried: the store owns it on update.
func PatchFrom(f RepairFields) RepairPatch {
	return RepairPatch{
		ClientName:       &f.ClientName,
		DeviceType:       &f.DeviceType,
		Manufacturer:     &f.Manufacturer,
		Model:            &f.Model,
		SerialNumber:     &f.SerialNumber,
		Accessories:      &f.Accessories,
		ClientAddress:    &f.ClientAddress,
		Status:           &f.Status,
		IssueDescription: &f.IssueDescription,
		Notes:            &f.Notes,
	}
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
