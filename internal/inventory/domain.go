// Package inventory tracks truck-based stock movements: one entry per
// truck load, weighed in and out at the gate.
package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sacsol/sacsol-api/internal/shared"
)

// Entry movement statuses.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusRejected  Status = "rejected"
)

// ValidStatus reports whether s is a known entry status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInTransit, StatusDelivered, StatusRejected:
		return true
	}
	return false
}

var (
	// ErrNotFound indicates a missing entry.
	ErrNotFound = fmt.Errorf("inventory: %w", shared.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("inventory: %w", shared.ErrValidation)
)

// Entry is one truck movement record.
type Entry struct {
	ID                 uuid.UUID
	EntryDate          time.Time
	CustomerName       string
	MineralOrEquipment string
	Description        string
	SupplierAgent      string
	TruckRegistration  string
	Status             Status
	DriverName         string
	DriverPhone        string
	Quantity           decimal.Decimal
	Unit               string
	Origin             string
	Destination        string
	GrossWeight        decimal.Decimal
	TareWeight         decimal.Decimal
	NetWeight          decimal.Decimal
	CreatedBy          int64
	Deleted            bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ComputeNetWeight derives net from gross and tare when both are set.
func (e *Entry) ComputeNetWeight() {
	if e.GrossWeight.IsPositive() && e.TareWeight.IsPositive() {
		e.NetWeight = e.GrossWeight.Sub(e.TareWeight)
	}
}
