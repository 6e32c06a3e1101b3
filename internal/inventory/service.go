package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (Entry, error)
	List(ctx context.Context, limit, offset int, filters ListFilters) ([]Entry, int, error)
	Create(ctx context.Context, e Entry) error
	Update(ctx context.Context, e Entry) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Service coordinates inventory operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// EntryInput describes create/update payloads.
type EntryInput struct {
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
}

func (in EntryInput) validate() error {
	if strings.TrimSpace(in.TruckRegistration) == "" {
		return fmt.Errorf("%w: truck registration is required", ErrValidation)
	}
	if in.Quantity.IsNegative() {
		return fmt.Errorf("%w: quantity cannot be negative", ErrValidation)
	}
	if in.Status != "" && !ValidStatus(in.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, in.Status)
	}
	if in.GrossWeight.IsNegative() || in.TareWeight.IsNegative() {
		return fmt.Errorf("%w: weights cannot be negative", ErrValidation)
	}
	if in.GrossWeight.IsPositive() && in.TareWeight.IsPositive() && in.TareWeight.GreaterThan(in.GrossWeight) {
		return fmt.Errorf("%w: tare weight cannot exceed gross weight", ErrValidation)
	}
	return nil
}

// CreateEntry validates and stores a new truck entry.
func (s *Service) CreateEntry(ctx context.Context, actorID int64, input EntryInput) (Entry, error) {
	if err := input.validate(); err != nil {
		return Entry{}, err
	}
	entry := Entry{
		ID:                 uuid.New(),
		EntryDate:          input.EntryDate,
		CustomerName:       input.CustomerName,
		MineralOrEquipment: input.MineralOrEquipment,
		Description:        input.Description,
		SupplierAgent:      input.SupplierAgent,
		TruckRegistration:  strings.ToUpper(strings.TrimSpace(input.TruckRegistration)),
		Status:             input.Status,
		DriverName:         input.DriverName,
		DriverPhone:        input.DriverPhone,
		Quantity:           input.Quantity,
		Unit:               input.Unit,
		Origin:             input.Origin,
		Destination:        input.Destination,
		GrossWeight:        input.GrossWeight,
		TareWeight:         input.TareWeight,
		CreatedBy:          actorID,
	}
	if entry.Status == "" {
		entry.Status = StatusPending
	}
	if entry.Unit == "" {
		entry.Unit = "tons"
	}
	if entry.EntryDate.IsZero() {
		entry.EntryDate = time.Now().UTC()
	}
	entry.ComputeNetWeight()
	if err := s.repo.Create(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// UpdateEntry validates and rewrites an entry.
func (s *Service) UpdateEntry(ctx context.Context, id uuid.UUID, input EntryInput) (Entry, error) {
	if err := input.validate(); err != nil {
		return Entry{}, err
	}
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if !input.EntryDate.IsZero() {
		entry.EntryDate = input.EntryDate
	}
	entry.CustomerName = input.CustomerName
	entry.MineralOrEquipment = input.MineralOrEquipment
	entry.Description = input.Description
	entry.SupplierAgent = input.SupplierAgent
	entry.TruckRegistration = strings.ToUpper(strings.TrimSpace(input.TruckRegistration))
	if input.Status != "" {
		entry.Status = input.Status
	}
	entry.DriverName = input.DriverName
	entry.DriverPhone = input.DriverPhone
	entry.Quantity = input.Quantity
	if input.Unit != "" {
		entry.Unit = input.Unit
	}
	entry.Origin = input.Origin
	entry.Destination = input.Destination
	entry.GrossWeight = input.GrossWeight
	entry.TareWeight = input.TareWeight
	entry.ComputeNetWeight()
	if err := s.repo.Update(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// GetEntry fetches one entry.
func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (Entry, error) {
	return s.repo.Get(ctx, id)
}

// ListEntries lists entries.
func (s *Service) ListEntries(ctx context.Context, limit, offset int, filters ListFilters) ([]Entry, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, limit, offset, filters)
}

// DeleteEntry soft-deletes an entry.
func (s *Service) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}
