package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]Entry
}

func newMemRepo() *memRepo {
	return &memRepo{entries: map[uuid.UUID]Entry{}}
}

func (m *memRepo) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.Deleted {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (m *memRepo) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Entry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.Deleted {
			continue
		}
		if filters.Status != "" && e.Status != filters.Status {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *memRepo) Create(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *memRepo) Update(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.ID]; !ok {
		return ErrNotFound
	}
	m.entries[e.ID] = e
	return nil
}

func (m *memRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.Deleted {
		return ErrNotFound
	}
	e.Deleted = true
	m.entries[id] = e
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateEntryDefaults(t *testing.T) {
	service := NewService(newMemRepo())

	entry, err := service.CreateEntry(context.Background(), 7, EntryInput{
		TruckRegistration: " abc-123-xy ",
		Quantity:          dec("30"),
	})
	require.NoError(t, err)
	require.Equal(t, "ABC-123-XY", entry.TruckRegistration)
	require.Equal(t, StatusPending, entry.Status)
	require.Equal(t, "tons", entry.Unit)
	require.Equal(t, int64(7), entry.CreatedBy)
	require.False(t, entry.EntryDate.IsZero())
	require.NotEqual(t, uuid.Nil, entry.ID)
}

func TestCreateEntryValidation(t *testing.T) {
	service := NewService(newMemRepo())

	_, err := service.CreateEntry(context.Background(), 1, EntryInput{})
	require.ErrorIs(t, err, ErrValidation)

	_, err = service.CreateEntry(context.Background(), 1, EntryInput{
		TruckRegistration: "XYZ", Status: "lost",
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = service.CreateEntry(context.Background(), 1, EntryInput{
		TruckRegistration: "XYZ",
		GrossWeight:       dec("10"),
		TareWeight:        dec("12"),
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestNetWeightComputed(t *testing.T) {
	service := NewService(newMemRepo())

	entry, err := service.CreateEntry(context.Background(), 1, EntryInput{
		TruckRegistration: "GGE-402-XA",
		GrossWeight:       dec("42.300"),
		TareWeight:        dec("15.100"),
	})
	require.NoError(t, err)
	require.True(t, entry.NetWeight.Equal(dec("27.200")))
}

func TestUpdateEntryStatusTransition(t *testing.T) {
	repo := newMemRepo()
	service := NewService(repo)
	entry, err := service.CreateEntry(context.Background(), 1, EntryInput{TruckRegistration: "KJA-11-AB"})
	require.NoError(t, err)

	updated, err := service.UpdateEntry(context.Background(), entry.ID, EntryInput{
		TruckRegistration: "KJA-11-AB",
		Status:            StatusDelivered,
		Quantity:          dec("28.5"),
	})
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, updated.Status)
	require.True(t, updated.Quantity.Equal(dec("28.5")))
}

func TestDeleteEntryHidesIt(t *testing.T) {
	service := NewService(newMemRepo())
	entry, err := service.CreateEntry(context.Background(), 1, EntryInput{TruckRegistration: "ABJ-900-QQ"})
	require.NoError(t, err)

	require.NoError(t, service.DeleteEntry(context.Background(), entry.ID))
	_, err = service.GetEntry(context.Background(), entry.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
