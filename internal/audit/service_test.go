package audit

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memRepo struct {
	rows []TimelineRow
}

func (m *memRepo) matches(row TimelineRow, filters TimelineFilters) bool {
	if !filters.From.IsZero() && row.At.Before(filters.From) {
		return false
	}
	if !filters.To.IsZero() && row.At.After(filters.To) {
		return false
	}
	if filters.Actor != "" && !strings.EqualFold(filters.Actor, row.Actor) {
		return false
	}
	if filters.Verb != "" && filters.Verb != row.Verb {
		return false
	}
	return true
}

func (m *memRepo) filtered(filters TimelineFilters) []TimelineRow {
	var out []TimelineRow
	for _, row := range m.rows {
		if m.matches(row, filters) {
			out = append(out, row)
		}
	}
	return out
}

func (m *memRepo) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	rows := m.filtered(filters)
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *memRepo) TimelineAll(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	return m.filtered(filters), nil
}

func seedRows(n int) []TimelineRow {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := make([]TimelineRow, n)
	for i := range rows {
		rows[i] = TimelineRow{
			At:        base.Add(time.Duration(i) * time.Minute),
			Actor:     "ops@sacsol.test",
			Verb:      "created",
			LPONumber: "LPO-2026-000001",
		}
	}
	return rows
}

func TestTimelinePaging(t *testing.T) {
	repo := &memRepo{rows: seedRows(25)}
	service := NewService(repo)

	result, err := service.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, result.Rows, 20)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Zero(t, result.Paging.PrevPage)

	result, err = service.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, result.Rows, 5)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.PrevPage)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &memRepo{rows: seedRows(60)}
	service := NewService(repo)

	result, err := service.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 50, result.Paging.PageSize)
	require.Len(t, result.Rows, 50)
}

func TestTimelineRejectsInvertedRange(t *testing.T) {
	service := NewService(&memRepo{})
	_, err := service.Timeline(context.Background(), TimelineFilters{
		From: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestTimelineFiltersByVerb(t *testing.T) {
	rows := seedRows(3)
	rows[1].Verb = "approved"
	repo := &memRepo{rows: rows}
	service := NewService(repo)

	result, err := service.Timeline(context.Background(), TimelineFilters{Verb: "approved"})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Equal(t, "approved", result.Rows[0].Verb)
}

func TestExportCSV(t *testing.T) {
	rows := seedRows(2)
	rows[0].PayloadRaw = []byte(`{"total":"1500.00"}`)
	exporter := NewExporter()

	out, err := exporter.WriteCSV(rows)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "at,actor,verb,lpo_number,grn,payload", lines[0])
	require.Contains(t, lines[1], "LPO-2026-000001")
	require.Contains(t, lines[1], `total`)
}

func TestHandlerParseFilters(t *testing.T) {
	handler := NewHandler(nil, NewService(&memRepo{}), NewExporter())
	handler.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }

	req := httptest.NewRequest("GET", "/audit?verb=approved&page=2&page_size=500", nil)
	filters, err := handler.parseFilters(req)
	require.NoError(t, err)
	require.Equal(t, "approved", filters.Verb)
	require.Equal(t, 2, filters.Page)
	require.Equal(t, maxPageSize, filters.PageSize)
	require.Equal(t, "2026-03-15", filters.To.Format("2006-01-02"))
	require.Equal(t, "2026-03-08", filters.From.Format("2006-01-02"))

	req = httptest.NewRequest("GET", "/audit?from=2026-03-20&to=2026-03-01", nil)
	_, err = handler.parseFilters(req)
	require.Error(t, err)

	req = httptest.NewRequest("GET", "/audit?from=2020-01-01&to=2026-03-01", nil)
	_, err = handler.parseFilters(req)
	require.Error(t, err)
}
