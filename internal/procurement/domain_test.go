package procurement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestFormatReference(t *testing.T) {
	require.Equal(t, "LPO-2025-000123", FormatReference("LPO", 2025, 123))
	require.Equal(t, "SUP-2026-000001", FormatReference("SUP", 2026, 1))
	require.Equal(t, "LPO-2025-1000000", FormatReference("LPO", 2025, 1000000))
}

func TestRecomputeTotals(t *testing.T) {
	order := LPO{TaxAmount: dec("7.50"), DiscountAmount: dec("10.00")}
	items := []LPOItem{
		{LineTotal: dec("100.00")},
		{LineTotal: dec("49.99")},
	}
	order.RecomputeTotals(items)
	require.True(t, order.Subtotal.Equal(dec("149.99")), "subtotal %s", order.Subtotal)
	require.True(t, order.GrandTotal.Equal(dec("147.49")), "grand total %s", order.GrandTotal)
	require.True(t, order.GrandTotal.Equal(order.Subtotal.Add(order.TaxAmount).Sub(order.DiscountAmount)))
}

func TestRecomputeTotalsNoDrift(t *testing.T) {
	// 0.1 + 0.2 style sums must stay exact under decimal arithmetic.
	order := LPO{}
	items := []LPOItem{
		{LineTotal: dec("0.10")},
		{LineTotal: dec("0.20")},
	}
	order.RecomputeTotals(items)
	require.True(t, order.Subtotal.Equal(dec("0.30")))
	require.True(t, order.GrandTotal.Equal(dec("0.30")))
}

func TestRefreshReceiveStatus(t *testing.T) {
	t.Run("nothing received keeps status", func(t *testing.T) {
		order := LPO{Status: StatusApproved}
		order.RefreshReceiveStatus([]LPOItem{{Qty: dec("10"), QtyReceived: decimal.Zero}})
		require.Equal(t, StatusApproved, order.Status)
	})
	t.Run("partial", func(t *testing.T) {
		order := LPO{Status: StatusApproved}
		order.RefreshReceiveStatus([]LPOItem{{Qty: dec("10"), QtyReceived: dec("4")}})
		require.Equal(t, StatusPartiallyReceived, order.Status)
	})
	t.Run("fulfilled", func(t *testing.T) {
		order := LPO{Status: StatusPartiallyReceived}
		order.RefreshReceiveStatus([]LPOItem{{Qty: dec("10"), QtyReceived: dec("10")}})
		require.Equal(t, StatusFulfilled, order.Status)
	})
	t.Run("multi item partial", func(t *testing.T) {
		order := LPO{Status: StatusApproved}
		order.RefreshReceiveStatus([]LPOItem{
			{Qty: dec("10"), QtyReceived: dec("10")},
			{Qty: dec("5"), QtyReceived: decimal.Zero},
		})
		require.Equal(t, StatusPartiallyReceived, order.Status)
	})
}

func TestTransitionGuards(t *testing.T) {
	t.Run("submit only from draft", func(t *testing.T) {
		require.NoError(t, (&LPO{Status: StatusDraft}).CanSubmit())
		err := (&LPO{Status: StatusApproved}).CanSubmit()
		require.ErrorIs(t, err, ErrInvalidState)
		require.Contains(t, err.Error(), "Only draft LPO can be submitted.")
	})
	t.Run("approve only from submitted", func(t *testing.T) {
		require.NoError(t, (&LPO{Status: StatusSubmitted}).CanApprove())
		err := (&LPO{Status: StatusDraft}).CanApprove()
		require.ErrorIs(t, err, ErrInvalidState)
		require.Contains(t, err.Error(), "Only submitted LPO can be approved.")
	})
	t.Run("cancel blocked on terminal states", func(t *testing.T) {
		for _, status := range []Status{StatusDraft, StatusSubmitted, StatusApproved, StatusPartiallyReceived} {
			require.NoError(t, (&LPO{Status: status}).CanCancel(), "status %s", status)
		}
		for _, status := range []Status{StatusFulfilled, StatusCancelled} {
			err := (&LPO{Status: status}).CanCancel()
			require.ErrorIs(t, err, ErrInvalidState, "status %s", status)
			require.Contains(t, err.Error(), "Cannot cancel a fulfilled or already cancelled LPO.")
		}
	})
	t.Run("receive only when approved or partially received", func(t *testing.T) {
		require.NoError(t, (&LPO{Status: StatusApproved}).CanReceive())
		require.NoError(t, (&LPO{Status: StatusPartiallyReceived}).CanReceive())
		err := (&LPO{Status: StatusFulfilled}).CanReceive()
		require.ErrorIs(t, err, ErrInvalidState)
		require.Contains(t, err.Error(), "Only approved or partially received LPO can receive goods.")
	})
}

func TestIsEditable(t *testing.T) {
	require.True(t, (&LPO{Status: StatusDraft}).IsEditable())
	require.True(t, (&LPO{Status: StatusSubmitted}).IsEditable())
	require.False(t, (&LPO{Status: StatusApproved}).IsEditable())
	require.False(t, (&LPO{Status: StatusPartiallyReceived}).IsEditable())
	require.False(t, (&LPO{Status: StatusCancelled}).IsEditable())
}

func TestItemRemaining(t *testing.T) {
	item := LPOItem{Qty: dec("10"), QtyReceived: dec("4")}
	require.True(t, item.Remaining().Equal(dec("6")))
}
