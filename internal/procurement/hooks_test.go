package procurement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sacsol/sacsol-api/internal/shared"
)

type fakeAudit struct {
	entries []shared.AuditEntry
}

func (f *fakeAudit) Record(ctx context.Context, entry shared.AuditEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) HasVerb(ctx context.Context, lpoID int64, verb string) (bool, error) {
	for _, entry := range f.entries {
		if entry.LPOID == lpoID && entry.Verb == verb {
			return true, nil
		}
	}
	return false, nil
}

type fakeRenderer struct {
	calls int
	err   error
}

func (f *fakeRenderer) RenderLPO(ctx context.Context, order LPO, items []LPOItem, supplier Supplier) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 stub"), nil
}

type fakeEnqueuer struct {
	sent []string
}

func (f *fakeEnqueuer) EnqueueLPOEmail(ctx context.Context, to string, order LPO, pdf []byte) error {
	f.sent = append(f.sent, to)
	return nil
}

func hookFixture(t *testing.T) (*EmailApprovalHook, *memRepo, *fakeRenderer, *fakeEnqueuer, *fakeAudit, LPO, []LPOItem) {
	t.Helper()
	repo := newMemRepo()
	service := NewService(repo, NewRolePolicy(), nil, nil, "LPO", "SUP")
	supplier := seedSupplier(t, service)
	order, items := seedOrder(t, service, supplier.ID, "10", "100.00")

	renderer := &fakeRenderer{}
	enqueuer := &fakeEnqueuer{}
	audit := &fakeAudit{}
	hook := NewEmailApprovalHook(repo, renderer, enqueuer, audit, nil)
	return hook, repo, renderer, enqueuer, audit, order, items
}

func TestEmailApprovalHookSendsOnce(t *testing.T) {
	hook, _, renderer, enqueuer, audit, order, items := hookFixture(t)

	hook.AfterApprove(context.Background(), order, items)
	require.Equal(t, []string{"orders@dangote.test"}, enqueuer.sent)
	require.Equal(t, 1, renderer.calls)
	require.Len(t, audit.entries, 1)
	require.Equal(t, shared.AuditVerbEmailed, audit.entries[0].Verb)

	// A second approval of the same order must not email again.
	hook.AfterApprove(context.Background(), order, items)
	require.Len(t, enqueuer.sent, 1)
	require.Equal(t, 1, renderer.calls)
}

func TestEmailApprovalHookSkipsWithoutEmail(t *testing.T) {
	repo := newMemRepo()
	service := NewService(repo, NewRolePolicy(), nil, nil, "LPO", "SUP")
	supplier, err := service.CreateSupplier(context.Background(), SupplierInput{Name: "No Email Ltd"})
	require.NoError(t, err)
	order, items := seedOrder(t, service, supplier.ID, "10", "100.00")

	enqueuer := &fakeEnqueuer{}
	audit := &fakeAudit{}
	hook := NewEmailApprovalHook(repo, &fakeRenderer{}, enqueuer, audit, nil)

	hook.AfterApprove(context.Background(), order, items)
	require.Empty(t, enqueuer.sent)
	require.Empty(t, audit.entries)
}

func TestEmailApprovalHookRenderFailureIsIsolated(t *testing.T) {
	hook, _, renderer, enqueuer, audit, order, items := hookFixture(t)
	renderer.err = errors.New("gotenberg unavailable")

	hook.AfterApprove(context.Background(), order, items)
	require.Empty(t, enqueuer.sent)
	require.Empty(t, audit.entries)

	// Recovery on the next run: nothing was marked emailed.
	renderer.err = nil
	hook.AfterApprove(context.Background(), order, items)
	require.Len(t, enqueuer.sent, 1)
}
