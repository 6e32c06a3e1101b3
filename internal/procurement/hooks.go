package procurement

import (
	"context"
	"log/slog"

	"github.com/sacsol/sacsol-api/internal/shared"
)

// PDFRenderer produces the printable order document.
type PDFRenderer interface {
	RenderLPO(ctx context.Context, order LPO, items []LPOItem, supplier Supplier) ([]byte, error)
}

// EmailEnqueuer hands the approved order off to the background mailer.
type EmailEnqueuer interface {
	EnqueueLPOEmail(ctx context.Context, to string, order LPO, pdf []byte) error
}

// AuditRecorder is the out-of-transaction audit surface used by hooks.
type AuditRecorder interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
	HasVerb(ctx context.Context, lpoID int64, verb string) (bool, error)
}

// EmailApprovalHook renders the order PDF and queues an email to the
// supplier after approval. The "emailed" audit verb keeps it idempotent
// across repeated approvals of re-opened flows or retried requests.
type EmailApprovalHook struct {
	repo     RepositoryPort
	renderer PDFRenderer
	enqueuer EmailEnqueuer
	audit    AuditRecorder
	logger   *slog.Logger
}

// NewEmailApprovalHook wires the post-approval email side effect.
func NewEmailApprovalHook(repo RepositoryPort, renderer PDFRenderer, enqueuer EmailEnqueuer, audit AuditRecorder, logger *slog.Logger) *EmailApprovalHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailApprovalHook{repo: repo, renderer: renderer, enqueuer: enqueuer, audit: audit, logger: logger}
}

// AfterApprove implements ApprovalHook. Failures are logged, never
// propagated: the approval itself already committed.
func (h *EmailApprovalHook) AfterApprove(ctx context.Context, order LPO, items []LPOItem) {
	already, err := h.audit.HasVerb(ctx, order.ID, shared.AuditVerbEmailed)
	if err != nil {
		h.logger.Error("approval email idempotency check", slog.Any("error", err), slog.Int64("lpo_id", order.ID))
		return
	}
	if already {
		return
	}

	supplier, err := h.repo.GetSupplier(ctx, order.SupplierID)
	if err != nil {
		h.logger.Error("approval email supplier lookup", slog.Any("error", err), slog.Int64("lpo_id", order.ID))
		return
	}
	if supplier.Email == "" {
		h.logger.Warn("approval email skipped, supplier has no email", slog.Int64("lpo_id", order.ID))
		return
	}

	pdf, err := h.renderer.RenderLPO(ctx, order, items, supplier)
	if err != nil {
		h.logger.Error("approval email pdf render", slog.Any("error", err), slog.Int64("lpo_id", order.ID))
		return
	}
	if err := h.enqueuer.EnqueueLPOEmail(ctx, supplier.Email, order, pdf); err != nil {
		h.logger.Error("approval email enqueue", slog.Any("error", err), slog.Int64("lpo_id", order.ID))
		return
	}
	if err := h.audit.Record(ctx, shared.AuditEntry{
		Verb:    shared.AuditVerbEmailed,
		LPOID:   order.ID,
		Payload: map[string]any{"to": supplier.Email},
	}); err != nil {
		h.logger.Error("approval email audit", slog.Any("error", err), slog.Int64("lpo_id", order.ID))
	}
}

var _ ApprovalHook = (*EmailApprovalHook)(nil)
