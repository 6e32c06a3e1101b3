// Package jobs wires background processing over Asynq.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	jobmetrics "github.com/sacsol/sacsol-api/internal/jobs"
	"github.com/sacsol/sacsol-api/internal/mail"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLPOEmail is the task type for mailing an approved order
	// to its supplier.
	TaskTypeLPOEmail = "lpo:email"
)

// LPOEmailPayload carries everything needed to mail an approved order.
// PDF travels base64-encoded through the JSON codec.
type LPOEmailPayload struct {
	To         string          `json:"to"`
	LPONumber  string          `json:"lpo_number"`
	Currency   string          `json:"currency"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	PDF        []byte          `json:"pdf"`
}

// NewLPOEmailTask constructs the Asynq task.
func NewLPOEmailTask(payload LPOEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLPOEmail, data, asynq.MaxRetry(5)), nil
}

// MailSender delivers the rendered message.
type MailSender interface {
	Send(ctx context.Context, msg mail.Message) error
}

// LPOEmailHandler processes TaskTypeLPOEmail tasks.
type LPOEmailHandler struct {
	sender  MailSender
	company string
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewLPOEmailHandler builds the handler.
func NewLPOEmailHandler(sender MailSender, company string, logger *slog.Logger, metrics *jobmetrics.Metrics) *LPOEmailHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LPOEmailHandler{sender: sender, company: company, logger: logger, metrics: metrics}
}

// Handle sends the order email. Malformed payloads never retry.
func (h *LPOEmailHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LPOEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" || payload.LPONumber == "" {
		return asynq.SkipRetry
	}

	tracker := h.metrics.Track(TaskTypeLPOEmail)

	msg := mail.Message{
		To:      payload.To,
		Subject: fmt.Sprintf("Purchase Order %s from %s", payload.LPONumber, h.company),
		Body: fmt.Sprintf(
			"Dear Supplier,\n\nPlease find attached purchase order %s for %s %s.\n\nRegards,\n%s",
			payload.LPONumber, payload.Currency,
			payload.GrandTotal.StringFixed(2), h.company),
		Attachments: []mail.Attachment{
			{Filename: payload.LPONumber + ".pdf", ContentType: "application/pdf", Data: payload.PDF},
		},
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		h.logger.Error("send lpo email",
			slog.String("lpo", payload.LPONumber),
			slog.Any("error", err))
		return tracker.End(err)
	}
	h.logger.Info("lpo email sent",
		slog.String("lpo", payload.LPONumber),
		slog.String("to", payload.To))
	return tracker.End(nil)
}
