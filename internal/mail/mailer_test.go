package mail

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendRequiresRecipient(t *testing.T) {
	sender := NewSender("127.0.0.1", 1025, "no-reply@sacsol.local")
	err := sender.Send(context.Background(), Message{Subject: "hi"})
	require.Error(t, err)
}

func TestSendBuildsPlainMessage(t *testing.T) {
	sender := NewSender("127.0.0.1", 1025, "no-reply@sacsol.local")
	var captured []byte
	sender.send = func(addr, from string, to []string, msg []byte) error {
		require.Equal(t, "127.0.0.1:1025", addr)
		require.Equal(t, []string{"ops@sacsol.test"}, to)
		captured = msg
		return nil
	}

	err := sender.Send(context.Background(), Message{
		To:      "ops@sacsol.test",
		Subject: "Purchase Order LPO-2026-000001",
		Body:    "Please find the order attached.",
	})
	require.NoError(t, err)
	raw := string(captured)
	require.Contains(t, raw, "To: ops@sacsol.test")
	require.Contains(t, raw, "Subject: ")
	require.Contains(t, raw, "Please find the order attached.")
	require.NotContains(t, raw, "multipart/mixed")
}

func TestSendEncodesAttachment(t *testing.T) {
	sender := NewSender("127.0.0.1", 1025, "no-reply@sacsol.local")
	var captured []byte
	sender.send = func(addr, from string, to []string, msg []byte) error {
		captured = msg
		return nil
	}

	err := sender.Send(context.Background(), Message{
		To:      "orders@dangote.test",
		Subject: "LPO",
		Body:    "Attached.",
		Attachments: []Attachment{
			{Filename: "lpo.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7")},
		},
	})
	require.NoError(t, err)
	raw := string(captured)
	require.Contains(t, raw, "multipart/mixed")
	require.Contains(t, raw, `filename="lpo.pdf"`)
	require.Contains(t, raw, "Content-Transfer-Encoding: base64")
	require.True(t, strings.HasSuffix(strings.TrimSpace(raw), "--"+attachmentBoundary+"--"))
}

func TestSendAttachmentNeedsFilename(t *testing.T) {
	sender := NewSender("127.0.0.1", 1025, "no-reply@sacsol.local")
	sender.send = func(addr, from string, to []string, msg []byte) error { return nil }
	err := sender.Send(context.Background(), Message{
		To:          "x@y.test",
		Attachments: []Attachment{{Data: []byte("a")}},
	})
	require.Error(t, err)
}
