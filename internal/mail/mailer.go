// Package mail delivers transactional email over SMTP. The default
// configuration points at a local Mailpit instance for development.
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Attachment is a file carried with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outbound email.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers messages through a single SMTP relay.
type Sender struct {
	addr string
	from string
	send func(addr, from string, to []string, msg []byte) error
}

// NewSender builds a sender for the given relay.
func NewSender(host string, port int, from string) *Sender {
	return &Sender{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		from: from,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Send delivers the message. The context deadline is honoured only up
// front because net/smtp has no per-operation context support.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("mail: recipient is required")
	}
	raw, err := encodeMessage(s.from, to, msg)
	if err != nil {
		return err
	}
	return s.send(s.addr, s.from, []string{to}, raw)
}

const attachmentBoundary = "sacsol-mail-boundary"

func encodeMessage(from, to string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	write := func(format string, args ...any) {
		fmt.Fprintf(&buf, format, args...)
	}
	write("From: %s\r\n", from)
	write("To: %s\r\n", to)
	write("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	write("Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	write("MIME-Version: 1.0\r\n")

	if len(msg.Attachments) == 0 {
		write("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		write("%s\r\n", msg.Body)
		return buf.Bytes(), nil
	}

	write("Content-Type: multipart/mixed; boundary=%q\r\n\r\n", attachmentBoundary)
	write("--%s\r\n", attachmentBoundary)
	write("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	write("%s\r\n", msg.Body)
	for _, att := range msg.Attachments {
		if att.Filename == "" {
			return nil, errors.New("mail: attachment requires a filename")
		}
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		write("--%s\r\n", attachmentBoundary)
		write("Content-Type: %s\r\n", contentType)
		write("Content-Disposition: attachment; filename=%q\r\n", att.Filename)
		write("Content-Transfer-Encoding: base64\r\n\r\n")
		encoded := base64.StdEncoding.EncodeToString(att.Data)
		// Wrap base64 at 76 columns per RFC 2045.
		for len(encoded) > 76 {
			write("%s\r\n", encoded[:76])
			encoded = encoded[76:]
		}
		write("%s\r\n", encoded)
	}
	write("--%s--\r\n", attachmentBoundary)
	return buf.Bytes(), nil
}
