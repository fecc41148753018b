package mailbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// SMTPSender delivers composed follow-up drafts over SMTP. Transport errors
// never cross this boundary; failure is reported through the boolean result.
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	logger   *zap.Logger
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(host, port, username, password string, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		logger:   logger,
	}
}

// Send transmits one email to the given recipients. Port 465 uses implicit
// TLS; anything else negotiates STARTTLS.
func (s *SMTPSender) Send(_ context.Context, subject, body string, recipients []string) bool {
	if len(recipients) == 0 {
		s.logger.Warn("Refusing to send draft with no recipients",
			zap.String("subject", subject))
		return false
	}

	addr := s.host + ":" + s.port
	auth := sasl.NewPlainClient("", s.username, s.password)
	msg := s.buildMessage(subject, body, recipients)

	var err error
	if s.port == "465" {
		err = smtp.SendMailTLS(addr, auth, s.username, recipients, strings.NewReader(msg))
	} else {
		err = smtp.SendMail(addr, auth, s.username, recipients, strings.NewReader(msg))
	}
	if err != nil {
		s.logger.Error("SMTP send failed",
			zap.String("subject", subject),
			zap.Strings("recipients", recipients),
			zap.Error(err))
		return false
	}

	s.logger.Info("Sent follow-up email",
		zap.String("subject", subject),
		zap.Int("recipients", len(recipients)))
	return true
}

// buildMessage assembles the RFC 5322 message text.
func (s *SMTPSender) buildMessage(subject, body string, recipients []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.username)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.String()
}
