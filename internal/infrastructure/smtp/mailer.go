package smtp

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"

	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/domain"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers transactional email over SMTP.
type Mailer struct {
	addr string
	host string
	from string
	auth smtp.Auth
	send sendFunc
}

func NewMailer(cfg *config.Config) *Mailer {
	m := &Mailer{
		addr: fmt.Sprintf("%s:%s", cfg.SMTPHost, cfg.SMTPPort),
		host: cfg.SMTPHost,
		from: cfg.SMTPFrom,
		send: smtp.SendMail,
	}
	if cfg.SMTPUsername != "" {
		m.auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return m
}

func (m *Mailer) Send(ctx context.Context, e domain.Email) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send email: %w: %w", domain.ErrDispatch, err)
	}
	msg, err := m.compose(e)
	if err != nil {
		return fmt.Errorf("compose email: %w: %w", domain.ErrDispatch, err)
	}
	if err := m.send(m.addr, m.auth, m.from, []string{e.To}, msg); err != nil {
		return fmt.Errorf("send email to %s: %w: %w", e.To, domain.ErrDispatch, err)
	}
	return nil
}

// compose renders a plain-text message, or multipart/alternative when an
// HTML body is present.
func (m *Mailer) compose(e domain.Email) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", m.from)
	fmt.Fprintf(&buf, "To: %s\r\n", e.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", e.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if e.HTML == "" {
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		buf.WriteString(e.Text)
		return buf.Bytes(), nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())
	for _, part := range []struct{ ctype, content string }{
		{"text/plain; charset=utf-8", e.Text},
		{"text/html; charset=utf-8", e.HTML},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.ctype}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}
