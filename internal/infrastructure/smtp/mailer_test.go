package smtp

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestMailer(sendErr error) (*Mailer, *captured) {
	c := &captured{}
	m := NewMailer(&config.Config{SMTPHost: "mail.local", SMTPPort: "1025", SMTPFrom: "noreply@x.com"})
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		c.addr, c.from, c.to, c.msg = addr, from, to, string(msg)
		return sendErr
	}
	return m, c
}

func TestSend_PlainText(t *testing.T) {
	m, c := newTestMailer(nil)

	err := m.Send(context.Background(), domain.Email{To: "a@x.com", Subject: "Your code", Text: "123456"})
	require.NoError(t, err)

	assert.Equal(t, "mail.local:1025", c.addr)
	assert.Equal(t, "noreply@x.com", c.from)
	assert.Equal(t, []string{"a@x.com"}, c.to)
	assert.Contains(t, c.msg, "Subject: Your code\r\n")
	assert.Contains(t, c.msg, "Content-Type: text/plain; charset=utf-8")
	assert.True(t, strings.HasSuffix(c.msg, "\r\n\r\n123456"))
}

func TestSend_HTMLIsMultipartAlternative(t *testing.T) {
	m, c := newTestMailer(nil)

	err := m.Send(context.Background(), domain.Email{To: "a@x.com", Subject: "s", Text: "plain", HTML: "<b>rich</b>"})
	require.NoError(t, err)

	assert.Contains(t, c.msg, "multipart/alternative; boundary=")
	assert.Contains(t, c.msg, "plain")
	assert.Contains(t, c.msg, "<b>rich</b>")
}

func TestSend_FailureIsDispatchError(t *testing.T) {
	m, _ := newTestMailer(errors.New("550 mailbox unavailable"))

	err := m.Send(context.Background(), domain.Email{To: "a@x.com", Subject: "s", Text: "t"})
	assert.True(t, errors.Is(err, domain.ErrDispatch))
}

func TestSend_CancelledContext(t *testing.T) {
	m, c := newTestMailer(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Send(ctx, domain.Email{To: "a@x.com"})
	assert.True(t, errors.Is(err, domain.ErrDispatch))
	assert.Empty(t, c.addr)
}
