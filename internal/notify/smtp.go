package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/kiranshivaraju/printwatch/internal/config"
	gomail "github.com/wneessen/go-mail"
)

// ErrSendFailed wraps SMTP delivery failures.
var ErrSendFailed = errors.New("email delivery failed")

// Sender delivers composed notification emails.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type deliverFunc func(ctx context.Context, msg *gomail.Msg) error

// SMTPMailer sends mail through an SMTP relay, upgrading to STARTTLS when the
// server offers it. Every exchange is bounded by the configured timeout.
type SMTPMailer struct {
	fromName string
	from     string
	to       []string
	deliver  deliverFunc
	now      func() time.Time
}

// NewSMTPMailer creates an SMTPMailer. PLAIN auth is used when a user is set.
func NewSMTPMailer(cfg config.EmailConfig) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(cfg.Timeout),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithDialContextFunc(dialWithDeadline),
	}
	if cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.User),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating smtp client: %w", err)
	}

	return &SMTPMailer{
		fromName: cfg.FromName,
		from:     cfg.From,
		to:       cfg.To,
		deliver: func(ctx context.Context, msg *gomail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
		now: time.Now,
	}, nil
}

// dialWithDeadline carries the dial deadline onto the connection, so a relay
// that accepts but never greets cannot stall the sender.
func dialWithDeadline(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out, err := m.build(msg)
	if err != nil {
		return fmt.Errorf("building message: %w", err)
	}

	if err := m.deliver(ctx, out); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	slog.Info("email sent", "subject", msg.Subject, "recipients", len(m.to))
	return nil
}

func (m *SMTPMailer) build(msg Message) (*gomail.Msg, error) {
	out := gomail.NewMsg()
	if err := out.FromFormat(m.fromName, m.from); err != nil {
		return nil, err
	}
	if err := out.To(m.to...); err != nil {
		return nil, err
	}
	out.Subject(msg.Subject)
	out.SetDateWithValue(m.now())
	out.SetBodyString(gomail.TypeTextPlain, msg.Body)

	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		if err := out.AttachReader(a.Filename, bytes.NewReader(a.Data),
			gomail.WithFileContentType(gomail.ContentType(ct))); err != nil {
			return nil, fmt.Errorf("attaching %s: %w", a.Filename, err)
		}
	}
	return out, nil
}

// LogSender stands in for SMTPMailer when email is disabled.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	slog.Info("emails disabled; notification not sent", "subject", msg.Subject)
	return nil
}

// Compile-time checks.
var (
	_ Sender = (*SMTPMailer)(nil)
	_ Sender = LogSender{}
)
