// Package email delivers verification messages over SMTP. Delivery failures
// never roll back the registration they belong to, callers surface them as a
// dispatch error and keep the account.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-identity"
)

// Config holds SMTP dispatcher configuration.
type Config struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	From     string `env:"SMTP_FROM"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	// UseTLS upgrades the connection with STARTTLS after connecting.
	UseTLS bool `env:"SMTP_USE_TLS" envDefault:"true"`
	// UseSSL opens the connection over implicit TLS instead.
	UseSSL  bool   `env:"SMTP_USE_SSL" envDefault:"false"`
	ReplyTo string `env:"SMTP_REPLY_TO"`

	Timeout time.Duration `env:"SMTP_TIMEOUT" envDefault:"15s"`
}

// LoadConfig builds a Config from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Dispatcher sends verification emails through an SMTP relay.
type Dispatcher struct {
	config Config
}

var _ identity.EmailDispatcher = (*Dispatcher)(nil)

// NewDispatcher creates an SMTP dispatcher.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("email: SMTP host must be provided")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("email: from address must be provided")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Dispatcher{config: cfg}, nil
}

// SendVerificationEmail implements identity.EmailDispatcher.
func (d *Dispatcher) SendVerificationEmail(ctx context.Context, to, token string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg, err := buildVerificationMessage(d.config.From, to, d.config.ReplyTo, token)
	if err != nil {
		return wrapDispatchFailed(err, "unable to build verification email")
	}

	if err := d.send(to, msg); err != nil {
		return wrapDispatchFailed(err, "SMTP server rejected the email")
	}

	return nil
}

func (d *Dispatcher) send(to string, msg []byte) error {
	addr := net.JoinHostPort(d.config.Host, strconv.Itoa(d.config.Port))

	var client *smtp.Client
	if d.config.UseSSL {
		conn, err := tls.DialWithDialer(
			&net.Dialer{Timeout: d.config.Timeout},
			"tcp", addr,
			&tls.Config{ServerName: d.config.Host},
		)
		if err != nil {
			return err
		}
		client, err = smtp.NewClient(conn, d.config.Host)
		if err != nil {
			conn.Close()
			return err
		}
	} else {
		conn, err := net.DialTimeout("tcp", addr, d.config.Timeout)
		if err != nil {
			return err
		}
		client, err = smtp.NewClient(conn, d.config.Host)
		if err != nil {
			conn.Close()
			return err
		}
		if d.config.UseTLS {
			if ok, _ := client.Extension("STARTTLS"); !ok {
				client.Close()
				return fmt.Errorf("server does not support STARTTLS")
			}
			if err := client.StartTLS(&tls.Config{ServerName: d.config.Host}); err != nil {
				client.Close()
				return err
			}
		}
	}
	defer client.Close()

	if d.config.Username != "" && d.config.Password != "" {
		auth := smtp.PlainAuth("", d.config.Username, d.config.Password, d.config.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(d.config.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return client.Quit()
}

func buildVerificationMessage(from, to, replyTo, token string) ([]byte, error) {
	textBody := "Hi,\n\n" +
		"Thanks for creating an account with Need for Wheels. " +
		"Use the verification code below to activate your profile.\n\n" +
		"Verification code: " + token + "\n\n" +
		"This code expires in 24 hours. If you did not request this, you can ignore this email.\n"

	htmlBody := "<p>Hi,</p>" +
		"<p>Thanks for creating an account with Need for Wheels. Use the verification code below to activate your profile.</p>" +
		`<p style="font-size:20px;font-weight:bold;letter-spacing:3px">` + token + "</p>" +
		"<p>This code expires in 24 hours. If you did not request this, you can ignore this email.</p>"

	var buf bytes.Buffer
	alt := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	if replyTo != "" {
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", replyTo)
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", "Verify your Need for Wheels account")
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n", alt.Boundary())
	buf.WriteString("\r\n")

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", textBody},
		{"text/html; charset=utf-8", htmlBody},
	} {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", part.contentType)
		w, err := alt.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, err
		}
	}

	if err := alt.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func wrapDispatchFailed(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, msg).
		WithTextCode(identity.TextCodeDispatchFailed)
}
