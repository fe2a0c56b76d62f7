package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SMTPConfig contains connection settings for the smtp transport.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	UseTLS     bool
	SkipVerify bool
	Timeout    time.Duration
}

// SMTPMailer speaks SMTP directly to a relay. Each Send opens a fresh
// connection; the control tool sends one report per invocation so a
// pool would never be reused.
type SMTPMailer struct {
	cfg SMTPConfig
	log zerolog.Logger
}

// NewSMTPMailer validates cfg and returns an SMTP mailer. From
// defaults to convergectl@<hostname>.
func NewSMTPMailer(cfg SMTPConfig, logger zerolog.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 25
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.From == "" {
		cfg.From = "convergectl@" + hostname()
	}
	return &SMTPMailer{
		cfg: cfg,
		log: logger.With().Str("component", "mail").Str("transport", TransportSMTP).Logger(),
	}, nil
}

// Send delivers msg over a single SMTP transaction.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	client, err := m.dial(ctx)
	if err != nil {
		return fmt.Errorf("connecting to smtp relay: %w", err)
	}
	defer client.Close()

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("setting recipient %s: %w", msg.To, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("opening data stream: %w", err)
	}
	if _, err := w.Write(m.buildMessage(msg)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data stream: %w", err)
	}

	m.log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("mail relayed")
	return client.Quit()
}

// dial connects to the relay, upgrading to TLS when configured or
// offered via STARTTLS, and authenticates when credentials are set.
func (m *SMTPMailer) dial(ctx context.Context) (*smtp.Client, error) {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	dialer := &net.Dialer{Timeout: m.cfg.Timeout}

	var conn net.Conn
	var err error
	if m.cfg.UseTLS {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: m.tlsConfig()}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, err
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if !m.cfg.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(m.tlsConfig()); err != nil {
				client.Close()
				return nil, fmt.Errorf("starting tls: %w", err)
			}
		}
	}

	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, fmt.Errorf("authenticating: %w", err)
		}
	}

	return client, nil
}

func (m *SMTPMailer) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName:         m.cfg.Host,
		InsecureSkipVerify: m.cfg.SkipVerify,
	}
}

// buildMessage assembles the RFC 5322 envelope. The Message-ID lets
// operators trace a report back through relay logs.
func (m *SMTPMailer) buildMessage(msg Message) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: <%s@%s>\r\n", uuid.New().String(), hostname())
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(msg.Body)
	if len(msg.Body) == 0 || msg.Body[len(msg.Body)-1] != '\n' {
		buf.WriteString("\r\n")
	}

	return buf.Bytes()
}

func hostname() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "localhost"
	}
	return host
}
