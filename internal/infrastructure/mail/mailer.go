package mail

import (
	"crypto/tls"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"

	"github.com/pkg/errors"

	"github.com/Aloduin/DailyPaper/internal/config"
	"github.com/Aloduin/DailyPaper/internal/ports"
)

// implicitTLSPort starts the session TLS-encrypted from the first byte.
// Every other port connects in plaintext and upgrades via STARTTLS.
const implicitTLSPort = 465

// ErrIncompleteConfig is returned when required mail settings are missing.
// The check runs before any connection attempt.
var ErrIncompleteConfig = errors.New("mail settings incomplete")

// session is the subset of *smtp.Client the mailer drives, extracted so
// tests can substitute a recording fake.
type session interface {
	Extension(ext string) (bool, string)
	StartTLS(cfg *tls.Config) error
	Auth(a smtp.Auth) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Mailer submits digests over SMTP as multipart/alternative messages.
type Mailer struct {
	cfg    config.MailConfig
	logger *slog.Logger
	dial   func(addr, host string, implicitTLS bool) (session, error)
}

var _ ports.DigestSender = (*Mailer)(nil)

// NewMailer wires SMTP settings and a logger.
func NewMailer(cfg config.MailConfig, log *slog.Logger) *Mailer {
	if log == nil {
		log = slog.Default()
	}
	return &Mailer{cfg: cfg, logger: log, dial: dialSMTP}
}

// plaintextAuth permits PLAIN credentials over an unencrypted session,
// which stdlib PlainAuth refuses for non-localhost hosts. It backs the
// continue-unencrypted leniency after a failed or unadvertised STARTTLS.
type plaintextAuth struct {
	smtp.Auth
}

func (a plaintextAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	s := *server
	s.TLS = true
	return a.Auth.Start(&s)
}

func dialSMTP(addr, host string, implicitTLS bool) (session, error) {
	if implicitTLS {
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
		if err != nil {
			return nil, err
		}
		return smtp.NewClient(conn, host)
	}
	return smtp.Dial(addr)
}

// Send assembles a multipart/alternative message carrying both bodies and
// submits it to every configured recipient. The plain-text part goes first
// so rich-text-capable readers upgrade while the rest stay readable.
// Stage failures surface wrapped with the stage that produced them.
func (m *Mailer) Send(subject, htmlBody, textBody string) error {
	recipients := m.cfg.Recipients()
	if err := m.validate(recipients); err != nil {
		return err
	}

	from := m.cfg.Sender()
	msg := buildMessage(m.cfg.Host, from, recipients, subject, htmlBody, textBody)

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	encrypted := m.cfg.Port == implicitTLSPort
	client, err := m.dial(addr, m.cfg.Host, encrypted)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer client.Close()

	if !encrypted {
		// Opportunistic upgrade: a failed STARTTLS leaves the session in
		// plaintext instead of aborting the send.
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				m.logger.Warn("starttls failed, continuing unencrypted", "error", err)
			} else {
				encrypted = true
			}
		}
	}

	auth := smtp.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host))
	if !encrypted {
		auth = plaintextAuth{auth}
	}
	if err := client.Auth(auth); err != nil {
		return errors.Wrap(err, "authenticate")
	}

	if err := client.Mail(from); err != nil {
		return errors.Wrap(err, "send")
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return errors.Wrap(err, "send")
		}
	}

	w, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "send")
	}
	if _, err := w.Write(msg); err != nil {
		return errors.Wrap(err, "send")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "send")
	}
	if err := client.Quit(); err != nil {
		return errors.Wrap(err, "send")
	}

	m.logger.Info("digest sent", "recipients", len(recipients), "subject", subject)
	return nil
}

func (m *Mailer) validate(recipients []string) error {
	switch {
	case m.cfg.Host == "":
		return errors.Wrap(ErrIncompleteConfig, "host")
	case m.cfg.Port == 0:
		return errors.Wrap(ErrIncompleteConfig, "port")
	case m.cfg.Username == "":
		return errors.Wrap(ErrIncompleteConfig, "username")
	case m.cfg.Password == "":
		return errors.Wrap(ErrIncompleteConfig, "password")
	case len(recipients) == 0:
		return errors.Wrap(ErrIncompleteConfig, "recipients")
	}
	return nil
}
