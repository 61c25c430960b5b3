// Package mailer delivers payslip notification emails over SMTP.
//
// Delivery is best-effort: a failure is reported to the caller for the audit
// trail but never invalidates the already-persisted download link — an
// administrator can resend from the back office.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"time"

	"github.com/google/uuid"

	"github.com/payflow/payflow-api/internal/models"
)

// Service sends notification mail through a single SMTP relay.
type Service struct {
	host     string
	port     int
	username string
	password string
	from     string
	baseURL  string
}

// New creates a mailer. An empty host produces a disabled mailer whose
// sends are skipped and logged rather than failed.
func New(host string, port int, username, password, from, baseURL string) *Service {
	return &Service{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		baseURL:  baseURL,
	}
}

// Enabled reports whether an SMTP relay is configured.
func (s *Service) Enabled() bool {
	return s.host != ""
}

// LinkURL builds the public redemption URL for a link.
func (s *Service) LinkURL(link *models.DownloadLink) string {
	return fmt.Sprintf("%s/dl/%s", s.baseURL, link.Token)
}

// SendLink emails the redemption link for one payslip to an employee.
// Retries transient failures twice with short delays before reporting the
// error; the caller records the outcome on the treatment's audit row.
func (s *Service) SendLink(ctx context.Context, employee *models.Employee, link *models.DownloadLink) error {
	if !s.Enabled() {
		log.Printf("⚠️  Mailer: SMTP not configured, skipping notification for %s", employee.Matricule)
		return fmt.Errorf("smtp not configured")
	}

	msg := s.buildMessage(employee, link)

	retryDelays := []time.Duration{0, 2 * time.Second, 5 * time.Second}

	var lastErr error
	for attempt := 0; attempt < len(retryDelays); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelays[attempt]):
			}
			log.Printf("⚠️  Mailer: retrying send to %s (attempt %d)", employee.Email, attempt+1)
		}

		if lastErr = s.send(ctx, employee.Email, msg); lastErr == nil {
			log.Printf("✅ Mailer: sent payslip notification to %s (link %s)", employee.Email, link.TokenPrefix())
			return nil
		}
	}

	return fmt.Errorf("smtp send to %s failed: %w", employee.Email, lastErr)
}

// buildMessage renders the notification body. Recipients are French-speaking
// payroll employees, so the user-facing text stays in French.
func (s *Service) buildMessage(employee *models.Employee, link *models.DownloadLink) []byte {
	expiresIn := link.ExpiresInDays(time.Now())

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", s.from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", employee.Email))
	buf.WriteString(fmt.Sprintf("Message-ID: <%s@payflow>\r\n", uuid.New().String()))
	buf.WriteString("Subject: Votre bulletin de paie est disponible\r\n")
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(fmt.Sprintf("Bonjour %s,\r\n\r\n", employee.Name))
	buf.WriteString("Votre bulletin de paie est disponible au lien securise suivant :\r\n\r\n")
	buf.WriteString(fmt.Sprintf("%s\r\n\r\n", s.LinkURL(link)))
	buf.WriteString("Pour le consulter, saisissez votre matricule.\r\n")
	buf.WriteString(fmt.Sprintf("Ce lien expire dans %d jours.\r\n\r\n", expiresIn))
	buf.WriteString("Ceci est un message automatique, merci de ne pas y repondre.\r\n")
	return buf.Bytes()
}

// send performs one SMTP transaction: connect, STARTTLS when offered,
// authenticate when credentials are configured, submit.
func (s *Service) send(ctx context.Context, to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	dialer := &net.Dialer{Timeout: 30 * time.Second}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("SMTP connect to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SMTP client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return fmt.Errorf("STARTTLS: %w", err)
		}
	}

	if s.username != "" && s.password != "" {
		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth: %w", err)
		}
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("DATA close: %w", err)
	}
	return client.Quit()
}
