package email

import (
	"errors"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the SMTP_* variables are incomplete.
var ErrNotConfigured = errors.New("SMTP environment variables missing")

type smtpSettings struct {
	host, port, user, pass, from string
}

func settings() (smtpSettings, error) {
	s := smtpSettings{
		host: os.Getenv("SMTP_HOST"),
		port: os.Getenv("SMTP_PORT"),
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASS"),
		from: os.Getenv("SMTP_FROM"),
	}
	if s.from == "" {
		s.from = s.user
	}
	if s.host == "" || s.port == "" || s.user == "" || s.pass == "" || s.from == "" {
		return s, ErrNotConfigured
	}
	return s, nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

func send(to, subject, body string) error {
	s, err := settings()
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	return smtp.SendMail(addr, auth, s.from, []string{to}, buildMessage(s.from, to, subject, body))
}

func welcomeBody(name, role string) string {
	greeting := "Hi"
	if name != "" {
		greeting = "Hi " + name
	}
	what := "upload your medical reports, get AI summaries and share them with your doctor through expiring links."
	if role == "doctor" {
		what = "review patient records shared with you and issue certificates directly to your patients' vaults."
	}
	return fmt.Sprintf("%s,\n\nWelcome to MediVault AI. You can now %s\n\nThe MediVault team", greeting, what)
}

func SendWelcome(to, name, role string) error {
	if err := send(to, "Welcome to MediVault AI", welcomeBody(name, role)); err != nil {
		return err
	}
	log.Printf("[EMAIL] welcome sent to %s", to)
	return nil
}

// SendCertificateIssued tells a patient that a doctor added a document to
// their vault.
func SendCertificateIssued(to, doctorName, fileName string) error {
	if doctorName == "" {
		doctorName = "Your doctor"
	}
	body := fmt.Sprintf("Hello,\n\n%s added '%s' to your MediVault records. Sign in to read the AI summary.\n\nThe MediVault team", doctorName, fileName)
	if err := send(to, "New certificate in your MediVault", body); err != nil {
		return err
	}
	log.Printf("[EMAIL] certificate notice sent to %s", to)
	return nil
}
