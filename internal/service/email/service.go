// internal/service/email/service.go
package email

import (
	"crypto/tls"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

// Sender delivers HTML mail over SMTP.
type Sender struct {
	smtpHost string
	smtpPort string
	username string
	password string
	fromName string
	secure   bool
}

// NewSender creates an SMTP sender. With secure set the connection uses
// implicit TLS (port 465), otherwise STARTTLS through smtp.SendMail.
func NewSender(host, port, user, pass, fromName string, secure bool) *Sender {
	return &Sender{
		smtpHost: host,
		smtpPort: port,
		username: user,
		password: pass,
		fromName: fromName,
		secure:   secure,
	}
}

// Configured reports whether an SMTP host was provided.
func (e *Sender) Configured() bool {
	return e.smtpHost != ""
}

// Send delivers one message to one recipient.
func (e *Sender) Send(to, subject, bodyHTML string) error {
	if !e.Configured() {
		return fmt.Errorf("smtp host not configured")
	}

	from := fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", e.fromName), e.username)
	msg := []byte(
		fmt.Sprintf("From: %s\r\n", from) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject)) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			bodyHTML,
	)

	serverAddr := e.smtpHost + ":" + e.smtpPort
	auth := smtp.PlainAuth("", e.username, e.password, e.smtpHost)

	if !e.secure {
		if err := smtp.SendMail(serverAddr, auth, e.username, []string{to}, msg); err != nil {
			return fmt.Errorf("send mail failed: %w", err)
		}
		return nil
	}

	conn, err := tls.Dial("tcp", serverAddr, &tls.Config{ServerName: e.smtpHost})
	if err != nil {
		return fmt.Errorf("tls dial failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.smtpHost)
	if err != nil {
		return fmt.Errorf("smtp client failed: %w", err)
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("auth failed: %w", err)
	}

	return e.sendMail(client, to, msg)
}

func (e *Sender) sendMail(client *smtp.Client, to string, msg []byte) error {
	if err := client.Mail(e.username); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(strings.TrimSpace(to)); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}
