package email

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"Convoy/Models"
)

const defaultTimeout = 15 * time.Second

// compose renders the headers and body of message in wire format.
func compose(config Models.EmailConfig, message Models.EmailMessage) string {
	var b strings.Builder
	header := func(key, value string) {
		fmt.Fprintf(&b, "%s: %s\r\n", key, value)
	}
	if config.FromName != "" {
		header("From", fmt.Sprintf("%s <%s>", config.FromName, config.FromEmail))
	} else {
		header("From", config.FromEmail)
	}
	header("To", strings.Join(message.To, ", "))
	if len(message.CC) > 0 {
		header("Cc", strings.Join(message.CC, ", "))
	}
	header("Subject", message.Subject)
	header("MIME-Version", "1.0")
	if message.IsHTML {
		header("Content-Type", "text/html; charset=UTF-8")
	} else {
		header("Content-Type", "text/plain; charset=UTF-8")
	}
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(message.Body, "\r\n", "\n"), "\n", "\r\n"))
	return b.String()
}

// SendEmail sends an email using the provided configuration and message details
func SendEmail(config Models.EmailConfig, message Models.EmailMessage) error {
	var recipients []string
	recipients = append(recipients, message.To...)
	recipients = append(recipients, message.CC...)
	recipients = append(recipients, message.BCC...)
	if len(recipients) == 0 {
		return fmt.Errorf("email %q has no recipients", message.Subject)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	serverAddr := net.JoinHostPort(config.SMTPServer, fmt.Sprint(config.SMTPPort))
	tlsConfig := &tls.Config{
		ServerName:         config.SMTPServer,
		InsecureSkipVerify: config.SkipTLSCheck,
	}

	dialer := &net.Dialer{Timeout: timeout}
	var conn net.Conn
	var err error
	if config.TLSEnabled {
		conn, err = tls.DialWithDialer(dialer, "tcp", serverAddr, tlsConfig)
	} else {
		conn, err = dialer.Dial("tcp", serverAddr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	conn.SetDeadline(time.Now().Add(timeout))

	client, err := smtp.NewClient(conn, config.SMTPServer)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if !config.TLSEnabled {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err = client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("STARTTLS failed: %w", err)
			}
		}
	}
	if config.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", config.Username, config.Password, config.SMTPServer)
			if err = client.Auth(auth); err != nil {
				return fmt.Errorf("SMTP authentication failed: %w", err)
			}
		}
	}

	if err = client.Mail(config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, recipient := range recipients {
		if err = client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", recipient, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data connection: %w", err)
	}
	if _, err = w.Write([]byte(compose(config, message))); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data connection: %w", err)
	}
	return client.Quit()
}
