package email

import (
	"fmt"
	"net/smtp"
	"os"
)

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

func NewEmailService() *EmailService {
	return &EmailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		user:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
	}
}

// SendPostNotification tells an author that their post was created.
// Delivery is best-effort; callers run this off the request path.
func (e *EmailService) SendPostNotification(to, username, postTitle string) error {
	domain := os.Getenv("DOMAIN")
	if domain == "" {
		domain = "http://localhost:8080"
	}

	subject := fmt.Sprintf("New post: %s", postTitle)
	body := fmt.Sprintf(`Hi %s,

Your post "%s" was created on Chronicle.

%s

---
Chronicle
`, username, postTitle, domain)

	message := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", e.from, to, subject, body)

	auth := smtp.PlainAuth("", e.user, e.password, e.host)
	addr := fmt.Sprintf("%s:%s", e.host, e.port)

	if err := smtp.SendMail(addr, auth, e.from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}

	return nil
}
