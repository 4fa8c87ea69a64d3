package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/redmonkez12/task-api/internal/config"
	"github.com/redmonkez12/task-api/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// expiryLayout renders link expiry in emails
const expiryLayout = "Jan 2, 2006 at 15:04 MST"

// sendMailFunc matches smtp.SendMail
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	frontendURL  string
	sendMail     sendMailFunc
}

func NewService(cfg config.EmailConfig) *Service {
	return &Service{
		smtpHost:     cfg.SMTPHost,
		smtpPort:     cfg.SMTPPort,
		smtpUser:     cfg.SMTPUser,
		smtpPassword: cfg.SMTPPassword,
		fromEmail:    cfg.FromEmail,
		frontendURL:  strings.TrimRight(cfg.FrontendURL, "/"),
		sendMail:     smtp.SendMail,
	}
}

type linkData struct {
	Name      string
	Link      string
	ExpiresAt string
}

// SendVerificationEmail sends an email verification link to the user
func (s *Service) SendVerificationEmail(ctx context.Context, toEmail, name, token string, expiresAt time.Time) error {
	return s.sendLink(ctx, "verification", toEmail, "Verify your email address", "verification.html", linkData{
		Name:      name,
		Link:      s.link("/verify-email", token),
		ExpiresAt: expiresAt.UTC().Format(expiryLayout),
	})
}

// SendPasswordResetEmail sends a password reset link to the user
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, name, token string, expiresAt time.Time) error {
	return s.sendLink(ctx, "password reset", toEmail, "Reset your password", "password_reset.html", linkData{
		Name:      name,
		Link:      s.link("/reset-password", token),
		ExpiresAt: expiresAt.UTC().Format(expiryLayout),
	})
}

func (s *Service) sendLink(ctx context.Context, kind, toEmail, subject, tmpl string, data linkData) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := render(tmpl, data)
	if err != nil {
		logger.Error("failed to render email template", "template", tmpl, "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, subject, body); err != nil {
		logger.Error("failed to send "+kind+" email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info(kind+" email sent", "email", toEmail)
	return nil
}

func (s *Service) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", s.frontendURL, path, url.QueryEscape(token))
}

func (s *Service) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	// Build message
	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return s.sendMail(addr, auth, s.fromEmail, []string{to}, msg)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}
