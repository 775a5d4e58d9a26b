// Package mailer sends client notifications over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhub/engine/internal/services"
	"github.com/onboardhub/engine/pkg/logger"
	"go.uber.org/zap"
)

// Config holds SMTP configuration.
type Config struct {
	Host          string
	Port          string
	Username      string
	Password      string
	From          string
	FromName      string
	PortalBaseURL string
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer renders reminder and invite emails and delivers them over SMTP.
type Mailer struct {
	cfg    Config
	server string
	auth   smtp.Auth
	send   SendFunc
}

func New(cfg Config) *Mailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &Mailer{cfg: cfg, server: cfg.Host + ":" + cfg.Port, auth: auth, send: smtp.SendMail}
}

// WithSender replaces the transport, mainly for tests.
func (m *Mailer) WithSender(send SendFunc) *Mailer {
	m.send = send
	return m
}

var _ services.Mailer = (*Mailer)(nil)

func (m *Mailer) IsConfigured() bool {
	return m.cfg.Host != "" && m.cfg.Port != "" && m.cfg.From != ""
}

// PortalURL joins the configured base with a token.
func (m *Mailer) PortalURL(token string) string {
	return strings.TrimRight(m.cfg.PortalBaseURL, "/") + "/" + token
}

type reminderData struct {
	ClientName  string
	ProjectName string
	Tasks       []reminderLine
	PortalURL   string
}

type reminderLine struct {
	Title   string
	DueDate string
	Overdue bool
}

type inviteData struct {
	ClientName    string
	ProjectName   string
	CommunityName string
	PortalURL     string
}

func (m *Mailer) SendReminder(ctx context.Context, to, clientName, projectName string, tasks []services.ReminderTask, portalToken string) (string, error) {
	now := time.Now().UTC()
	lines := make([]reminderLine, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, reminderLine{
			Title:   t.Title,
			DueDate: t.DueDate.Format("Jan 2, 2006"),
			Overdue: t.DueDate.Before(now),
		})
	}
	html, err := render(reminderTemplate, reminderData{
		ClientName:  clientName,
		ProjectName: projectName,
		Tasks:       lines,
		PortalURL:   m.PortalURL(portalToken),
	})
	if err != nil {
		return "", fmt.Errorf("render reminder template: %w", err)
	}
	subject := fmt.Sprintf("Reminder: %d pending item(s) for %s", len(tasks), projectName)
	return m.sendHTML(ctx, to, subject, html)
}

func (m *Mailer) SendInvite(ctx context.Context, to, clientName, projectName string, communityName *string, portalToken string) (string, error) {
	data := inviteData{ClientName: clientName, ProjectName: projectName, PortalURL: m.PortalURL(portalToken)}
	if communityName != nil {
		data.CommunityName = *communityName
	}
	html, err := render(inviteTemplate, data)
	if err != nil {
		return "", fmt.Errorf("render invite template: %w", err)
	}
	subject := fmt.Sprintf("Welcome to %s onboarding", projectName)
	return m.sendHTML(ctx, to, subject, html)
}

// sendHTML returns a generated message id on success.
func (m *Mailer) sendHTML(ctx context.Context, to, subject, htmlBody string) (string, error) {
	if !m.IsConfigured() {
		return "", fmt.Errorf("email not configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	msg := m.buildMessage(id, to, subject, htmlBody)
	if err := m.send(m.server, m.auth, m.cfg.From, []string{to}, msg); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	logger.L().Info("email sent", zap.String("message_id", id), zap.String("subject", subject))
	return id, nil
}

func (m *Mailer) buildMessage(id, to, subject, htmlBody string) []byte {
	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}
	domain := "localhost"
	if at := strings.LastIndex(m.cfg.From, "@"); at >= 0 {
		domain = m.cfg.From[at+1:]
	}
	boundary := "boundary-" + id

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Message-ID: <%s@%s>\r\n", id, domain)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)
	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n\r\n")
	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", htmlBody)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	return msg.Bytes()
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
