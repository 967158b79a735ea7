// Package mail renders and delivers the contact form emails.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/portfolio-site/portfolio-api/internal/model"
	"github.com/portfolio-site/portfolio-api/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is a rendered HTML email.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	HTML    string
}

type contactView struct {
	Owner     string
	Name      string
	FirstName string
	Email     string
	Subject   string
	Lines     []string
	Year      int
}

func newContactView(owner string, req *model.ContactRequest) contactView {
	name := strings.TrimSpace(req.Name)
	first := name
	if i := strings.IndexByte(name, ' '); i > 0 {
		first = name[:i]
	}
	return contactView{
		Owner:     owner,
		Name:      name,
		FirstName: first,
		Email:     req.Email,
		Subject:   req.Subject,
		Lines:     strings.Split(strings.ReplaceAll(req.Message, "\r\n", "\n"), "\n"),
		Year:      time.Now().Year(),
	}
}

// AdminNotification renders the message forwarded to the site owner.
func AdminNotification(owner, adminAddress string, req *model.ContactRequest) (*Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "admin_notification.html", newContactView(owner, req)); err != nil {
		return nil, fmt.Errorf("failed to render admin notification: %w", err)
	}
	return &Message{
		To:      adminAddress,
		ReplyTo: req.Email,
		Subject: "Contact Form: " + req.Subject,
		HTML:    buf.String(),
	}, nil
}

// ThankYou renders the confirmation sent back to the visitor.
func ThankYou(owner string, req *model.ContactRequest) (*Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "thank_you.html", newContactView(owner, req)); err != nil {
		return nil, fmt.Errorf("failed to render thank-you email: %w", err)
	}
	return &Message{
		To:      req.Email,
		Subject: "Thank you for reaching out!",
		HTML:    buf.String(),
	}, nil
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
}

// SMTPSender delivers messages over SMTP. Port 465 uses implicit TLS; other ports upgrade with STARTTLS.
type SMTPSender struct {
	cfg     Config
	devMode bool
	logger  *logger.Logger
}

// NewSMTPSender creates a sender. Without a host or user it runs in dev mode and only logs.
func NewSMTPSender(cfg Config, log *logger.Logger) *SMTPSender {
	devMode := cfg.Host == "" || cfg.User == ""
	if devMode {
		log.Warn("Email sender running in dev mode, messages will be logged instead of sent")
	}
	return &SMTPSender{cfg: cfg, devMode: devMode, logger: log.Component("mail")}
}

// DevMode reports whether messages are only logged.
func (s *SMTPSender) DevMode() bool {
	return s.devMode
}

// Send delivers msg.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if s.devMode {
		s.logger.Info("Dev email",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Int("html_bytes", len(msg.HTML)),
		)
		return nil
	}

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	var conn net.Conn
	var err error
	if s.cfg.Port == "465" {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to dial SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer c.Close()

	if s.cfg.Port != "465" {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
				return fmt.Errorf("failed to upgrade to TLS: %w", err)
			}
		}
	}

	if err := c.Auth(smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)); err != nil {
		return fmt.Errorf("SMTP auth failed: %w", err)
	}
	if err := c.Mail(s.cfg.User); err != nil {
		return fmt.Errorf("SMTP MAIL FROM failed: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("SMTP RCPT TO failed: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA failed: %w", err)
	}
	if _, err := wc.Write(s.compose(msg)); err != nil {
		wc.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	if err := c.Quit(); err != nil {
		s.logger.Debug("SMTP QUIT failed", zap.Error(err))
	}

	s.logger.Info("Email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (s *SMTPSender) compose(msg *Message) []byte {
	headers := []string{
		"From: " + s.cfg.User,
		"To: " + msg.To,
		"Subject: " + mime.QEncoding.Encode("utf-8", headerSafe(msg.Subject)),
		"Date: " + time.Now().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}
	if msg.ReplyTo != "" {
		headers = append(headers, "Reply-To: "+headerSafe(msg.ReplyTo))
	}
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + msg.HTML)
}

func headerSafe(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
