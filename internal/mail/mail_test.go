package mail

import (
	"context"
	"strings"
	"testing"

	"github.com/portfolio-site/portfolio-api/internal/model"
	"github.com/portfolio-site/portfolio-api/pkg/logger"
)

func contactFixture() *model.ContactRequest {
	return &model.ContactRequest{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Subject: "Collaboration <idea>",
		Message: "First line\nSecond <b>line</b>",
	}
}

func TestAdminNotification(t *testing.T) {
	msg, err := AdminNotification("Prathamesh Chougale", "owner@example.com", contactFixture())
	if err != nil {
		t.Fatalf("AdminNotification err: %v", err)
	}

	if msg.To != "owner@example.com" || msg.ReplyTo != "ada@example.com" {
		t.Fatalf("unexpected routing %+v", msg)
	}
	if msg.Subject != "Contact Form: Collaboration <idea>" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "First line<br>Second &lt;b&gt;line&lt;/b&gt;") {
		t.Fatalf("expected escaped message with line breaks, got:\n%s", msg.HTML)
	}
	if strings.Contains(msg.HTML, "<idea>") {
		t.Fatal("subject must be HTML-escaped in the body")
	}
}

func TestThankYouUsesFirstName(t *testing.T) {
	msg, err := ThankYou("Prathamesh Chougale", contactFixture())
	if err != nil {
		t.Fatalf("ThankYou err: %v", err)
	}

	if msg.To != "ada@example.com" || msg.Subject != "Thank you for reaching out!" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if !strings.Contains(msg.HTML, "Hi Ada,") {
		t.Fatal("expected greeting with first name")
	}
}

func TestDevModeSenderDoesNotDial(t *testing.T) {
	s := NewSMTPSender(Config{Port: "465"}, logger.NewNop())
	if !s.DevMode() {
		t.Fatal("expected dev mode without host")
	}
	if err := s.Send(context.Background(), &Message{To: "a@example.com", Subject: "x"}); err != nil {
		t.Fatalf("dev mode send err: %v", err)
	}
}

func TestComposeStripsHeaderInjection(t *testing.T) {
	s := NewSMTPSender(Config{Host: "smtp.example.com", Port: "465", User: "me@example.com"}, logger.NewNop())
	raw := string(s.compose(&Message{
		To:      "ada@example.com",
		ReplyTo: "ada@example.com\r\nBcc: victim@example.com",
		Subject: "hello\r\nBcc: victim@example.com",
		HTML:    "<p>x</p>",
	}))

	head, _, _ := strings.Cut(raw, "\r\n\r\n")
	for _, line := range strings.Split(head, "\r\n") {
		if strings.HasPrefix(line, "Bcc:") {
			t.Fatalf("header injection succeeded:\n%s", head)
		}
	}
}
