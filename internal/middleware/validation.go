package middleware

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/portfolio-site/portfolio-api/internal/model"
)

// MaxContentLength caps a single message, in bytes.
const MaxContentLength = 100000

// MaxMessages caps the history a client may resend.
const MaxMessages = 200

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	return validateContentShape(content)
}

func validateContentShape(content string) error {
	if len(content) > MaxContentLength {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateMessages validates the history sent with a chat request. Earlier turns
// may be empty, as an interrupted reply leaves an empty assistant bubble behind;
// a trailing user turn must carry text.
func ValidateMessages(messages []model.ChatMessage) error {
	if len(messages) == 0 {
		return errors.New("messages cannot be empty")
	}
	if len(messages) > MaxMessages {
		return errors.New("too many messages")
	}
	for i, m := range messages {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d: invalid role %q", i, m.Role)
		}
		check := validateContentShape
		if i == len(messages)-1 && m.Role == model.RoleUser {
			check = ValidateMessageContent
		}
		if err := check(m.Text()); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// ValidateLocale rejects locale tags that are not plausible language tags.
// Unsupported but well-formed tags are accepted and fall back to the default prompt.
func ValidateLocale(locale string) error {
	if len(locale) > 35 {
		return errors.New("locale exceeds maximum length")
	}
	if !utf8.ValidString(locale) {
		return errors.New("locale must be valid UTF-8")
	}
	return nil
}

// ValidateContact validates a contact form submission.
func ValidateContact(req *model.ContactRequest) error {
	if utf8.RuneCountInString(strings.TrimSpace(req.Name)) < 2 {
		return errors.New("Name must be at least 2 characters")
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return errors.New("Please enter a valid email address")
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Subject)) < 5 {
		return errors.New("Subject must be at least 5 characters")
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Message)) < 10 {
		return errors.New("Message must be at least 10 characters")
	}
	if len(req.Message) > MaxContentLength {
		return errors.New("Message exceeds maximum length")
	}
	return nil
}
