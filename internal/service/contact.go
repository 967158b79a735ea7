package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/portfolio-site/portfolio-api/internal/mail"
	"github.com/portfolio-site/portfolio-api/internal/model"
	"github.com/portfolio-site/portfolio-api/pkg/logger"
	"github.com/portfolio-site/portfolio-api/pkg/metrics"
)

// ErrDelivery is returned when a contact message could not be sent.
var ErrDelivery = errors.New("contact delivery failed")

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, msg *mail.Message) error
}

// ContactService forwards contact form submissions to the site owner.
type ContactService struct {
	sender       Sender
	owner        string
	adminAddress string
	logger       *logger.Logger
}

// NewContactService creates a new contact service.
func NewContactService(sender Sender, owner, adminAddress string, log *logger.Logger) *ContactService {
	return &ContactService{
		sender:       sender,
		owner:        owner,
		adminAddress: adminAddress,
		logger:       log.Component("contact"),
	}
}

// Submit notifies the owner, then thanks the visitor. req must already be validated.
func (s *ContactService) Submit(ctx context.Context, req *model.ContactRequest) (*model.ContactResponse, error) {
	notification, err := mail.AdminNotification(s.owner, s.adminAddress, req)
	if err != nil {
		return nil, err
	}
	thanks, err := mail.ThankYou(s.owner, req)
	if err != nil {
		return nil, err
	}

	for _, msg := range []*mail.Message{notification, thanks} {
		if err := s.sender.Send(ctx, msg); err != nil {
			metrics.RecordContact("error")
			s.logger.Error("Failed to send email", zap.String("subject", msg.Subject), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrDelivery, err)
		}
	}

	metrics.RecordContact("sent")
	return &model.ContactResponse{
		Success: true,
		Message: "Your message has been sent successfully!",
	}, nil
}
