package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockwatch/internal/domain/models"
	client "github.com/mamadbah2/stockwatch/pkg/clients/email"
)

const sendTimeout = 10 * time.Second

var addressValidator = validator.New()

// ErrInvalidMessage indicates the message cannot be sent as built.
var ErrInvalidMessage = errors.New("invalid email message")

// Mailer is the outbound surface the evaluator depends on.
type Mailer interface {
	Send(ctx context.Context, msg models.EmailMessage) error
}

// EmailService delivers messages through the transactional email API. A send
// either reaches every recipient or fails as a whole.
type EmailService struct {
	client client.Client
	logger *zap.Logger
}

// NewEmailService wires a new service instance.
func NewEmailService(c client.Client, logger *zap.Logger) *EmailService {
	svc := &EmailService{
		client: c,
		logger: logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// Send validates and delivers msg.
func (s *EmailService) Send(ctx context.Context, msg models.EmailMessage) error {
	if err := validate(msg); err != nil {
		return err
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, err := s.client.SendEmail(ctxWithTimeout, client.SendEmailRequest{
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return err
	}

	s.logger.Info("email sent",
		zap.String("subject", msg.Subject),
		zap.Int("recipients", len(msg.To)),
		zap.String("message_id", resp.ID))
	return nil
}

func validate(msg models.EmailMessage) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: no recipients", ErrInvalidMessage)
	}
	for _, addr := range msg.To {
		if !deliverable(addr) {
			return fmt.Errorf("%w: bad address %q", ErrInvalidMessage, addr)
		}
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return fmt.Errorf("%w: empty subject", ErrInvalidMessage)
	}
	if strings.TrimSpace(msg.HTML) == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidMessage)
	}
	return nil
}

// NormalizeRecipients trims, lower-cases and de-duplicates the addresses of
// the given recipients, keeping first-seen order. Blank addresses are dropped
// and malformed ones are returned separately in rejected.
func NormalizeRecipients(recipients []models.AlertRecipient) (to []string, rejected []string) {
	seen := make(map[string]struct{}, len(recipients))
	to = make([]string, 0, len(recipients))
	for _, r := range recipients {
		addr := strings.ToLower(strings.TrimSpace(r.Email))
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		if !deliverable(addr) {
			rejected = append(rejected, addr)
			continue
		}
		to = append(to, addr)
	}
	return to, rejected
}

// deliverable accepts a bare address such as ops@example.com.
func deliverable(addr string) bool {
	return addressValidator.Var(addr, "required,email") == nil
}
