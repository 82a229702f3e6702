package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/pillmind/go-adherence/internal/domain/notification"
	"github.com/pillmind/go-adherence/internal/domain/user"
	"github.com/pillmind/go-adherence/internal/errs"
)

// SendGridTransport sends email reminders through SendGrid. The message
// contact carries the recipient address.
type SendGridTransport struct {
	client *sendgrid.Client
	from   *mail.Email
	logger *zap.Logger
}

// NewSendGridTransport creates the email transport.
func NewSendGridTransport(apiKey, fromAddress string, logger *zap.Logger) (*SendGridTransport, error) {
	if apiKey == "" {
		return nil, errs.New(errs.KindConfiguration, "sendgrid api key is not set")
	}
	if fromAddress == "" {
		return nil, errs.New(errs.KindConfiguration, "sendgrid from address is not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendGridTransport{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("PillMind", fromAddress),
		logger: logger,
	}, nil
}

// Channel implements Transport.
func (t *SendGridTransport) Channel() string { return user.ChannelEmail }

// Send implements Transport.
func (t *SendGridTransport) Send(ctx context.Context, msg notification.ReminderMessage) error {
	body := FormatBody(msg, zoneOf(msg))
	subject := fmt.Sprintf("Medication reminder: %s", msg.MedicationName)
	to := mail.NewEmail("", msg.Contact)
	message := mail.NewSingleEmail(t.from, subject, to, body, body)

	resp, err := t.client.SendWithContext(ctx, message)
	if err != nil {
		return errs.Wrap(errs.KindTransient, err, "sendgrid send")
	}
	if resp.StatusCode >= 400 {
		return errs.Newf(errs.KindTransient, "sendgrid send: status %d", resp.StatusCode)
	}

	t.logger.Debug("email reminder sent",
		zap.String("dose_id", msg.DoseID.String()),
		zap.Int("status", resp.StatusCode))
	return nil
}
