package notify

import (
	"context"

	"github.com/gregdel/pushover"
	"go.uber.org/zap"

	"github.com/pillmind/go-adherence/internal/domain/notification"
	"github.com/pillmind/go-adherence/internal/domain/user"
	"github.com/pillmind/go-adherence/internal/errs"
)

// PushoverTransport sends push reminders through the Pushover API. The
// message contact carries the recipient's user key.
type PushoverTransport struct {
	app    *pushover.Pushover
	logger *zap.Logger
}

// NewPushoverTransport creates the push transport.
func NewPushoverTransport(appToken string, logger *zap.Logger) (*PushoverTransport, error) {
	if appToken == "" {
		return nil, errs.New(errs.KindConfiguration, "pushover app token is not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushoverTransport{
		app:    pushover.New(appToken),
		logger: logger,
	}, nil
}

// Channel implements Transport.
func (t *PushoverTransport) Channel() string { return user.ChannelPush }

// Send implements Transport.
func (t *PushoverTransport) Send(ctx context.Context, msg notification.ReminderMessage) error {
	recipient := pushover.NewRecipient(msg.Contact)
	m := pushover.NewMessageWithTitle(FormatBody(msg, zoneOf(msg)), "Medication reminder")

	resp, err := t.app.SendMessage(m, recipient)
	if err != nil {
		return errs.Wrap(errs.KindTransient, err, "pushover send")
	}

	t.logger.Debug("push reminder sent",
		zap.String("dose_id", msg.DoseID.String()),
		zap.String("request_id", resp.ID))
	return nil
}
