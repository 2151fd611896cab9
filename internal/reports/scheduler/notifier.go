package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/inventory"
)

// Notifier tells staff which items are due for replacement
type Notifier interface {
	Notify(ctx context.Context, reminders []inventory.Reminder) error
}

// ReminderMessage renders reminders as a plain-text email
func ReminderMessage(reminders []inventory.Reminder) (subject, body string) {
	subject = fmt.Sprintf("%d inventory item(s) due for replacement", len(reminders))

	var sb strings.Builder
	sb.WriteString("The following equipment has reached the end of its service life:\n\n")
	for _, r := range reminders {
		fmt.Fprintf(&sb, "- %s\n", r)
	}
	return subject, sb.String()
}

// LogNotifier writes reminders to the log
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, reminders []inventory.Reminder) error {
	for _, r := range reminders {
		n.logger.Warn("Item due for replacement",
			zap.Int64("item_id", r.Item.ID),
			zap.String("name", r.Item.Name),
			zap.String("category", r.Item.Category),
			zap.Int("due_year", r.DueYear))
	}
	return nil
}

// SESAPI is the part of the SES v2 client the notifier uses
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier emails reminders through Amazon SES
type SESNotifier struct {
	client     SESAPI
	from       string
	recipients []string
	logger     *zap.Logger
}

// NewSESNotifier creates an SES notifier
func NewSESNotifier(client SESAPI, from string, recipients []string, logger *zap.Logger) *SESNotifier {
	return &SESNotifier{
		client:     client,
		from:       from,
		recipients: recipients,
		logger:     logger,
	}
}

// Notify sends one email listing every reminder. Nothing is sent when
// there are no reminders.
func (n *SESNotifier) Notify(ctx context.Context, reminders []inventory.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	if len(n.recipients) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	subject, body := ReminderMessage(reminders)
	out, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination: &types.Destination{
			ToAddresses: n.recipients,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send reminder email: %w", err)
	}

	n.logger.Info("Reminder email sent",
		zap.Strings("to", n.recipients),
		zap.Int("items", len(reminders)),
		zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
