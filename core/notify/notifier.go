// Package notify delivers account notifications: mailbox appends, admin broadcasts and emails.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
)

type Notifier struct {
	repo   account.Repository
	mailer core.EmailService
	outbox *Outbox
	logger core.Logger
}

var _ account.Notifier = (*Notifier)(nil)

func NewNotifier(repo account.Repository, mailer core.EmailService, outbox *Outbox, logger core.Logger) *Notifier {
	return &Notifier{
		repo:   repo,
		mailer: mailer,
		outbox: outbox,
		logger: logger,
	}
}

// Append pushes `msg` onto the mailbox of the v record matched by `filter`.
func (n *Notifier) Append(ctx context.Context, v account.Variant, filter account.GetFilter, msg string) error {
	return n.repo.PushNotification(ctx, v, filter, msg)
}

// BroadcastToAdmins queues an append of `msg` to every admin mailbox.
func (n *Notifier) BroadcastToAdmins(msg string) {
	n.outbox.Enqueue(Task{
		Name: "broadcast to admins",
		Run: func(ctx context.Context) error {
			count, err := n.repo.PushNotificationAll(ctx, account.VariantAdmin, msg)
			if err != nil {
				return errors.Wrapf(err, "broadcast reached %d admins", count)
			}
			return nil
		},
	})
}

// Email queues an email to `to`.
func (n *Notifier) Email(to, subject, body string) {
	n.outbox.Enqueue(Task{
		Name: fmt.Sprintf("email %q", subject),
		Run: func(ctx context.Context) error {
			return n.SendEmail(ctx, to, subject, body)
		},
	})
}

// SendEmail sends the email right away.
func (n *Notifier) SendEmail(ctx context.Context, to, subject, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("email has no recipient")
	}
	if err := n.mailer.SendMessage(ctx, core.NewEmailMessage(to, subject, body)); err != nil {
		return errors.Wrapf(err, "sending email to %s", to)
	}
	return nil
}
