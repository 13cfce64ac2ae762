// Package digest emails the operator the list of accounts still waiting for approval.
package digest

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
)

type (
	PendingLister interface {
		ListPending(ctx context.Context) ([]account.Pending, error)
	}

	Mailer interface {
		SendEmail(ctx context.Context, to, subject, body string) error
	}

	Digest struct {
		lister PendingLister
		mailer Mailer
		conf   core.DigestConfig
		logger core.Logger
	}

	// Report describes one digest pass.
	Report struct {
		Pending []account.Pending
		Body    string
		Sent    bool
	}
)

func New(lister PendingLister, mailer Mailer, conf core.DigestConfig, logger core.Logger) *Digest {
	return &Digest{
		lister: lister,
		mailer: mailer,
		conf:   conf,
		logger: logger,
	}
}

// Run builds the digest and emails it to the operator.
// When no account is pending, the pass is only logged: the operator gets no "nothing pending" email.
func (d *Digest) Run(ctx context.Context) (Report, error) {
	pending, err := d.lister.ListPending(ctx)
	if err != nil {
		return Report{}, errors.Wrap(err, "listing pending accounts")
	}
	rep := Report{Pending: pending, Body: account.FormatPending(pending)}
	if len(pending) == 0 {
		d.logger.Info("digest: no account pending approval")
		return rep, nil
	}

	if err = d.mailer.SendEmail(ctx, d.conf.OperatorEmail, d.conf.Subject, rep.Body); err != nil {
		return rep, errors.Wrap(err, "sending digest")
	}
	rep.Sent = true
	d.logger.Info(fmt.Sprintf("digest: %d account(s) pending approval, sent to %s", len(pending), d.conf.OperatorEmail))
	return rep, nil
}
