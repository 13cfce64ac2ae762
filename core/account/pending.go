package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Pending is a Student or Teacher still waiting for approval.
type Pending struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Variant Variant `json:"variant"`
}

// String formats p as a digest line.
func (p Pending) String() string {
	return fmt.Sprintf("Name: %s | Email: %s | Needs approval for role: %s", p.Name, p.Email, p.Variant.Title())
}

// FormatPending joins the digest lines of `pending`, one per line.
func FormatPending(pending []Pending) string {
	lines := make([]string, 0, len(pending))
	for _, p := range pending {
		lines = append(lines, p.String())
	}
	return strings.Join(lines, "\n")
}

// ListPending reads every unapproved Teacher, then every unapproved Student.
// Reads are not isolated from concurrent registrations or approvals.
func (svc *Service) ListPending(ctx context.Context) ([]Pending, error) {
	notApproved := false
	var pending []Pending
	for _, v := range []Variant{VariantTeacher, VariantStudent} {
		accs, err := svc.repo.FilterAccounts(ctx, v, QueryFilter{IsApproved: &notApproved})
		if err != nil {
			return nil, errors.Wrapf(err, "querying pending %ss", v)
		}
		for _, acc := range accs {
			pending = append(pending, Pending{Name: acc.Name, Email: acc.Email, Variant: v})
		}
	}
	return pending, nil
}

// PendingFor is ListPending restricted to admins.
func (svc *Service) PendingFor(ctx context.Context, actor Actor) ([]Pending, error) {
	if !actor.Is(RoleAdmin) {
		return nil, notAuthorized(msgCannotListPending)
	}
	return svc.ListPending(ctx)
}
