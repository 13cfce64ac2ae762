package account

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
)

const (
	approvalMailSubject = "Join request approval status"
	approvalMessage     = "Admin has approved your join request."
)

// ApproveStudent marks the student with `email` as approved. Only admins may approve.
func (svc *Service) ApproveStudent(ctx context.Context, actor Actor, email string) (Account, error) {
	if !actor.Is(RoleAdmin) {
		return Account{}, notAuthorized(msgCannotApproveStudents)
	}
	return svc.approve(ctx, VariantStudent, email)
}

// ApproveTeacher marks the teacher with `email` as approved and as a sign-in capable teacher.
// Only admins may approve.
func (svc *Service) ApproveTeacher(ctx context.Context, actor Actor, email string) (Account, error) {
	if !actor.Is(RoleAdmin) {
		return Account{}, notAuthorized(msgCannotApproveTeachers)
	}
	return svc.approve(ctx, VariantTeacher, email)
}

// approve commits the approval flags first, then fans out: target mailbox, email, admin mailboxes.
// Fan-out failures are logged and never undo the approval.
func (svc *Service) approve(ctx context.Context, v Variant, email string) (Account, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return Account{}, notFound(msgNotFound(v))
	}

	acc, err := svc.repo.UpdateAccount(ctx, v, GetFilter{Email: email}, Update{
		Approve:   true,
		UpdatedAt: nowFunc().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, notFound(msgNotFound(v))
		}
		return Account{}, errors.Wrap(err, "approving account")
	}

	if err = svc.notifier.Append(ctx, v, GetFilter{ID: acc.ID}, approvalMessage); err != nil {
		svc.logger.Error(fmt.Sprintf("notifying approved %s: %v", v, err), err, acc)
	} else {
		acc.Notifications = append(acc.Notifications, approvalMessage)
	}
	svc.notifier.Email(acc.Email, approvalMailSubject, approvalMessage)
	svc.notifier.BroadcastToAdmins(fmt.Sprintf("%s with Email ID - %s has been approved.", v.Title(), acc.Email))

	return acc, nil
}
