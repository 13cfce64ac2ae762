package account

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
)

var nowFunc = time.Now // mockable

type (
	// Repository is the account store. Each variant is stored and addressed independently.
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, v Variant, email string) error
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccount(ctx context.Context, v Variant, filter GetFilter) (Account, error)
		FilterAccounts(ctx context.Context, v Variant, filter QueryFilter) ([]Account, error)
		// UpdateAccount applies upd on the record matched by filter and returns the updated record.
		UpdateAccount(ctx context.Context, v Variant, filter GetFilter, upd Update) (Account, error)
		// PushNotification atomically appends msg to the mailbox of the record matched by filter.
		PushNotification(ctx context.Context, v Variant, filter GetFilter, msg string) error
		// PushNotificationAll appends msg to the mailbox of every record of variant v.
		// It returns the number of updated records, which may be partial on error.
		PushNotificationAll(ctx context.Context, v Variant, msg string) (int64, error)
		DeleteAccount(ctx context.Context, v Variant, filter GetFilter) error
	}

	// Notifier fans notification messages out to mailboxes and email.
	Notifier interface {
		// Append pushes msg onto one mailbox, synchronously.
		Append(ctx context.Context, v Variant, filter GetFilter, msg string) error
		// BroadcastToAdmins appends msg to every admin mailbox. Fire-and-forget.
		BroadcastToAdmins(msg string)
		// Email hands a message to the mailer. Fire-and-forget.
		Email(to, subject, body string)
	}

	Service struct {
		repo     Repository
		notifier Notifier
		logger   core.Logger
	}
)

func NewService(repo Repository, notifier Notifier, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

func (svc *Service) CheckEmailUniqueness(ctx context.Context, v Variant, email string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, v, email); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates a pending Student or Teacher and lets every admin know about it.
func (svc *Service) Register(ctx context.Context, v Variant, na NewAccount) (Account, error) {
	if !v.Approvable() {
		return Account{}, ErrInvalidVariant
	}

	now := nowFunc().UTC()
	acc := Account{
		Variant:        v,
		Name:           na.Name,
		Email:          na.Email,
		Address:        na.Address,
		ProfilePicture: na.ProfilePicture,
		CurrentSchool:  na.CurrentSchool,
		PreviousSchool: na.PreviousSchool,
		Notifications:  []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	switch v {
	case VariantStudent:
		if na.ParentsDetails != nil {
			pd := *na.ParentsDetails
			acc.ParentsDetails = &pd
		}
	case VariantTeacher:
		acc.Experience = na.Experience
		acc.ExpertiseInSubjects = na.ExpertiseInSubjects
	}
	if err := acc.SetPassword(na.Password); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}

	acc, err := svc.repo.CreateAccount(ctx, acc)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return Account{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return Account{}, errors.Wrap(err, "creating account")
	}

	svc.notifier.BroadcastToAdmins(fmt.Sprintf(
		"A new %s - %s has joined with Email ID - %s and requires approval.", v, acc.Name, acc.Email,
	))
	return acc, nil
}

// SignIn checks the credentials of a v account. An unknown email is reported as a mismatch.
func (svc *Service) SignIn(ctx context.Context, v Variant, email, pwd string) (Account, error) {
	acc, err := svc.repo.GetAccount(ctx, v, GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, ErrCredentialMismatch
		}
		return Account{}, errors.Wrap(err, "finding account by email")
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return Account{}, ErrCredentialMismatch
	}
	return acc, nil
}

func (svc *Service) GetByID(ctx context.Context, v Variant, id string) (Account, error) {
	return svc.repo.GetAccount(ctx, v, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, v Variant, email string) (Account, error) {
	return svc.repo.GetAccount(ctx, v, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// GetOwn returns the record of the session owner. The actor must hold the role owning v records.
func (svc *Service) GetOwn(ctx context.Context, actor Actor, v Variant) (Account, error) {
	if !actor.Is(v.Role()) {
		return Account{}, notAuthorized(msgCannotVerifyOwnership)
	}
	acc, err := svc.repo.GetAccount(ctx, v, GetFilter{ID: actor.AccountID})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, notFound(msgNotFound(v))
		}
		return Account{}, errors.Wrap(err, "finding account by ID")
	}
	return acc, nil
}

// Edit patches a v record: the actor's own record, or the record with `email` when the actor is an admin.
func (svc *Service) Edit(ctx context.Context, actor Actor, v Variant, email string, patch Patch) (Account, error) {
	var filter GetFilter
	switch {
	case v.Approvable() && actor.Is(v.Role()):
		filter.ID = actor.AccountID
	case v.Approvable() && actor.Is(RoleAdmin) && email != "":
		filter.Email = core.CleanString(email, true /* lower */)
	default:
		return Account{}, notAuthorized(msgCannotVerifyOwnership)
	}

	upd := Update{Patch: patch.forVariant(v), UpdatedAt: nowFunc().UTC()}
	if patch.Password != "" {
		var tmp Account
		if err := tmp.SetPassword(patch.Password); err != nil {
			return Account{}, errors.Wrap(err, "hashing password")
		}
		upd.PasswordHash = tmp.PasswordHash
	}

	acc, err := svc.repo.UpdateAccount(ctx, v, filter, upd)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, notFound(msgNotFound(v))
		}
		return Account{}, errors.Wrap(err, "updating account")
	}
	return acc, nil
}

// DeleteOwn deletes the session owner's record. Only the owning role may do so.
func (svc *Service) DeleteOwn(ctx context.Context, actor Actor, v Variant) error {
	if !v.Approvable() || !actor.Is(v.Role()) {
		return notAuthorized(msgCannotDelete)
	}
	if err := svc.repo.DeleteAccount(ctx, v, GetFilter{ID: actor.AccountID}); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return notFound(msgNotFound(v))
		}
		return errors.Wrap(err, "deleting account")
	}
	return nil
}

// SaveAdmin creates the admin with `email`, or resets its name and password when it already exists.
func (svc *Service) SaveAdmin(ctx context.Context, name, email, pwd string) (Account, error) {
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	var hashed Account
	if err := hashed.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}

	now := nowFunc().UTC()
	acc, err := svc.repo.GetAccount(ctx, VariantAdmin, GetFilter{Email: email})
	switch errors.Cause(err) {
	case nil:
		upd := Update{PasswordHash: hashed.PasswordHash, UpdatedAt: now}
		if name != "" {
			upd.Patch.Name = &name
		}
		return svc.repo.UpdateAccount(ctx, VariantAdmin, GetFilter{ID: acc.ID}, upd)
	case ErrNotFound:
		if name == "" {
			name = email
		}
		return svc.repo.CreateAccount(ctx, Account{
			Variant:       VariantAdmin,
			Name:          name,
			Email:         email,
			PasswordHash:  hashed.PasswordHash,
			IsApproved:    true,
			Notifications: []string{},
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	default:
		return Account{}, errors.Wrap(err, "finding admin by email")
	}
}

// ResetPassword sets a new password on the v record with `email`.
func (svc *Service) ResetPassword(ctx context.Context, v Variant, email, pwd string) error {
	var hashed Account
	if err := hashed.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err := svc.repo.UpdateAccount(ctx, v, GetFilter{Email: core.CleanString(email, true /* lower */)}, Update{
		PasswordHash: hashed.PasswordHash,
		UpdatedAt:    nowFunc().UTC(),
	})
	return err
}
