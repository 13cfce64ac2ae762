package account

import "github.com/pkg/errors"

var (
	// errors
	ErrNotFound           = errors.New("account not found")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrCredentialMismatch = errors.New("incorrect credentials")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrInvalidVariant     = errors.New("invalid account variant")
)

// Error pairs one of the sentinel errors with the outcome message shown to the caller.
type Error struct {
	Err error
	Msg string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Err }

func notAuthorized(msg string) error { return &Error{Err: ErrNotAuthorized, Msg: msg} }
func notFound(msg string) error      { return &Error{Err: ErrNotFound, Msg: msg} }

// Outcome messages
const (
	MsgStudentApproved = "Student Approved."
	MsgTeacherApproved = "Teacher Approved."
	MsgTeacherAssigned = "Teacher Assigned."
	MsgEditDone        = "Edit Done."
	MsgStudentDeleted  = "Student Deleted."
	MsgTeacherDeleted  = "Teacher Deleted."

	msgCannotApproveStudents = "You're not authorized to approve students."
	msgCannotApproveTeachers = "You're not authorized to approve teachers."
	msgCannotAssignTeachers  = "You're not authorized to assign teachers."
	msgCannotVerifyOwnership = "Unable to verify user ownership, Please contact admin."
	msgCannotDelete          = "You are not authorized to delete this user."
	msgCannotListPending     = "You're not authorized to list pending approvals."
)

func msgNotFound(v Variant) string { return v.Title() + " not found." }
