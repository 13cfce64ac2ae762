package account

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
)

// Assignment is the result of AssignTeacher.
type Assignment struct {
	Student      Account
	TeacherEmail string
	TeacherFound bool // false when no teacher record matched; the student side is still committed
}

// AssignTeacher links the student with `studentEmail` to the teacher with `teacherEmail`.
// The approval state of either side is not checked, and the teacher email is kept even when it matches no record.
func (svc *Service) AssignTeacher(ctx context.Context, actor Actor, studentEmail, teacherEmail string) (Assignment, error) {
	if !actor.Is(RoleAdmin) {
		return Assignment{}, notAuthorized(msgCannotAssignTeachers)
	}

	studentEmail = core.CleanString(studentEmail, true /* lower */)
	teacherEmail = core.CleanString(teacherEmail, true /* lower */)
	if studentEmail == "" {
		return Assignment{}, notFound(msgNotFound(VariantStudent))
	}

	student, err := svc.repo.UpdateAccount(ctx, VariantStudent, GetFilter{Email: studentEmail}, Update{
		AssignedTeacher: &teacherEmail,
		UpdatedAt:       nowFunc().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Assignment{}, notFound(msgNotFound(VariantStudent))
		}
		return Assignment{}, errors.Wrap(err, "assigning teacher")
	}
	res := Assignment{Student: student, TeacherEmail: teacherEmail}

	studentMsg := fmt.Sprintf("Teacher with Email ID - %s has been assigned to you.", teacherEmail)
	if err = svc.notifier.Append(ctx, VariantStudent, GetFilter{ID: student.ID}, studentMsg); err != nil {
		svc.logger.Error(fmt.Sprintf("notifying assigned student: %v", err), err, student)
	} else {
		res.Student.Notifications = append(res.Student.Notifications, studentMsg)
	}

	if teacherEmail == "" {
		return res, nil
	}
	teacherMsg := fmt.Sprintf("Student with Email ID - %s has been assigned to you.", studentEmail)
	switch err = svc.notifier.Append(ctx, VariantTeacher, GetFilter{Email: teacherEmail}, teacherMsg); errors.Cause(err) {
	case nil:
		res.TeacherFound = true
	case ErrNotFound:
		svc.logger.Warn(fmt.Sprintf("assigned teacher %s not found", teacherEmail), student)
	default:
		svc.logger.Error(fmt.Sprintf("notifying assigned teacher: %v", err), err, student)
	}
	return res, nil
}
