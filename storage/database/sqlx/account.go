// Package sqlxrepos stores accounts in Postgres, in the single `accounts` table.
package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core/account"
)

const (
	uniqueViolation = "23505"

	columns = `id, variant, name, email, password_hash, address, profile_picture, current_school, previous_school,
		is_approved, notifications, assigned_teacher, fathers_name, mothers_name, is_teacher, experience,
		expertise_in_subjects, created_at, updated_at`
)

type accountRow struct {
	ID              string         `db:"id"`
	Variant         string         `db:"variant"`
	Name            string         `db:"name"`
	Email           string         `db:"email"`
	PasswordHash    []byte         `db:"password_hash"`
	Address         string         `db:"address"`
	ProfilePicture  string         `db:"profile_picture"`
	CurrentSchool   string         `db:"current_school"`
	PreviousSchool  string         `db:"previous_school"`
	IsApproved      bool           `db:"is_approved"`
	Notifications   pq.StringArray `db:"notifications"`
	AssignedTeacher string         `db:"assigned_teacher"`
	FathersName     sql.NullString `db:"fathers_name"`
	MothersName     sql.NullString `db:"mothers_name"`
	IsTeacher       bool           `db:"is_teacher"`
	Experience      string         `db:"experience"`
	Subjects        pq.StringArray `db:"expertise_in_subjects"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func boil(acc account.Account) accountRow {
	row := accountRow{
		ID:              acc.ID,
		Variant:         string(acc.Variant),
		Name:            acc.Name,
		Email:           acc.Email,
		PasswordHash:    acc.PasswordHash,
		Address:         acc.Address,
		ProfilePicture:  acc.ProfilePicture,
		CurrentSchool:   acc.CurrentSchool,
		PreviousSchool:  acc.PreviousSchool,
		IsApproved:      acc.IsApproved,
		Notifications:   pq.StringArray(acc.Notifications),
		AssignedTeacher: acc.AssignedTeacher,
		IsTeacher:       acc.IsTeacher,
		Experience:      acc.Experience,
		Subjects:        pq.StringArray(acc.ExpertiseInSubjects),
		CreatedAt:       acc.CreatedAt,
		UpdatedAt:       acc.UpdatedAt,
	}
	if row.Notifications == nil {
		row.Notifications = pq.StringArray{}
	}
	if row.Subjects == nil {
		row.Subjects = pq.StringArray{}
	}
	if pd := acc.ParentsDetails; pd != nil {
		row.FathersName = sql.NullString{String: pd.FathersName, Valid: true}
		row.MothersName = sql.NullString{String: pd.MothersName, Valid: true}
	}
	return row
}

func unboil(row accountRow) account.Account {
	acc := account.Account{
		ID:              row.ID,
		Variant:         account.Variant(row.Variant),
		Name:            row.Name,
		Email:           row.Email,
		PasswordHash:    row.PasswordHash,
		Address:         row.Address,
		ProfilePicture:  row.ProfilePicture,
		CurrentSchool:   row.CurrentSchool,
		PreviousSchool:  row.PreviousSchool,
		IsApproved:      row.IsApproved,
		Notifications:   []string(row.Notifications),
		AssignedTeacher: row.AssignedTeacher,
		IsTeacher:       row.IsTeacher,
		Experience:      row.Experience,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if acc.Notifications == nil {
		acc.Notifications = []string{}
	}
	if len(row.Subjects) > 0 {
		acc.ExpertiseInSubjects = []string(row.Subjects)
	}
	if row.FathersName.Valid || row.MothersName.Valid {
		acc.ParentsDetails = &account.ParentsDetails{FathersName: row.FathersName.String, MothersName: row.MothersName.String}
	}
	return acc
}

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *sqlx.DB) account.Repository {
	return &accountRepository{db: db}
}

// where returns the condition matching `filter`, using placeholder $n.
func where(filter account.GetFilter, n int) (string, interface{}, error) {
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return "", nil, account.ErrNotFound
		}
		return fmt.Sprintf("id = $%d", n), filter.ID, nil
	case filter.Email != "":
		return fmt.Sprintf("email = $%d", n), filter.Email, nil
	}
	return "", nil, account.ErrNotFound
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func notFoundIfNoRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (repo *accountRepository) CheckEmailUniqueness(ctx context.Context, v account.Variant, email string) error {
	var taken bool
	q := "SELECT EXISTS (SELECT 1 FROM accounts WHERE variant = $1 AND email = $2)"
	if err := repo.db.GetContext(ctx, &taken, q, string(v), email); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if taken {
		return account.ErrEmailExists
	}
	return nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	if !acc.Variant.Valid() {
		return account.Account{}, account.ErrInvalidVariant
	}
	acc.ID = uuid.NewString()
	row := boil(acc)

	q := `INSERT INTO accounts (` + columns + `) VALUES (
		:id, :variant, :name, :email, :password_hash, :address, :profile_picture, :current_school, :previous_school,
		:is_approved, :notifications, :assigned_teacher, :fathers_name, :mothers_name, :is_teacher, :experience,
		:expertise_in_subjects, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return unboil(row), nil
}

func (repo *accountRepository) GetAccount(ctx context.Context, v account.Variant, filter account.GetFilter) (account.Account, error) {
	cond, arg, err := where(filter, 2)
	if err != nil {
		return account.Account{}, err
	}

	var row accountRow
	q := "SELECT " + columns + " FROM accounts WHERE variant = $1 AND " + cond
	if err = repo.db.GetContext(ctx, &row, q, string(v), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "selecting account")
	}
	return unboil(row), nil
}

func (repo *accountRepository) FilterAccounts(ctx context.Context, v account.Variant, filter account.QueryFilter) ([]account.Account, error) {
	q := "SELECT " + columns + " FROM accounts WHERE variant = $1"
	args := []interface{}{string(v)}
	if filter.IsApproved != nil {
		args = append(args, *filter.IsApproved)
		q += fmt.Sprintf(" AND is_approved = $%d", len(args))
	}
	q += " ORDER BY created_at, id"

	var rows []accountRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting accounts")
	}
	accs := make([]account.Account, 0, len(rows))
	for _, row := range rows {
		accs = append(accs, unboil(row))
	}
	return accs, nil
}

// setClause lists the column assignments of `upd` on a v record, along with their args.
func setClause(v account.Variant, upd account.Update) ([]string, []interface{}) {
	var (
		sets []string
		args []interface{}
	)
	set := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	p := upd.Patch
	if p.Name != nil {
		set("name", *p.Name)
	}
	if p.Address != nil {
		set("address", *p.Address)
	}
	if p.ProfilePicture != nil {
		set("profile_picture", *p.ProfilePicture)
	}
	if p.CurrentSchool != nil {
		set("current_school", *p.CurrentSchool)
	}
	if p.PreviousSchool != nil {
		set("previous_school", *p.PreviousSchool)
	}
	if p.ParentsDetails != nil && v == account.VariantStudent {
		set("fathers_name", p.ParentsDetails.FathersName)
		set("mothers_name", p.ParentsDetails.MothersName)
	}
	if p.Experience != nil && v == account.VariantTeacher {
		set("experience", *p.Experience)
	}
	if p.Subjects != nil && v == account.VariantTeacher {
		set("expertise_in_subjects", pq.StringArray(p.Subjects))
	}
	if upd.PasswordHash != nil {
		set("password_hash", upd.PasswordHash)
	}
	if upd.Approve && v.Approvable() {
		set("is_approved", true)
		if v == account.VariantTeacher {
			set("is_teacher", true)
		}
	}
	if upd.AssignedTeacher != nil && v == account.VariantStudent {
		set("assigned_teacher", *upd.AssignedTeacher)
	}
	if !upd.UpdatedAt.IsZero() {
		set("updated_at", upd.UpdatedAt)
	}
	return sets, args
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, v account.Variant, filter account.GetFilter, upd account.Update) (account.Account, error) {
	sets, args := setClause(v, upd)
	if len(sets) == 0 {
		return repo.GetAccount(ctx, v, filter)
	}

	cond, arg, err := where(filter, len(args)+2)
	if err != nil {
		return account.Account{}, err
	}
	args = append(args, string(v), arg)
	q := fmt.Sprintf(
		"UPDATE accounts SET %s WHERE variant = $%d AND %s RETURNING %s",
		strings.Join(sets, ", "), len(args)-1, cond, columns,
	)

	var row accountRow
	if err = repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	return unboil(row), nil
}

func (repo *accountRepository) PushNotification(ctx context.Context, v account.Variant, filter account.GetFilter, msg string) error {
	cond, arg, err := where(filter, 3)
	if err != nil {
		return err
	}
	q := "UPDATE accounts SET notifications = array_append(notifications, $1::text) WHERE variant = $2 AND " + cond
	res, err := repo.db.ExecContext(ctx, q, msg, string(v), arg)
	if err != nil {
		return errors.Wrap(err, "pushing notification")
	}
	return notFoundIfNoRows(res)
}

func (repo *accountRepository) PushNotificationAll(ctx context.Context, v account.Variant, msg string) (int64, error) {
	q := "UPDATE accounts SET notifications = array_append(notifications, $1::text) WHERE variant = $2"
	res, err := repo.db.ExecContext(ctx, q, msg, string(v))
	if err != nil {
		return 0, errors.Wrap(err, "pushing notifications")
	}
	return res.RowsAffected()
}

func (repo *accountRepository) DeleteAccount(ctx context.Context, v account.Variant, filter account.GetFilter) error {
	cond, arg, err := where(filter, 2)
	if err != nil {
		return err
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM accounts WHERE variant = $1 AND "+cond, string(v), arg)
	if err != nil {
		return errors.Wrap(err, "deleting account")
	}
	return notFoundIfNoRows(res)
}
