package account

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/admissions/core"
)

// Variant is the kind of account record.
type Variant string

const (
	VariantStudent Variant = "student"
	VariantTeacher Variant = "teacher"
	VariantAdmin   Variant = "admin"
)

var Variants = []Variant{VariantStudent, VariantTeacher, VariantAdmin}

func (v Variant) Valid() bool {
	switch v {
	case VariantStudent, VariantTeacher, VariantAdmin:
		return true
	}
	return false
}

// Title is the variant name as shown to people, eg. "Student".
func (v Variant) Title() string {
	switch v {
	case VariantStudent:
		return "Student"
	case VariantTeacher:
		return "Teacher"
	case VariantAdmin:
		return "Admin"
	}
	return string(v)
}

// Approvable reports whether accounts of this variant go through admin approval.
func (v Variant) Approvable() bool {
	return v == VariantStudent || v == VariantTeacher
}

// Role is the label a session acts under. It is part of the signed session claims.
type Role string

const (
	RoleNone    Role = ""
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Role returns the role that owns records of this variant.
func (v Variant) Role() Role {
	switch v {
	case VariantStudent:
		return RoleStudent
	case VariantTeacher:
		return RoleTeacher
	case VariantAdmin:
		return RoleAdmin
	}
	return RoleNone
}

// Actor is the verified caller of an operation.
type Actor struct {
	AccountID string
	Role      Role
}

func (a Actor) Is(role Role) bool {
	return role != RoleNone && a.Role == role
}

type ParentsDetails struct {
	FathersName string `json:"fathers_name"`
	MothersName string `json:"mothers_name"`
}

// Account is a Student, Teacher or Admin record.
// Student-only and Teacher-only fields are left zero on the other variants.
type Account struct {
	ID             string    `json:"id"`
	Variant        Variant   `json:"variant"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   []byte    `json:"-"`
	Address        string    `json:"address,omitempty"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	CurrentSchool  string    `json:"current_school,omitempty"`
	PreviousSchool string    `json:"previous_school,omitempty"`
	IsApproved     bool      `json:"is_approved"`
	Notifications  []string  `json:"notifications"` // append-only, most recent last
	CreatedAt      time.Time `json:"created_at"`    // UTC
	UpdatedAt      time.Time `json:"updated_at"`    // UTC

	// Student
	AssignedTeacher string          `json:"assigned_teacher,omitempty"` // teacher email; not checked
	ParentsDetails  *ParentsDetails `json:"parents_details,omitempty"`

	// Teacher
	IsTeacher           bool     `json:"is_teacher,omitempty"`
	Experience          string   `json:"experience,omitempty"`
	ExpertiseInSubjects []string `json:"expertise_in_subjects,omitempty"`
}

var _ core.Identity = Account{}

func (a Account) Identity() (id, name, email string) {
	return a.ID, a.Name, a.Email
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

// Approved reports the approval state. Admins are always approved.
func (a Account) Approved() bool {
	return a.Variant == VariantAdmin || a.IsApproved
}

// SessionRole is the role a session signed in with this account acts under.
// A teacher only gets the teacher role once approved.
func (a Account) SessionRole() Role {
	switch a.Variant {
	case VariantStudent:
		return RoleStudent
	case VariantTeacher:
		if a.IsTeacher {
			return RoleTeacher
		}
		return RoleNone
	case VariantAdmin:
		return RoleAdmin
	}
	return RoleNone
}

// NewAccount contains information needed to register a new Student or Teacher.
type NewAccount struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Address         string `json:"address"`
	ProfilePicture  string `json:"profile_picture" validate:"omitempty,url"`
	CurrentSchool   string `json:"current_school"`
	PreviousSchool  string `json:"previous_school"`

	// Student
	ParentsDetails *ParentsDetails `json:"parents_details"`

	// Teacher
	Experience          string   `json:"experience"`
	ExpertiseInSubjects []string `json:"expertise_in_subjects"`
}

func (na *NewAccount) clean() {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Address = core.CleanString(na.Address)
	na.ProfilePicture = core.CleanString(na.ProfilePicture)
	na.CurrentSchool = core.CleanString(na.CurrentSchool)
	na.PreviousSchool = core.CleanString(na.PreviousSchool)
	na.Experience = core.CleanString(na.Experience)
	na.ExpertiseInSubjects = core.CleanStrings(na.ExpertiseInSubjects)
}

// Patch defines which profile fields may be changed on an existing record. Nil fields are left untouched.
// Approval state, mailbox, email and assigned teacher are never patched.
type Patch struct {
	Name            *string         `json:"name" validate:"omitempty,notblank"`
	Address         *string         `json:"address"`
	ProfilePicture  *string         `json:"profile_picture" validate:"omitempty,url"`
	CurrentSchool   *string         `json:"current_school"`
	PreviousSchool  *string         `json:"previous_school"`
	ParentsDetails  *ParentsDetails `json:"parents_details"`
	Experience      *string         `json:"experience"`
	Subjects        []string        `json:"expertise_in_subjects"`
	Password        string          `json:"password"`
	PasswordConfirm string          `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (p *Patch) clean() {
	p.Name = core.CleanStringPtr(p.Name)
	p.Address = core.CleanStringPtr(p.Address)
	p.ProfilePicture = core.CleanStringPtr(p.ProfilePicture)
	p.CurrentSchool = core.CleanStringPtr(p.CurrentSchool)
	p.PreviousSchool = core.CleanStringPtr(p.PreviousSchool)
	p.Experience = core.CleanStringPtr(p.Experience)
	p.Subjects = core.CleanStrings(p.Subjects)
}

// forVariant drops the fields that do not exist on records of variant v.
func (p Patch) forVariant(v Variant) Patch {
	if v != VariantStudent {
		p.ParentsDetails = nil
	}
	if v != VariantTeacher {
		p.Experience = nil
		p.Subjects = nil
	}
	return p
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Address == nil && p.ProfilePicture == nil && p.CurrentSchool == nil &&
		p.PreviousSchool == nil && p.ParentsDetails == nil && p.Experience == nil && p.Subjects == nil && p.Password == ""
}

// Update is a store-level change applied to the single record matched by a GetFilter.
type Update struct {
	Patch           Patch
	PasswordHash    []byte
	Approve         bool    // sets IsApproved, and IsTeacher on teachers
	AssignedTeacher *string // students only
	UpdatedAt       time.Time
}

// Apply applies upd on acc in place. Stores without partial updates use it.
func (upd Update) Apply(acc *Account) {
	p := upd.Patch
	if p.Name != nil {
		acc.Name = *p.Name
	}
	if p.Address != nil {
		acc.Address = *p.Address
	}
	if p.ProfilePicture != nil {
		acc.ProfilePicture = *p.ProfilePicture
	}
	if p.CurrentSchool != nil {
		acc.CurrentSchool = *p.CurrentSchool
	}
	if p.PreviousSchool != nil {
		acc.PreviousSchool = *p.PreviousSchool
	}
	if p.ParentsDetails != nil && acc.Variant == VariantStudent {
		pd := *p.ParentsDetails
		acc.ParentsDetails = &pd
	}
	if p.Experience != nil && acc.Variant == VariantTeacher {
		acc.Experience = *p.Experience
	}
	if p.Subjects != nil && acc.Variant == VariantTeacher {
		acc.ExpertiseInSubjects = append([]string(nil), p.Subjects...)
	}
	if upd.PasswordHash != nil {
		acc.PasswordHash = upd.PasswordHash
	}
	if upd.Approve && acc.Variant.Approvable() {
		acc.IsApproved = true
		if acc.Variant == VariantTeacher {
			acc.IsTeacher = true
		}
	}
	if upd.AssignedTeacher != nil && acc.Variant == VariantStudent {
		acc.AssignedTeacher = *upd.AssignedTeacher
	}
	if !upd.UpdatedAt.IsZero() {
		acc.UpdatedAt = upd.UpdatedAt
	}
}

// GetFilter matches a single record, by ID or else by Email.
type GetFilter struct {
	ID    string
	Email string
}

func (f GetFilter) IsEmpty() bool { return f.ID == "" && f.Email == "" }

// QueryFilter applies AND on its set fields. An empty filter matches every record.
type QueryFilter struct {
	IsApproved *bool
}
