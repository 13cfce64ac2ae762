package account

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core"
)

func newValidate() (*validator.Validate, func(error) map[string]string) {
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	translate := func(err error) map[string]string {
		vErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil
		}
		out := make(map[string]string, len(vErrs))
		for _, e := range vErrs {
			out[e.Field()] = e.Translate(translator)
		}
		return out
	}
	return validate, translate
}

func TestValidatePassword(t *testing.T) {
	validate, translate := newValidate()
	commonPasswords = []string{"qwerty@123", "sunshine"}
	defer func() { commonPasswords = nil }()

	tests := []struct {
		name    string
		pwd     string
		wantErr string
	}{
		{name: "valid", pwd: "Str0ng&Long"},
		{name: "too short", pwd: "Ab1@", wantErr: pwdMinLenText},
		{name: "whitespace", pwd: "Ab1@ cdefg", wantErr: pwdNoSpaceText},
		{name: "all numeric", pwd: "1234567890", wantErr: pwdNotAllNumText},
		{name: "no upper", pwd: "str0ng&long", wantErr: pwdComplexityText},
		{name: "no special", pwd: "Str0ngLong", wantErr: pwdComplexityText},
		{name: "like name", pwd: "Jean-Luc1", wantErr: pwdAttrSimText},
		{name: "like email", pwd: "Jluc@mail.cd1", wantErr: pwdAttrSimText},
		{name: "common", pwd: "Qwerty@123", wantErr: pwdNoCommonText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			na := NewAccount{Name: "Jean Luc", Email: "jluc@mail.cd", Password: tt.pwd, PasswordConfirm: tt.pwd}
			err := validate.Struct(na)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, map[string]string{"password": tt.wantErr}, translate(err))
		})
	}
}

func TestPatch_Validate(t *testing.T) {
	validate, translate := newValidate()
	str := func(s string) *string { return &s }

	tests := []struct {
		name      string
		patch     Patch
		wantField string
	}{
		{name: "empty", patch: Patch{}},
		{name: "name", patch: Patch{Name: str(" Sam ")}},
		{name: "blank name", patch: Patch{Name: str("   ")}, wantField: "name"},
		{name: "bad picture", patch: Patch{ProfilePicture: str("lol")}, wantField: "profile_picture"},
		{name: "password", patch: Patch{Password: "Str0ng&Long", PasswordConfirm: "Str0ng&Long"}},
		{name: "password unconfirmed", patch: Patch{Password: "Str0ng&Long"}, wantField: "password_confirm"},
		{name: "weak password", patch: Patch{Password: "weak", PasswordConfirm: "weak"}, wantField: "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.patch
			err := p.Validate(validate)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			assert.Contains(t, translate(err), tt.wantField)
		})
	}
}

type stubRepo struct {
	Repository
	taken map[string]bool
}

func (r stubRepo) CheckEmailUniqueness(_ context.Context, _ Variant, email string) error {
	if r.taken[email] {
		return ErrEmailExists
	}
	return nil
}

func TestNewAccount_Validate(t *testing.T) {
	validate, _ := newValidate()
	svc := NewService(stubRepo{taken: map[string]bool{"sam@x.cd": true}}, nil, nil)
	ctx := context.Background()

	na := NewAccount{Name: " Sid ", Email: " SID@x.cd ", Password: "Str0ng&Long", PasswordConfirm: "Str0ng&Long"}
	require.NoError(t, na.Validate(ctx, validate, svc, VariantStudent))
	assert.Equal(t, "Sid", na.Name)
	assert.Equal(t, "sid@x.cd", na.Email)

	na = NewAccount{Name: "Sam", Email: "sam@x.cd", Password: "Str0ng&Long", PasswordConfirm: "Str0ng&Long"}
	err := na.Validate(ctx, validate, svc, VariantStudent)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []core.FieldError{{Field: "email", Error: ErrEmailExists.Error()}}, vErr.Fields)

	na = NewAccount{Name: "Sam", Email: "not-an-email", Password: "Str0ng&Long", PasswordConfirm: "Str0ng&Lon"}
	err = na.Validate(ctx, validate, svc, VariantStudent)
	var vErrs validator.ValidationErrors
	require.ErrorAs(t, err, &vErrs)
	assert.Len(t, vErrs, 2)
}
