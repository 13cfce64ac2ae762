package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/digest"
	emailsvc "github.com/trezcool/admissions/services/email"
	"github.com/trezcool/admissions/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env) {
	env := testutil.NewEnv(t)
	env.Conf.Digest.OperatorEmail = "operator@test.cd"

	return &commandLine{
		db:     &sql.DB{},
		svc:    env.Svc,
		digest: digest.New(env.Svc, env.Notifier, env.Conf.Digest, env.Logger),
		out:    io.Discard,
	}, env
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(_ context.Context, command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}

	t.Run("no SQL storage", func(t *testing.T) {
		cli.db = nil
		defer func() { cli.db = &sql.DB{} }()
		assert.Equal(t, errNoSQL, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_addAdmin(t *testing.T) {
	cli, env := setup(t)
	ctx := context.Background()

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"addadmin"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"addadmin", "-email", "boss@test.cd"}, wantErr: errHelp},
		{name: "create", args: []string{"addadmin", "-email", "Boss@test.cd", "-name", "Boss"}, extra: extra{pwd: "lol"}},
		{name: "update", args: []string{"addadmin", "-email", "boss@test.cd", "-name", "Big Boss"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)

			admin, err := env.Repo.GetAccount(ctx, account.VariantAdmin, account.GetFilter{Email: "boss@test.cd"})
			require.NoError(t, err)
			assert.NoError(t, admin.CheckPassword(tt.extra.(extra).pwd))
			assert.True(t, admin.Approved())
		})
	}

	admins, err := env.Repo.FilterAccounts(ctx, account.VariantAdmin, account.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "Big Boss", admins[0].Name)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env := setup(t)

	acc := testutil.CreateAccount(t, env.Repo, account.VariantTeacher, "Teacher", "teacher@test.cd", "mdr", true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "invalid variant", args: []string{"resetpassword", "-variant", "lol", "-email", acc.Email}, extra: extra{pwd: "lol"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-variant", "teacher", "-email", acc.Email}, wantErr: errHelp},
		{name: "wrong variant", args: []string{"resetpassword", "-email", acc.Email}, extra: extra{pwd: "lol"}, wantErr: account.ErrNotFound},
		{name: "account not found", args: []string{"resetpassword", "-variant", "teacher", "-email", "lol@test.cd"}, extra: extra{pwd: "lol"}, wantErr: account.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-variant", "teacher", "-email", acc.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			refreshed := testutil.Refresh(t, env.Repo, acc)
			assert.False(t, bytes.Equal(refreshed.PasswordHash, acc.PasswordHash), "failed to update new password")
			assert.NoError(t, refreshed.CheckPassword("lmao"))
		})
	}
}

func Test_commandLine_digest(t *testing.T) {
	cli, env := setup(t)
	var out bytes.Buffer
	cli.out = &out

	require.NoError(t, cli.run([]string{"admin", "digest"}))
	assert.Contains(t, out.String(), "no account pending approval")
	assert.Empty(t, emailsvc.GetSentMessages())

	testutil.CreateAccount(t, env.Repo, account.VariantStudent, "Sam", "sam@x", "", false)
	testutil.CreateAccount(t, env.Repo, account.VariantTeacher, "Tia", "tia@x", "", false)

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "digest"}))
	assert.True(t, strings.HasPrefix(out.String(), "digest sent: 2 account(s) pending approval"))

	sent := emailsvc.GetSentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "operator@test.cd", sent[0].To[0].Address)
	assert.Equal(t, env.Conf.Digest.Subject, sent[0].Subject)
	assert.Equal(t,
		"Name: Tia | Email: tia@x | Needs approval for role: Teacher\nName: Sam | Email: sam@x | Needs approval for role: Student",
		sent[0].TextContent,
	)
}
