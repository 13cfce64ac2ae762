package testutil

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/notify"
	emailsvc "github.com/trezcool/admissions/services/email"
	logsvc "github.com/trezcool/admissions/services/logger"
	inmemdb "github.com/trezcool/admissions/storage/database/inmem"
)

// Env bundles the collaborators of a test: every fan-out runs synchronously.
type Env struct {
	Conf     *core.Config
	Logger   core.Logger
	Repo     account.Repository
	Mailer   core.EmailService
	Notifier *notify.Notifier
	Svc      *account.Service
}

func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	return conf
}

// NewLogger returns a silent logger with Rollbar reporting disabled.
func NewLogger() core.Logger {
	logger := logsvc.NewRollbarLogger(zap.NewNop(), NewConfig())
	logger.Enable(false)
	return logger
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	emailsvc.ResetSentMessages()

	conf := NewConfig()
	logger := NewLogger()
	repo := inmemdb.NewAccountRepository(inmemdb.NewDB())
	mailer := emailsvc.NewConsoleServiceMock(conf)
	notifier := notify.NewNotifier(repo, mailer, notify.NewSyncOutbox(logger), logger)
	return &Env{
		Conf:     conf,
		Logger:   logger,
		Repo:     repo,
		Mailer:   mailer,
		Notifier: notifier,
		Svc:      account.NewService(repo, notifier, logger),
	}
}

func CreateAccount(
	t *testing.T,
	repo account.Repository,
	v account.Variant,
	name, email, pwd string,
	approved bool,
	createdAt ...time.Time,
) account.Account {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	acc := account.Account{
		Variant:       v,
		Name:          name,
		Email:         email,
		IsApproved:    approved || v == account.VariantAdmin,
		IsTeacher:     approved && v == account.VariantTeacher,
		Notifications: []string{},
		CreatedAt:     tstamp,
		UpdatedAt:     tstamp,
	}
	if pwd != "" {
		if err := acc.SetPassword(pwd); err != nil {
			t.Fatalf("CreateAccount() failed: %v", err)
		}
	}
	acc, err := repo.CreateAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}

// Refresh re-reads `acc` from `repo`.
func Refresh(t *testing.T, repo account.Repository, acc account.Account) account.Account {
	t.Helper()
	fresh, err := repo.GetAccount(context.Background(), acc.Variant, account.GetFilter{ID: acc.ID})
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	return fresh
}
