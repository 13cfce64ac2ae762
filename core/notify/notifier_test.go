package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/notify"
	emailsvc "github.com/trezcool/admissions/services/email"
	"github.com/trezcool/admissions/tests"
)

func TestNotifier(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	sam := testutil.CreateAccount(t, env.Repo, account.VariantStudent, "Sam", "sam@x", "", false)
	adm1 := testutil.CreateAccount(t, env.Repo, account.VariantAdmin, "Adam", "adam@x", "", true)
	adm2 := testutil.CreateAccount(t, env.Repo, account.VariantAdmin, "Ada", "ada@x", "", true)

	t.Run("append", func(t *testing.T) {
		require.NoError(t, env.Notifier.Append(ctx, account.VariantStudent, account.GetFilter{Email: "sam@x"}, "one"))
		require.NoError(t, env.Notifier.Append(ctx, account.VariantStudent, account.GetFilter{ID: sam.ID}, "two"))
		assert.Equal(t, []string{"one", "two"}, testutil.Refresh(t, env.Repo, sam).Notifications)

		err := env.Notifier.Append(ctx, account.VariantTeacher, account.GetFilter{Email: "sam@x"}, "lost")
		assert.Equal(t, account.ErrNotFound, err)
	})

	t.Run("broadcast", func(t *testing.T) {
		env.Notifier.BroadcastToAdmins("hello admins")
		assert.Equal(t, []string{"hello admins"}, testutil.Refresh(t, env.Repo, adm1).Notifications)
		assert.Equal(t, []string{"hello admins"}, testutil.Refresh(t, env.Repo, adm2).Notifications)
		assert.Len(t, testutil.Refresh(t, env.Repo, sam).Notifications, 2)
	})

	t.Run("email", func(t *testing.T) {
		env.Notifier.Email("sam@x", "Hi", "Welcome.")
		env.Notifier.Email("  ", "Hi", "Lost.")

		sent := emailsvc.GetSentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "sam@x", sent[0].To[0].Address)
		assert.Equal(t, "Hi", sent[0].Subject)
		assert.Equal(t, "Welcome.", sent[0].TextContent)
		assert.Contains(t, sent[0].HTMLContent, "<p>Welcome.</p>")
	})

	t.Run("send email", func(t *testing.T) {
		assert.EqualError(t, env.Notifier.SendEmail(ctx, "", "Hi", "body"), "email has no recipient")

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, env.Notifier.SendEmail(cctx, "sam@x", "Hi", "body"), context.Canceled)
	})
}

func TestNotifier_queued(t *testing.T) {
	env := testutil.NewEnv(t)

	adm := testutil.CreateAccount(t, env.Repo, account.VariantAdmin, "Adam", "adam@x", "", true)
	outbox := notify.NewOutbox(env.Logger, env.Conf.Outbox)
	outbox.Start()
	n := notify.NewNotifier(env.Repo, env.Mailer, outbox, env.Logger)

	n.BroadcastToAdmins("first")
	n.BroadcastToAdmins("second")
	n.Email("adam@x", "Hi", "queued")
	require.NoError(t, outbox.Stop(context.Background()))

	assert.Equal(t, []string{"first", "second"}, testutil.Refresh(t, env.Repo, adm).Notifications)
	assert.Len(t, emailsvc.GetSentMessages(), 1)
}
