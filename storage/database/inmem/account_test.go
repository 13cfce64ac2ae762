package inmemdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core/account"
)

func newAccount(v account.Variant, name, email string, createdAt time.Time) account.Account {
	return account.Account{Variant: v, Name: name, Email: email, CreatedAt: createdAt, UpdatedAt: createdAt}
}

func TestAccountRepository(t *testing.T) {
	db := NewDB()
	repo := NewAccountRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	sam, err := repo.CreateAccount(ctx, newAccount(account.VariantStudent, "Sam", "sam@x", now.Add(time.Minute)))
	require.NoError(t, err)
	sid, err := repo.CreateAccount(ctx, newAccount(account.VariantStudent, "Sid", "sid@x", now))
	require.NoError(t, err)

	t.Run("create", func(t *testing.T) {
		assert.NotEmpty(t, sam.ID)
		assert.Equal(t, []string{}, sam.Notifications)

		_, err := repo.CreateAccount(ctx, newAccount(account.VariantStudent, "Sam 2", "sam@x", now))
		assert.Equal(t, account.ErrEmailExists, err)
		assert.Equal(t, account.ErrEmailExists, repo.CheckEmailUniqueness(ctx, account.VariantStudent, "sam@x"))

		// variants are independent
		assert.NoError(t, repo.CheckEmailUniqueness(ctx, account.VariantTeacher, "sam@x"))
		_, err = repo.CreateAccount(ctx, newAccount(account.VariantTeacher, "Sam", "sam@x", now))
		assert.NoError(t, err)

		_, err = repo.CreateAccount(ctx, newAccount("lol", "Lol", "lol@x", now))
		assert.Equal(t, account.ErrInvalidVariant, err)
	})

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetAccount(ctx, account.VariantStudent, account.GetFilter{Email: "sam@x"})
		require.NoError(t, err)
		assert.Equal(t, sam, got)

		_, err = repo.GetAccount(ctx, account.VariantStudent, account.GetFilter{})
		assert.Equal(t, account.ErrNotFound, err)
		_, err = repo.GetAccount(ctx, account.VariantAdmin, account.GetFilter{ID: sam.ID})
		assert.Equal(t, account.ErrNotFound, err)
	})

	t.Run("records are detached", func(t *testing.T) {
		got, err := repo.GetAccount(ctx, account.VariantStudent, account.GetFilter{ID: sam.ID})
		require.NoError(t, err)
		got.Notifications = append(got.Notifications, "sneaky")
		got.Name = "Sneaky"

		again, err := repo.GetAccount(ctx, account.VariantStudent, account.GetFilter{ID: sam.ID})
		require.NoError(t, err)
		assert.Equal(t, "Sam", again.Name)
		assert.Empty(t, again.Notifications)
	})

	t.Run("filter", func(t *testing.T) {
		all, err := repo.FilterAccounts(ctx, account.VariantStudent, account.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, sid.ID, all[0].ID)
		assert.Equal(t, sam.ID, all[1].ID)

		approved := true
		none, err := repo.FilterAccounts(ctx, account.VariantStudent, account.QueryFilter{IsApproved: &approved})
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("update", func(t *testing.T) {
		teacher := "tia@x"
		got, err := repo.UpdateAccount(ctx, account.VariantStudent, account.GetFilter{Email: "sid@x"}, account.Update{
			Approve:         true,
			AssignedTeacher: &teacher,
		})
		require.NoError(t, err)
		assert.True(t, got.IsApproved)
		assert.False(t, got.IsTeacher)
		assert.Equal(t, teacher, got.AssignedTeacher)

		_, err = repo.UpdateAccount(ctx, account.VariantStudent, account.GetFilter{Email: "lol@x"}, account.Update{Approve: true})
		assert.Equal(t, account.ErrNotFound, err)
	})

	t.Run("notifications", func(t *testing.T) {
		require.NoError(t, repo.PushNotification(ctx, account.VariantStudent, account.GetFilter{ID: sam.ID}, "one"))
		require.NoError(t, repo.PushNotification(ctx, account.VariantStudent, account.GetFilter{Email: "sam@x"}, "two"))
		assert.Equal(t, account.ErrNotFound, repo.PushNotification(ctx, account.VariantStudent, account.GetFilter{Email: "lol@x"}, "lost"))

		n, err := repo.PushNotificationAll(ctx, account.VariantStudent, "all")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		got, err := repo.GetAccount(ctx, account.VariantStudent, account.GetFilter{ID: sam.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two", "all"}, got.Notifications)

		n, err = repo.PushNotificationAll(ctx, account.VariantAdmin, "nobody")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("concurrent appends", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, repo.PushNotification(ctx, account.VariantStudent, account.GetFilter{ID: sid.ID}, "hey"))
			}()
		}
		wg.Wait()

		got, err := repo.GetAccount(ctx, account.VariantStudent, account.GetFilter{ID: sid.ID})
		require.NoError(t, err)
		assert.Len(t, got.Notifications, 51)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteAccount(ctx, account.VariantStudent, account.GetFilter{ID: sam.ID}))
		assert.Equal(t, account.ErrNotFound, repo.DeleteAccount(ctx, account.VariantStudent, account.GetFilter{ID: sam.ID}))
		assert.NoError(t, repo.CheckEmailUniqueness(ctx, account.VariantStudent, "sam@x"))
	})

	t.Run("reset", func(t *testing.T) {
		db.Reset()
		all, err := repo.FilterAccounts(ctx, account.VariantStudent, account.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}
