package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/admissions/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db}
}

// copyAccount detaches the stored record from the returned one.
func copyAccount(acc *account.Account) account.Account {
	cp := *acc
	cp.PasswordHash = append([]byte(nil), acc.PasswordHash...)
	cp.Notifications = append(make([]string, 0, len(acc.Notifications)), acc.Notifications...)
	if acc.ExpertiseInSubjects != nil {
		cp.ExpertiseInSubjects = append([]string(nil), acc.ExpertiseInSubjects...)
	}
	if acc.ParentsDetails != nil {
		pd := *acc.ParentsDetails
		cp.ParentsDetails = &pd
	}
	return cp
}

func (repo *accountRepository) table(v account.Variant) (table, error) {
	t, ok := repo.db.tables[v]
	if !ok {
		return nil, account.ErrInvalidVariant
	}
	return t, nil
}

// find must be called with the lock held.
func (repo *accountRepository) find(v account.Variant, filter account.GetFilter) (*account.Account, error) {
	t, err := repo.table(v)
	if err != nil {
		return nil, err
	}
	if filter.ID != "" {
		if acc, ok := t[filter.ID]; ok {
			return acc, nil
		}
		return nil, account.ErrNotFound
	}
	if filter.Email != "" {
		for _, acc := range t {
			if acc.Email == filter.Email {
				return acc, nil
			}
		}
	}
	return nil, account.ErrNotFound
}

// sorted returns the records of t by creation date, must be called with the lock held.
func sorted(t table) []*account.Account {
	accs := make([]*account.Account, 0, len(t))
	for _, acc := range t {
		accs = append(accs, acc)
	}
	sort.Slice(accs, func(i, j int) bool {
		if accs[i].CreatedAt.Equal(accs[j].CreatedAt) {
			return accs[i].ID < accs[j].ID
		}
		return accs[i].CreatedAt.Before(accs[j].CreatedAt)
	})
	return accs
}

func (repo *accountRepository) CheckEmailUniqueness(_ context.Context, v account.Variant, email string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	_, err := repo.find(v, account.GetFilter{Email: email})
	switch err {
	case nil:
		return account.ErrEmailExists
	case account.ErrNotFound:
		return nil
	default:
		return err
	}
}

func (repo *accountRepository) CreateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t, err := repo.table(acc.Variant)
	if err != nil {
		return account.Account{}, err
	}
	if _, err = repo.find(acc.Variant, account.GetFilter{Email: acc.Email}); err == nil {
		return account.Account{}, account.ErrEmailExists
	}

	acc.ID = uuid.NewString()
	if acc.Notifications == nil {
		acc.Notifications = []string{}
	}
	stored := copyAccount(&acc)
	t[acc.ID] = &stored
	return copyAccount(&stored), nil
}

func (repo *accountRepository) GetAccount(_ context.Context, v account.Variant, filter account.GetFilter) (account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	acc, err := repo.find(v, filter)
	if err != nil {
		return account.Account{}, err
	}
	return copyAccount(acc), nil
}

func (repo *accountRepository) FilterAccounts(_ context.Context, v account.Variant, filter account.QueryFilter) ([]account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	t, err := repo.table(v)
	if err != nil {
		return nil, err
	}
	accs := make([]account.Account, 0)
	for _, acc := range sorted(t) {
		if filter.IsApproved != nil && acc.IsApproved != *filter.IsApproved {
			continue
		}
		accs = append(accs, copyAccount(acc))
	}
	return accs, nil
}

func (repo *accountRepository) UpdateAccount(_ context.Context, v account.Variant, filter account.GetFilter, upd account.Update) (account.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	acc, err := repo.find(v, filter)
	if err != nil {
		return account.Account{}, err
	}
	upd.Apply(acc)
	return copyAccount(acc), nil
}

func (repo *accountRepository) PushNotification(_ context.Context, v account.Variant, filter account.GetFilter, msg string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	acc, err := repo.find(v, filter)
	if err != nil {
		return err
	}
	acc.Notifications = append(acc.Notifications, msg)
	return nil
}

func (repo *accountRepository) PushNotificationAll(_ context.Context, v account.Variant, msg string) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t, err := repo.table(v)
	if err != nil {
		return 0, err
	}
	for _, acc := range t {
		acc.Notifications = append(acc.Notifications, msg)
	}
	return int64(len(t)), nil
}

func (repo *accountRepository) DeleteAccount(_ context.Context, v account.Variant, filter account.GetFilter) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	acc, err := repo.find(v, filter)
	if err != nil {
		return err
	}
	delete(repo.db.tables[v], acc.ID)
	return nil
}
