// Package inmemdb is a process-local account store, used in DEV and in tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/admissions/core/account"
)

type table map[string]*account.Account

type DB struct {
	mutex  sync.RWMutex
	tables map[account.Variant]table
}

func NewDB() *DB {
	db := &DB{tables: make(map[account.Variant]table, len(account.Variants))}
	for _, v := range account.Variants {
		db.tables[v] = make(table)
	}
	return db
}

// Reset drops every record.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	for _, v := range account.Variants {
		db.tables[v] = make(table)
	}
}
