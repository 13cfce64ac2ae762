// Package di wires the API & admin processes with a dig container.
package di

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/digest"
	"github.com/trezcool/admissions/core/notify"
	emailsvc "github.com/trezcool/admissions/services/email"
	logsvc "github.com/trezcool/admissions/services/logger"
	"github.com/trezcool/admissions/storage/database"
	inmemdb "github.com/trezcool/admissions/storage/database/inmem"
	mongorepos "github.com/trezcool/admissions/storage/database/mongo"
	sqlxrepos "github.com/trezcool/admissions/storage/database/sqlx"
)

// Store is the account store selected by `storage.engine`, along with its lifecycle.
type Store struct {
	Repo  account.Repository
	SQL   *sql.DB // nil unless the engine is postgres
	close func(ctx context.Context) error
}

func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

func newRollbarLogger(conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(logsvc.NewZapLogger(conf.Env), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newLogger(l *logsvc.RollbarLogger) core.Logger { return l }

func newStore(conf *core.Config, logger core.Logger) *Store {
	ctx := context.Background()

	setUp := func() (*Store, error) {
		switch conf.Storage.Engine {
		case core.StorageMemory:
			return &Store{Repo: inmemdb.NewAccountRepository(inmemdb.NewDB())}, nil

		case core.StoragePostgres:
			if err := database.CreateIfNotExist(ctx, conf); err != nil {
				return nil, err
			}
			db, err := database.Open(ctx, conf)
			if err != nil {
				return nil, err
			}
			if err = database.Migrate(ctx, db.DB); err != nil {
				_ = db.Close()
				return nil, err
			}
			return &Store{
				Repo:  sqlxrepos.NewAccountRepository(db),
				SQL:   db.DB,
				close: func(context.Context) error { return db.Close() },
			}, nil

		case core.StorageMongo:
			db, err := database.OpenMongo(ctx, conf)
			if err != nil {
				return nil, err
			}
			if err = mongorepos.EnsureIndexes(ctx, db); err != nil {
				_ = db.Client().Disconnect(ctx)
				return nil, err
			}
			return &Store{
				Repo:  mongorepos.NewAccountRepository(db),
				close: db.Client().Disconnect,
			}, nil
		}
		return nil, errors.Errorf("unknown storage engine %q", conf.Storage.Engine)
	}

	store, err := setUp()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up %s storage: %v", conf.Storage.Engine, err), err)
	}
	return store
}

func newRepository(s *Store) account.Repository { return s.Repo }

func newEmailService(conf *core.Config) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf)
}

func newOutbox(conf *core.Config, logger core.Logger) *notify.Outbox {
	return notify.NewOutbox(logger, conf.Outbox)
}

func newNotifier(n *notify.Notifier) account.Notifier { return n }

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	return validate
}

func newDigest(svc *account.Service, n *notify.Notifier, conf *core.Config, logger core.Logger) *digest.Digest {
	return digest.New(svc, n, conf.Digest, logger)
}

func newScheduler(d *digest.Digest, conf *core.Config, logger core.Logger) (*digest.Scheduler, error) {
	return digest.NewScheduler(d, conf.Digest, logger)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newRollbarLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newStore))
	must(c.Provide(newRepository))
	must(c.Provide(newEmailService))
	must(c.Provide(newOutbox))
	must(c.Provide(notify.NewNotifier))
	must(c.Provide(newNotifier))
	must(c.Provide(account.NewService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newDigest))
	must(c.Provide(newScheduler))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

