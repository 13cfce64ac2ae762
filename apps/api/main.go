package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/admissions/apps/api/di"
	echoapi "github.com/trezcool/admissions/apps/api/echo"
	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/digest"
	"github.com/trezcool/admissions/core/notify"
	logsvc "github.com/trezcool/admissions/services/logger"
)

func main() {
	c := di.New()

	must(c.Invoke(func(
		conf *core.Config,
		rollbarLogger *logsvc.RollbarLogger,
		logger core.Logger,
		store *di.Store,
		outbox *notify.Outbox,
		scheduler *digest.Scheduler,
		accountSvc *account.Service,
		validate *validator.Validate,
		translator ut.Translator,
	) {
		// =========================================================================
		// Initialize App

		logger.Info(fmt.Sprintf("Application initializing : version %q, storage %q", conf.Build, conf.Storage.Engine))
		defer rollbarLogger.Sync()
		defer logger.Info("Application stopped")

		account.LoadCommonPasswords(conf.WorkDir, logger)

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start background workers

		outbox.Start()
		if conf.Digest.Enabled {
			scheduler.Start()
		}

		// =========================================================================
		// Start API Service

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		server := echoapi.NewServer(&echoapi.Options{
			Conf:   conf,
			Logger: logger,
			SignalShutdown: func() {
				select {
				case shutdown <- syscall.SIGTERM:
				default:
				}
			},
			AccountSvc: accountSvc,
			Validate:   validate,
			Translator: translator,
		})

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
			serverErrors <- server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-serverErrors:
			logger.Error(fmt.Sprintf("server error: %v", err), err)

		case sig := <-shutdown:
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		}

		// give outstanding requests & fan-out tasks a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
		if conf.Digest.Enabled {
			if err := scheduler.Stop(ctx); err != nil {
				logger.Error(fmt.Sprintf("could not stop digest scheduler: %v", err), err)
			}
		}
		if err := outbox.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not drain outbox: %v", err), err)
		}
		if err := store.Close(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not close storage: %v", err), err)
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
