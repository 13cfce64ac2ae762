package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/admissions/apps/api/di"
	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/digest"
	"github.com/trezcool/admissions/core/notify"
)

func main() {
	c := di.New()

	var code int
	err := c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		store *di.Store,
		outbox *notify.Outbox,
		svc *account.Service,
		d *digest.Digest,
	) {
		outbox.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()
			if err := outbox.Stop(ctx); err != nil {
				logger.Error(fmt.Sprintf("could not drain outbox: %v", err), err)
			}
			if err := store.Close(ctx); err != nil {
				logger.Error(fmt.Sprintf("could not close storage: %v", err), err)
			}
		}()

		cli := commandLine{
			db:     store.SQL,
			svc:    svc,
			digest: d,
			out:    os.Stdout,
		}
		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				log.Printf("\nerror: %s\n", err)
			}
			code = 1
		}
	})
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(code)
}
