package main

import (
	"context"

	"github.com/trezcool/admissions/core/account"
)

func (cli *commandLine) resetPassword(v account.Variant, email, pwd string) error {
	return cli.svc.ResetPassword(context.Background(), v, email, pwd)
}
