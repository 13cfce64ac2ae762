package main

import (
	"context"
	"fmt"
)

// addAdmin updates or creates an admin account
func (cli *commandLine) addAdmin(name, email, pwd string) error {
	acc, err := cli.svc.SaveAdmin(context.Background(), name, email, pwd)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "admin %s saved\n", acc.Email)
	return nil
}
