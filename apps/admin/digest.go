package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) runDigest() error {
	rep, err := cli.digest.Run(context.Background())
	if err != nil {
		return err
	}
	if !rep.Sent {
		_, _ = fmt.Fprintln(cli.out, "no account pending approval")
		return nil
	}
	_, _ = fmt.Fprintf(cli.out, "digest sent: %d account(s) pending approval\n%s\n", len(rep.Pending), rep.Body)
	return nil
}
