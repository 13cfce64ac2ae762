package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/digest"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp  = errors.New("help provided")
	errNoSQL = errors.New("migrations only apply to the postgres storage engine")
)

type commandLine struct {
	db     *sql.DB // nil unless the storage engine is postgres
	svc    *account.Service
	digest *digest.Digest
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                       - run goose migration commands (postgres only)")
	_, _ = fmt.Fprintln(cli.out, "  addadmin -email EMAIL [-name NAME]           - create or update an admin; the password is prompted")
	_, _ = fmt.Fprintln(cli.out, "  digest                                       - email the pending approvals digest now")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword -variant VARIANT -email EMAIL  - reset an account's password; the password is prompted")
}

func (cli *commandLine) readPassword() (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addAdminCmd := flag.NewFlagSet("addadmin", flag.ContinueOnError)
	addAdminEmail := addAdminCmd.String("email", "", "The admin's email.")
	addAdminName := addAdminCmd.String("name", "", "The admin's name. Defaults to the email.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordVariant := resetPasswordCmd.String("variant", string(account.VariantStudent), "The account variant: student, teacher or admin.")
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	for _, fs := range []*flag.FlagSet{addAdminCmd, resetPasswordCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addadmin":
		if err := addAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addAdminEmail == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		return cli.addAdmin(*addAdminName, *addAdminEmail, pwd)

	case "digest":
		return cli.runDigest()

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		v := account.Variant(*resetPasswordVariant)
		if *resetPasswordEmail == "" || !v.Valid() {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(v, *resetPasswordEmail, pwd)

	default:
		cli.printUsage()
		return errHelp
	}
}
