package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// credentialsFlags is shared by register and login.
type credentialsFlags struct {
	password string
}

func (c *credentialsFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.password, "password", "", "password (prompted when empty)")
}

func (c *credentialsFlags) read(f *flag.FlagSet) (string, string, error) {
	if f.NArg() != 1 {
		return "", "", fmt.Errorf("expected exactly one username")
	}
	password := c.password
	if password == "" {
		var err error
		if password, err = readPassword("Contraseña: "); err != nil {
			return "", "", err
		}
	}
	return f.Arg(0), password, nil
}

type registerCmd struct{ credentialsFlags }

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create a user account" }
func (*registerCmd) Usage() string {
	return `ledgerctl register [-password <p>] <username>

  Creates an account. Use login afterwards to start a session.
`
}

func (c *registerCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	username, password, err := c.read(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	s, err := openSession(false)
	if err != nil {
		return fail(err)
	}
	if err := s.api.Register(ctx, username, password); err != nil {
		return fail(err)
	}
	fmt.Println("Usuario registrado exitosamente.")
	return subcommands.ExitSuccess
}

type loginCmd struct{ credentialsFlags }

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "start a session and store its token" }
func (*loginCmd) Usage() string {
	return `ledgerctl login [-password <p>] <username>

  Logs in and stores the session token for the other commands.
`
}

func (c *loginCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	username, password, err := c.read(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	s, err := openSession(false)
	if err != nil {
		return fail(err)
	}
	token, err := s.api.Login(ctx, username, password)
	if err != nil {
		return fail(err)
	}
	if err := s.tokens.Save(token); err != nil {
		return fail(err)
	}
	fmt.Printf("Sesión iniciada como %s.\n", username)
	return subcommands.ExitSuccess
}

type logoutCmd struct{}

func (*logoutCmd) Name() string           { return "logout" }
func (*logoutCmd) Synopsis() string       { return "forget the stored session token" }
func (*logoutCmd) Usage() string          { return "ledgerctl logout\n" }
func (*logoutCmd) SetFlags(*flag.FlagSet) {}

func (*logoutCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	s, err := openSession(false)
	if err != nil {
		return fail(err)
	}
	if err := s.tokens.Clear(); err != nil {
		return fail(err)
	}
	fmt.Println("Sesión cerrada.")
	return subcommands.ExitSuccess
}
