// Command ledgerctl is a terminal client for the ledger API.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

var (
	serverURL = flag.String("server", "", "API base URL (default $LEDGER_SERVER or http://localhost:8081)")
	tokenFile = flag.String("token-file", "", "session token file (default <user config dir>/ledger/token)")
	verbose   = flag.Bool("v", false, "log request failures to stderr")
)

type group struct {
	name     string
	commands []subcommands.Command
}

func groups() []group {
	return []group{
		{"session", []subcommands.Command{&registerCmd{}, &loginCmd{}, &logoutCmd{}}},
		{"transactions", []subcommands.Command{&listCmd{}, &addCmd{}, &editCmd{}, &deleteCmd{}}},
		{"reports", []subcommands.Command{&summaryCmd{}, &exportCmd{}}},
	}
}

func main() {
	name := path.Base(os.Args[0])
	// Exits when invoked by the shell for completion.
	completion(groups()).Complete(name)

	_ = godotenv.Load()

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, g := range groups() {
		for _, c := range g.commands {
			commander.Register(c, g.name)
		}
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
