package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"ledger/internal/client"
	"ledger/internal/core"
	"ledger/internal/log"

	"github.com/google/subcommands"
	"golang.org/x/term"
)

const defaultServer = "http://localhost:8081"

type session struct {
	api    *client.API
	tokens *client.TokenStore
}

// openSession builds the API client. With authenticated set, the stored
// token is loaded and a missing or expired one is an error.
func openSession(authenticated bool) (*session, error) {
	base := *serverURL
	if base == "" {
		base = os.Getenv("LEDGER_SERVER")
	}
	if base == "" {
		base = defaultServer
	}

	file := *tokenFile
	if file == "" {
		var err error
		if file, err = client.DefaultTokenPath(); err != nil {
			return nil, err
		}
	}
	s := &session{api: client.NewAPI(base), tokens: client.NewTokenStore(file)}

	if authenticated {
		token, err := s.tokens.Load()
		if err != nil {
			return nil, err
		}
		s.api.SetToken(token)
	}
	return s, nil
}

// controller returns a form controller over the server's current list.
// Notifications go to stderr.
func (s *session) controller(ctx context.Context) (*client.FormController, error) {
	out := io.Discard
	if *verbose {
		out = os.Stderr
	}
	logger := log.NewText(out, slog.LevelDebug, log.ComponentClient)
	c := client.NewFormController(s.api, client.WriterNotifier(os.Stderr), logger)
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// fail prints err and maps it to an exit status.
func fail(err error) subcommands.ExitStatus {
	switch {
	case errors.Is(err, client.ErrNoSession):
		fmt.Fprintln(os.Stderr, "No hay sesión activa. Ejecuta: ledgerctl login <usuario>")
	case errors.Is(err, client.ErrCancelled):
		fmt.Fprintln(os.Stderr, "Operación cancelada.")
		return subcommands.ExitSuccess
	default:
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			fmt.Fprintln(os.Stderr, apiErr.Message)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	return subcommands.ExitFailure
}

// readPassword prompts on stderr and reads without echo when stdin is a
// terminal, otherwise it reads one line.
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return readLine(os.Stdin)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question on stderr; anything but y/s/yes/si is no.
func confirm(in io.Reader, question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	answer, err := readLine(in)
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "s", "si", "sí":
		return true
	}
	return false
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid transaction id %q", core.ErrValidation, arg)
	}
	return id, nil
}
