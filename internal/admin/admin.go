// Package admin implements the useradmin command: creating, listing and
// deleting accounts from a terminal.
package admin

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/standard/dreamcalendar/internal/common"
	"github.com/standard/dreamcalendar/internal/server/services"
	"golang.org/x/term"
)

// test seams
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

var ErrUsage = errors.New("usage: useradmin [config flags] create -email E -name N | list | delete -id ID")

// UserService is the subset of services.UserService the tool drives.
type UserService interface {
	Create(ctx context.Context, in services.UserDTO) (bool, error)
	FindAll(ctx context.Context) ([]services.UserDTO, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type CLI struct {
	svc UserService
	in  *bufio.Reader
	out io.Writer
}

func New(svc UserService, in io.Reader, out io.Writer) *CLI {
	return &CLI{svc: svc, in: bufio.NewReader(in), out: out}
}

// Run dispatches args[0] as the subcommand.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	switch args[0] {
	case "create":
		return c.create(ctx, args[1:])
	case "list":
		return c.list(ctx)
	case "delete":
		return c.delete(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], ErrUsage)
	}
}

func (c *CLI) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(c.out)
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *name == "" {
		return fmt.Errorf("create needs -email and -name: %w", ErrUsage)
	}

	password, err := c.getPassword("Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := c.getPassword("Repeat password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if len(password) == 0 {
		return errors.New("password must not be empty")
	}
	if !bytes.Equal(password, confirm) {
		return errors.New("passwords do not match")
	}

	ok, err := c.svc.Create(ctx, services.UserDTO{Email: *email, Name: *name, Password: string(password)})
	switch {
	case errors.Is(err, common.ErrorAlreadyExists):
		return fmt.Errorf("email %s is already registered", *email)
	case err != nil:
		return err
	case !ok:
		return errors.New("user was not created: password hashing is unavailable")
	}

	fmt.Fprintf(c.out, "Created %s\n", *email)
	return nil
}

func (c *CLI) list(ctx context.Context) error {
	users, err := c.svc.FindAll(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, u.Role)
	}
	return tw.Flush()
}

func (c *CLI) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(c.out)
	id := fs.Int64("id", 0, "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("delete needs a positive -id: %w", ErrUsage)
	}

	deleted, err := c.svc.Delete(ctx, *id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("user %d not found", *id)
	}

	fmt.Fprintf(c.out, "Deleted %d\n", *id)
	return nil
}

// getPassword reads without echo. When stdin is not a terminal it falls back
// to reading one line, so the tool can be scripted.
func (c *CLI) getPassword(prompt string) ([]byte, error) {
	fmt.Fprint(c.out, prompt)

	fd := int(os.Stdin.Fd())
	if isTerminal(fd) {
		pw, err := readPassword(fd)
		fmt.Fprintln(c.out)
		return pw, err
	}

	line, err := c.in.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}
