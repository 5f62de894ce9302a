package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface runREPL dispatches to. App satisfies it;
// tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Assigned(ctx context.Context) error
	Show(ctx context.Context, args []string) error
	New(ctx context.Context) error
	Status(ctx context.Context, args []string) error
	Assign(ctx context.Context, args []string) error
	Comment(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	Inbox(ctx context.Context) error
	Read(ctx context.Context, args []string) error
	DeleteNotification(ctx context.Context, args []string) error
	ClearInbox(ctx context.Context) error
	report(ctx context.Context, err error)
}

const (
	helpAnonymous = "Available commands: login, help, exit"
	helpSignedIn  = "Available commands: whoami, list [status], assigned, show <id>, new, " +
		"status <id> <status>, assign <id> <user-id>, comment <id> <text>, " +
		"history [today|week|month|all], inbox, read <id>, delete <id>, clear-inbox, logout, help, exit"
)

// errLoginRequired is reported when a signed-in command runs anonymously.
var errLoginRequired = errors.New("you are not logged in, use 'login' first")

// runREPL reads one command per line from reader and dispatches it to a. The
// loop ends on EOF or on "exit"/"quit". Errors from handlers go to a.report so
// one failing command never stops the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	for {
		fmt.Fprintf(out, "incidents (%s)> ", statusFn())

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(out, helpSignedIn)
			} else {
				fmt.Fprintln(out, helpAnonymous)
			}
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "whoami", "list", "l", "assigned", "show", "new", "status", "assign",
			"comment", "history", "inbox", "read", "delete", "clear-inbox":
			if !a.isLoggedIn() {
				cmdErr = errLoginRequired
				break
			}
			cmdErr = dispatch(ctx, a, cmd, args)
		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
			continue
		}

		if cmdErr != nil {
			a.report(ctx, cmdErr)
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "whoami":
		return a.WhoAmI(ctx)
	case "list", "l":
		return a.List(ctx, args)
	case "assigned":
		return a.Assigned(ctx)
	case "show":
		return a.Show(ctx, args)
	case "new":
		return a.New(ctx)
	case "status":
		return a.Status(ctx, args)
	case "assign":
		return a.Assign(ctx, args)
	case "comment":
		return a.Comment(ctx, args)
	case "history":
		return a.History(ctx, args)
	case "inbox":
		return a.Inbox(ctx)
	case "read":
		return a.Read(ctx, args)
	case "delete":
		return a.DeleteNotification(ctx, args)
	case "clear-inbox":
		return a.ClearInbox(ctx)
	}
	return fmt.Errorf("unknown command %q", cmd)
}
