package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	loggedIn bool

	calls    []string
	args     [][]string
	reported []error
	failWith error
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return f.failWith
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login", nil)
}
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout", nil)
}
func (f *fakeExec) WhoAmI(context.Context) error             { return f.record("whoami", nil) }
func (f *fakeExec) List(_ context.Context, a []string) error { return f.record("list", a) }
func (f *fakeExec) Assigned(context.Context) error           { return f.record("assigned", nil) }
func (f *fakeExec) Show(_ context.Context, a []string) error { return f.record("show", a) }
func (f *fakeExec) New(context.Context) error                { return f.record("new", nil) }
func (f *fakeExec) Status(_ context.Context, a []string) error {
	return f.record("status", a)
}
func (f *fakeExec) Assign(_ context.Context, a []string) error {
	return f.record("assign", a)
}
func (f *fakeExec) Comment(_ context.Context, a []string) error {
	return f.record("comment", a)
}
func (f *fakeExec) History(_ context.Context, a []string) error {
	return f.record("history", a)
}
func (f *fakeExec) Inbox(context.Context) error              { return f.record("inbox", nil) }
func (f *fakeExec) Read(_ context.Context, a []string) error { return f.record("read", a) }
func (f *fakeExec) DeleteNotification(_ context.Context, a []string) error {
	return f.record("delete", a)
}
func (f *fakeExec) ClearInbox(context.Context) error    { return f.record("clear-inbox", nil) }
func (f *fakeExec) report(_ context.Context, err error) { f.reported = append(f.reported, err) }

func lines(ls ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(ls, "\n") + "\n"))
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	exec := &fakeExec{}
	var out bytes.Buffer

	runREPL(context.Background(), exec, func() string { return "s" }, lines(
		"help",
		"login",
		"help",
		"list pending",
		"assigned",
		"show 7",
		"status 7 resolved",
		"assign 7 3",
		"comment 7 on my way",
		"history month",
		"inbox",
		"read abc",
		"delete abc",
		"clear-inbox",
		"whoami",
		"new",
		"",
		"logout",
		"exit",
		"list",
	), &out)

	assert.Equal(t, []string{
		"login", "list", "assigned", "show", "status", "assign", "comment",
		"history", "inbox", "read", "delete", "clear-inbox", "whoami", "new", "logout",
	}, exec.calls)
	assert.Equal(t, []string{"abc"}, exec.args[10])
	assert.Equal(t, []string{"7", "on", "my", "way"}, exec.args[6])
	assert.Contains(t, out.String(), helpAnonymous)
	assert.Contains(t, out.String(), helpSignedIn)
	assert.Contains(t, out.String(), "Bye!")
	assert.Empty(t, exec.reported)
}

func TestRunREPL_AnonymousCommandsAreRejected(t *testing.T) {
	exec := &fakeExec{}
	var out bytes.Buffer

	runREPL(context.Background(), exec, func() string { return "anonymous" }, lines("list", "inbox"), &out)

	assert.Empty(t, exec.calls)
	require.Len(t, exec.reported, 2)
	assert.ErrorIs(t, exec.reported[0], errLoginRequired)
	assert.Contains(t, out.String(), "incidents (anonymous)> ")
}

func TestRunREPL_ErrorsAreReportedAndLoopContinues(t *testing.T) {
	boom := errors.New("boom")
	exec := &fakeExec{loggedIn: true, failWith: boom}
	var out bytes.Buffer

	runREPL(context.Background(), exec, func() string { return "s" }, lines("list", "frobnicate", "inbox", "quit"), &out)

	assert.Equal(t, []string{"list", "inbox"}, exec.calls)
	assert.Equal(t, []error{boom, boom}, exec.reported)
	assert.Contains(t, out.String(), "Unknown command: frobnicate")
}

func TestRunREPL_StopsAtEOF(t *testing.T) {
	exec := &fakeExec{loggedIn: true}
	var out bytes.Buffer

	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewReader(strings.NewReader("inbox")), &out)

	assert.Equal(t, []string{"inbox"}, exec.calls, "a final line without newline still runs")
}
