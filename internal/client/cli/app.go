package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/incidentdesk/internal/client/client"
	"github.com/dmitrijs2005/incidentdesk/internal/client/codec"
	"github.com/dmitrijs2005/incidentdesk/internal/client/config"
	"github.com/dmitrijs2005/incidentdesk/internal/client/migrations"
	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
	"github.com/dmitrijs2005/incidentdesk/internal/client/pipeline"
	"github.com/dmitrijs2005/incidentdesk/internal/client/repositories/notifications"
	"github.com/dmitrijs2005/incidentdesk/internal/client/services"
	"github.com/dmitrijs2005/incidentdesk/internal/client/session"
	"github.com/dmitrijs2005/incidentdesk/internal/client/tokenstore"
	"github.com/dmitrijs2005/incidentdesk/internal/dbx"
	"github.com/dmitrijs2005/incidentdesk/internal/filex"
	"github.com/dmitrijs2005/incidentdesk/internal/logging"
)

// Session is the part of session.Manager the CLI drives.
type Session interface {
	Login(ctx context.Context, username, password string) (models.UserProfile, error)
	Logout(ctx context.Context)
	IsAuthenticated() bool
	Profile() *models.UserProfile
	Subscribe() (<-chan session.State, func())
}

// Deps are the collaborators of an App.
type Deps struct {
	Session   Session
	Incidents services.IncidentService
	Profiles  services.ProfileService
	Inbox     services.InboxService
	Log       logging.Logger
}

type App struct {
	session   Session
	incidents services.IncidentService
	profiles  services.ProfileService
	inbox     services.InboxService
	log       logging.Logger

	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time
	closer io.Closer
}

// New builds an App reading commands from in and writing to out.
func New(d Deps, in io.Reader, out io.Writer) *App {
	log := d.Log
	if log == nil {
		log = logging.NewNop()
	}
	return &App{
		session:   d.Session,
		incidents: d.Incidents,
		profiles:  d.Profiles,
		inbox:     d.Inbox,
		log:       log,
		reader:    bufio.NewReader(in),
		out:       out,
		now:       time.Now,
	}
}

// NewApp wires the full client stack described by c: the local database,
// token store, session, request pipeline and services.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	vocab, err := codec.ParseVocabulary(string(c.WireVocabulary))
	if err != nil {
		return nil, err
	}

	if err := filex.EnsureParentDir(c.DatabasePath); err != nil {
		return nil, err
	}
	db, err := dbx.Open(ctx, c.DatabasePath, migrations.Migrations)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	httpc, err := client.NewHTTPClient(c.APIBaseURL, c.RequestTimeout, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	mgr, err := session.NewManager(ctx, httpc, tokenstore.NewSQLiteStore(db), log, session.WithProfilePath(c.ProfilePath))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	pipe := pipeline.New(httpc, mgr, log)
	inbox := services.NewInboxService(notifications.NewSQLiteRepository(db))

	app := New(Deps{
		Session:   mgr,
		Incidents: services.NewIncidentService(pipe, codec.New(vocab), inbox, log),
		Profiles:  services.NewProfileService(pipe, mgr, c.ProfilePath),
		Inbox:     inbox,
		Log:       log,
	}, in, out)
	app.closer = db
	return app, nil
}

// Close releases the local database, if NewApp opened one.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Run prints a greeting and serves the REPL until EOF or exit. Session state
// changes are logged in the background for as long as Run is active.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.WatchSession(ctx)

	a.println("Incident desk CLI (type 'help' for commands)")
	if !a.isLoggedIn() {
		a.println("You are not logged in. Use 'login' to sign in.")
	}
	runREPL(ctx, a, a.status, a.reader, a.out)
}

// WatchSession logs every session state transition until ctx is done.
func (a *App) WatchSession(ctx context.Context) {
	ch, cancel := a.session.Subscribe()
	defer cancel()

	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return
			}
			a.log.Info(ctx, "session state changed", "state", s.String())
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

// status is the prompt decoration: who is signed in and how many inbox
// messages are unread.
func (a *App) status() string {
	p := a.session.Profile()
	if p == nil || !a.isLoggedIn() {
		return "anonymous"
	}
	s := fmt.Sprintf("%s %s", p.Username, p.Role)
	if n, err := a.inbox.UnreadCount(context.Background()); err == nil && n > 0 {
		s += fmt.Sprintf(" | %d unread", n)
	}
	return s
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
