package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/incidentdesk/internal/client/client"
	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
	"github.com/dmitrijs2005/incidentdesk/internal/client/repositories/notifications"
	"github.com/dmitrijs2005/incidentdesk/internal/client/services"
)

const timeLayout = "2006-01-02 15:04"

// usageError carries the expected syntax of a command.
type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

var errManagersOnly = errors.New("only managers can assign incidents")

func parseID(args []string, i int, usage string) (int64, error) {
	if len(args) <= i {
		return 0, usageError(usage)
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError(usage)
	}
	return id, nil
}

// report prints err for the user. A NotAuthenticated error means the session
// could not be renewed, so the local session is dropped as well.
func (a *App) report(ctx context.Context, err error) {
	a.log.Debug(ctx, "command failed", "error", err)

	var usage usageError
	switch {
	case errors.As(err, &usage):
		a.println("Usage:", string(usage))
	case errors.Is(err, client.ErrNotAuthenticated):
		a.session.Logout(ctx)
		a.println("Your session has expired. Please log in again with 'login'.")
	case errors.Is(err, client.ErrInvalidCredentials):
		a.println("Invalid username or password.")
	case errors.Is(err, client.ErrValidation):
		a.println("Please correct the following:")
		fields := client.FieldErrors(err)
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			a.printf("  %s: %s\n", name, strings.Join(fields[name], " "))
		}
	case errors.Is(err, client.ErrNotFound):
		a.println("Not found.")
	case errors.Is(err, notifications.ErrNotFound):
		a.println("No such notification.")
	case errors.Is(err, client.ErrNetwork):
		a.println("Cannot reach the server:", err)
	default:
		a.println("Error:", err)
	}
}

func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		a.println("Already logged in. Use 'logout' first.")
		return nil
	}

	username, err := GetSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.reader, a.out)
	if err != nil {
		return err
	}

	p, err := a.session.Login(ctx, username, password)
	if err != nil {
		return err
	}
	a.printf("Welcome, %s (%s)\n", p.FullName(), p.Role)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.session.Logout(ctx)
	a.println("Logged out.")
	return nil
}

// WhoAmI prints the server's view of the current user, or the cached profile
// when the server cannot be reached.
func (a *App) WhoAmI(ctx context.Context) error {
	p, err := a.profiles.Current(ctx)
	if err != nil {
		cached := a.session.Profile()
		if errors.Is(err, client.ErrNotAuthenticated) || cached == nil {
			return err
		}
		a.log.Warn(ctx, "showing cached profile", "error", err)
		p = *cached
	}

	a.printf("Username: %s\n", p.Username)
	a.printf("Name:     %s\n", p.FullName())
	if p.Email != "" {
		a.printf("Email:    %s\n", p.Email)
	}
	a.printf("Role:     %s\n", p.Role)
	return nil
}

func (a *App) List(ctx context.Context, args []string) error {
	var filter services.IncidentFilter
	if len(args) > 0 {
		st, err := models.ParseStatus(args[0])
		if err != nil {
			return usageError("list [pending|in_progress|resolved|cancelled]")
		}
		filter.Status = &st
	}

	incs, err := a.incidents.List(ctx, filter)
	if err != nil {
		return err
	}
	a.printIncidents(incs)
	return nil
}

func (a *App) Assigned(ctx context.Context) error {
	incs, err := a.incidents.ListAssigned(ctx)
	if err != nil {
		return err
	}
	a.printIncidents(incs)
	return nil
}

func (a *App) printIncidents(incs []models.Incident) {
	if len(incs) == 0 {
		a.println("No incidents.")
		return
	}
	for _, inc := range incs {
		a.printf("#%-4d %-11s %-8s %s (%s)\n", inc.ID, inc.Status.Label(), inc.Urgency, inc.Title, inc.Location)
	}
}

func (a *App) Show(ctx context.Context, args []string) error {
	id, err := parseID(args, 0, "show <id>")
	if err != nil {
		return err
	}

	inc, err := a.incidents.Get(ctx, id)
	if err != nil {
		return err
	}

	comments := inc.Comments
	if len(comments) == 0 {
		if comments, err = a.incidents.Comments(ctx, id); err != nil {
			return err
		}
	}

	a.printf("#%d %s\n", inc.ID, inc.Title)
	a.printf("Status:   %s\n", inc.Status.Label())
	a.printf("Urgency:  %s\n", inc.Urgency)
	a.printf("Location: %s\n", inc.Location)
	if inc.Coordinates != nil {
		a.printf("Position: %.6f, %.6f\n", inc.Coordinates.Lat, inc.Coordinates.Lon)
	}
	if inc.AssignedTo != nil {
		a.printf("Assigned: user %d\n", *inc.AssignedTo)
	} else {
		a.println("Assigned: nobody")
	}
	if !inc.CreatedAt.IsZero() {
		a.printf("Reported: %s\n", inc.CreatedAt.Local().Format(timeLayout))
	}
	a.println()
	a.println(inc.Description)

	if len(comments) > 0 {
		a.println()
		a.printf("Comments (%d):\n", len(comments))
		for _, c := range comments {
			author := c.AuthorName
			if author == "" {
				author = fmt.Sprintf("user %d", c.AuthorID)
			}
			a.printf("  [%s] %s: %s\n", c.CreatedAt.Local().Format(timeLayout), author, c.Text)
		}
	}
	return nil
}

// New interactively collects a draft and reports it.
func (a *App) New(ctx context.Context) error {
	var d models.IncidentDraft
	var err error

	if d.Title, err = GetSimpleText(a.reader, "Title", a.out); err != nil {
		return err
	}
	if d.Description, err = GetMultiline(a.reader, "Description", a.out); err != nil {
		return err
	}
	if d.Location, err = GetSimpleText(a.reader, "Location", a.out); err != nil {
		return err
	}

	raw, err := GetSimpleText(a.reader, "Urgency (low, medium, high, critical)", a.out)
	if err != nil {
		return err
	}
	if d.Urgency, err = models.ParseUrgency(raw); err != nil {
		d.Urgency = models.Urgency(raw)
	}

	raw, err = GetSimpleText(a.reader, "Coordinates as lat,lon (empty to skip)", a.out)
	if err != nil {
		return err
	}
	if raw != "" {
		coords, ok := parseCoordinates(raw)
		if !ok {
			return client.ValidationError(0, map[string][]string{
				"coordinates": {"Enter latitude and longitude separated by a comma."},
			})
		}
		d.Coordinates = coords
	}

	inc, err := a.incidents.Create(ctx, d)
	if err != nil {
		return err
	}
	a.printf("Incident #%d reported.\n", inc.ID)
	return nil
}

func parseCoordinates(s string) (*models.Coordinates, bool) {
	latS, lonS, ok := strings.Cut(s, ",")
	if !ok {
		return nil, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonS), 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, false
	}
	return &models.Coordinates{Lat: lat, Lon: lon}, true
}

func (a *App) Status(ctx context.Context, args []string) error {
	const usage = "status <id> <pending|in_progress|resolved|cancelled>"
	id, err := parseID(args, 0, usage)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return usageError(usage)
	}
	st, err := models.ParseStatus(args[1])
	if err != nil {
		return usageError(usage)
	}

	inc, err := a.incidents.UpdateStatus(ctx, id, st)
	if err != nil {
		return err
	}
	a.printf("Incident #%d is now %s.\n", inc.ID, inc.Status.Label())
	return nil
}

func (a *App) Assign(ctx context.Context, args []string) error {
	const usage = "assign <id> <user-id>"
	id, err := parseID(args, 0, usage)
	if err != nil {
		return err
	}
	userID, err := parseID(args, 1, usage)
	if err != nil {
		return err
	}
	if p := a.session.Profile(); p == nil || !p.IsManager() {
		return errManagersOnly
	}

	inc, err := a.incidents.Assign(ctx, id, userID)
	if err != nil {
		return err
	}
	a.printf("Incident #%d assigned to user %d.\n", inc.ID, userID)
	return nil
}

func (a *App) Comment(ctx context.Context, args []string) error {
	const usage = "comment <id> <text>"
	id, err := parseID(args, 0, usage)
	if err != nil {
		return err
	}
	text := strings.Join(args[1:], " ")
	if text == "" {
		return usageError(usage)
	}

	if _, err := a.incidents.AddComment(ctx, id, text); err != nil {
		return err
	}
	a.printf("Comment added to incident #%d.\n", id)
	return nil
}

func (a *App) History(ctx context.Context, args []string) error {
	var raw string
	if len(args) > 0 {
		raw = args[0]
	}
	period, err := services.ParsePeriod(raw)
	if err != nil {
		return usageError("history [today|week|month|all]")
	}

	incs, err := a.incidents.List(ctx, services.IncidentFilter{})
	if err != nil {
		return err
	}

	resolved := services.History(incs, period, a.now())
	if len(resolved) == 0 {
		a.println("No resolved incidents in this period.")
		return nil
	}
	for _, inc := range resolved {
		a.printf("%s  #%-4d %s (%s)\n", inc.UpdatedAt.Local().Format(timeLayout), inc.ID, inc.Title, inc.Location)
	}
	return nil
}

func (a *App) Inbox(ctx context.Context) error {
	ns, err := a.inbox.List(ctx)
	if err != nil {
		return err
	}
	if len(ns) == 0 {
		a.println("No notifications.")
		return nil
	}
	for _, n := range ns {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		a.printf("%s %s  %s  %s\n", mark, n.ID, n.CreatedAt.Local().Format(timeLayout), n.Title)
		a.printf("    %s\n", n.Body)
	}
	return nil
}

func (a *App) Read(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("read <notification-id>")
	}
	if err := a.inbox.MarkRead(ctx, args[0]); err != nil {
		return err
	}
	a.println("Marked as read.")
	return nil
}

func (a *App) DeleteNotification(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("delete <notification-id>")
	}
	if err := a.inbox.Delete(ctx, args[0]); err != nil {
		return err
	}
	a.println("Notification deleted.")
	return nil
}

func (a *App) ClearInbox(ctx context.Context) error {
	if err := a.inbox.Clear(ctx); err != nil {
		return err
	}
	a.println("Inbox cleared.")
	return nil
}
