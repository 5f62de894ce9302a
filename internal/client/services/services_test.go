package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/incidentdesk/internal/client/client"
	"github.com/dmitrijs2005/incidentdesk/internal/client/codec"
	"github.com/dmitrijs2005/incidentdesk/internal/client/migrations"
	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
	"github.com/dmitrijs2005/incidentdesk/internal/client/pipeline"
	"github.com/dmitrijs2005/incidentdesk/internal/client/repositories/notifications"
	"github.com/dmitrijs2005/incidentdesk/internal/dbx"
	"github.com/dmitrijs2005/incidentdesk/internal/logging"
)

// staticSession always holds the same token and never renews.
type staticSession struct{ token string }

func (s staticSession) CurrentCredentials() (string, uint64) { return s.token, 1 }

func (s staticSession) RenewToken(context.Context, string, uint64) (string, error) {
	return "", client.NotAuthenticatedError(nil)
}

type recorded struct {
	method string
	path   string
	body   string
}

// fakeBackend replies per "METHOD path" key and records every request.
type fakeBackend struct {
	mu       sync.Mutex
	routes   map[string]func(w http.ResponseWriter)
	requests []recorded
}

func (b *fakeBackend) on(method, path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (b *fakeBackend) recorded() []recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recorded(nil), b.requests...)
}

type fixture struct {
	backend   *fakeBackend
	pipe      *pipeline.Pipeline
	incidents IncidentService
	profiles  ProfileService
	inbox     InboxService
	cache     *profileRecorder
}

type profileRecorder struct {
	got []models.UserProfile
}

func (r *profileRecorder) UpdateProfile(_ context.Context, p models.UserProfile) {
	r.got = append(r.got, p)
}

func newFixture(t *testing.T, vocab codec.Vocabulary) *fixture {
	t.Helper()
	b := &fakeBackend{routes: map[string]func(http.ResponseWriter){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.requests = append(b.requests, recorded{method: r.Method, path: r.URL.Path, body: string(body)})
		h := b.routes[r.Method+" "+r.URL.Path]
		b.mu.Unlock()
		if h == nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not found."}`))
			return
		}
		h(w)
	}))
	t.Cleanup(srv.Close)

	c, err := client.NewHTTPClient(srv.URL, 5*time.Second, logging.NewNop())
	require.NoError(t, err)

	db, err := dbx.Open(context.Background(), ":memory:", migrations.Migrations)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	pipe := pipeline.New(c, staticSession{token: "A1"}, logging.NewNop())
	inbox := NewInboxService(notifications.NewSQLiteRepository(db))
	cache := &profileRecorder{}

	return &fixture{
		backend:   b,
		pipe:      pipe,
		incidents: NewIncidentService(pipe, codec.New(vocab), inbox, logging.NewNop()),
		profiles:  NewProfileService(pipe, cache, ""),
		inbox:     inbox,
		cache:     cache,
	}
}

const listBody = `[
	{"id":1,"title":"Leak","description":"d","location":"A","status":"pending","urgency":"high","created_by":1,"created_at":"2025-05-16T10:30:00.000Z","updated_at":"2025-05-16T10:30:00.000Z"},
	{"id":2,"title":"Light","description":"d","location":"B","status":"resolved","urgency":"low","created_by":1,"created_at":"2025-05-16T10:30:00.000Z","updated_at":"2025-05-17T10:30:00.000Z"}
]`

func TestList_WithAndWithoutFilter(t *testing.T) {
	f := newFixture(t, codec.English)
	f.backend.on("GET", "/incidents/", 200, listBody)
	ctx := context.Background()

	all, err := f.incidents.List(ctx, IncidentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	resolved := models.StatusResolved
	only, err := f.incidents.List(ctx, IncidentFilter{Status: &resolved})
	require.NoError(t, err)
	require.Len(t, only, 1)
	require.Equal(t, int64(2), only[0].ID)
}

func TestListAssignedAndGet(t *testing.T) {
	f := newFixture(t, codec.English)
	f.backend.on("GET", "/incidents/assigned/", 200, `[]`)
	f.backend.on("GET", "/incidents/1/", 200, `{"id":1,"title":"Leak","status":"pendiente","urgency":"alta"}`)
	ctx := context.Background()

	assigned, err := f.incidents.ListAssigned(ctx)
	require.NoError(t, err)
	require.Empty(t, assigned)

	inc, err := f.incidents.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, inc.Status)
	require.Equal(t, models.UrgencyHigh, inc.Urgency)

	_, err = f.incidents.Get(ctx, 99)
	require.ErrorIs(t, err, client.ErrNotFound)

	_, err = f.incidents.Get(ctx, 0)
	require.ErrorIs(t, err, client.ErrInvalidRequest)
}

func TestCreate_ValidatesBeforeSending(t *testing.T) {
	f := newFixture(t, codec.English)

	_, err := f.incidents.Create(context.Background(), models.IncidentDraft{Title: "  ", Urgency: models.UrgencyLow})
	require.ErrorIs(t, err, client.ErrValidation)
	fields := client.FieldErrors(err)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "description")
	assert.Contains(t, fields, "location")
	assert.NotContains(t, fields, "urgency")
	require.Empty(t, f.backend.recorded())
}

func TestCreate_SendsVocabularyAndDecodes(t *testing.T) {
	f := newFixture(t, codec.Spanish)
	f.backend.on("POST", "/incidents/", 201, `{"id":5,"title":"Leak","description":"Roof","location":"Hall","status":"pendiente","urgency":"critica","created_by":1,"created_at":"2025-05-16T10:30:00.000Z","updated_at":"2025-05-16T10:30:00.000Z"}`)

	inc, err := f.incidents.Create(context.Background(), models.IncidentDraft{
		Title: "Leak", Description: "Roof", Location: "Hall", Urgency: models.UrgencyCritical,
	})
	require.NoError(t, err)
	require.Equal(t, int64(5), inc.ID)
	require.Equal(t, models.UrgencyCritical, inc.Urgency)

	reqs := f.backend.recorded()
	require.Len(t, reqs, 1)
	require.JSONEq(t, `{"title":"Leak","description":"Roof","location":"Hall","urgency":"critica"}`, reqs[0].body)
}

func TestCreate_ServerValidation(t *testing.T) {
	f := newFixture(t, codec.English)
	f.backend.on("POST", "/incidents/", 400, `{"location":["Unknown location."]}`)

	_, err := f.incidents.Create(context.Background(), models.IncidentDraft{
		Title: "Leak", Description: "Roof", Location: "Mars", Urgency: models.UrgencyLow,
	})
	require.ErrorIs(t, err, client.ErrValidation)
	require.Equal(t, map[string][]string{"location": {"Unknown location."}}, client.FieldErrors(err))
}

func TestUpdateStatus_PatchesAndRecordsInbox(t *testing.T) {
	f := newFixture(t, codec.English)
	f.backend.on("GET", "/incidents/", 200, listBody)
	f.backend.on("PATCH", "/incidents/1/", 200, `{"id":1,"title":"Leak","description":"d","location":"A","status":"in_progress","urgency":"high","created_by":1}`)
	ctx := context.Background()

	_, err := f.incidents.List(ctx, IncidentFilter{})
	require.NoError(t, err)

	inc, err := f.incidents.UpdateStatus(ctx, 1, models.StatusInProgress)
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, inc.Status)

	reqs := f.backend.recorded()
	require.JSONEq(t, `{"status":"in_progress"}`, reqs[len(reqs)-1].body)

	msgs, err := f.inbox.List(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "Incident 1 updated", msgs[0].Title)
	require.Equal(t, "Incident 'Leak' changed from 'Pending' to 'In progress'", msgs[0].Body)
	require.Equal(t, int64(1), *msgs[0].IncidentID)
}

func TestUpdateStatus_UnknownPreviousStatus(t *testing.T) {
	f := newFixture(t, codec.Spanish)
	f.backend.on("PATCH", "/incidents/3/", 200, `{"id":3,"title":"Gas","status":"resuelta","urgency":"media"}`)
	ctx := context.Background()

	_, err := f.incidents.UpdateStatus(ctx, 3, models.StatusResolved)
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"resuelta"}`, f.backend.recorded()[0].body)

	msgs, err := f.inbox.List(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "Incident 'Gas' is now 'Resolved'", msgs[0].Body)
}

func TestUpdateStatus_RejectsUnknownStatusLocally(t *testing.T) {
	f := newFixture(t, codec.English)

	_, err := f.incidents.UpdateStatus(context.Background(), 1, models.Status("closed"))
	require.ErrorIs(t, err, client.ErrValidation)
	require.Empty(t, f.backend.recorded())
}

func TestUpdateStatus_FailureRecordsNothing(t *testing.T) {
	f := newFixture(t, codec.English)
	f.backend.on("PATCH", "/incidents/1/", 500, `boom`)
	ctx := context.Background()

	_, err := f.incidents.UpdateStatus(ctx, 1, models.StatusResolved)
	require.ErrorIs(t, err, client.ErrServer)

	n, err := f.inbox.UnreadCount(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestAssign(t *testing.T) {
	f := newFixture(t, codec.English)
	f.backend.on("PATCH", "/incidents/1/", 200, `{"id":1,"title":"Leak","status":"pending","urgency":"high","assigned_to":3}`)
	ctx := context.Background()

	inc, err := f.incidents.Assign(ctx, 1, 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), *inc.AssignedTo)
	require.JSONEq(t, `{"assigned_to":3}`, f.backend.recorded()[0].body)

	msgs, err := f.inbox.List(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "Incident 'Leak' with high urgency was assigned to user 3", msgs[0].Body)

	_, err = f.incidents.Assign(ctx, 1, 0)
	require.ErrorIs(t, err, client.ErrValidation)
}

func TestComments(t *testing.T) {
	f := newFixture(t, codec.English)
	f.backend.on("GET", "/incidents/1/comments/", 200, `[{"id":1,"user_id":3,"user_name":"alopez","text":"On it","created_at":"2025-05-16T11:00:00.000Z"}]`)

	cs, err := f.incidents.Comments(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	require.Equal(t, int64(1), cs[0].IncidentID)
	require.Equal(t, "On it", cs[0].Text)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t, codec.English)
	f.backend.on("GET", "/incidents/1/", 200, `{"id":1,"title":"Leak","status":"pending","urgency":"high"}`)
	f.backend.on("POST", "/incidents/1/comments/", 201, `{"id":9,"incident_id":1,"user_id":1,"user_name":"jperez","text":"Checking","created_at":"2025-05-16T11:00:00.000Z"}`)
	ctx := context.Background()

	_, err := f.incidents.Get(ctx, 1)
	require.NoError(t, err)

	c, err := f.incidents.AddComment(ctx, 1, "  Checking ")
	require.NoError(t, err)
	require.Equal(t, int64(9), c.ID)

	reqs := f.backend.recorded()
	require.JSONEq(t, `{"text":"Checking"}`, reqs[len(reqs)-1].body)

	msgs, err := f.inbox.List(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "jperez commented on incident 'Leak'", msgs[0].Body)

	_, err = f.incidents.AddComment(ctx, 1, "   ")
	require.ErrorIs(t, err, client.ErrValidation)
}

func TestAddComment_SpanishBody(t *testing.T) {
	f := newFixture(t, codec.Spanish)
	f.backend.on("POST", "/incidents/4/comments/", 201, `{"id":2,"user":{"id":4,"username":"srodriguez"},"content":"Hola","created_at":"2025-05-16T11:00:00.000Z"}`)

	c, err := f.incidents.AddComment(context.Background(), 4, "Hola")
	require.NoError(t, err)
	require.Equal(t, int64(4), c.IncidentID)
	require.Equal(t, "srodriguez", c.AuthorName)
	require.JSONEq(t, `{"content":"Hola"}`, f.backend.recorded()[0].body)
}

func TestProfiles_CurrentUpdatesCache(t *testing.T) {
	f := newFixture(t, codec.English)
	f.backend.on("GET", "/users/current/", 200, `{"id":1,"username":"jperez","role":"admin"}`)

	p, err := f.profiles.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, "jperez", p.Username)
	require.Equal(t, []models.UserProfile{p}, f.cache.got)
}

func TestProfiles_CurrentUsesConfiguredPathOnce(t *testing.T) {
	f := newFixture(t, codec.English)
	f.backend.on("GET", "/users/me/", 200, `{"id":2,"username":"mgarcia","role":"manager"}`)

	profiles := NewProfileService(f.pipe, f.cache, "/users/me/")
	p, err := profiles.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.RoleManager, p.Role)
	require.Len(t, f.backend.recorded(), 1)
}

func TestProfiles_NotFoundIsNotRetriedElsewhere(t *testing.T) {
	f := newFixture(t, codec.English)
	f.backend.on("GET", "/users/me/", 200, `{"id":2,"username":"mgarcia","role":"manager"}`)

	_, err := f.profiles.Current(context.Background())
	require.ErrorIs(t, err, client.ErrNotFound)
	require.Len(t, f.backend.recorded(), 1)
	require.Equal(t, "/users/current/", f.backend.recorded()[0].path)
}

func TestProfiles_FailureKeepsCache(t *testing.T) {
	f := newFixture(t, codec.English)
	f.backend.on("GET", "/users/current/", 200, `{"id":2}`)

	_, err := f.profiles.Current(context.Background())
	require.ErrorIs(t, err, client.ErrDecoding)
	require.Empty(t, f.cache.got)
}

func TestInbox_ManageMessages(t *testing.T) {
	f := newFixture(t, codec.English)
	ctx := context.Background()

	inc := models.Incident{ID: 1, Title: "Leak", Status: models.StatusResolved}
	require.NoError(t, f.inbox.StatusChanged(ctx, inc, models.StatusPending))
	require.NoError(t, f.inbox.Commented(ctx, models.Comment{IncidentID: 1, AuthorID: 3}, ""))

	msgs, err := f.inbox.List(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	var bodies []string
	for _, m := range msgs {
		bodies = append(bodies, m.Body)
	}
	require.Contains(t, bodies, "user 3 commented on incident 1")

	require.NoError(t, f.inbox.MarkRead(ctx, msgs[0].ID))
	n, err := f.inbox.UnreadCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, f.inbox.Delete(ctx, msgs[0].ID))
	err = f.inbox.Delete(ctx, msgs[0].ID)
	require.ErrorIs(t, err, notifications.ErrNotFound)
	require.ErrorIs(t, err, client.ErrStorage)
	var re *client.RequestError
	require.ErrorAs(t, err, &re)

	require.NoError(t, f.inbox.Clear(ctx))
	msgs, err = f.inbox.List(ctx)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestInbox_RepositoryFailuresAreStorageErrors(t *testing.T) {
	db, err := dbx.Open(context.Background(), ":memory:", migrations.Migrations)
	require.NoError(t, err)
	inbox := NewInboxService(notifications.NewSQLiteRepository(db))
	require.NoError(t, db.Close())
	ctx := context.Background()

	_, err = inbox.List(ctx)
	require.ErrorIs(t, err, client.ErrStorage)
	_, err = inbox.UnreadCount(ctx)
	require.ErrorIs(t, err, client.ErrStorage)
	require.ErrorIs(t, inbox.MarkRead(ctx, "x"), client.ErrStorage)
	require.ErrorIs(t, inbox.Delete(ctx, "x"), client.ErrStorage)
	require.ErrorIs(t, inbox.Clear(ctx), client.ErrStorage)
	require.ErrorIs(t, inbox.StatusChanged(ctx, models.Incident{ID: 1}, ""), client.ErrStorage)
}
