// Package session owns the authentication state of the client: login,
// logout, token refresh and the cached user profile.
//
// A Manager moves between Anonymous, Authenticated and Refreshing. At most
// one refresh exchange is in flight at a time; concurrent callers that hit an
// expired token share its outcome. A failed refresh is a hard logout.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/incidentdesk/internal/client/client"
	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
	"github.com/dmitrijs2005/incidentdesk/internal/client/tokenstore"
	"github.com/dmitrijs2005/incidentdesk/internal/common"
	"github.com/dmitrijs2005/incidentdesk/internal/logging"
)

const refreshKey = "refresh"

var (
	errNoRefreshToken = errors.New("no refresh token")
	errSessionChanged = errors.New("session changed during refresh")
)

// Manager is safe for concurrent use. It is the only writer of the
// credentials, in memory and in the Store.
type Manager struct {
	doer        client.Doer
	store       tokenstore.Store
	log         logging.Logger
	profilePath string

	group singleflight.Group

	mu      sync.Mutex
	state   State
	creds   *models.Credentials
	profile *models.UserProfile
	// gen changes on every login and logout so that a refresh or a replay
	// started in an earlier session cannot reach the current one.
	gen     uint64
	subs    map[int]chan State
	nextSub int
}

// Option configures a Manager.
type Option func(*Manager)

// WithProfilePath sets the endpoint used to fetch the profile after a login
// whose response does not embed one. The default is common.PathCurrentUser.
func WithProfilePath(path string) Option {
	return func(m *Manager) {
		if path != "" {
			m.profilePath = path
		}
	}
}

// NewManager restores the session from store. A stored access token starts
// the manager Authenticated; the token is validated by the first API call.
func NewManager(ctx context.Context, doer client.Doer, store tokenstore.Store, log logging.Logger, opts ...Option) (*Manager, error) {
	m := &Manager{
		doer:        doer,
		store:       store,
		log:         log,
		profilePath: common.PathCurrentUser,
		subs:        make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(m)
	}

	creds, err := store.Load(ctx)
	if err != nil {
		return nil, client.StorageError(err)
	}
	if creds == nil {
		return m, nil
	}

	profile, err := store.LoadProfile(ctx)
	if err != nil {
		return nil, client.StorageError(err)
	}

	m.creds = creds
	m.profile = profile
	m.state = Authenticated
	log.Debug(ctx, "session restored", "has_refresh", creds.RefreshToken != "", "has_profile", profile != nil)
	return m, nil
}

// Login exchanges username and password for a token pair and hydrates the
// profile, from the token response when it embeds one and with a single
// profile fetch otherwise. Nothing is stored unless every step succeeds.
func (m *Manager) Login(ctx context.Context, username, password string) (models.UserProfile, error) {
	username = strings.TrimSpace(username)
	fields := map[string][]string{}
	if username == "" {
		fields["username"] = []string{"This field may not be blank."}
	}
	if password == "" {
		fields["password"] = []string{"This field may not be blank."}
	}
	if len(fields) > 0 {
		return models.UserProfile{}, client.ValidationError(0, fields)
	}

	creds, profile, err := m.exchangeLogin(ctx, username, password)
	if err != nil {
		m.log.Warn(ctx, "login failed", "username", username, "error", err)
		return models.UserProfile{}, err
	}

	if profile == nil {
		p, err := m.fetchProfile(ctx, creds.AccessToken)
		if err != nil {
			m.log.Warn(ctx, "login profile fetch failed", "username", username, "error", err)
			return models.UserProfile{}, err
		}
		profile = &p
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	persistCtx := context.WithoutCancel(ctx)
	if err := m.store.Save(persistCtx, creds); err != nil {
		return models.UserProfile{}, client.StorageError(err)
	}
	if err := m.store.SaveProfile(persistCtx, *profile); err != nil {
		if cerr := m.store.Clear(persistCtx); cerr != nil {
			m.log.Error(ctx, "token store rollback failed", "error", cerr)
		}
		return models.UserProfile{}, client.StorageError(err)
	}

	m.gen++
	m.group.Forget(refreshKey)
	m.creds = &creds
	m.profile = profile
	m.setStateLocked(Authenticated)

	m.log.Info(ctx, "logged in", "username", profile.Username, "role", profile.Role)
	return *profile, nil
}

// Logout drops the session from memory and from the store. It never fails
// and has no network effect.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logoutLocked(ctx, "logout")
}

// logoutLocked must be called with m.mu held.
func (m *Manager) logoutLocked(ctx context.Context, reason string) {
	wasSignedIn := m.creds != nil

	m.gen++
	m.group.Forget(refreshKey)
	m.creds = nil
	m.profile = nil

	if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
		m.log.Warn(ctx, "token store clear failed", "reason", reason, "error", err)
	}
	m.setStateLocked(Anonymous)

	if wasSignedIn {
		m.log.Info(ctx, "logged out", "reason", reason)
	}
}

// Refresh forces a token refresh, joining one already in flight.
func (m *Manager) Refresh(ctx context.Context) error {
	_, gen := m.CurrentCredentials()
	_, err := m.renew(ctx, "", gen)
	return err
}

// RenewToken returns an access token newer than stale for the session
// identified by gen, as returned by CurrentCredentials. When the current
// token still equals stale a refresh is started, or joined if one is in
// flight. A login or logout since gen was taken fails with NotAuthenticated,
// so a request is never replayed under another session. Every failure is a
// *client.RequestError of kind NotAuthenticated, except a caller giving up,
// which is reported as a network error.
func (m *Manager) RenewToken(ctx context.Context, stale string, gen uint64) (string, error) {
	return m.renew(ctx, stale, gen)
}

func (m *Manager) renew(ctx context.Context, stale string, gen uint64) (string, error) {
	m.mu.Lock()
	if m.creds == nil {
		m.mu.Unlock()
		return "", client.NotAuthenticatedError(nil)
	}
	if gen != m.gen {
		m.mu.Unlock()
		return "", client.NotAuthenticatedError(errSessionChanged)
	}
	if stale != "" && m.creds.AccessToken != stale {
		token := m.creds.AccessToken
		m.mu.Unlock()
		return token, nil
	}
	if m.creds.RefreshToken == "" {
		m.logoutLocked(ctx, "no refresh token")
		m.mu.Unlock()
		return "", client.NotAuthenticatedError(errNoRefreshToken)
	}

	// Registering the flight under m.mu means no caller can observe the old
	// token after the flight has published the new one.
	refreshToken := m.creds.RefreshToken
	flightCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(refreshKey, func() (any, error) {
		return m.runRefresh(flightCtx, gen, refreshToken)
	})
	if m.state != Refreshing {
		m.setStateLocked(Refreshing)
	}
	m.mu.Unlock()

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", client.NetworkError(ctx.Err())
	}
}

// runRefresh is the body of the single in-flight refresh.
func (m *Manager) runRefresh(ctx context.Context, gen uint64, refreshToken string) (string, error) {
	m.log.Debug(ctx, "refreshing access token")
	access, err := m.exchangeRefresh(ctx, refreshToken)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return "", client.NotAuthenticatedError(errSessionChanged)
	}
	m.group.Forget(refreshKey)

	if err != nil {
		m.log.Warn(ctx, "token refresh failed, signing out", "error", err)
		m.logoutLocked(ctx, "refresh failed")
		return "", client.NotAuthenticatedError(err)
	}

	creds := models.Credentials{AccessToken: access, RefreshToken: m.creds.RefreshToken}
	if err := m.store.Save(ctx, creds); err != nil {
		m.log.Warn(ctx, "token store write failed, keeping token in memory", "error", err)
	}
	m.creds = &creds
	m.setStateLocked(Authenticated)
	m.log.Debug(ctx, "access token refreshed")
	return access, nil
}

// CurrentAccessToken returns the in-memory access token, or "" when
// anonymous.
func (m *Manager) CurrentAccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return ""
	}
	return m.creds.AccessToken
}

// CurrentCredentials returns the in-memory access token together with the
// session generation it belongs to. The token is "" when anonymous.
func (m *Manager) CurrentCredentials() (string, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return "", m.gen
	}
	return m.creds.AccessToken, m.gen
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsAuthenticated() bool {
	return m.State() != Anonymous
}

// Profile returns a copy of the cached profile, or nil.
func (m *Manager) Profile() *models.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil
	}
	p := *m.profile
	return &p
}

// UpdateProfile replaces the cached profile wholesale. It is ignored when
// the session is anonymous.
func (m *Manager) UpdateProfile(ctx context.Context, p models.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return
	}
	m.profile = &p
	if err := m.store.SaveProfile(context.WithoutCancel(ctx), p); err != nil {
		m.log.Warn(ctx, "token store profile write failed", "error", err)
	}
}

// Subscribe delivers state transitions until cancel is called. Delivery is
// best effort: a subscriber that falls behind misses intermediate states and
// should consult State.
func (m *Manager) Subscribe() (<-chan State, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan State, 8)
	m.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	for _, ch := range m.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
