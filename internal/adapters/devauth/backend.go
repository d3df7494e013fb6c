package devauth

// Package devauth provides an in-process stand-in for the FixZone auth
// backend, used in local development when no backend is running.

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fixzone/fixzone-portal/internal/adapters/authapi"
	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
)

const (
	// CookieName matches the backend's session cookie.
	CookieName = "token"
	// DefaultOrigin is the virtual origin the session cookie is scoped to.
	DefaultOrigin = "http://devauth.local"

	maxAttempts   = 5
	attemptWindow = 15 * time.Minute
)

// Account is one login the dev backend accepts. Both the identity's email
// and phone work as login identifiers.
type Account struct {
	Identity domainauth.Identity
	Password string
	Disabled bool
}

// Config controls the dev backend behavior.
type Config struct {
	Accounts        []Account
	Origin          string
	SessionDuration time.Duration // default 8h when zero
	Now             func() time.Time
}

type session struct {
	userID  int64
	expires time.Time
}

// Backend implements ports.AuthBackend in memory. Sessions are carried by a
// "token" cookie in the context's jar, exactly as with the real backend.
type Backend struct {
	mu       sync.Mutex
	origin   *url.URL
	ttl      time.Duration
	now      func() time.Time
	byLogin  map[string]int64
	accounts map[int64]*Account
	sessions map[string]session
	failures map[string][]time.Time
}

// NewBackend constructs a dev backend from Config.
func NewBackend(cfg Config) (*Backend, error) {
	if len(cfg.Accounts) == 0 {
		return nil, errors.New("dev auth: at least one account is required")
	}
	origin, err := url.Parse(strings.TrimSpace(cfg.Origin))
	if err != nil || cfg.Origin == "" {
		origin, _ = url.Parse(DefaultOrigin)
	}
	ttl := cfg.SessionDuration
	if ttl == 0 {
		ttl = 8 * time.Hour
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	b := &Backend{
		origin:   origin,
		ttl:      ttl,
		now:      now,
		byLogin:  make(map[string]int64),
		accounts: make(map[int64]*Account),
		sessions: make(map[string]session),
		failures: make(map[string][]time.Time),
	}
	for i := range cfg.Accounts {
		acct := cfg.Accounts[i]
		id := acct.Identity
		if id.ID <= 0 {
			return nil, errors.New("dev auth: account id is required")
		}
		if id.Email == "" && id.Phone == "" {
			return nil, errors.New("dev auth: account needs an email or phone")
		}
		b.accounts[id.ID] = &acct
		for _, login := range []string{id.Email, id.Phone} {
			if login != "" {
				b.byLogin[strings.ToLower(login)] = id.ID
			}
		}
	}
	return b, nil
}

// DefaultAccounts returns one account per audience, all sharing password.
func DefaultAccounts(password string) []Account {
	return []Account{
		{Password: password, Identity: domainauth.Identity{
			ID: 1, Name: "Dev Admin", Email: "admin@fixzone.test", RoleID: domainauth.RoleAdmin,
		}},
		{Password: password, Identity: domainauth.Identity{
			ID: 2, Name: "Dev Technician", Email: "tech@fixzone.test", Phone: "01000000003", RoleID: domainauth.RoleTechnician,
		}},
		{Password: password, Identity: domainauth.Identity{
			ID: 3, Name: "Dev Customer", Email: "customer@fixzone.test", Phone: "01000000008",
			RoleID: domainauth.RoleCustomer, Type: domainauth.TypeCustomer, CustomerID: 301,
		}},
	}
}

// BaseURL is the origin the session cookie belongs to.
func (b *Backend) BaseURL() *url.URL {
	u := *b.origin
	return &u
}

func (b *Backend) Login(ctx context.Context, creds domainauth.Credentials) (domainauth.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.Identity{}, &domainauth.Error{Kind: domainauth.KindOf(err), Cause: err}
	}
	login := strings.ToLower(strings.TrimSpace(creds.LoginIdentifier))
	if login == "" || creds.Password == "" {
		return domainauth.Identity{}, respond(http.StatusBadRequest, "Please provide login identifier and password")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if b.recentFailures(login, now) >= maxAttempts {
		return domainauth.Identity{}, respond(http.StatusTooManyRequests, "Too many authentication attempts, please try again after 15 minutes")
	}

	userID, ok := b.byLogin[login]
	if !ok {
		b.failures[login] = append(b.failures[login], now)
		return domainauth.Identity{}, respond(http.StatusNotFound, "User not found")
	}
	acct := b.accounts[userID]
	if acct.Password != creds.Password {
		b.failures[login] = append(b.failures[login], now)
		return domainauth.Identity{}, respond(http.StatusUnauthorized, "Incorrect password")
	}
	if acct.Disabled {
		return domainauth.Identity{}, respond(http.StatusForbidden, "Account is disabled")
	}
	delete(b.failures, login)

	token := uuid.NewString()
	b.sessions[token] = session{userID: userID, expires: now.Add(b.ttl)}
	b.setCookie(ctx, &http.Cookie{Name: CookieName, Value: token, Path: "/", HttpOnly: true, MaxAge: int(b.ttl / time.Second)})
	return acct.Identity, nil
}

func (b *Backend) Me(ctx context.Context) (domainauth.Identity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acct, ok := b.current(ctx)
	if !ok {
		return domainauth.Identity{}, notAuthorized()
	}
	return acct.Identity, nil
}

func (b *Backend) Logout(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if token := b.token(ctx); token != "" {
		delete(b.sessions, token)
	}
	b.setCookie(ctx, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1})
	return nil
}

func (b *Backend) UpdateProfile(ctx context.Context, upd domainauth.ProfileUpdate) (domainauth.Identity, error) {
	if err := upd.Validate(); err != nil {
		return domainauth.Identity{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	acct, ok := b.current(ctx)
	if !ok {
		return domainauth.Identity{}, notAuthorized()
	}
	if upd.Email != "" {
		if owner, taken := b.byLogin[strings.ToLower(upd.Email)]; taken && owner != acct.Identity.ID {
			return domainauth.Identity{}, respond(http.StatusBadRequest, "Email is already taken")
		}
	}

	old := acct.Identity
	acct.Identity = upd.Apply(old)
	for _, login := range []string{old.Email, old.Phone} {
		delete(b.byLogin, strings.ToLower(login))
	}
	for _, login := range []string{acct.Identity.Email, acct.Identity.Phone} {
		if login != "" {
			b.byLogin[strings.ToLower(login)] = acct.Identity.ID
		}
	}
	return acct.Identity, nil
}

// current must be called with mu held.
func (b *Backend) current(ctx context.Context) (*Account, bool) {
	token := b.token(ctx)
	if token == "" {
		return nil, false
	}
	sess, ok := b.sessions[token]
	if !ok {
		return nil, false
	}
	if !b.now().Before(sess.expires) {
		delete(b.sessions, token)
		return nil, false
	}
	acct, ok := b.accounts[sess.userID]
	if !ok || acct.Disabled {
		return nil, false
	}
	return acct, true
}

func (b *Backend) token(ctx context.Context) string {
	jar, ok := authapi.JarFromContext(ctx)
	if !ok {
		return ""
	}
	for _, c := range jar.Cookies(b.origin) {
		if c.Name == CookieName {
			return c.Value
		}
	}
	return ""
}

func (b *Backend) setCookie(ctx context.Context, c *http.Cookie) {
	if jar, ok := authapi.JarFromContext(ctx); ok {
		jar.SetCookies(b.origin, []*http.Cookie{c})
	}
}

// recentFailures prunes and counts failures inside the window; mu must be held.
func (b *Backend) recentFailures(login string, now time.Time) int {
	kept := b.failures[login][:0]
	for _, at := range b.failures[login] {
		if now.Sub(at) < attemptWindow {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(b.failures, login)
		return 0
	}
	b.failures[login] = kept
	return len(kept)
}

func respond(status int, message string) error {
	return &domainauth.Error{
		Kind:    domainauth.KindForResponse(status, message),
		Message: message,
		Status:  status,
	}
}

func notAuthorized() error {
	return &domainauth.Error{
		Kind:    domainauth.KindUnauthenticated,
		Message: "Not authorized, no token",
		Status:  http.StatusUnauthorized,
	}
}
