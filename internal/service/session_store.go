package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
	"github.com/fixzone/fixzone-portal/internal/observability/metrics"
	"github.com/fixzone/fixzone-portal/internal/observability/statsd"
	"github.com/fixzone/fixzone-portal/internal/ports"
)

// DefaultRestoreTimeout bounds a session restore when no timeout is configured.
const DefaultRestoreTimeout = 10 * time.Second

// SessionStoreOptions groups dependencies for SessionStore.
type SessionStoreOptions struct {
	Backend ports.AuthBackend
	// Storage is optional; without it state lives only in memory.
	Storage ports.StateStorage
	Logger  *slog.Logger
	// RestoreTimeout bounds RestoreSession; DefaultRestoreTimeout when zero.
	RestoreTimeout time.Duration
	// Flight collapses concurrent restores. Stores sharing a group must use
	// distinct FlightKeys.
	Flight    *singleflight.Group
	FlightKey string
	Metrics   statsd.Sink
	Events    ports.AuthEventRecorder
	VisitorID string
	Now       func() time.Time
}

type subscriber struct {
	id int
	fn func(domainauth.State)
}

// SessionStore is the single owner of one client's authentication state.
// Every change replaces the whole state under mu, is persisted, and is then
// announced to subscribers with a snapshot.
type SessionStore struct {
	backend        ports.AuthBackend
	storage        ports.StateStorage
	logger         *slog.Logger
	restoreTimeout time.Duration
	flight         *singleflight.Group
	flightKey      string
	metrics        statsd.Sink
	events         ports.AuthEventRecorder
	visitorID      string
	now            func() time.Time

	loginInFlight atomic.Bool

	// commitMu serializes persisting and announcing committed states so the
	// newest version is always the last one written and delivered.
	commitMu sync.Mutex

	mu    sync.Mutex
	state domainauth.State
	// epoch advances on Logout; pending logins and profile updates from an
	// older epoch are dropped. version advances on every committed change and
	// lets a slow restore yield to anything newer.
	epoch      uint64
	version    uint64
	rehydrated bool
	subs       []subscriber
	nextSubID  int
}

type stamp struct {
	epoch   uint64
	version uint64
}

// NewSessionStore constructs a SessionStore in the unresolved, unauthenticated state.
func NewSessionStore(opts SessionStoreOptions) *SessionStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.RestoreTimeout
	if timeout <= 0 {
		timeout = DefaultRestoreTimeout
	}
	flight := opts.Flight
	if flight == nil {
		flight = &singleflight.Group{}
	}
	key := opts.FlightKey
	if key == "" {
		key = "restore"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SessionStore{
		backend:        opts.Backend,
		storage:        opts.Storage,
		logger:         logger.With("component", "session_store"),
		restoreTimeout: timeout,
		flight:         flight,
		flightKey:      key,
		metrics:        opts.Metrics,
		events:         opts.Events,
		visitorID:      opts.VisitorID,
		now:            now,
		state:          domainauth.Unauthenticated(false),
	}
}

// State returns a snapshot of the current state.
func (s *SessionStore) State() domainauth.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers fn for every later state change and returns a function
// that removes it. fn runs on the goroutine that made the change and must not
// change the store itself. A change overtaken by a newer one before delivery
// is skipped, so fn always sees the current state last.
func (s *SessionStore) Subscribe(fn func(domainauth.State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Login validates the credentials, then asks the backend for a session.
// Only one login may be pending at a time. A login whose caller gave up, or
// that was overtaken by Logout, never touches the state.
func (s *SessionStore) Login(ctx context.Context, identifier, password string) error {
	creds := domainauth.Credentials{LoginIdentifier: identifier, Password: password}
	if err := creds.Validate(); err != nil {
		return err
	}
	if !s.loginInFlight.CompareAndSwap(false, true) {
		return domainauth.NewError(domainauth.KindLoginInProgress, "a login is already in progress")
	}
	defer s.loginInFlight.Store(false)

	start := s.now()
	at := s.stamp()
	id, err := s.backend.Login(ctx, creds)

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = &domainauth.Error{Kind: domainauth.KindCanceled, Message: "login abandoned", Cause: ctxErr}
		s.emit(metrics.OpLogin, start, err)
		return err
	}

	if err != nil {
		err = asAuthError(err)
		ver, ok := s.replaceIf(at.sameEpoch, func(domainauth.State) domainauth.State {
			return domainauth.Unauthenticated(true)
		})
		if !ok {
			return superseded()
		}
		s.commit(ctx, ver)
		s.emit(metrics.OpLogin, start, err)
		s.record(ctx, domainauth.Event{
			Type:       domainauth.EventLoginFailed,
			ErrorKind:  domainauth.KindOf(err),
			Identifier: creds.LoginIdentifier,
		})
		return err
	}

	next := domainauth.Authenticated(id, "")
	ver, ok := s.replaceIf(at.sameEpoch, func(domainauth.State) domainauth.State {
		return next
	})
	if !ok {
		s.logger.InfoContext(ctx, "discarding login superseded by logout", "user_id", id.ID)
		return superseded()
	}
	s.commit(ctx, ver)
	s.emit(metrics.OpLogin, start, nil)
	aud, _ := next.Audience()
	s.record(ctx, domainauth.Event{
		Type:       domainauth.EventLoginSucceeded,
		UserID:     id.ID,
		Audience:   aud,
		Identifier: creds.LoginIdentifier,
	})
	return nil
}

// RestoreSession asks the backend who is signed in and replaces the state
// with the answer. Every failure, including a timeout, yields the
// unauthenticated state. The state is resolved afterwards in all cases.
func (s *SessionStore) RestoreSession(ctx context.Context) bool {
	start := s.now()
	at := s.stamp()
	key := s.flightKey
	if scope := flightScope(ctx); scope != "" {
		key += ":" + scope
	}

	ch := s.flight.DoChan(key, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.restoreTimeout)
		defer cancel()
		return s.backend.Me(rctx)
	})

	var (
		id  domainauth.Identity
		err error
	)
	select {
	case res := <-ch:
		err = res.Err
		if err == nil {
			id, _ = res.Val.(domainauth.Identity)
		}
	case <-ctx.Done():
		err = ctx.Err()
	}

	var next domainauth.State
	if err == nil {
		next = domainauth.Authenticated(id, "")
	} else {
		next = domainauth.Unauthenticated(true)
	}

	ver, ok := s.replaceIf(at.sameVersion, func(domainauth.State) domainauth.State { return next })
	if !ok {
		// Something committed while we waited; its result is newer.
		cur := s.State()
		return cur.IsAuthenticated
	}
	s.commit(ctx, ver)

	if err != nil {
		err = asAuthError(err)
		s.emit(metrics.OpRestore, start, err)
		if kind := domainauth.KindOf(err); kind != domainauth.KindUnauthenticated {
			s.logger.WarnContext(ctx, "session restore failed", "kind", kind, "error", err)
			s.record(ctx, domainauth.Event{Type: domainauth.EventRestoreFailed, ErrorKind: kind})
		}
		return false
	}
	s.emit(metrics.OpRestore, start, nil)
	aud, _ := next.Audience()
	s.record(ctx, domainauth.Event{Type: domainauth.EventSessionRestored, UserID: id.ID, Audience: aud})
	return true
}

// Logout clears the local state first, then tells the backend. The local
// state ends unauthenticated even when the backend call fails.
func (s *SessionStore) Logout(ctx context.Context) {
	start := s.now()

	s.mu.Lock()
	var userID int64
	if s.state.User != nil {
		userID = s.state.User.ID
	}
	s.epoch++
	s.version++
	s.state = domainauth.Unauthenticated(true)
	ver := s.version
	s.mu.Unlock()
	s.commit(ctx, ver)

	err := s.backend.Logout(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "backend logout failed; local session cleared anyway", "error", err)
	}
	s.emit(metrics.OpLogout, start, err)
	s.record(ctx, domainauth.Event{Type: domainauth.EventLogout, UserID: userID})
}

// Rehydrate installs the persisted state, if any, as an unresolved cache.
// Only the first call reads storage, and a state the backend has already
// confirmed is never overwritten.
func (s *SessionStore) Rehydrate(ctx context.Context) {
	s.mu.Lock()
	if s.rehydrated || s.storage == nil {
		s.rehydrated = true
		s.mu.Unlock()
		return
	}
	s.rehydrated = true
	s.mu.Unlock()

	data, err := s.storage.Load(ctx, domainauth.StorageKey)
	if err != nil {
		if !errors.Is(err, ports.ErrStateNotFound) {
			s.logger.WarnContext(ctx, "read persisted session failed", "error", err)
		}
		return
	}
	cached, err := domainauth.DecodeState(data)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable persisted session", "error", err)
		if derr := s.storage.Delete(ctx, domainauth.StorageKey); derr != nil {
			s.logger.WarnContext(ctx, "delete persisted session failed", "error", derr)
		}
		return
	}

	s.mu.Lock()
	if s.state.Resolved {
		s.mu.Unlock()
		return
	}
	s.state = cached
	ver := s.version
	s.mu.Unlock()
	s.announce(ver)
}

// UpdateProfile changes the signed-in user's own fields. The stored record
// is re-read from the backend response and replaces the identity as a whole.
func (s *SessionStore) UpdateProfile(ctx context.Context, upd domainauth.ProfileUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	cur := s.State()
	if !cur.IsAuthenticated {
		return domainauth.NewError(domainauth.KindUnauthenticated, "not signed in")
	}

	start := s.now()
	at := s.stamp()
	id, err := s.backend.UpdateProfile(ctx, upd)
	if err != nil {
		err = asAuthError(err)
		s.emit(metrics.OpProfile, start, err)
		if domainauth.KindOf(err) == domainauth.KindUnauthenticated {
			ver, ok := s.replaceIf(at.sameEpoch, func(domainauth.State) domainauth.State {
				return domainauth.Unauthenticated(true)
			})
			if ok {
				s.commit(ctx, ver)
			}
		}
		return err
	}

	ver, ok := s.replaceIf(at.sameEpoch, func(prev domainauth.State) domainauth.State {
		return domainauth.Authenticated(id, prev.Token)
	})
	if !ok {
		return superseded()
	}
	s.commit(ctx, ver)
	s.emit(metrics.OpProfile, start, nil)
	s.record(ctx, domainauth.Event{Type: domainauth.EventProfileUpdated, UserID: id.ID})
	return nil
}

func (s *SessionStore) stamp() stamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stamp{epoch: s.epoch, version: s.version}
}

func (a stamp) sameEpoch(cur stamp) bool   { return cur.epoch == a.epoch }
func (a stamp) sameVersion(cur stamp) bool { return cur.version == a.version }

// replaceIf installs build(prev) when ok accepts the current stamp and
// returns the version it installed.
func (s *SessionStore) replaceIf(ok func(cur stamp) bool, build func(prev domainauth.State) domainauth.State) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok(stamp{epoch: s.epoch, version: s.version}) {
		return 0, false
	}
	s.state = build(s.state)
	s.version++
	return s.version, true
}

// commit persists and announces the state installed at ver. It does nothing
// once a newer version exists; that version's own commit writes it instead.
func (s *SessionStore) commit(ctx context.Context, ver uint64) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	snap, ok := s.snapshotAt(ver)
	if !ok {
		return
	}
	s.persist(ctx, snap)
	if _, ok := s.snapshotAt(ver); !ok {
		return
	}
	s.notify(snap)
}

// announce notifies subscribers of the state at ver without persisting it.
func (s *SessionStore) announce(ver uint64) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if snap, ok := s.snapshotAt(ver); ok {
		s.notify(snap)
	}
}

func (s *SessionStore) snapshotAt(ver uint64) (domainauth.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != ver {
		return domainauth.State{}, false
	}
	return s.state.Clone(), true
}

func (s *SessionStore) persist(ctx context.Context, st domainauth.State) {
	if s.storage == nil {
		return
	}
	data, err := domainauth.EncodeState(st)
	if err == nil {
		err = s.storage.Save(context.WithoutCancel(ctx), domainauth.StorageKey, data)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "persist session state failed", "error", err)
	}
}

func (s *SessionStore) notify(st domainauth.State) {
	s.mu.Lock()
	subs := append([]subscriber(nil), s.subs...)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.fn(st.Clone())
	}
}

func (s *SessionStore) emit(op string, start time.Time, err error) {
	metrics.EmitAuthOperation(s.metrics, metrics.AuthMetric{
		Operation: op,
		Duration:  s.now().Sub(start),
		Err:       err,
	})
}

func (s *SessionStore) record(ctx context.Context, ev domainauth.Event) {
	if s.events == nil {
		return
	}
	ev.VisitorID = s.visitorID
	ev.At = s.now()
	if info, ok := ClientInfoFromContext(ctx); ok {
		ev.RemoteAddr = info.RemoteAddr
		ev.UserAgent = info.UserAgent
	}
	if err := s.events.Record(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.WarnContext(ctx, "record auth event failed", "event", ev.Type, "error", err)
	}
}

func superseded() error {
	return domainauth.NewError(domainauth.KindCanceled, "login superseded by logout")
}

// asAuthError guarantees callers an *auth.Error to inspect.
func asAuthError(err error) error {
	var ae *domainauth.Error
	if errors.As(err, &ae) {
		return err
	}
	return &domainauth.Error{Kind: domainauth.KindOf(err), Cause: err}
}
