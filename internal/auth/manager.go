package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emilythestrangee/social-media/backend/internal/models"
)

// Manager holds the signed-in user of every live session and keeps that view
// in sync with other instances through a Notifier. It is created once at
// startup and handed to whatever needs it.
type Manager struct {
	store    SessionStore
	notifier Notifier
	provider Provider
	tokens   *TokenIssuer
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	started  bool
	stopped  bool
	sessions map[string]heldSession
	subs     map[int]func(Event)
	nextSub  int

	wg       sync.WaitGroup
	stopOnce sync.Once
}

type heldSession struct {
	user      *models.User
	expiresAt time.Time
}

type ManagerConfig struct {
	Store    SessionStore
	Notifier Notifier
	Provider Provider
	Tokens   *TokenIssuer
	// SessionTTL bounds new sessions. Defaults to seven days.
	SessionTTL time.Duration
	Logger     *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	return &Manager{
		store:    cfg.Store,
		notifier: cfg.Notifier,
		provider: cfg.Provider,
		tokens:   cfg.Tokens,
		ttl:      cfg.SessionTTL,
		logger:   cfg.Logger,
		now:      time.Now,
		sessions: map[string]heldSession{},
		subs:     map[int]func(Event){},
	}
}

// Start loads the active sessions once and begins consuming auth events.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	active, err := m.store.ActiveSessions(ctx)
	if err != nil {
		m.mu.Lock()
		m.started = false
		m.mu.Unlock()
		return fmt.Errorf("load active sessions: %w", err)
	}

	m.mu.Lock()
	for _, s := range active {
		if s.User != nil {
			m.sessions[s.ID] = heldSession{user: s.User, expiresAt: s.ExpiresAt}
		}
	}
	m.mu.Unlock()
	m.logger.Info("auth manager started", "sessions", len(active))

	m.wg.Add(1)
	go m.consume(m.notifier.Events())
	return nil
}

// Stop unsubscribes from the notifier and waits for the consumer to exit.
func (m *Manager) Stop() error {
	var err error
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopped = true
		m.mu.Unlock()
		err = m.notifier.Close()
		m.wg.Wait()
	})
	return err
}

func (m *Manager) consume(events <-chan Event) {
	defer m.wg.Done()
	for ev := range events {
		m.apply(ev)
		m.fanOut(ev)
	}
}

// apply replaces the held state for the event's session wholesale.
func (m *Manager) apply(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ev.Type {
	case SignedIn:
		if ev.User != nil {
			expiresAt := ev.ExpiresAt
			if expiresAt.IsZero() {
				expiresAt = m.now().Add(m.ttl)
			}
			m.sessions[ev.SessionID] = heldSession{user: ev.User, expiresAt: expiresAt}
		}
	case SignedOut:
		delete(m.sessions, ev.SessionID)
	default:
		m.logger.Warn("ignoring unknown auth event", "type", string(ev.Type))
	}
}

func (m *Manager) fanOut(ev Event) {
	m.mu.RLock()
	subs := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// OnAuthStateChange registers fn for every event and returns its unsubscribe func.
func (m *Manager) OnAuthStateChange(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// User returns the user signed in on sessionID, or nil.
func (m *Manager) User(sessionID string) *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	held, ok := m.sessions[sessionID]
	if !ok || !m.now().Before(held.expiresAt) {
		return nil
	}
	return held.user
}

// SignInURL is where the browser is sent to sign in with the provider.
func (m *Manager) SignInURL(state string) string {
	return m.provider.AuthCodeURL(state)
}

// CompleteSignIn finishes the OAuth flow and returns the new session and its token.
func (m *Manager) CompleteSignIn(ctx context.Context, code string) (*models.Session, string, error) {
	profile, err := m.provider.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("%s sign-in: %w", m.provider.Name(), err)
	}
	if err := m.store.UpsertUser(ctx, profile); err != nil {
		return nil, "", fmt.Errorf("save user: %w", err)
	}

	session := &models.Session{
		UserID:    profile.ID,
		ExpiresAt: m.now().Add(m.ttl),
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}
	session.User = profile

	token, err := m.tokens.Issue(session)
	if err != nil {
		return nil, "", err
	}

	m.hold(session)
	m.publish(ctx, Event{Type: SignedIn, SessionID: session.ID, User: profile, ExpiresAt: session.ExpiresAt})
	m.logger.Info("user signed in", "user", profile.ID, "login", profile.UserName)
	return session, token, nil
}

// SignOut ends the session. The locally held user is cleared even when the
// store delete fails; that error is still returned.
func (m *Manager) SignOut(ctx context.Context, sessionID string) error {
	storeErr := m.store.DeleteSession(ctx, sessionID)
	if errors.Is(storeErr, ErrSessionNotFound) {
		storeErr = nil
	}

	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	m.publish(ctx, Event{Type: SignedOut, SessionID: sessionID})

	if storeErr != nil {
		return fmt.Errorf("delete session: %w", storeErr)
	}
	return nil
}

// Authenticate resolves a token to its session id and user. A session created
// by another instance whose event has not arrived yet is loaded from the store.
func (m *Manager) Authenticate(ctx context.Context, token string) (string, *models.User, error) {
	claims, err := m.tokens.Parse(token)
	if err != nil {
		return "", nil, err
	}
	if user := m.User(claims.ID); user != nil {
		return claims.ID, user, nil
	}

	session, err := m.store.GetSession(ctx, claims.ID)
	if err != nil {
		return "", nil, err
	}
	if !m.now().Before(session.ExpiresAt) {
		return "", nil, ErrSessionExpired
	}
	if session.User == nil || session.UserID != claims.Subject {
		return "", nil, ErrInvalidToken
	}
	m.hold(session)
	return session.ID, session.User, nil
}

func (m *Manager) hold(s *models.Session) {
	m.mu.Lock()
	m.sessions[s.ID] = heldSession{user: s.User, expiresAt: s.ExpiresAt}
	m.mu.Unlock()
}

func (m *Manager) publish(ctx context.Context, ev Event) {
	m.mu.RLock()
	stopped := m.stopped
	m.mu.RUnlock()
	if stopped {
		return
	}
	if err := m.notifier.Publish(context.WithoutCancel(ctx), ev); err != nil {
		m.logger.Warn("failed to publish auth event", "type", string(ev.Type), "error", err)
	}
}
