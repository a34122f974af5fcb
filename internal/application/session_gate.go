package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/bnema/zonecharge/internal/ports"
)

const TokenKey = "auth/token"

type SessionListener func(domain.SessionState)

// SessionGate owns the session state. Login, Logout, Expire and Restore are its
// only writers; listeners are notified synchronously after every transition.
type SessionGate struct {
	auth   ports.AuthAPI
	tokens ports.KeyValueStore
	state  ports.DeviceStateRepository
	logger *slog.Logger

	// transition serializes writers so listeners see transitions in order.
	transition sync.Mutex
	mu         sync.RWMutex
	session    domain.SessionState
	token      string
	profile    domain.UserProfile
	listeners  map[int]SessionListener
	nextID     int
}

func NewSessionGate(auth ports.AuthAPI, tokens ports.KeyValueStore, state ports.DeviceStateRepository, logger *slog.Logger) *SessionGate {
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionGate{
		auth:      auth,
		tokens:    tokens,
		state:     state,
		logger:    logger,
		session:   domain.AnonymousSession(),
		listeners: map[int]SessionListener{},
	}
}

func (g *SessionGate) State() domain.SessionState {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.session
}

// Token returns the current auth token, empty when logged out.
func (g *SessionGate) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.token
}

// Profile returns the profile fetched at the last login or restore.
func (g *SessionGate) Profile() domain.UserProfile {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.profile
}

func (g *SessionGate) OnChange(listener SessionListener) func() {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextID
	g.nextID++
	g.listeners[id] = listener

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.listeners, id)
	}
}

func (g *SessionGate) Login(ctx context.Context, creds domain.Credentials) (domain.SessionState, error) {
	if strings.TrimSpace(creds.Username) == "" {
		return domain.SessionState{}, errors.New("username is required")
	}
	if creds.Password == "" {
		return domain.SessionState{}, errors.New("password is required")
	}

	token, err := g.auth.ObtainToken(ctx, creds)
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("obtain token: %w", err)
	}

	profile, err := g.auth.CurrentUser(ctx, token)
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("fetch current user: %w", err)
	}
	if profile.Username == "" {
		profile.Username = creds.Username
	}

	if err := g.tokens.Put(ctx, TokenKey, token); err != nil {
		return domain.SessionState{}, fmt.Errorf("store auth token: %w", err)
	}
	if err := g.state.SaveProfile(ctx, profile); err != nil {
		if rollbackErr := g.tokens.Delete(ctx, TokenKey); rollbackErr != nil {
			return domain.SessionState{}, fmt.Errorf("save profile and rollback stored token: %w", errors.Join(err, rollbackErr))
		}
		return domain.SessionState{}, fmt.Errorf("save profile: %w", err)
	}

	state := g.authenticate(token, profile)
	g.logger.Info("session: logged in", "username", state.Username, "role", state.Role)

	return state, nil
}

// Restore rebuilds the session from persisted state at startup. A rejected
// token is discarded; an unreachable server falls back to the saved profile.
func (g *SessionGate) Restore(ctx context.Context) (domain.SessionState, error) {
	token, err := g.tokens.Get(ctx, TokenKey)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return g.State(), nil
		}
		return g.State(), fmt.Errorf("load auth token: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return g.State(), nil
	}

	profile, err := g.auth.CurrentUser(ctx, token)
	if err == nil {
		if saveErr := g.state.SaveProfile(ctx, profile); saveErr != nil {
			g.logger.Warn("session: save restored profile failed", "error", saveErr)
		}
		return g.authenticate(token, profile), nil
	}

	if errors.Is(err, domain.ErrUnauthorized) {
		g.logger.Warn("session: stored token rejected", "error", err)
		if clearErr := g.clearPersisted(ctx); clearErr != nil {
			return g.State(), clearErr
		}
		return g.State(), nil
	}

	saved, ok, loadErr := g.state.LoadProfile(ctx)
	if loadErr != nil {
		return g.State(), fmt.Errorf("verify token: %w", errors.Join(err, loadErr))
	}
	if !ok {
		return g.State(), fmt.Errorf("verify token: %w", err)
	}

	g.logger.Warn("session: restored offline from saved profile", "username", saved.Username, "error", err)
	return g.authenticate(token, saved), nil
}

func (g *SessionGate) Logout(ctx context.Context) error {
	err := g.clearPersisted(ctx)
	g.reset()
	g.logger.Info("session: logged out")

	return err
}

// Expire forces a logout after the billing service rejected the token.
func (g *SessionGate) Expire(ctx context.Context) {
	if !g.State().IsAuthenticated {
		return
	}

	if err := g.clearPersisted(ctx); err != nil {
		g.logger.Warn("session: clear expired credentials failed", "error", err)
	}
	g.reset()
	g.logger.Warn("session: token rejected, logged out")
}

func (g *SessionGate) authenticate(token string, profile domain.UserProfile) domain.SessionState {
	state := domain.SessionState{
		IsAuthenticated: true,
		Role:            profile.Role,
		Username:        profile.Username,
	}
	if state.Role == "" {
		state.Role = domain.RoleNone
	}

	g.transitionTo(state, token, profile)
	return state
}

func (g *SessionGate) reset() {
	g.transitionTo(domain.AnonymousSession(), "", domain.UserProfile{})
}

func (g *SessionGate) transitionTo(state domain.SessionState, token string, profile domain.UserProfile) {
	g.transition.Lock()
	defer g.transition.Unlock()

	g.mu.Lock()
	g.session = state
	g.token = token
	g.profile = profile
	listeners := make([]SessionListener, 0, len(g.listeners))
	for _, listener := range g.listeners {
		listeners = append(listeners, listener)
	}
	g.mu.Unlock()

	for _, listener := range listeners {
		listener(state)
	}
}

func (g *SessionGate) clearPersisted(ctx context.Context) error {
	var errs error
	if err := g.tokens.Delete(ctx, TokenKey); err != nil {
		errs = errors.Join(errs, fmt.Errorf("delete auth token: %w", err))
	}
	if err := g.state.ClearProfile(ctx); err != nil {
		errs = errors.Join(errs, fmt.Errorf("clear profile: %w", err))
	}

	return errs
}
