package authstate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"taskdeck/internal/gateway"
	"taskdeck/internal/session"
)

type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
	StatusError          Status = "error"
)

type State struct {
	Status      Status
	CurrentUser session.User
	Token       string
	IsLoading   bool
	Err         string
}

func (s State) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated && s.Token != "" && s.CurrentUser.ID != 0
}

type Gateway interface {
	Login(ctx context.Context, email, password string) (gateway.AuthResponse, error)
	Register(ctx context.Context, email, username, password string) (gateway.AuthResponse, error)
}

type SessionStore interface {
	Save(user session.User, token string) error
	Current() (session.User, bool)
	Token() string
	Clear() error
}

// Machine drives the anonymous/authenticating/authenticated/error transitions
// and is the single writer of the session store (the gateway's 401 clear
// aside).
type Machine struct {
	mu       sync.Mutex
	gw       Gateway
	sessions SessionStore
	log      *slog.Logger
	state    State
	epoch    uint64
	onLogout func()
}

// NewMachine resolves the initial state synchronously from the session store:
// a stored token+user rehydrates straight to authenticated, anything else is
// anonymous. IsLoading is only true inside that resolution window.
func NewMachine(gw Gateway, sessions SessionStore, log *slog.Logger) *Machine {
	if log == nil {
		log = slog.Default()
	}
	m := &Machine{gw: gw, sessions: sessions, log: log}
	m.state = State{Status: StatusAnonymous, IsLoading: true}
	if user, ok := sessions.Current(); ok {
		m.state = State{Status: StatusAuthenticated, CurrentUser: user, Token: sessions.Token()}
	} else {
		m.state = State{Status: StatusAnonymous}
	}
	return m
}

func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Login(ctx context.Context, email, password string) error {
	epoch := m.begin()
	res, err := m.gw.Login(ctx, email, password)
	if err != nil {
		return m.fail(epoch, err, "Login failed")
	}
	return m.settle(epoch, res, "Login failed - no token received")
}

// Signup registers a new account; the username is the email local part, as
// the signup form never asks for one.
func (m *Machine) Signup(ctx context.Context, email, password string) error {
	epoch := m.begin()
	username := email
	if at := strings.Index(email, "@"); at >= 0 {
		username = email[:at]
	}
	res, err := m.gw.Register(ctx, email, username, password)
	if err != nil {
		return m.fail(epoch, err, "Signup failed")
	}
	return m.settle(epoch, res, "Signup failed - no token received")
}

// OnLogout registers a hook run after every logout, once the session store
// is cleared. Used to drop other per-user local state such as cached
// transcripts.
func (m *Machine) OnLogout(fn func()) {
	m.mu.Lock()
	m.onLogout = fn
	m.mu.Unlock()
}

// Logout clears the session store unconditionally and drops to anonymous. A
// store failure is logged but never blocks the logout.
func (m *Machine) Logout() {
	if err := m.sessions.Clear(); err != nil {
		m.log.Warn("failed to clear session on logout", "error", err)
	}
	m.mu.Lock()
	m.epoch++
	m.state = State{Status: StatusAnonymous}
	hook := m.onLogout
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (m *Machine) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.state.Status = StatusAuthenticating
	m.state.IsLoading = true
	m.state.Err = ""
	return m.epoch
}

func (m *Machine) settle(epoch uint64, res gateway.AuthResponse, noTokenMsg string) error {
	if res.AccessToken == "" {
		return m.fail(epoch, errors.New(noTokenMsg), noTokenMsg)
	}
	user := session.User{ID: res.ID, Email: res.Email, Username: res.Username}
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		// A newer transition superseded this response; drop it without
		// touching the store, which belongs to the newer transition now.
		return nil
	}
	if err := m.sessions.Save(user, res.AccessToken); err != nil {
		m.state = State{Status: StatusError, Err: "Failed to persist session"}
		return err
	}
	m.state = State{Status: StatusAuthenticated, CurrentUser: user, Token: res.AccessToken}
	return nil
}

func (m *Machine) fail(epoch uint64, err error, generic string) error {
	msg := failureMessage(err, generic)
	m.mu.Lock()
	if epoch == m.epoch {
		m.state = State{Status: StatusError, Err: msg}
	}
	m.mu.Unlock()
	return err
}

func failureMessage(err error, generic string) string {
	if errors.Is(err, gateway.ErrInvalidResponse) {
		return "Invalid response format from server"
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Detail) != "" {
		return apiErr.Detail
	}
	if err != nil && strings.TrimSpace(err.Error()) != "" {
		return err.Error()
	}
	return generic
}
