package session

import (
	"errors"
	"sync"
)

// Role of the logged-in monitor.
type Role string

const (
	RoleGuard      Role = "guard"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleUnset      Role = ""
)

// ErrNoBackend is returned when a network call is attempted before the
// backend origin pair has been configured.
var ErrNoBackend = errors.New("backend origin not configured")

// Session holds the authenticated-identity state shared by every
// network-issuing component: monitor identity, selected project, and the
// swappable backend origin pair. It is passed explicitly to each component
// instead of living in ambient global state.
type Session struct {
	mu sync.RWMutex

	userID      string
	role        Role
	projectID   string
	projectName string
	loggedIn    bool

	accessToken  string
	refreshToken string

	primaryURL   string
	secondaryURL string
}

// New returns an empty session. Backend URLs start empty; calls made before
// SetBackends fail with ErrNoBackend rather than panicking.
func New() *Session {
	return &Session{role: RoleUnset}
}

// SetUser records the identity of the logged-in monitor.
func (s *Session) SetUser(userID string, role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.role = role
	s.loggedIn = userID != ""
}

// SetTokens stores the access/refresh token pair from a login response.
func (s *Session) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
}

// SetProject records the monitor's selected project.
func (s *Session) SetProject(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projectID = id
	s.projectName = name
}

// SetBackends installs the origin pair resolved from remote configuration.
func (s *Session) SetBackends(primary, secondary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primaryURL = primary
	s.secondaryURL = secondary
}

// SwapBackends exchanges the primary and secondary origins as a pair. An
// in-flight request keeps whichever origin it resolved at call time; only
// subsequent calls see the swap.
func (s *Session) SwapBackends() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primaryURL, s.secondaryURL = s.secondaryURL, s.primaryURL
}

// BackendURL resolves the current primary origin. Components call this per
// request, never caching the result, so a mid-session swap takes effect on
// the next call.
func (s *Session) BackendURL() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.primaryURL == "" || s.secondaryURL == "" {
		return "", ErrNoBackend
	}
	return s.primaryURL, nil
}

// UserID returns the logged-in monitor id.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// UserRole returns the monitor's role.
func (s *Session) UserRole() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// IsSupervisor reports whether the monitor holds the supervisor role.
func (s *Session) IsSupervisor() bool {
	return s.UserRole() == RoleSupervisor
}

// ProjectID returns the selected project id.
func (s *Session) ProjectID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectID
}

// ProjectName returns the selected project's display name.
func (s *Session) ProjectName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectName
}

// LoggedIn reports whether a monitor is authenticated.
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

// AccessToken returns the stored access token, empty before login.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// Reset clears identity and tokens back to defaults. The backend origin pair
// survives a reset; it belongs to the install, not the login.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = ""
	s.role = RoleUnset
	s.projectID = ""
	s.projectName = ""
	s.loggedIn = false
	s.accessToken = ""
	s.refreshToken = ""
}
