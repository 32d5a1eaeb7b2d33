// Package auth models who is using the board and what they may do.
//
// There is no login protocol: a Session names the current user, and
// mutating entry points consult it through the Authorizer interface.
package auth

import (
	"fmt"
	"strings"
	"sync"
)

// Role is a coarse permission level.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleContributor Role = "contributor"
)

// Action is something a caller may ask to do.
type Action string

const (
	ActionView Action = "view"
	ActionEdit Action = "edit"
)

// Capabilities is the set of actions granted to a role.
type Capabilities map[Action]bool

// CapabilitiesFor returns the capability set of role. Unknown roles get none.
func CapabilitiesFor(role Role) Capabilities {
	switch role {
	case RoleAdmin:
		return Capabilities{ActionView: true, ActionEdit: true}
	case RoleContributor:
		return Capabilities{ActionView: true}
	}
	return Capabilities{}
}

// Authorizer answers whether an action is currently allowed.
type Authorizer interface {
	CanPerform(action Action) bool
}

// AllowAll grants every action. Used when no session is configured.
type AllowAll struct{}

func (AllowAll) CanPerform(Action) bool { return true }

// User is a board user.
type User struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// DefaultUsers are the built-in users, the first being the initial one.
var DefaultUsers = []User{
	{Name: "Alice", Role: RoleAdmin},
	{Name: "Bob", Role: RoleContributor},
}

// Session tracks the current user. It is safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	users   []User
	current User
}

// NewSession returns a session over users starting as the user named initial.
// An empty or unknown initial name selects the first user.
func NewSession(users []User, initial string) *Session {
	if len(users) == 0 {
		users = DefaultUsers
	}
	s := &Session{users: append([]User(nil), users...), current: users[0]}
	if u, ok := s.find(initial); ok {
		s.current = u
	}
	return s
}

func (s *Session) find(name string) (User, bool) {
	for _, u := range s.users {
		if strings.EqualFold(u.Name, name) {
			return u, true
		}
	}
	return User{}, false
}

// Current returns the current user.
func (s *Session) Current() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Users lists the users that can be switched to.
func (s *Session) Users() []User {
	return append([]User(nil), s.users...)
}

// Switch makes the named user current.
func (s *Session) Switch(name string) (User, error) {
	u, ok := s.find(name)
	if !ok {
		return User{}, fmt.Errorf("unknown user %q", name)
	}
	s.mu.Lock()
	s.current = u
	s.mu.Unlock()
	return u, nil
}

// CanPerform implements Authorizer for the current user.
func (s *Session) CanPerform(action Action) bool {
	return CapabilitiesFor(s.Current().Role)[action]
}
