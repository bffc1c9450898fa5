package queue

import (
	"sort"
	"time"

	"github.com/emirpasic/gods/maps/hashmap"
	"github.com/labstack/gommon/random"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

const tokenLength = 32

type Session struct {
	Identity Identity
	Role     Role

	// Handed to the client at join/login and presented on every call.
	Token string

	CreateTime time.Time
}

// Registry enforces one live session per identity and role. Students and
// teachers use separate namespaces.
type Registry struct {
	// Key value: identity -> session.
	students *hashmap.Map
	teachers *hashmap.Map

	// Key value: token -> session, both roles.
	tokens *hashmap.Map

	newToken func() string
}

func NewRegistry() *Registry {
	return &Registry{
		students: hashmap.New(),
		teachers: hashmap.New(),
		tokens:   hashmap.New(),
		newToken: func() string {
			return random.String(tokenLength, random.Alphanumeric)
		},
	}
}

func (r *Registry) namespace(role Role) *hashmap.Map {
	if role == RoleTeacher {
		return r.teachers
	}
	return r.students
}

// Create registers a new session, failing with ErrDuplicateSession when
// identity already holds one under role.
func (r *Registry) Create(identity Identity, role Role, now time.Time) (*Session, error) {
	sessions := r.namespace(role)
	if _, ok := sessions.Get(identity); ok {
		return nil, ErrDuplicateSession
	}

	token := r.newToken()
	for _, taken := r.tokens.Get(token); taken; _, taken = r.tokens.Get(token) {
		token = r.newToken()
	}

	session := &Session{
		Identity:   identity,
		Role:       role,
		Token:      token,
		CreateTime: now,
	}
	sessions.Put(identity, session)
	r.tokens.Put(token, session)
	return session, nil
}

// Destroy removes the session of identity. Returns false when there was
// none.
func (r *Registry) Destroy(identity Identity, role Role) bool {
	sessions := r.namespace(role)
	value, ok := sessions.Get(identity)
	if !ok {
		return false
	}
	sessions.Remove(identity)
	r.tokens.Remove(value.(*Session).Token)
	return true
}

// Verify reports whether identity holds a live session under role that
// was issued with token.
func (r *Registry) Verify(identity Identity, role Role, token string) bool {
	if token == "" {
		return false
	}
	value, ok := r.namespace(role).Get(identity)
	if !ok {
		return false
	}
	return value.(*Session).Token == token
}

// Lookup finds the session a token belongs to.
func (r *Registry) Lookup(token string, role Role) (*Session, bool) {
	if token == "" {
		return nil, false
	}
	value, ok := r.tokens.Get(token)
	if !ok {
		return nil, false
	}
	session := value.(*Session)
	if session.Role != role {
		return nil, false
	}
	return session, true
}

// Students returns student sessions ordered by join time.
func (r *Registry) Students() []*Session {
	sessions := make([]*Session, 0, r.students.Size())
	for _, value := range r.students.Values() {
		sessions = append(sessions, value.(*Session))
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreateTime.Equal(sessions[j].CreateTime) {
			return sessions[i].CreateTime.Before(sessions[j].CreateTime)
		}
		return sessions[i].Identity < sessions[j].Identity
	})
	return sessions
}

func (r *Registry) Count(role Role) int {
	return r.namespace(role).Size()
}
