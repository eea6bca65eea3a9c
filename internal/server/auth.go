package server

import (
	"errors"
	"sync"

	"coursechat/internal/common"
)

// Registry is the development-grade user store behind /api/register and
// /api/login. Passwords are bcrypt-hashed; successful logins are
// answered with a signed session token.
type Registry struct {
	mu    sync.Mutex
	users map[string]registeredUser
}

type registeredUser struct {
	user common.User
	hash string
}

var (
	ErrUserExists   = errors.New("user already registered")
	ErrBadLogin     = errors.New("unknown user or wrong password")
	ErrMissingField = errors.New("user id, display name and password are required")
)

func NewRegistry() *Registry {
	return &Registry{users: make(map[string]registeredUser)}
}

func (r *Registry) Register(userID, displayName, password string) (common.User, error) {
	if userID == "" || displayName == "" || password == "" {
		return common.User{}, ErrMissingField
	}

	hash, err := common.HashPassword(password)
	if err != nil {
		return common.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[userID]; exists {
		return common.User{}, ErrUserExists
	}
	user := common.User{ID: userID, DisplayName: displayName}
	r.users[userID] = registeredUser{user: user, hash: hash}
	return user, nil
}

// Login verifies the password and returns a session token.
func (r *Registry) Login(userID, password string) (string, common.User, error) {
	r.mu.Lock()
	entry, ok := r.users[userID]
	r.mu.Unlock()
	if !ok {
		return "", common.User{}, ErrBadLogin
	}
	if err := common.CheckPassword(password, entry.hash); err != nil {
		return "", common.User{}, ErrBadLogin
	}

	token, err := common.GenerateToken(entry.user.ID, entry.user.DisplayName)
	if err != nil {
		return "", common.User{}, err
	}
	return token, entry.user, nil
}
