// Package memory implementa core.Repository en memoria, para tests y para
// levantar la API sin Postgres (storage.driver=memory).
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kateeridumb/Library/internal/store/core"
)

// DefaultRoles replica el seed de la migración inicial.
var DefaultRoles = []string{
	core.RoleStudent, core.RoleGuest, core.RoleAdmin, core.RoleLibrarian, core.RoleInstitutionRepresentative,
}

type Store struct {
	mu     sync.Mutex
	users  map[int64]*core.User
	roles  []core.Role
	nextID int64
}

var _ core.Repository = (*Store)(nil)

// New crea el store con los roles dados (DefaultRoles si no se pasa ninguno).
func New(roles ...string) *Store {
	if len(roles) == 0 {
		roles = DefaultRoles
	}
	s := &Store{users: map[int64]*core.User{}}
	for i, r := range roles {
		s.roles = append(s.roles, core.Role{ID: int64(i + 1), Name: r})
	}
	return s
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

func clone(u *core.User) *core.User {
	c := *u
	if u.TwoFactorCode != nil {
		v := *u.TwoFactorCode
		c.TwoFactorCode = &v
	}
	if u.TwoFactorCodeExpiry != nil {
		v := *u.TwoFactorCodeExpiry
		c.TwoFactorCodeExpiry = &v
	}
	if u.PasswordResetToken != nil {
		v := *u.PasswordResetToken
		c.PasswordResetToken = &v
	}
	if u.PasswordResetTokenExpiry != nil {
		v := *u.PasswordResetTokenExpiry
		c.PasswordResetTokenExpiry = &v
	}
	return &c
}

func (s *Store) find(pred func(*core.User) bool) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *core.User
	for _, u := range s.users {
		if pred(u) && (best == nil || u.ID < best.ID) {
			best = u
		}
	}
	if best == nil {
		return nil, core.ErrNotFound
	}
	return clone(best), nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*core.User, error) {
	return s.find(func(u *core.User) bool { return u.Username == username })
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	return s.find(func(u *core.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*core.User, error) {
	return s.find(func(u *core.User) bool { return u.ID == id })
}

func (s *Store) ListRoles(context.Context) ([]core.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Role(nil), s.roles...), nil
}

func (s *Store) GetRoleByName(_ context.Context, name string) (*core.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.Name == name {
			r := r
			return &r, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) GetRoleByID(_ context.Context, id int64) (*core.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var roleName string
	for _, r := range s.roles {
		if r.ID == u.RoleID {
			roleName = r.Name
		}
	}
	if roleName == "" {
		return core.ErrInvalid
	}
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return core.ErrConflict
		}
	}
	s.nextID++
	u.ID = s.nextID
	u.RoleName = roleName
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = clone(u)
	return nil
}

// mutate aplica fn bajo lock; ErrNotFound si el usuario no existe.
func (s *Store) mutate(id int64, fn func(*core.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.ErrNotFound
	}
	fn(u)
	return nil
}

func (s *Store) UpdatePassword(_ context.Context, userID int64, hash, salt string) error {
	return s.mutate(userID, func(u *core.User) {
		u.PasswordHash, u.PasswordSalt = hash, salt
	})
}

func (s *Store) SetTwoFactorEnabled(_ context.Context, userID int64, enabled bool) error {
	return s.mutate(userID, func(u *core.User) {
		u.IsTwoFactorEnabled = enabled
		if !enabled {
			u.TwoFactorCode, u.TwoFactorCodeExpiry = nil, nil
		}
	})
}

func (s *Store) SetTwoFactorCode(_ context.Context, userID int64, code string, expiry time.Time) error {
	exp := expiry.UTC()
	return s.mutate(userID, func(u *core.User) {
		u.TwoFactorCode, u.TwoFactorCodeExpiry = &code, &exp
	})
}

func (s *Store) ConsumeTwoFactorCode(_ context.Context, userID int64, code string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || !u.IsTwoFactorEnabled || u.TwoFactorCode == nil || u.TwoFactorCodeExpiry == nil {
		return false, nil
	}
	if *u.TwoFactorCode != code || !u.TwoFactorCodeExpiry.After(now) {
		return false, nil
	}
	u.TwoFactorCode, u.TwoFactorCodeExpiry = nil, nil
	return true, nil
}

func (s *Store) ClearTwoFactorCode(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.TwoFactorCode, u.TwoFactorCodeExpiry = nil, nil
	}
	return nil
}

func (s *Store) SetResetToken(_ context.Context, userID int64, tokenHash string, expiry time.Time) error {
	exp := expiry.UTC()
	return s.mutate(userID, func(u *core.User) {
		u.PasswordResetToken, u.PasswordResetTokenExpiry = &tokenHash, &exp
	})
}

func (s *Store) resetHolder(tokenHash string, now time.Time) *core.User {
	for _, u := range s.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == tokenHash &&
			u.PasswordResetTokenExpiry != nil && u.PasswordResetTokenExpiry.After(now) {
			return u
		}
	}
	return nil
}

func (s *Store) ResetTokenValid(_ context.Context, tokenHash string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetHolder(tokenHash, now) != nil, nil
}

func (s *Store) ConsumeResetToken(_ context.Context, tokenHash string, now time.Time, hash, salt string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.resetHolder(tokenHash, now)
	if u == nil {
		return false, nil
	}
	u.PasswordHash, u.PasswordSalt = hash, salt
	u.PasswordResetToken, u.PasswordResetTokenExpiry = nil, nil
	return true, nil
}
