package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
	"golang.org/x/crypto/bcrypt"
)

// DefaultMaxActiveUsers is the system-wide cap on simultaneously active accounts.
const DefaultMaxActiveUsers = 30

// DefaultMinPasswordLength is the minimum accepted password length.
const DefaultMinPasswordLength = 6

// User is an account in the user directory.
type User struct {
	ID           types.UserID
	Username     string
	PasswordHash string `masq:"secret"`
	Role         types.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    *time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == types.RoleAdmin
}

// Clone returns a copy that does not share the LastLogin pointer.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

// NormalizeUsername trims surrounding whitespace and lowercases the name.
func NormalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// HashPassword hashes a plaintext password with bcrypt. A cost of zero
// selects bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", goerr.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password against the stored hash.
func (u *User) VerifyPassword(password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// UserSummary is the public shape of a user embedded in other views.
type UserSummary struct {
	ID       types.UserID `json:"id"`
	Username string       `json:"username"`
	Role     types.Role   `json:"role,omitempty"`
}

// UserView is the API representation of a user. It never carries the hash.
type UserView struct {
	ID        types.UserID `json:"id"`
	Username  string       `json:"username"`
	Role      types.Role   `json:"role"`
	IsActive  bool         `json:"isActive"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	LastLogin *time.Time   `json:"lastLogin,omitempty"`
}

func (u *User) View() *UserView {
	return &UserView{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		LastLogin: u.LastLogin,
	}
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Role: u.Role}
}
