package account

import (
	"net/url"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         Role      `json:"role"`
	Avatar       string    `json:"avatar"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg"

// AvatarFor derives the avatar reference assigned at registration.
func AvatarFor(email string) string {
	return avatarBaseURL + "?seed=" + url.QueryEscape(email)
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SetRoleRequest struct {
	Role Role `json:"role" binding:"required,oneof=user admin"`
}
