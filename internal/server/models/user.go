// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a row of the users table. Password holds the bcrypt digest, never
// the plaintext; RefreshToken is empty when no session is active.
type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	Avatar       string
	CoverImage   string
	Password     string
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	plainPassword string
	passwordDirty bool
}

// SetPassword records a new plaintext password. The digest is computed by the
// service before the user is written, so repositories only touch the password
// column when PasswordChanged reports true.
func (u *User) SetPassword(plain string) {
	u.plainPassword = plain
	u.passwordDirty = true
}

// PasswordChanged reports whether SetPassword was called since the last
// ApplyPasswordHash.
func (u *User) PasswordChanged() bool { return u.passwordDirty }

// PendingPassword returns the plaintext set by SetPassword.
func (u *User) PendingPassword() string { return u.plainPassword }

// ApplyPasswordHash stores digest and forgets the plaintext.
func (u *User) ApplyPasswordHash(digest string) {
	u.Password = digest
	u.plainPassword = ""
	u.passwordDirty = false
}

// Public returns the sanitized view of u that is safe to send to clients.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// PublicUser is a User without password and refresh token.
type PublicUser struct {
	ID         string    `json:"_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
