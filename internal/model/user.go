package model

import "time"

// User is a registered account.
//
// Users sign up with a username and password. Accounts created through the
// optional GitHub sign-in have a GitHubID and an empty PasswordHash, which
// means password login can never succeed for them.
type User struct {
	ID           string    `json:"id"                 db:"id"`
	Username     string    `json:"username"           db:"username"`
	PasswordHash string    `json:"-"                  db:"password_hash"`
	GitHubID     *int64    `json:"githubId,omitempty" db:"github_id"`
	CreatedAt    time.Time `json:"createdAt"          db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"          db:"updated_at"`
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
