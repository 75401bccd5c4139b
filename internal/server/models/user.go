package models

import "time"

// User owns files. PasswordHash is an argon2id key derived from the
// password and Salt.
type User struct {
	ID           string
	UserName     string
	Salt         []byte
	PasswordHash []byte
	CreatedAt    time.Time
}
