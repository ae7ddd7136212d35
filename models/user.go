package models

import "github.com/uptrace/bun"

// User is a curator account with bcrypt-hashed password. Curators sign in
// to work the review queue and create aliases.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int    `bun:"id,pk,autoincrement" json:"id"`
	Username string `bun:"username,notnull,unique" json:"username"`
	Password string `bun:"password,notnull" json:"-"`
}
