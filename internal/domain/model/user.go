package model

import "time"

// User is a staff member allowed to operate the board.
type User struct {
	ID           int64
	Login        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
