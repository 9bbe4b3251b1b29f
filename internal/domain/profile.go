package domain

import "time"

type Profile struct {
	UserID    string
	Email     string
	FullName  string
	IsAdmin   bool
	CreatedAt time.Time
}
