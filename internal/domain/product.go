package domain

import "time"

type Product struct {
	ID         string
	Title      string
	Slug       string
	Price      int64
	CategoryID string
	CreatedAt  time.Time
}
