package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event schedule fields are display strings ("August 15-17, 2025"), not timestamps.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID          string    `bun:"id,pk" json:"id" yaml:"id"`
	Title       string    `bun:"title,notnull" json:"title" yaml:"title"`
	Description string    `bun:"description" json:"description" yaml:"description"`
	Date        string    `bun:"date" json:"date" yaml:"date"`
	Time        string    `bun:"time" json:"time" yaml:"time"`
	Location    string    `bun:"location" json:"location" yaml:"location"`
	Category    string    `bun:"category" json:"category" yaml:"category"`
	Image       string    `bun:"image" json:"image" yaml:"image"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt" yaml:"-"`
}
