package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persisted account of a wallet address
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Address       string     `bun:"address,notnull,unique" json:"address"`
	LoginCount    int        `bun:"login_count,notnull" json:"login_count"`
	LoggedInAt    *time.Time `bun:"logged_in_at,nullzero" json:"logged_in_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
