package roles

import "time"

// Role is a role definition grants can target. The engine references these
// rows; it never mutates them outside the administrator endpoints here.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
