package profile

import "time"

// Profile is the per-user contact card.
type Profile struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`
	AvatarPath *string   `json:"-"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	Roles      []string  `json:"roles"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
