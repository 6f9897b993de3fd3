package model

import "time"

// Account status values stored in users.status.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusLocked   = "locked"
)

// User mirrors the `users` table. The password column holds a bcrypt
// hash, never a plaintext value. Handlers define separate response
// types; these structs stay internal to the repository layer.
type User struct {
	ID        uint64    // users.id
	Username  string    // users.username (unique)
	Email     string    // users.email (unique)
	Password  string    // users.password (bcrypt hash)
	Status    string    // users.status (active|inactive|locked)
	CreatedAt time.Time // users.created_at
	UpdatedAt time.Time // users.updated_at
}

// Profile mirrors the `user_profiles` table. Each user owns at most
// one profile row holding personal details.
type Profile struct {
	ID        uint64     // user_profiles.id
	UserID    uint64     // user_profiles.user_id
	FirstName string     // user_profiles.first_name
	LastName  string     // user_profiles.last_name
	Gender    int        // user_profiles.gender (0 unisex, 1 male, 2 female)
	Birthday  *time.Time // user_profiles.birthday (nullable)
	Address   string     // user_profiles.address
	Phone     string     // user_profiles.phone
	Company   string     // user_profiles.company
	AvatarURL string     // user_profiles.avatar_url
	CreatedAt time.Time  // user_profiles.created_at
	UpdatedAt time.Time  // user_profiles.updated_at
}
